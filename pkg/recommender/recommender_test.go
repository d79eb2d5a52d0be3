package recommender

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/opscart/s3-tier-optimizer/pkg/analyzer"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
)

// hotTable mirrors the default ladder with a tier literally named HOT
func hotTable(t *testing.T) *pricing.RuleTable {
	t.Helper()
	table, err := pricing.NewRuleTable([]models.TierRule{
		{Tier: "HOT", MinAgeDays: 0, MaxAgeDays: 30, PricePerGBMonth: 0.023},
		{Tier: "COOL", MinAgeDays: 30, MaxAgeDays: 90, PricePerGBMonth: 0.0125},
		{Tier: "ARCHIVE", MinAgeDays: 90, MaxAgeDays: 365, PricePerGBMonth: 0.0036},
		{Tier: "DEEP_ARCHIVE", MinAgeDays: 365, PricePerGBMonth: 0.00099},
	}, pricing.WithPrices(map[string]float64{"FLEX": 0.023}))
	require.NoError(t, err)
	return table
}

func inventory(objs ...models.ClassifiedObject) *analyzer.Inventory {
	return &analyzer.Inventory{Objects: objs, TotalObjects: len(objs)}
}

func object(key string, size int64, tier string, age int) models.ClassifiedObject {
	return models.ClassifiedObject{
		ObjectRecord: models.ObjectRecord{
			Key:            key,
			SizeBytes:      size,
			CurrentTier:    tier,
			LastModifiedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		AgeInDays:   age,
		AgeCategory: models.AgeCategoryFor(age),
	}
}

func TestScenarioLargeOldObjectGoesDeep(t *testing.T) {
	r := New(hotTable(t), nil)

	rec, err := r.Evaluate(object("big", 500_000_000, "HOT", 400))
	require.NoError(t, err)

	assert.Equal(t, "DEEP_ARCHIVE", rec.RecommendedTier)
	want := (500_000_000.0 / float64(1<<30)) * (0.023 - 0.00099)
	assert.InDelta(t, want, rec.PotentialMonthlySavings, 1e-12)
}

func TestScenarioSmallObjectStaysHot(t *testing.T) {
	r := New(hotTable(t), nil)

	rec, err := r.Evaluate(object("tiny", 1000, "HOT", 500))
	require.NoError(t, err)
	assert.Equal(t, "HOT", rec.RecommendedTier)
	assert.Zero(t, rec.PotentialMonthlySavings)

	result := r.Recommend(inventory(object("tiny", 1000, "HOT", 500)))
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 1, result.Unchanged)
}

func TestSizeFloorAlwaysWins(t *testing.T) {
	table := hotTable(t)
	for _, size := range []int64{0, 1, 4096, 131071} {
		for _, age := range []int{0, 29, 30, 90, 365, 10_000} {
			assert.Equal(t, "HOT", table.RecommendTier(age, size), "size=%d age=%d", size, age)
		}
	}
}

func TestRecommendFiltersAndCounts(t *testing.T) {
	r := New(hotTable(t), nil)

	inv := inventory(
		object("stay", 1<<30, "HOT", 5),
		object("cool", 1<<30, "HOT", 45),
		object("archive", 1<<30, "COOL", 100),
		object("unknown", 1<<30, "MYSTERY", 400),
		object("warmer", 1<<30, "DEEP_ARCHIVE", 10),
		object("same-price", 1<<30, "FLEX", 5),
	)

	result := r.Recommend(inv)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "cool", result.Recommendations[0].Key)
	assert.Equal(t, "COOL", result.Recommendations[0].RecommendedTier)
	assert.Equal(t, "archive", result.Recommendations[1].Key)
	assert.Equal(t, "ARCHIVE", result.Recommendations[1].RecommendedTier)

	assert.Equal(t, 1, result.Unchanged)
	assert.Equal(t, 1, result.Unpriced)
	assert.Equal(t, 2, result.NoGain)

	for _, rec := range result.Recommendations {
		assert.NotEqual(t, rec.CurrentTier, rec.RecommendedTier)
		assert.GreaterOrEqual(t, rec.PotentialMonthlySavings, 0.0)
	}

	assert.InDelta(t, (0.023-0.0125)+(0.0125-0.0036), result.TotalMonthlySavings(), 1e-12)
}

func TestRecommendLogsNoGainPairs(t *testing.T) {
	table, err := pricing.DefaultRuleTable()
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(table, zap.New(core))

	inv := inventory(
		object("deep-a", 1<<30, pricing.TierDeepArchive, 100),
		object("deep-b", 1<<30, pricing.TierDeepArchive, 120),
		object("onezone", 1<<30, pricing.TierOneZoneIA, 40),
		object("old", 1<<30, pricing.TierStandard, 400),
	)

	result := r.Recommend(inv)

	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "old", result.Recommendations[0].Key)
	assert.Equal(t, 3, result.NoGain)

	entries := logs.FilterMessage("Recommended tier is not cheaper, objects left out of recommendations").AllUntimed()
	require.Len(t, entries, 2)

	got := make(map[string]int64)
	for _, e := range entries {
		fields := e.ContextMap()
		got[fields["from_tier"].(string)+"->"+fields["to_tier"].(string)] = fields["objects"].(int64)
	}
	assert.Equal(t, map[string]int64{
		"DEEP_ARCHIVE->GLACIER_IR": 2,
		"ONEZONE_IA->STANDARD_IA":  1,
	}, got)
}

func TestRecommendIsIdempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	classifier := analyzer.NewClassifier(analyzer.WithClock(func() time.Time { return now }))
	r := New(hotTable(t), nil)

	var records []models.ObjectRecord
	for i := 0; i < 200; i++ {
		records = append(records, models.ObjectRecord{
			Key:            fmt.Sprintf("logs/%03d.gz", i),
			SizeBytes:      int64(i) * 50_000,
			CurrentTier:    "HOT",
			LastModifiedAt: now.Add(-time.Duration(i*3) * 24 * time.Hour),
		})
	}

	inv1, err := classifier.Classify(records)
	require.NoError(t, err)
	inv2, err := classifier.Classify(records)
	require.NoError(t, err)

	assert.Equal(t, r.Recommend(inv1), r.Recommend(inv2))
}

func TestRecommendEmptyInventory(t *testing.T) {
	r := New(hotTable(t), nil)

	result := r.Recommend(&analyzer.Inventory{})
	assert.Empty(t, result.Recommendations)
	assert.Zero(t, result.TotalMonthlySavings())
}

func TestSavingsNeverNegative(t *testing.T) {
	table, err := pricing.DefaultRuleTable()
	require.NoError(t, err)
	r := New(table, nil)

	tiers := []string{"STANDARD", "STANDARD_IA", "ONEZONE_IA", "INTELLIGENT_TIERING", "GLACIER_IR", "GLACIER", "DEEP_ARCHIVE"}
	for _, tier := range tiers {
		for _, age := range []int{0, 31, 91, 181, 366} {
			rec, err := r.Evaluate(object("k", 1<<31, tier, age))
			require.NoError(t, err)
			assert.False(t, math.Signbit(rec.PotentialMonthlySavings), "%s age %d", tier, age)
		}
	}
}
