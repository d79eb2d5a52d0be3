package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/opscart/s3-tier-optimizer/pkg/aggregator"
	"github.com/opscart/s3-tier-optimizer/pkg/executor"
	"github.com/opscart/s3-tier-optimizer/pkg/metrics"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const gib = int64(1 << 30)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

type fakeSource struct {
	buckets map[string][]models.ObjectRecord
	errs    map[string]error
}

func (f *fakeSource) ListObjects(ctx context.Context, bucket string) ([]models.ObjectRecord, error) {
	if err, ok := f.errs[bucket]; ok {
		return nil, err
	}
	return f.buckets[bucket], nil
}

type fakeSink struct {
	mu       sync.Mutex
	analyses []*models.BucketAnalysis
	runs     []*models.MigrationResult
	err      error
}

func (f *fakeSink) SaveAnalysis(ctx context.Context, a *models.BucketAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, a)
	return f.err
}

func (f *fakeSink) SaveMigrationRun(ctx context.Context, r *models.MigrationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, r)
	return f.err
}

type fakeBackend struct {
	mu    sync.Mutex
	moves map[string]string
}

func (f *fakeBackend) SetTier(ctx context.Context, bucket, key, tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moves == nil {
		f.moves = make(map[string]string)
	}
	f.moves[key] = tier
	return nil
}

type countingMigrator struct{ calls int }

func (c *countingMigrator) Execute(ctx context.Context, bucket string, eligible []models.Recommendation) (*models.MigrationResult, error) {
	c.calls++
	return &models.MigrationResult{Bucket: bucket, Outcome: models.OutcomeSucceeded}, nil
}

type fakeRegions struct{ region string }

func (f fakeRegions) GetBucketRegion(ctx context.Context, bucket string) (string, error) {
	return f.region, nil
}

func logsBucket() []models.ObjectRecord {
	return []models.ObjectRecord{
		{Key: "app/old.log", SizeBytes: gib, CurrentTier: pricing.TierStandard, LastModifiedAt: daysAgo(400)},
		{Key: "app/mid.csv", SizeBytes: gib, CurrentTier: pricing.TierStandard, LastModifiedAt: daysAgo(45)},
		{Key: "app/new.txt", SizeBytes: gib, CurrentTier: pricing.TierStandard, LastModifiedAt: daysAgo(5)},
		{Key: "app/tiny.json", SizeBytes: 1024, CurrentTier: pricing.TierStandard, LastModifiedAt: daysAgo(400)},
	}
}

func mustDefaultTable(t *testing.T) *pricing.RuleTable {
	t.Helper()
	table, err := pricing.DefaultRuleTable()
	require.NoError(t, err)
	return table
}

func newEngine(t *testing.T, source InventorySource, options ...Option) *Engine {
	t.Helper()
	options = append([]Option{WithClock(func() time.Time { return now })}, options...)
	return New(source, mustDefaultTable(t), aggregator.Options{}, options...)
}

func TestRightsizeRecommendOnly(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	sink := &fakeSink{}
	var events []models.EventType
	observer := models.ObserverFunc(func(e models.Event) { events = append(events, e.Type) })

	e := newEngine(t, source, WithSink(sink), WithObserver(observer))
	assert.False(t, e.Migrates())

	report := e.Rightsize(context.Background(), "logs")

	require.NoError(t, report.Err)
	assert.Equal(t, models.OutcomeSucceeded, report.Outcome)
	assert.Nil(t, report.Migration)

	analysis := report.Analysis
	require.NotNil(t, analysis)
	assert.Equal(t, 4, analysis.TotalObjects)
	assert.Equal(t, 2, analysis.Summary.ObjectsToTransition)
	assert.InDelta(t, (0.023-0.00099)+(0.023-0.0125), analysis.Summary.MonthlySavings, 1e-9)
	assert.Len(t, analysis.Groups, 2)
	assert.Equal(t, pricing.TierDeepArchive, analysis.Groups[0].ToTier)
	assert.Len(t, analysis.Eligible, 2)
	assert.Equal(t, now, analysis.AnalyzedAt)

	require.Len(t, sink.analyses, 1)
	assert.Same(t, analysis, sink.analyses[0])
	assert.Equal(t, []models.EventType{models.EventAnalysisStarted, models.EventAnalysisCompleted}, events)
}

func TestRightsizeMigrates(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	sink := &fakeSink{}
	backend := &fakeBackend{}
	exec := executor.New(backend, executor.Options{BatchSize: 1}, executor.WithSink(sink))

	e := newEngine(t, source, WithSink(sink), WithMigrator(exec))
	report := e.Rightsize(context.Background(), "logs")

	require.NoError(t, report.Err)
	assert.Equal(t, models.OutcomeSucceeded, report.Outcome)
	require.NotNil(t, report.Migration)
	assert.Equal(t, 2, report.Migration.Succeeded)
	assert.Equal(t, 2, report.Migration.Batches)
	assert.InDelta(t, report.Analysis.Summary.EligibleSavings, report.Migration.RealizedMonthlySavings, 1e-9)

	assert.Equal(t, map[string]string{
		"app/old.log": pricing.TierDeepArchive,
		"app/mid.csv": pricing.TierStandardIA,
	}, backend.moves)
	assert.Len(t, sink.analyses, 1)
	assert.Len(t, sink.runs, 1)
}

func TestRightsizeThresholdLimitsMigration(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	backend := &fakeBackend{}
	exec := executor.New(backend, executor.Options{})

	table, err := pricing.DefaultRuleTable()
	require.NoError(t, err)
	e := New(source, table, aggregator.Options{MinSavingsThreshold: 0.02},
		WithClock(func() time.Time { return now }), WithMigrator(exec))

	report := e.Rightsize(context.Background(), "logs")

	require.NotNil(t, report.Migration)
	assert.Equal(t, 1, report.Migration.Succeeded)
	assert.Equal(t, map[string]string{"app/old.log": pricing.TierDeepArchive}, backend.moves)
}

func TestRightsizeInventoryFailure(t *testing.T) {
	cause := errors.New("AccessDenied")
	source := &fakeSource{errs: map[string]error{"private": cause}}
	collector, err := metrics.NewCollector(nil)
	require.NoError(t, err)
	var failed []models.Event
	observer := models.ObserverFunc(func(e models.Event) {
		if e.Type == models.EventBucketFailed {
			failed = append(failed, e)
		}
	})
	migrator := &countingMigrator{}

	e := newEngine(t, source, WithMigrator(migrator), WithMetrics(collector), WithObserver(observer))
	report := e.Rightsize(context.Background(), "private")

	assert.Equal(t, models.OutcomeNotStarted, report.Outcome)
	assert.Nil(t, report.Analysis)
	assert.Contains(t, report.Error, "AccessDenied")
	var fetchErr *models.InventoryFetchError
	require.True(t, errors.As(report.Err, &fetchErr))
	assert.Equal(t, "private", fetchErr.Bucket)
	assert.ErrorIs(t, report.Err, cause)
	assert.Zero(t, migrator.calls)
	require.Len(t, failed, 1)
	assert.Equal(t, "private", failed[0].Bucket)
}

func TestRightsizeClassificationFailure(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{
		"bad": {{Key: "x", SizeBytes: -1, CurrentTier: pricing.TierStandard, LastModifiedAt: daysAgo(10)}},
	}}

	report := newEngine(t, source).Rightsize(context.Background(), "bad")

	assert.Equal(t, models.OutcomeNotStarted, report.Outcome)
	var classErr *models.ClassificationError
	assert.True(t, errors.As(report.Err, &classErr))
}

func TestRightsizeEmptyBucket(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{}}
	migrator := &countingMigrator{}

	report := newEngine(t, source, WithMigrator(migrator)).Rightsize(context.Background(), "empty")

	assert.Equal(t, models.OutcomeSucceeded, report.Outcome)
	require.NotNil(t, report.Analysis)
	assert.True(t, report.Analysis.IsEmpty)
	assert.Zero(t, report.Analysis.Summary.MonthlySavings)
	assert.Zero(t, migrator.calls)
}

func TestAnalyzePersistenceFailureIsSwallowed(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	sink := &fakeSink{err: errors.New("connection refused")}

	analysis, err := newEngine(t, source, WithSink(sink)).Analyze(context.Background(), "logs")

	require.NoError(t, err)
	assert.Equal(t, 2, analysis.Summary.ObjectsToTransition)
	assert.Len(t, sink.analyses, 1)
}

func TestAnalyzeResolvesRegion(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}

	analysis, err := newEngine(t, source, WithRegionResolver(fakeRegions{region: "eu-central-1"})).
		Analyze(context.Background(), "logs")

	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", analysis.Region)
}

type fakeTables struct {
	mu     sync.Mutex
	tables map[string]*pricing.RuleTable
	calls  []string
}

func (f *fakeTables) RuleTable(ctx context.Context, region string) (*pricing.RuleTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, region)
	if t, ok := f.tables[region]; ok {
		return t, nil
	}
	return nil, errors.New("no price list for " + region)
}

func TestAnalyzePricesWithBucketRegion(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	pricey, err := pricing.DefaultRuleTable(pricing.WithPrices(map[string]float64{
		pricing.TierStandard:    0.025,
		pricing.TierStandardIA:  0.0138,
		pricing.TierDeepArchive: 0.002,
	}))
	require.NoError(t, err)
	tables := &fakeTables{tables: map[string]*pricing.RuleTable{"sa-east-1": pricey}}

	e := New(source, mustDefaultTable(t), aggregator.Options{Region: "us-east-1"},
		WithClock(func() time.Time { return now }),
		WithRegionResolver(fakeRegions{region: "sa-east-1"}),
		WithRegionalPricing(tables))

	for i := 0; i < 2; i++ {
		analysis, err := e.Analyze(context.Background(), "logs")
		require.NoError(t, err)
		assert.Equal(t, "sa-east-1", analysis.Region)
		assert.Equal(t, "sa-east-1", analysis.PricingRegion)
		assert.InDelta(t, (0.025-0.002)+(0.025-0.0138), analysis.Summary.MonthlySavings, 1e-9)
	}
	assert.Equal(t, []string{"sa-east-1"}, tables.calls, "regional table is fetched once")
}

func TestAnalyzeFallsBackToDefaultPricingRegion(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	tables := &fakeTables{}

	analysis, err := New(source, mustDefaultTable(t), aggregator.Options{Region: "us-east-1"},
		WithClock(func() time.Time { return now }),
		WithRegionResolver(fakeRegions{region: "me-central-1"}),
		WithRegionalPricing(tables)).
		Analyze(context.Background(), "logs")

	require.NoError(t, err)
	assert.Equal(t, "me-central-1", analysis.Region)
	assert.Equal(t, "us-east-1", analysis.PricingRegion)
	assert.InDelta(t, (0.023-0.00099)+(0.023-0.0125), analysis.Summary.MonthlySavings, 1e-9)
}

func TestAnalyzeSkipsLookupForBaseRegion(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	tables := &fakeTables{}

	analysis, err := New(source, mustDefaultTable(t), aggregator.Options{Region: "us-east-1"},
		WithClock(func() time.Time { return now }),
		WithRegionResolver(fakeRegions{region: "us-east-1"}),
		WithRegionalPricing(tables)).
		Analyze(context.Background(), "logs")

	require.NoError(t, err)
	assert.Equal(t, "us-east-1", analysis.PricingRegion)
	assert.Empty(t, tables.calls)
}

func TestRunAllRanksAndContinues(t *testing.T) {
	source := &fakeSource{
		buckets: map[string][]models.ObjectRecord{
			"small": {{Key: "a", SizeBytes: gib, CurrentTier: pricing.TierStandard, LastModifiedAt: daysAgo(45)}},
			"big":   logsBucket(),
		},
		errs: map[string]error{"broken": errors.New("NoSuchBucket")},
	}

	reports := newEngine(t, source).RunAll(context.Background(), []string{"broken", "small", "big"})

	require.Len(t, reports, 3)
	assert.Equal(t, "big", reports[0].Bucket)
	assert.Equal(t, "small", reports[1].Bucket)
	assert.Equal(t, "broken", reports[2].Bucket)
	assert.Equal(t, models.OutcomeNotStarted, reports[2].Outcome)
	assert.Equal(t, models.OutcomeSucceeded, reports[0].Outcome)
}

func TestRunAllCancelled(t *testing.T) {
	source := &fakeSource{buckets: map[string][]models.ObjectRecord{"logs": logsBucket()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := newEngine(t, source).RunAll(ctx, []string{"logs", "other"})

	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, models.OutcomeNotStarted, r.Outcome)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
