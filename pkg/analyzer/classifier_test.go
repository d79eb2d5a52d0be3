package analyzer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

var refNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClassifier() *Classifier {
	return NewClassifier(WithClock(func() time.Time { return refNow }))
}

func record(key string, size int64, tier string, ageDays int) models.ObjectRecord {
	return models.ObjectRecord{
		Key:            key,
		SizeBytes:      size,
		CurrentTier:    tier,
		LastModifiedAt: refNow.Add(-time.Duration(ageDays) * day),
	}
}

func TestAgeInDays(t *testing.T) {
	tests := []struct {
		name         string
		lastModified time.Time
		want         int
	}{
		{"same instant", refNow, 0},
		{"23 hours ago", refNow.Add(-23 * time.Hour), 0},
		{"exactly one day", refNow.Add(-day), 1},
		{"almost two days", refNow.Add(-47*time.Hour - 59*time.Minute), 1},
		{"future clamps", refNow.Add(72 * time.Hour), 0},
		{"a year", refNow.Add(-365 * day), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeInDays(refNow, tt.lastModified))
		})
	}
}

func TestClassify(t *testing.T) {
	records := []models.ObjectRecord{
		record("a", 100, "STANDARD", 0),
		record("b", 200, "STANDARD", 45),
		record("c", 300, "GLACIER", 120),
		record("d", 400, "STANDARD", 200),
		record("e", 500, "DEEP_ARCHIVE", 800),
	}

	inv, err := fixedClassifier().Classify(records)
	require.NoError(t, err)

	assert.False(t, inv.IsEmpty())
	assert.Equal(t, 5, inv.TotalObjects)
	assert.Equal(t, int64(1500), inv.TotalBytes)
	assert.Equal(t, map[string]int{"STANDARD": 3, "GLACIER": 1, "DEEP_ARCHIVE": 1}, inv.TierDistribution)
	assert.Equal(t, map[models.AgeCategory]int{
		models.Age0To30:     1,
		models.Age30To90:    1,
		models.Age90To180:   1,
		models.Age180To365:  1,
		models.Age365OrMore: 1,
	}, inv.AgeDistribution)

	require.Len(t, inv.Objects, 5)
	assert.Equal(t, "b", inv.Objects[1].Key)
	assert.Equal(t, 45, inv.Objects[1].AgeInDays)
	assert.Equal(t, models.Age30To90, inv.Objects[1].AgeCategory)

	assert.Equal(t, 800.0, inv.AgeStats.Max)
	assert.Equal(t, 120.0, inv.AgeStats.P50)
	assert.Equal(t, refNow, inv.ClassifiedAt)
}

func TestClassifyEmpty(t *testing.T) {
	inv, err := fixedClassifier().Classify(nil)
	require.NoError(t, err)

	assert.True(t, inv.IsEmpty())
	assert.Empty(t, inv.Objects)
	assert.Len(t, inv.AgeDistribution, len(models.AgeCategories))
	for _, n := range inv.AgeDistribution {
		assert.Zero(t, n)
	}
}

func TestClassifyClampsClockSkew(t *testing.T) {
	rec := models.ObjectRecord{
		Key:            "future",
		SizeBytes:      1,
		CurrentTier:    "STANDARD",
		LastModifiedAt: refNow.Add(48 * time.Hour),
	}

	inv, err := fixedClassifier().Classify([]models.ObjectRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Objects[0].AgeInDays)
	assert.Equal(t, models.Age0To30, inv.Objects[0].AgeCategory)
}

func TestClassifyRejectsMalformedRecords(t *testing.T) {
	good := record("ok", 1, "STANDARD", 1)

	tests := []struct {
		name   string
		mutate func(*models.ObjectRecord)
	}{
		{"empty key", func(r *models.ObjectRecord) { r.Key = "" }},
		{"negative size", func(r *models.ObjectRecord) { r.SizeBytes = -1 }},
		{"zero timestamp", func(r *models.ObjectRecord) { r.LastModifiedAt = time.Time{} }},
		{"missing tier", func(r *models.ObjectRecord) { r.CurrentTier = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := good
			tt.mutate(&bad)

			inv, err := fixedClassifier().Classify([]models.ObjectRecord{good, bad})
			require.Error(t, err)
			assert.Nil(t, inv)

			var ce *models.ClassificationError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func TestNilInventoryIsEmpty(t *testing.T) {
	var inv *Inventory
	assert.True(t, inv.IsEmpty())
}
