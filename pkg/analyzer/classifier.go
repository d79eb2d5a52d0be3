package analyzer

import (
	"time"

	"go.uber.org/zap"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

const day = 24 * time.Hour

// Inventory is one bucket's classified objects plus histograms
type Inventory struct {
	Objects          []models.ClassifiedObject
	TotalObjects     int
	TotalBytes       int64
	TierDistribution map[string]int
	AgeDistribution  map[models.AgeCategory]int
	AgeStats         models.Percentiles
	ClassifiedAt     time.Time
}

// IsEmpty distinguishes "nothing to analyze" from "analyzed, found nothing"
func (inv *Inventory) IsEmpty() bool {
	return inv == nil || inv.TotalObjects == 0
}

// Classifier annotates object records with age and builds histograms
type Classifier struct {
	now    func() time.Time
	logger *zap.Logger
}

// ClassifierOption configures a Classifier
type ClassifierOption func(*Classifier)

// WithClock pins the reference time used for ages
func WithClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) ClassifierOption {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AgeInDays returns whole days between lastModified and now, never negative
func AgeInDays(now, lastModified time.Time) int {
	d := now.Sub(lastModified)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

// Classify validates and annotates records. A malformed record aborts the
// pass with a ClassificationError.
func (c *Classifier) Classify(records []models.ObjectRecord) (*Inventory, error) {
	now := c.now()
	inv := &Inventory{
		Objects:          make([]models.ClassifiedObject, 0, len(records)),
		TierDistribution: make(map[string]int),
		AgeDistribution:  make(map[models.AgeCategory]int, len(models.AgeCategories)),
		ClassifiedAt:     now,
	}
	for _, cat := range models.AgeCategories {
		inv.AgeDistribution[cat] = 0
	}

	ages := make([]float64, 0, len(records))
	skewed := 0
	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			return nil, err
		}

		if rec.LastModifiedAt.After(now) {
			skewed++
		}
		age := AgeInDays(now, rec.LastModifiedAt)
		cat := models.AgeCategoryFor(age)

		inv.Objects = append(inv.Objects, models.ClassifiedObject{
			ObjectRecord: rec,
			AgeInDays:    age,
			AgeCategory:  cat,
		})
		inv.TotalObjects++
		inv.TotalBytes += rec.SizeBytes
		inv.TierDistribution[rec.CurrentTier]++
		inv.AgeDistribution[cat]++
		ages = append(ages, float64(age))
	}

	if skewed > 0 {
		c.logger.Warn("objects modified in the future, age clamped to 0",
			zap.Int("objects", skewed))
	}

	if len(ages) > 0 {
		stats, err := CalculatePercentiles(ages)
		if err == nil {
			inv.AgeStats = *stats
		}
	}

	return inv, nil
}

func validateRecord(rec models.ObjectRecord) error {
	switch {
	case rec.Key == "":
		return &models.ClassificationError{Key: rec.Key, Reason: "empty key"}
	case rec.SizeBytes < 0:
		return &models.ClassificationError{Key: rec.Key, Reason: "negative size"}
	case rec.LastModifiedAt.IsZero():
		return &models.ClassificationError{Key: rec.Key, Reason: "missing last-modified timestamp"}
	case rec.CurrentTier == "":
		return &models.ClassificationError{Key: rec.Key, Reason: "missing tier"}
	}
	return nil
}
