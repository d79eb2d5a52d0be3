package recommender

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opscart/s3-tier-optimizer/pkg/analyzer"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
)

// Result holds per-object recommendations for one inventory
type Result struct {
	Recommendations []models.Recommendation

	// Unchanged objects already sit in their recommended tier
	Unchanged int
	// Unpriced objects are in a tier the table has no price for
	Unpriced int
	// NoGain objects would move to a tier that is not cheaper
	NoGain int
}

// TotalMonthlySavings sums savings across all recommendations
func (r *Result) TotalMonthlySavings() float64 {
	total := 0.0
	for _, rec := range r.Recommendations {
		total += rec.PotentialMonthlySavings
	}
	return total
}

type Recommender struct {
	table  *pricing.RuleTable
	logger *zap.Logger
}

func New(table *pricing.RuleTable, logger *zap.Logger) *Recommender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{
		table:  table,
		logger: logger,
	}
}

// Evaluate computes the recommendation for one object, including no-ops
func (r *Recommender) Evaluate(obj models.ClassifiedObject) (models.Recommendation, error) {
	rec := models.Recommendation{
		Key:             obj.Key,
		SizeBytes:       obj.SizeBytes,
		CurrentTier:     obj.CurrentTier,
		RecommendedTier: r.table.RecommendTier(obj.AgeInDays, obj.SizeBytes),
		AgeInDays:       obj.AgeInDays,
	}

	if rec.RecommendedTier == rec.CurrentTier {
		return rec, nil
	}

	savings, err := r.table.Savings(obj.SizeBytes, obj.CurrentTier, rec.RecommendedTier)
	if err != nil {
		return rec, fmt.Errorf("savings for %q: %w", obj.Key, err)
	}
	rec.PotentialMonthlySavings = savings

	return rec, nil
}

// Recommend evaluates every object and keeps the ones that should move.
// Output order follows inventory order.
func (r *Recommender) Recommend(inv *analyzer.Inventory) *Result {
	result := &Result{}
	if inv.IsEmpty() {
		return result
	}

	unpricedTiers := make(map[string]int)
	noGainPairs := make(map[models.TransitionKey]int)
	for _, obj := range inv.Objects {
		rec, err := r.Evaluate(obj)
		if err != nil {
			if errors.Is(err, pricing.ErrUnknownTier) {
				result.Unpriced++
				unpricedTiers[obj.CurrentTier]++
				continue
			}
			r.logger.Warn("Skipping object", zap.String("key", obj.Key), zap.Error(err))
			continue
		}

		if rec.RecommendedTier == rec.CurrentTier {
			result.Unchanged++
			continue
		}

		if !r.cheaper(rec.CurrentTier, rec.RecommendedTier) {
			result.NoGain++
			noGainPairs[models.TransitionKey{FromTier: rec.CurrentTier, ToTier: rec.RecommendedTier}]++
			continue
		}

		result.Recommendations = append(result.Recommendations, rec)
	}

	for tier, n := range unpricedTiers {
		r.logger.Warn("No price for tier, objects left out of recommendations",
			zap.String("tier", tier),
			zap.Int("objects", n))
	}
	for pair, n := range noGainPairs {
		r.logger.Warn("Recommended tier is not cheaper, objects left out of recommendations",
			zap.String("from_tier", pair.FromTier),
			zap.String("to_tier", pair.ToTier),
			zap.Int("objects", n))
	}

	return result
}

func (r *Recommender) cheaper(from, to string) bool {
	pf, _ := r.table.Price(from)
	pt, _ := r.table.Price(to)
	return pt < pf
}
