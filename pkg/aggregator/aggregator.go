package aggregator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opscart/s3-tier-optimizer/pkg/analyzer"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
	"github.com/opscart/s3-tier-optimizer/pkg/recommender"
)

// DefaultStaleAgeDays is the age after which objects in the hottest tier
// trigger a lifecycle advisory
const DefaultStaleAgeDays = 90

type Options struct {
	// MinSavingsThreshold is the per-object monthly saving required for migration
	MinSavingsThreshold float64
	StaleAgeDays        int
	Region              string
}

type Aggregator struct {
	table *pricing.RuleTable
	opts  Options
}

func New(table *pricing.RuleTable, opts Options) *Aggregator {
	if opts.StaleAgeDays == 0 {
		opts.StaleAgeDays = DefaultStaleAgeDays
	}
	return &Aggregator{
		table: table,
		opts:  opts,
	}
}

// Aggregate builds the bucket report from an inventory and its recommendations
func (a *Aggregator) Aggregate(bucket string, inv *analyzer.Inventory, result *recommender.Result) *models.BucketAnalysis {
	analysis := &models.BucketAnalysis{
		ID:               uuid.NewString(),
		Bucket:           bucket,
		Region:           a.opts.Region,
		AnalyzedAt:       time.Now(),
		TierDistribution: make(map[string]int),
		AgeDistribution:  make(map[models.AgeCategory]int, len(models.AgeCategories)),
		Groups:           []models.TransitionGroup{},
		Lifecycle:        []models.LifecyclePolicyRecommendation{},
		Advisories:       []models.Advisory{},
		Eligible:         []models.Recommendation{},
		Summary: models.SavingsSummary{
			ByTargetTier: make(map[string]models.TierSavings),
		},
	}
	for _, cat := range models.AgeCategories {
		analysis.AgeDistribution[cat] = 0
	}

	if inv.IsEmpty() {
		analysis.IsEmpty = true
		return analysis
	}

	if !inv.ClassifiedAt.IsZero() {
		analysis.AnalyzedAt = inv.ClassifiedAt
	}
	analysis.TotalObjects = inv.TotalObjects
	analysis.TotalBytes = inv.TotalBytes
	analysis.AgeStats = inv.AgeStats
	for tier, n := range inv.TierDistribution {
		analysis.TierDistribution[tier] = n
	}
	for cat, n := range inv.AgeDistribution {
		analysis.AgeDistribution[cat] = n
	}

	var recs []models.Recommendation
	if result != nil {
		recs = result.Recommendations
		analysis.UnpricedObjects = result.Unpriced
		analysis.NoGainObjects = result.NoGain
	}

	analysis.Groups = groupTransitions(recs, inv.TotalObjects)
	analysis.Lifecycle = a.lifecycleRecommendations(recs)
	analysis.Summary = a.summarize(analysis.Groups, recs)
	analysis.Eligible = a.eligible(recs)
	analysis.Summary.EligibleObjects = len(analysis.Eligible)
	for _, rec := range analysis.Eligible {
		analysis.Summary.EligibleSavings += rec.PotentialMonthlySavings
	}
	analysis.Advisories = a.advisories(recs, inv.TotalObjects, analysis.Summary.MonthlySavings)

	return analysis
}

// groupTransitions groups by (from, to), keeps the first samples seen and
// sorts by savings descending
func groupTransitions(recs []models.Recommendation, totalObjects int) []models.TransitionGroup {
	index := make(map[models.TransitionKey]int)
	groups := []models.TransitionGroup{}

	for _, rec := range recs {
		key := models.TransitionKey{FromTier: rec.CurrentTier, ToTier: rec.RecommendedTier}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.TransitionGroup{TransitionKey: key})
		}

		g := &groups[i]
		g.ObjectCount++
		g.TotalBytes += rec.SizeBytes
		g.MonthlySavings += rec.PotentialMonthlySavings
		if len(g.Samples) < models.MaxGroupSamples {
			g.Samples = append(g.Samples, rec)
		}
	}

	for i := range groups {
		groups[i].PercentageOfBucket = percentage(groups[i].ObjectCount, totalObjects)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].MonthlySavings > groups[j].MonthlySavings
	})

	return groups
}

// lifecycleRecommendations averages age per target tier. The trigger is the
// age at which the table starts assigning that tier.
func (a *Aggregator) lifecycleRecommendations(recs []models.Recommendation) []models.LifecyclePolicyRecommendation {
	type acc struct {
		count   int
		ageDays int
	}
	byTier := make(map[string]*acc)
	for _, rec := range recs {
		t, ok := byTier[rec.RecommendedTier]
		if !ok {
			t = &acc{}
			byTier[rec.RecommendedTier] = t
		}
		t.count++
		t.ageDays += rec.AgeInDays
	}

	out := make([]models.LifecyclePolicyRecommendation, 0, len(byTier))
	for tier, t := range byTier {
		trigger := 0
		if rule, ok := a.table.Rule(tier); ok {
			trigger = rule.MinAgeDays
		}
		out = append(out, models.LifecyclePolicyRecommendation{
			TargetTier:                  tier,
			TriggerAgeDays:              trigger,
			AffectedObjectCount:         t.count,
			AverageAgeOfAffectedObjects: round1(float64(t.ageDays) / float64(t.count)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggerAgeDays != out[j].TriggerAgeDays {
			return out[i].TriggerAgeDays < out[j].TriggerAgeDays
		}
		return out[i].TargetTier < out[j].TargetTier
	})

	return out
}

func (a *Aggregator) summarize(groups []models.TransitionGroup, recs []models.Recommendation) models.SavingsSummary {
	summary := models.SavingsSummary{
		ObjectsToTransition: len(recs),
		ByTargetTier:        make(map[string]models.TierSavings),
	}

	for _, g := range groups {
		summary.BytesToTransition += g.TotalBytes
		summary.MonthlySavings += g.MonthlySavings

		ts := summary.ByTargetTier[g.ToTier]
		ts.ObjectCount += g.ObjectCount
		ts.MonthlySavings += g.MonthlySavings
		summary.ByTargetTier[g.ToTier] = ts
	}
	summary.AnnualSavings = summary.MonthlySavings * 12

	return summary
}

// eligible keeps recommendations at or above the savings threshold, in order
func (a *Aggregator) eligible(recs []models.Recommendation) []models.Recommendation {
	out := make([]models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.PotentialMonthlySavings >= a.opts.MinSavingsThreshold {
			out = append(out, rec)
		}
	}
	return out
}

func (a *Aggregator) advisories(recs []models.Recommendation, totalObjects int, monthlySavings float64) []models.Advisory {
	advisories := []models.Advisory{}
	if len(recs) == 0 {
		return advisories
	}

	advisories = append(advisories, models.Advisory{
		Type:     models.AdvisoryRightSizing,
		Priority: models.PriorityHigh,
		Message: fmt.Sprintf("%d objects (%.1f%%) can be moved to more cost-effective storage classes",
			len(recs), percentage(len(recs), totalObjects)),
		AffectedObjects: len(recs),
		MonthlySavings:  monthlySavings,
	})

	hottest := a.table.HottestTier()
	stale := 0
	staleSavings := 0.0
	for _, rec := range recs {
		if rec.CurrentTier == hottest && rec.AgeInDays > a.opts.StaleAgeDays {
			stale++
			staleSavings += rec.PotentialMonthlySavings
		}
	}
	if stale > 0 {
		advisories = append(advisories, models.Advisory{
			Type:     models.AdvisoryLifecyclePolicy,
			Priority: models.PriorityMedium,
			Message: fmt.Sprintf("Consider setting up lifecycle policies to automatically transition objects older than %d days out of %s",
				a.opts.StaleAgeDays, hottest),
			AffectedObjects: stale,
			MonthlySavings:  staleSavings,
		})
	}

	return advisories
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
