package models

import "time"

// TierSavings summarises savings for one target tier
type TierSavings struct {
	ObjectCount    int     `json:"object_count"`
	MonthlySavings float64 `json:"monthly_savings"`
}

// SavingsSummary is the bucket-wide savings rollup
type SavingsSummary struct {
	ObjectsToTransition int                    `json:"objects_to_transition"`
	BytesToTransition   int64                  `json:"bytes_to_transition"`
	MonthlySavings      float64                `json:"monthly_savings"`
	AnnualSavings       float64                `json:"annual_savings"`
	EligibleObjects     int                    `json:"eligible_objects"`
	EligibleSavings     float64                `json:"eligible_savings"`
	ByTargetTier        map[string]TierSavings `json:"by_target_tier"`
}

// BucketAnalysis is the result of one analysis pass over a bucket
type BucketAnalysis struct {
	ID           string    `json:"id"`
	Bucket       string    `json:"bucket"`
	Region       string    `json:"region,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
	IsEmpty      bool      `json:"is_empty"`
	TotalObjects int       `json:"total_objects"`
	TotalBytes   int64     `json:"total_bytes"`

	// PricingRegion is the region whose price table priced the bucket
	PricingRegion string `json:"pricing_region,omitempty"`

	TierDistribution map[string]int      `json:"tier_distribution"`
	AgeDistribution  map[AgeCategory]int `json:"age_distribution"`
	AgeStats         Percentiles         `json:"age_stats"`

	// UnpricedObjects counts objects whose current tier has no price
	UnpricedObjects int `json:"unpriced_objects"`
	// NoGainObjects counts objects whose age tier is not cheaper than
	// their current one
	NoGainObjects   int `json:"no_gain_objects"`

	Groups     []TransitionGroup               `json:"groups"`
	Lifecycle  []LifecyclePolicyRecommendation `json:"lifecycle"`
	Advisories []Advisory                      `json:"advisories"`
	Summary    SavingsSummary                  `json:"summary"`

	// Eligible is routed to migration; not serialized with the snapshot
	Eligible []Recommendation `json:"-"`
}

// HasSavings reports whether the analysis found anything to transition
func (a *BucketAnalysis) HasSavings() bool {
	return !a.IsEmpty && a.Summary.ObjectsToTransition > 0
}
