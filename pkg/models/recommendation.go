package models

// Recommendation represents a single object tier transition
type Recommendation struct {
	Key                     string  `json:"key"`
	SizeBytes               int64   `json:"size_bytes"`
	CurrentTier             string  `json:"current_tier"`
	RecommendedTier         string  `json:"recommended_tier"`
	AgeInDays               int     `json:"age_in_days"`
	PotentialMonthlySavings float64 `json:"potential_monthly_savings"`
}

// TransitionKey identifies a (fromTier, toTier) pair
type TransitionKey struct {
	FromTier string `json:"from_tier"`
	ToTier   string `json:"to_tier"`
}

// MaxGroupSamples bounds the sample list kept per transition group
const MaxGroupSamples = 5

// TransitionGroup aggregates all recommendations sharing a transition
type TransitionGroup struct {
	TransitionKey
	ObjectCount        int              `json:"object_count"`
	TotalBytes         int64            `json:"total_bytes"`
	MonthlySavings     float64          `json:"monthly_savings"`
	PercentageOfBucket float64          `json:"percentage_of_bucket"`
	Samples            []Recommendation `json:"samples"`
}

// LifecyclePolicyRecommendation suggests an age-triggered transition rule
type LifecyclePolicyRecommendation struct {
	TargetTier                  string  `json:"target_tier"`
	TriggerAgeDays              int     `json:"trigger_age_days"`
	AffectedObjectCount         int     `json:"affected_object_count"`
	AverageAgeOfAffectedObjects float64 `json:"average_age_of_affected_objects"`
}

// AdvisoryType is the kind of bucket-level advisory
type AdvisoryType string

const (
	AdvisoryRightSizing     AdvisoryType = "RIGHT_SIZING"
	AdvisoryLifecyclePolicy AdvisoryType = "LIFECYCLE_POLICY"
)

// Priority of an advisory
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Advisory is a human readable bucket-level suggestion
type Advisory struct {
	Type            AdvisoryType `json:"type"`
	Priority        Priority     `json:"priority"`
	Message         string       `json:"message"`
	AffectedObjects int          `json:"affected_objects"`
	MonthlySavings  float64      `json:"monthly_savings,omitempty"`
}
