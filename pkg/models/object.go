package models

import "time"

// ObjectRecord is a single object as reported by the inventory source
type ObjectRecord struct {
	Key            string
	SizeBytes      int64
	CurrentTier    string
	LastModifiedAt time.Time
}

// AgeCategory is one of the fixed object age bins
type AgeCategory string

const (
	Age0To30     AgeCategory = "0-30 days"
	Age30To90    AgeCategory = "30-90 days"
	Age90To180   AgeCategory = "90-180 days"
	Age180To365  AgeCategory = "180-365 days"
	Age365OrMore AgeCategory = "365+ days"
)

// AgeCategories lists the bins in ascending age order
var AgeCategories = []AgeCategory{Age0To30, Age30To90, Age90To180, Age180To365, Age365OrMore}

// AgeCategoryFor returns the bin an age in days falls into
func AgeCategoryFor(ageInDays int) AgeCategory {
	switch {
	case ageInDays < 30:
		return Age0To30
	case ageInDays < 90:
		return Age30To90
	case ageInDays < 180:
		return Age90To180
	case ageInDays < 365:
		return Age180To365
	default:
		return Age365OrMore
	}
}

// ClassifiedObject is an ObjectRecord annotated with its age
type ClassifiedObject struct {
	ObjectRecord
	AgeInDays   int
	AgeCategory AgeCategory
}

// TierRule maps an age interval [MinAgeDays, MaxAgeDays) to a tier and its price.
// MaxAgeDays of 0 on the last rule means unbounded.
type TierRule struct {
	Tier            string  `yaml:"tier" json:"tier"`
	MinAgeDays      int     `yaml:"min_age_days" json:"min_age_days"`
	MaxAgeDays      int     `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty"`
	PricePerGBMonth float64 `yaml:"price_per_gb_month" json:"price_per_gb_month"`
}

// Unbounded reports whether the rule has no upper age bound
func (r TierRule) Unbounded() bool {
	return r.MaxAgeDays == 0
}

// Contains reports whether ageInDays falls inside the rule's interval
func (r TierRule) Contains(ageInDays int) bool {
	if ageInDays < r.MinAgeDays {
		return false
	}
	return r.Unbounded() || ageInDays < r.MaxAgeDays
}

// Percentiles summarises a distribution of values
type Percentiles struct {
	Average float64 `json:"average"`
	P50     float64 `json:"p50"`
	P90     float64 `json:"p90"`
	P99     float64 `json:"p99"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}
