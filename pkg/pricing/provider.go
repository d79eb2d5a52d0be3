package pricing

import "context"

// Provider resolves the tier rule table for a region
type Provider interface {
	RuleTable(ctx context.Context, region string) (*RuleTable, error)
	Name() string
}

type Config struct {
	Provider         string
	Region           string
	TableFile        string
	TierPricing      map[string]float64
	MinTierSizeBytes int64
	CacheTTL         int
}
