package pricing

import (
	"context"
	"time"
)

// Approximate regional list prices (USD per GB-month) for regions that
// differ from us-east-1.
var awsRegionalPrices = map[string]map[string]float64{
	"eu-central-1": {
		TierStandard:    0.0245,
		TierStandardIA:  0.0135,
		TierOneZoneIA:   0.0108,
		TierGlacierIR:   0.005,
		TierGlacier:     0.0045,
		TierDeepArchive: 0.0018,
	},
	"ap-southeast-1": {
		TierStandard:    0.025,
		TierStandardIA:  0.0138,
		TierOneZoneIA:   0.011,
		TierGlacierIR:   0.005,
		TierGlacier:     0.0045,
		TierDeepArchive: 0.002,
	},
	"sa-east-1": {
		TierStandard:    0.0405,
		TierStandardIA:  0.022,
		TierOneZoneIA:   0.0176,
		TierGlacierIR:   0.008,
		TierGlacier:     0.0072,
		TierDeepArchive: 0.0032,
	},
}

// AWSProvider serves the default rule ladder with regional S3 prices.
// Explicit overrides always win.
type AWSProvider struct {
	region      string
	overrides   map[string]float64
	minTierSize int64
	cache       *TableCache
}

func NewAWSProvider(region string, overrides map[string]float64, minTierSize int64) *AWSProvider {
	if minTierSize == 0 {
		minTierSize = DefaultMinTierSizeBytes
	}
	return &AWSProvider{
		region:      region,
		overrides:   overrides,
		minTierSize: minTierSize,
		cache:       NewTableCache(24 * time.Hour),
	}
}

func (a *AWSProvider) Name() string {
	return "aws"
}

func (a *AWSProvider) RuleTable(ctx context.Context, region string) (*RuleTable, error) {
	if region == "" {
		region = a.region
	}
	if t := a.cache.Get(region); t != nil {
		return t, nil
	}

	t, err := DefaultRuleTable(
		WithPrices(awsRegionalPrices[region]),
		WithPrices(a.overrides),
		WithMinTierSize(a.minTierSize),
	)
	if err != nil {
		return nil, err
	}

	a.cache.Set(region, t)
	return t, nil
}
