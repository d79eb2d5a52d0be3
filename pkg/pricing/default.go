package pricing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// S3 storage class names
const (
	TierStandard           = "STANDARD"
	TierStandardIA         = "STANDARD_IA"
	TierOneZoneIA          = "ONEZONE_IA"
	TierIntelligentTiering = "INTELLIGENT_TIERING"
	TierGlacierIR          = "GLACIER_IR"
	TierGlacier            = "GLACIER"
	TierDeepArchive        = "DEEP_ARCHIVE"
	TierReducedRedundancy  = "REDUCED_REDUNDANCY"
)

// DefaultRules is the S3 age ladder with us-east-1 list prices
func DefaultRules() []models.TierRule {
	return []models.TierRule{
		{Tier: TierStandard, MinAgeDays: 0, MaxAgeDays: 30, PricePerGBMonth: 0.023},
		{Tier: TierStandardIA, MinAgeDays: 30, MaxAgeDays: 90, PricePerGBMonth: 0.0125},
		{Tier: TierGlacierIR, MinAgeDays: 90, MaxAgeDays: 180, PricePerGBMonth: 0.004},
		{Tier: TierGlacier, MinAgeDays: 180, MaxAgeDays: 365, PricePerGBMonth: 0.0036},
		{Tier: TierDeepArchive, MinAgeDays: 365, PricePerGBMonth: 0.00099},
	}
}

// Tiers that can hold objects but are never a rule target
var defaultExtraPrices = map[string]float64{
	TierOneZoneIA:          0.01,
	TierIntelligentTiering: 0.023,
	TierReducedRedundancy:  0.024,
}

// DefaultRuleTable builds the default table with optional overrides
func DefaultRuleTable(opts ...Option) (*RuleTable, error) {
	all := append([]Option{WithPrices(defaultExtraPrices)}, opts...)
	return NewRuleTable(DefaultRules(), all...)
}

// DefaultProvider serves the static us-east-1 table for every region
type DefaultProvider struct {
	prices      map[string]float64
	minTierSize int64
}

func NewDefaultProvider(prices map[string]float64, minTierSize int64) *DefaultProvider {
	if minTierSize == 0 {
		minTierSize = DefaultMinTierSizeBytes
	}
	return &DefaultProvider{
		prices:      prices,
		minTierSize: minTierSize,
	}
}

func (d *DefaultProvider) Name() string {
	return "default"
}

func (d *DefaultProvider) RuleTable(ctx context.Context, region string) (*RuleTable, error) {
	return DefaultRuleTable(WithPrices(d.prices), WithMinTierSize(d.minTierSize))
}

// ParsePricing parses "TIER=price,TIER=price" into a price map
func ParsePricing(s string) (map[string]float64, error) {
	prices := make(map[string]float64)
	s = strings.TrimSpace(s)
	if s == "" {
		return prices, nil
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		tier, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tier price %q, want TIER=price", pair)
		}
		tier = strings.ToUpper(strings.TrimSpace(tier))
		if tier == "" {
			return nil, fmt.Errorf("invalid tier price %q: empty tier", pair)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", tier, err)
		}
		if price < 0 {
			return nil, fmt.Errorf("invalid price for %s: must be >= 0", tier)
		}
		prices[tier] = price
	}

	return prices, nil
}
