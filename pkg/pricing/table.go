package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// DefaultMinTierSizeBytes is the size below which objects stay in the hottest tier.
// IA and Glacier IR bill a 128 KiB minimum per object.
const DefaultMinTierSizeBytes int64 = 128 * 1024

const bytesPerGB = 1 << 30

var (
	ErrUnknownTier       = errors.New("unknown tier")
	ErrInvalidRuleTable  = errors.New("invalid tier rule table")
	ErrInconsistentPrice = errors.New("colder tier priced above warmer tier")
)

// RuleTable is an immutable, validated set of contiguous tier rules plus
// the price of every known tier
type RuleTable struct {
	rules       []models.TierRule
	prices      map[string]float64
	minTierSize int64
}

// Option customises a RuleTable at construction
type Option func(*tableOptions)

type tableOptions struct {
	prices      map[string]float64
	minTierSize int64
}

// WithPrices overrides or adds per-tier prices (USD per GB-month)
func WithPrices(prices map[string]float64) Option {
	return func(o *tableOptions) {
		for tier, price := range prices {
			o.prices[tier] = price
		}
	}
}

// WithMinTierSize sets the hottest-tier size floor
func WithMinTierSize(bytes int64) Option {
	return func(o *tableOptions) {
		o.minTierSize = bytes
	}
}

// NewRuleTable validates rules and builds a table
func NewRuleTable(rules []models.TierRule, opts ...Option) (*RuleTable, error) {
	o := &tableOptions{
		prices:      make(map[string]float64),
		minTierSize: DefaultMinTierSizeBytes,
	}
	for _, opt := range opts {
		opt(o)
	}

	sorted := make([]models.TierRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAgeDays < sorted[j].MinAgeDays
	})

	// Explicit prices win over the rule's own price
	for i := range sorted {
		if p, ok := o.prices[sorted[i].Tier]; ok {
			sorted[i].PricePerGBMonth = p
		}
	}

	if err := validateRules(sorted); err != nil {
		return nil, err
	}
	if o.minTierSize < 0 {
		return nil, fmt.Errorf("%w: negative minimum tier size %d", ErrInvalidRuleTable, o.minTierSize)
	}

	prices := make(map[string]float64, len(o.prices)+len(sorted))
	for tier, p := range o.prices {
		if p < 0 {
			return nil, fmt.Errorf("%w: negative price for %s", ErrInvalidRuleTable, tier)
		}
		prices[tier] = p
	}
	for _, r := range sorted {
		prices[r.Tier] = r.PricePerGBMonth
	}

	return &RuleTable{
		rules:       sorted,
		prices:      prices,
		minTierSize: o.minTierSize,
	}, nil
}

func validateRules(rules []models.TierRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRuleTable)
	}
	if rules[0].MinAgeDays != 0 {
		return fmt.Errorf("%w: first rule starts at day %d, want 0", ErrInvalidRuleTable, rules[0].MinAgeDays)
	}

	seen := make(map[string]bool, len(rules))
	last := len(rules) - 1
	for i, r := range rules {
		if r.Tier == "" {
			return fmt.Errorf("%w: rule %d has no tier", ErrInvalidRuleTable, i)
		}
		if seen[r.Tier] {
			return fmt.Errorf("%w: tier %s appears twice", ErrInvalidRuleTable, r.Tier)
		}
		seen[r.Tier] = true

		if r.PricePerGBMonth < 0 {
			return fmt.Errorf("%w: negative price for %s", ErrInvalidRuleTable, r.Tier)
		}

		if i == last {
			if !r.Unbounded() {
				return fmt.Errorf("%w: last rule %s must be unbounded", ErrInvalidRuleTable, r.Tier)
			}
			break
		}

		if r.Unbounded() || r.MaxAgeDays <= r.MinAgeDays {
			return fmt.Errorf("%w: rule %s has empty interval [%d,%d)", ErrInvalidRuleTable, r.Tier, r.MinAgeDays, r.MaxAgeDays)
		}
		next := rules[i+1]
		if next.MinAgeDays != r.MaxAgeDays {
			return fmt.Errorf("%w: gap or overlap between %s and %s", ErrInvalidRuleTable, r.Tier, next.Tier)
		}
		if next.PricePerGBMonth > r.PricePerGBMonth {
			return fmt.Errorf("%w: %s (%.5f) > %s (%.5f)", ErrInconsistentPrice,
				next.Tier, next.PricePerGBMonth, r.Tier, r.PricePerGBMonth)
		}
	}

	return nil
}

// Rules returns a copy of the rules, hottest first
func (t *RuleTable) Rules() []models.TierRule {
	out := make([]models.TierRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// HottestTier is the tier of the youngest rule
func (t *RuleTable) HottestTier() string {
	return t.rules[0].Tier
}

// MinTierSizeBytes is the size floor below which objects stay hot
func (t *RuleTable) MinTierSizeBytes() int64 {
	return t.minTierSize
}

// Rule returns the rule for a tier
func (t *RuleTable) Rule(tier string) (models.TierRule, bool) {
	for _, r := range t.rules {
		if r.Tier == tier {
			return r, true
		}
	}
	return models.TierRule{}, false
}

// Price returns the price per GB-month for a tier
func (t *RuleTable) Price(tier string) (float64, bool) {
	p, ok := t.prices[tier]
	return p, ok
}

// Prices returns a copy of the full price map
func (t *RuleTable) Prices() map[string]float64 {
	out := make(map[string]float64, len(t.prices))
	for k, v := range t.prices {
		out[k] = v
	}
	return out
}

// RecommendTier picks the tier for an object. Objects under the size floor
// always stay in the hottest tier; otherwise the rule whose interval contains
// the age wins, and boundary ages belong to the colder rule.
func (t *RuleTable) RecommendTier(ageInDays int, sizeBytes int64) string {
	if sizeBytes < t.minTierSize {
		return t.HottestTier()
	}
	if ageInDays < 0 {
		ageInDays = 0
	}
	for i := len(t.rules) - 1; i >= 0; i-- {
		if ageInDays >= t.rules[i].MinAgeDays {
			return t.rules[i].Tier
		}
	}
	return t.HottestTier()
}

// CostDelta is the raw monthly cost difference of moving an object from one
// tier to another. Negative means the move costs more.
func (t *RuleTable) CostDelta(sizeBytes int64, fromTier, toTier string) (float64, error) {
	from, ok := t.prices[fromTier]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTier, fromTier)
	}
	to, ok := t.prices[toTier]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTier, toTier)
	}
	sizeGB := float64(sizeBytes) / bytesPerGB
	return sizeGB * (from - to), nil
}

// Savings is the monthly USD saved by the move, floored at zero
func (t *RuleTable) Savings(sizeBytes int64, fromTier, toTier string) (float64, error) {
	delta, err := t.CostDelta(sizeBytes, fromTier, toTier)
	if err != nil {
		return 0, err
	}
	if delta < 0 {
		return 0, nil
	}
	return delta, nil
}

// MonthlyCost is the storage cost of sizeBytes in a tier
func (t *RuleTable) MonthlyCost(sizeBytes int64, tier string) (float64, error) {
	p, ok := t.prices[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	return float64(sizeBytes) / bytesPerGB * p, nil
}
