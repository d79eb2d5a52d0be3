package pricing

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// TableFile is the YAML layout of a custom tier table
type TableFile struct {
	MinTierSizeBytes int64              `yaml:"min_tier_size_bytes"`
	Rules            []models.TierRule  `yaml:"rules"`
	Prices           map[string]float64 `yaml:"prices"`
}

// LoadRuleTable reads and validates a YAML tier table. Options are applied
// after the file's own settings.
func LoadRuleTable(path string, opts ...Option) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier table %s: %w", path, err)
	}
	return ParseRuleTable(data, opts...)
}

// ParseRuleTable decodes YAML tier table content
func ParseRuleTable(data []byte, opts ...Option) (*RuleTable, error) {
	var f TableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tier table: %w", err)
	}

	all := []Option{WithPrices(f.Prices)}
	if f.MinTierSizeBytes > 0 {
		all = append(all, WithMinTierSize(f.MinTierSizeBytes))
	}
	all = append(all, opts...)

	return NewRuleTable(f.Rules, all...)
}

// FileProvider serves one table from a YAML file regardless of region
type FileProvider struct {
	path string
	opts []Option
}

func NewFileProvider(path string, opts ...Option) *FileProvider {
	return &FileProvider{path: path, opts: opts}
}

func (f *FileProvider) Name() string {
	return "file"
}

func (f *FileProvider) RuleTable(ctx context.Context, region string) (*RuleTable, error) {
	return LoadRuleTable(f.path, f.opts...)
}
