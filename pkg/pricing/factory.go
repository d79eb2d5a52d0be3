package pricing

import "fmt"

// NewProvider picks a provider from config. A table file always wins.
func NewProvider(config *Config) (Provider, error) {
	provider := config.Provider
	if config.TableFile != "" {
		provider = "file"
	}
	if provider == "" {
		provider = "aws"
	}

	switch provider {
	case "file":
		if config.TableFile == "" {
			return nil, fmt.Errorf("file provider requires a tier table file")
		}
		opts := []Option{WithPrices(config.TierPricing)}
		if config.MinTierSizeBytes > 0 {
			opts = append(opts, WithMinTierSize(config.MinTierSizeBytes))
		}
		return NewFileProvider(config.TableFile, opts...), nil
	case "aws":
		return NewAWSProvider(config.Region, config.TierPricing, config.MinTierSizeBytes), nil
	case "default":
		return NewDefaultProvider(config.TierPricing, config.MinTierSizeBytes), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
