package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opscart/s3-tier-optimizer/pkg/aggregator"
	"github.com/opscart/s3-tier-optimizer/pkg/executor"
	"github.com/opscart/s3-tier-optimizer/pkg/logger"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
	"github.com/opscart/s3-tier-optimizer/pkg/storage"
)

// Mode selects whether a run only reports or also migrates
type Mode string

const (
	ModeRecommend Mode = "recommend"
	ModeMigrate   Mode = "migrate"
)

// Config holds application configuration
type Config struct {
	Mode Mode

	// Migration
	DryRun            bool
	BatchSize         int
	InterBatchDelay   time.Duration
	MaxObjects        int
	MaxErrors         int
	ObjectTimeout     time.Duration
	RequestsPerSecond float64

	// Tiering
	MinSavingsThreshold float64 // USD per object per month
	MinTierSizeBytes    int64
	TierPricing         string // TIER=price,TIER=price
	TierTableFile       string
	PricingProvider     string // aws, default, file
	ObjectPrefix        string

	// AWS
	AWSRegion  string
	AWSProfile string

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Output
	OutputFormat    string // text, json, csv
	MetricsTextfile string

	envErrors []error
}

// NewConfig creates a new configuration with defaults, overridden by environment
func NewConfig() *Config {
	c := &Config{}
	c.Mode = Mode(strings.ToLower(getEnv("TIER_MODE", string(ModeRecommend))))
	c.DryRun = getEnvBool("DRY_RUN", true)
	c.BatchSize = c.getEnvInt("BATCH_SIZE", executor.DefaultBatchSize)
	c.InterBatchDelay = time.Duration(c.getEnvInt("INTER_BATCH_DELAY_MS", int(executor.DefaultInterBatchDelay/time.Millisecond))) * time.Millisecond
	c.MaxObjects = c.getEnvInt("MAX_OBJECTS", 0)
	c.MaxErrors = c.getEnvInt("MAX_ERRORS", executor.DefaultMaxErrors)
	c.ObjectTimeout = time.Duration(c.getEnvInt("OBJECT_TIMEOUT_MS", 0)) * time.Millisecond
	c.RequestsPerSecond = c.getEnvFloat("REQUESTS_PER_SECOND", 0)

	c.MinSavingsThreshold = c.getEnvFloat("MIN_SAVINGS_THRESHOLD", 0)
	c.MinTierSizeBytes = int64(c.getEnvInt("MIN_TIER_SIZE_BYTES", int(pricing.DefaultMinTierSizeBytes)))
	c.TierPricing = getEnv("TIER_PRICING", "")
	c.TierTableFile = getEnv("TIER_TABLE_FILE", "")
	c.PricingProvider = getEnv("PRICING_PROVIDER", "aws")
	c.ObjectPrefix = getEnv("OBJECT_PREFIX", "")

	c.AWSRegion = getEnv("AWS_REGION", "us-east-1")
	c.AWSProfile = getEnv("AWS_PROFILE", "")

	c.StorageEnabled = getEnvBool("STORAGE_ENABLED", false)
	c.DatabaseURL = getEnv("DATABASE_URL", "host=localhost port=5432 user=tieruser password=devpassword dbname=tieroptimizer sslmode=disable")

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "console")
	c.LogFile = getEnv("LOG_FILE", "")

	c.OutputFormat = getEnv("OUTPUT_FORMAT", "text")
	c.MetricsTextfile = getEnv("METRICS_TEXTFILE", "")
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.envErrors = append(c.envErrors, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func (c *Config) getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.envErrors = append(c.envErrors, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

// UseCautiousPreset configures small, slow batches for production buckets
func (c *Config) UseCautiousPreset() {
	c.BatchSize = 25
	c.InterBatchDelay = 5 * time.Second
	c.MaxErrors = 20
	c.RequestsPerSecond = 10
}

// UseBulkPreset configures large batches for one-off backfills
func (c *Config) UseBulkPreset() {
	c.BatchSize = 500
	c.InterBatchDelay = 200 * time.Millisecond
	c.MaxErrors = 1000
	c.RequestsPerSecond = 0
}

// ApplyPreset sets a named pacing preset. Fields whose flag the caller
// reports as explicit keep their current value.
func (c *Config) ApplyPreset(name string, explicit func(flag string) bool) error {
	saved := *c
	switch name {
	case "":
		return nil
	case "cautious":
		c.UseCautiousPreset()
	case "bulk":
		c.UseBulkPreset()
	default:
		return fmt.Errorf("unknown preset %q, want cautious or bulk", name)
	}
	if explicit == nil {
		return nil
	}

	if explicit("batch-size") {
		c.BatchSize = saved.BatchSize
	}
	if explicit("inter-batch-delay") {
		c.InterBatchDelay = saved.InterBatchDelay
	}
	if explicit("max-errors") {
		c.MaxErrors = saved.MaxErrors
	}
	if explicit("rps") {
		c.RequestsPerSecond = saved.RequestsPerSecond
	}
	return nil
}

// IsMigrate reports whether runs should apply transitions
func (c *Config) IsMigrate() bool {
	return c.Mode == ModeMigrate
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.envErrors) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(c.envErrors...))
	}
	if c.Mode != ModeRecommend && c.Mode != ModeMigrate {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeRecommend, ModeMigrate, c.Mode)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if c.InterBatchDelay < 0 {
		return fmt.Errorf("inter-batch delay must be >= 0")
	}
	if c.MaxObjects < 0 {
		return fmt.Errorf("max objects must be >= 0")
	}
	if c.ObjectTimeout < 0 {
		return fmt.Errorf("object timeout must be >= 0")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be >= 0")
	}
	if c.MinSavingsThreshold < 0 {
		return fmt.Errorf("minimum savings threshold must be >= 0")
	}
	if c.MinTierSizeBytes < 0 {
		return fmt.Errorf("minimum tier size must be >= 0")
	}
	if _, err := pricing.ParsePricing(c.TierPricing); err != nil {
		return fmt.Errorf("TIER_PRICING: %w", err)
	}
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	switch c.OutputFormat {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("output format must be text, json or csv, got %q", c.OutputFormat)
	}
	return nil
}

// ExecutorOptions converts the migration settings
func (c *Config) ExecutorOptions() executor.Options {
	return executor.Options{
		DryRun:            c.DryRun,
		BatchSize:         c.BatchSize,
		InterBatchDelay:   c.InterBatchDelay,
		MaxObjects:        c.MaxObjects,
		MaxErrors:         c.MaxErrors,
		MaxSamples:        executor.DefaultMaxSamples,
		ObjectTimeout:     c.ObjectTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// PricingConfig converts the tiering settings
func (c *Config) PricingConfig() (*pricing.Config, error) {
	prices, err := pricing.ParsePricing(c.TierPricing)
	if err != nil {
		return nil, err
	}
	return &pricing.Config{
		Provider:         c.PricingProvider,
		Region:           c.AWSRegion,
		TableFile:        c.TierTableFile,
		TierPricing:      prices,
		MinTierSizeBytes: c.MinTierSizeBytes,
	}, nil
}

func (c *Config) AggregatorOptions() aggregator.Options {
	return aggregator.Options{
		MinSavingsThreshold: c.MinSavingsThreshold,
		Region:              c.AWSRegion,
	}
}

func (c *Config) StorageConfig() *storage.Config {
	return &storage.Config{
		Enabled: c.StorageEnabled,
		URL:     c.DatabaseURL,
	}
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		OutputFile: c.LogFile,
	}
}
