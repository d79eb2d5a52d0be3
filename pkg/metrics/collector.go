package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records engine metrics on a private registry.
// A nil or disabled Collector ignores every call.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	transitionCounter   *prometheus.CounterVec
	batchCounter        prometheus.Counter
	batchDuration       prometheus.Histogram
	runCounter          *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	analyzedObjects     *prometheus.GaugeVec
	potentialSavings    *prometheus.GaugeVec
	realizedSavings     *prometheus.GaugeVec
}

// Config represents metrics configuration
type Config struct {
	Enabled   bool
	Namespace string
}

// NewCollector creates a new metrics collector
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Namespace: "tier_optimizer",
		}
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	collector := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}
	collector.initMetrics()

	if err := collector.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return collector, nil
}

func (c *Collector) initMetrics() {
	ns := c.config.Namespace

	c.transitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transitions_total",
			Help:      "Object tier transitions by final status and target tier",
		},
		[]string{"status", "to_tier"},
	)
	c.batchCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "batches_total",
			Help:      "Migration batches executed",
		},
	)
	c.batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one migration batch",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
		},
	)
	c.runCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bucket_runs_total",
			Help:      "Bucket runs by outcome",
		},
		[]string{"outcome"},
	)
	c.persistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "persistence_failures_total",
			Help:      "Payloads the persistence sink rejected",
		},
		[]string{"operation"},
	)
	c.analyzedObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "analyzed_objects",
			Help:      "Objects seen in the latest analysis of a bucket",
		},
		[]string{"bucket"},
	)
	c.potentialSavings = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "potential_monthly_savings_usd",
			Help:      "Monthly savings found by the latest analysis of a bucket",
		},
		[]string{"bucket"},
	)
	c.realizedSavings = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "realized_monthly_savings_usd",
			Help:      "Monthly savings realized by the latest live migration of a bucket",
		},
		[]string{"bucket"},
	)
}

func (c *Collector) registerMetrics() error {
	collectors := []prometheus.Collector{
		c.transitionCounter,
		c.batchCounter,
		c.batchDuration,
		c.runCounter,
		c.persistenceFailures,
		c.analyzedObjects,
		c.potentialSavings,
		c.realizedSavings,
	}
	for _, pc := range collectors {
		if err := c.registry.Register(pc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) enabled() bool {
	return c != nil && c.config != nil && c.config.Enabled
}

// Registry exposes the underlying registry, nil when disabled
func (c *Collector) Registry() *prometheus.Registry {
	if !c.enabled() {
		return nil
	}
	return c.registry
}

// RecordTransition counts one object reaching a final status
func (c *Collector) RecordTransition(status, toTier string) {
	if !c.enabled() {
		return
	}
	c.transitionCounter.With(prometheus.Labels{"status": status, "to_tier": toTier}).Inc()
}

// RecordBatch counts one settled batch
func (c *Collector) RecordBatch(duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.batchCounter.Inc()
	c.batchDuration.Observe(duration.Seconds())
}

// RecordRun counts a finished bucket run
func (c *Collector) RecordRun(outcome string) {
	if !c.enabled() {
		return
	}
	c.runCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordAnalysis stores the latest analysis totals for a bucket
func (c *Collector) RecordAnalysis(bucket string, objects int, monthlySavings float64) {
	if !c.enabled() {
		return
	}
	c.analyzedObjects.With(prometheus.Labels{"bucket": bucket}).Set(float64(objects))
	c.potentialSavings.With(prometheus.Labels{"bucket": bucket}).Set(monthlySavings)
}

// RecordRealizedSavings stores realized savings of a live run
func (c *Collector) RecordRealizedSavings(bucket string, monthlySavings float64) {
	if !c.enabled() {
		return
	}
	c.realizedSavings.With(prometheus.Labels{"bucket": bucket}).Set(monthlySavings)
}

// RecordPersistenceFailure counts a swallowed sink error
func (c *Collector) RecordPersistenceFailure(operation string) {
	if !c.enabled() {
		return
	}
	c.persistenceFailures.With(prometheus.Labels{"operation": operation}).Inc()
}

// WriteTextfile writes the registry in node-exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	if !c.enabled() {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
