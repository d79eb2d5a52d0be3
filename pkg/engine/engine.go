// Package engine runs the analysis pipeline for a bucket and, in migrate
// mode, hands the eligible set to the executor.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opscart/s3-tier-optimizer/pkg/aggregator"
	"github.com/opscart/s3-tier-optimizer/pkg/analyzer"
	"github.com/opscart/s3-tier-optimizer/pkg/metrics"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
	"github.com/opscart/s3-tier-optimizer/pkg/recommender"
	"github.com/opscart/s3-tier-optimizer/pkg/storage"
)

const persistTimeout = 10 * time.Second

// InventorySource lists the objects of a bucket
type InventorySource interface {
	ListObjects(ctx context.Context, bucket string) ([]models.ObjectRecord, error)
}

// RegionResolver looks up where a bucket lives
type RegionResolver interface {
	GetBucketRegion(ctx context.Context, bucket string) (string, error)
}

// TableSource serves the tier rule table for a region. pricing.Provider
// satisfies it.
type TableSource interface {
	RuleTable(ctx context.Context, region string) (*pricing.RuleTable, error)
}

// Migrator applies an eligible set. *executor.Executor satisfies it.
type Migrator interface {
	Execute(ctx context.Context, bucket string, eligible []models.Recommendation) (*models.MigrationResult, error)
}

// BucketReport is the outcome of one bucket run
type BucketReport struct {
	Bucket    string                  `json:"bucket"`
	Outcome   models.RunOutcome       `json:"outcome"`
	Analysis  *models.BucketAnalysis  `json:"analysis,omitempty"`
	Migration *models.MigrationResult `json:"migration,omitempty"`
	Error     string                  `json:"error,omitempty"`

	Err error `json:"-"`
}

// MonthlySavings is the potential saving found by the analysis
func (r *BucketReport) MonthlySavings() float64 {
	if r.Analysis == nil {
		return 0
	}
	return r.Analysis.Summary.MonthlySavings
}

// pricer prices one region's buckets
type pricer struct {
	region      string
	recommender *recommender.Recommender
	aggregator  *aggregator.Aggregator
}

// Engine wires classifier, recommender, aggregator and executor together
type Engine struct {
	source     InventorySource
	classifier *analyzer.Classifier
	aggOpts    aggregator.Options
	base       *pricer

	tables  TableSource
	mu      sync.Mutex
	pricers map[string]*pricer

	migrator Migrator
	regions  RegionResolver
	sink     storage.Sink
	metrics  *metrics.Collector
	observer models.Observer
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures optional engine collaborators
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMigrator enables migrate mode
func WithMigrator(m Migrator) Option {
	return func(e *Engine) { e.migrator = m }
}

func WithRegionResolver(r RegionResolver) Option {
	return func(e *Engine) { e.regions = r }
}

// WithRegionalPricing prices each bucket with the table for its resolved
// region. Needs WithRegionResolver.
func WithRegionalPricing(tables TableSource) Option {
	return func(e *Engine) { e.tables = tables }
}

func WithSink(s storage.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

func WithObserver(o models.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithClock sets the time used for object ages
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine over the rule table for opts.Region. Without
// WithMigrator the engine only recommends.
func New(source InventorySource, table *pricing.RuleTable, opts aggregator.Options, options ...Option) *Engine {
	e := &Engine{
		source:  source,
		aggOpts: opts,
		pricers: make(map[string]*pricer),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(e)
	}

	e.classifier = analyzer.NewClassifier(analyzer.WithClock(e.now), analyzer.WithLogger(e.logger))
	e.base = e.newPricer(opts.Region, table)
	return e
}

func (e *Engine) newPricer(region string, table *pricing.RuleTable) *pricer {
	opts := e.aggOpts
	opts.Region = region
	return &pricer{
		region:      region,
		recommender: recommender.New(table, e.logger),
		aggregator:  aggregator.New(table, opts),
	}
}

// pricerFor returns the pricer for a bucket region, falling back to the
// base table when the region is unknown or has no table
func (e *Engine) pricerFor(ctx context.Context, log *zap.Logger, region string) *pricer {
	if e.tables == nil || region == "" || region == e.base.region {
		return e.base
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pricers[region]; ok {
		return p
	}

	table, err := e.tables.RuleTable(ctx, region)
	if err != nil {
		log.Warn("No rule table for bucket region, using default pricing region",
			zap.String("region", region),
			zap.String("pricing_region", e.base.region),
			zap.Error(err))
		return e.base
	}
	p := e.newPricer(region, table)
	e.pricers[region] = p
	return p
}

func (e *Engine) bucketRegion(ctx context.Context, log *zap.Logger, bucket string) string {
	if e.regions == nil {
		return ""
	}
	region, err := e.regions.GetBucketRegion(ctx, bucket)
	if err != nil {
		log.Warn("Could not resolve bucket region", zap.Error(err))
		return ""
	}
	return region
}

// Migrates reports whether the engine applies transitions
func (e *Engine) Migrates() bool {
	return e.migrator != nil
}

// Analyze lists, classifies and prices a bucket. The snapshot is persisted;
// a persistence failure is logged and does not fail the analysis.
func (e *Engine) Analyze(ctx context.Context, bucket string) (*models.BucketAnalysis, error) {
	log := e.logger.With(zap.String("bucket", bucket))
	models.Notify(e.observer, models.Event{Type: models.EventAnalysisStarted, Bucket: bucket})

	records, err := e.source.ListObjects(ctx, bucket)
	if err != nil {
		var fetchErr *models.InventoryFetchError
		if !errors.As(err, &fetchErr) {
			err = &models.InventoryFetchError{Bucket: bucket, Err: err}
		}
		return nil, err
	}

	inv, err := e.classifier.Classify(records)
	if err != nil {
		return nil, err
	}

	region := e.bucketRegion(ctx, log, bucket)
	p := e.pricerFor(ctx, log, region)
	result := p.recommender.Recommend(inv)
	analysis := p.aggregator.Aggregate(bucket, inv, result)
	analysis.PricingRegion = p.region
	if region != "" {
		analysis.Region = region
	}

	e.metrics.RecordAnalysis(bucket, analysis.TotalObjects, analysis.Summary.MonthlySavings)
	e.persist(ctx, log, analysis)

	log.Info("Analysis complete",
		zap.Int("objects", analysis.TotalObjects),
		zap.Int("to_transition", analysis.Summary.ObjectsToTransition),
		zap.Int("eligible", analysis.Summary.EligibleObjects),
		zap.Int("unpriced", analysis.UnpricedObjects),
		zap.Int("no_gain", analysis.NoGainObjects),
		zap.String("pricing_region", analysis.PricingRegion),
		zap.Float64("monthly_savings", analysis.Summary.MonthlySavings))
	models.Notify(e.observer, models.Event{
		Type: models.EventAnalysisCompleted, Bucket: bucket, Objects: analysis.TotalObjects,
	})

	return analysis, nil
}

// Rightsize analyzes a bucket and, in migrate mode, migrates its eligible set.
// It never returns nil; failures are carried in the report.
func (e *Engine) Rightsize(ctx context.Context, bucket string) *BucketReport {
	report := &BucketReport{Bucket: bucket}
	log := e.logger.With(zap.String("bucket", bucket))

	analysis, err := e.Analyze(ctx, bucket)
	if err != nil {
		return e.fail(log, report, err)
	}
	report.Analysis = analysis
	report.Outcome = models.OutcomeSucceeded

	if e.migrator == nil {
		return report
	}
	if len(analysis.Eligible) == 0 {
		log.Info("Nothing eligible for migration")
		return report
	}

	result, err := e.migrator.Execute(ctx, bucket, analysis.Eligible)
	if err != nil {
		return e.fail(log, report, err)
	}
	report.Migration = result
	report.Outcome = result.Outcome
	return report
}

// RunAll processes buckets one at a time. A failing bucket never stops the
// rest. Reports are ranked by potential monthly savings, highest first.
func (e *Engine) RunAll(ctx context.Context, buckets []string) []*BucketReport {
	reports := make([]*BucketReport, 0, len(buckets))
	for _, bucket := range buckets {
		if err := ctx.Err(); err != nil {
			reports = append(reports, &BucketReport{
				Bucket:  bucket,
				Outcome: models.OutcomeNotStarted,
				Error:   err.Error(),
				Err:     err,
			})
			continue
		}
		reports = append(reports, e.Rightsize(ctx, bucket))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].MonthlySavings() > reports[j].MonthlySavings()
	})

	e.logger.Info("All buckets processed", zap.Int("buckets", len(reports)))
	return reports
}

func (e *Engine) fail(log *zap.Logger, report *BucketReport, err error) *BucketReport {
	report.Outcome = models.OutcomeNotStarted
	report.Err = err
	report.Error = err.Error()

	e.metrics.RecordRun(string(report.Outcome))
	log.Error("Bucket run failed", zap.Error(err))
	models.Notify(e.observer, models.Event{Type: models.EventBucketFailed, Bucket: report.Bucket, Err: err})
	return report
}

func (e *Engine) persist(ctx context.Context, log *zap.Logger, analysis *models.BucketAnalysis) {
	if e.sink == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := e.sink.SaveAnalysis(pctx, analysis); err != nil {
		perr := &models.PersistenceError{Op: "analysis", Err: err}
		e.metrics.RecordPersistenceFailure(perr.Op)
		log.Warn("Failed to persist analysis", zap.Error(perr))
	}
}
