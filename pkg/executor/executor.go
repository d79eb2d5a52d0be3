package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/opscart/s3-tier-optimizer/pkg/metrics"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/storage"
)

const (
	DefaultBatchSize       = 100
	DefaultInterBatchDelay = time.Second
	DefaultMaxErrors       = 100
	DefaultMaxSamples      = 10

	persistTimeout = 10 * time.Second
)

// MigrationBackend changes the tier of one object. Re-issuing the same target
// tier must be a safe no-op.
type MigrationBackend interface {
	SetTier(ctx context.Context, bucket, key, tier string) error
}

// Options controls batching and pacing of a run
type Options struct {
	DryRun          bool
	BatchSize       int
	InterBatchDelay time.Duration
	// MaxObjects caps objects per run; the rest are skipped. 0 means no cap.
	MaxObjects int
	MaxErrors  int
	MaxSamples int
	// ObjectTimeout bounds each backend call. 0 means no timeout.
	ObjectTimeout time.Duration
	// RequestsPerSecond limits backend calls across a batch. 0 means unlimited.
	RequestsPerSecond float64
}

func (o *Options) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.InterBatchDelay < 0 {
		o.InterBatchDelay = 0
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = DefaultMaxErrors
	}
	if o.MaxSamples <= 0 {
		o.MaxSamples = DefaultMaxSamples
	}
}

// DefaultOptions returns dry-run options with default pacing
func DefaultOptions() Options {
	return Options{
		DryRun:          true,
		BatchSize:       DefaultBatchSize,
		InterBatchDelay: DefaultInterBatchDelay,
		MaxErrors:       DefaultMaxErrors,
		MaxSamples:      DefaultMaxSamples,
	}
}

// Executor applies eligible recommendations in sequential batches
type Executor struct {
	backend  MigrationBackend
	sink     storage.Sink
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.Collector
	observer models.Observer
	limiter  *rate.Limiter

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// Option configures optional executor collaborators
type Option func(*Executor)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) { e.metrics = c }
}

func WithObserver(o models.Observer) Option {
	return func(e *Executor) { e.observer = o }
}

func WithSink(s storage.Sink) Option {
	return func(e *Executor) { e.sink = s }
}

// WithSleep replaces the inter-batch wait
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// New creates an executor. backend may be nil for dry runs only.
func New(backend MigrationBackend, opts Options, options ...Option) *Executor {
	opts.setDefaults()

	e := &Executor{
		backend: backend,
		opts:    opts,
		logger:  zap.NewNop(),
		sleep:   sleepContext,
		now:     time.Now,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Options returns the effective options
func (e *Executor) Options() Options {
	return e.opts
}

// Execute migrates the eligible set of one bucket. Cancellation is honoured
// only between batches; a started batch always settles. The returned error is
// non-nil only when the run could not be attempted at all.
func (e *Executor) Execute(ctx context.Context, bucket string, eligible []models.Recommendation) (*models.MigrationResult, error) {
	if !e.opts.DryRun && e.backend == nil {
		return nil, errors.New("live migration requires a migration backend")
	}

	result := &models.MigrationResult{
		ID:           uuid.New().String(),
		Bucket:       bucket,
		DryRun:       e.opts.DryRun,
		StartedAt:    e.now(),
		TotalObjects: len(eligible),
		Errors:       []models.MigrationError{},
		Samples:      []models.Transition{},
	}

	work := eligible
	if e.opts.MaxObjects > 0 && len(work) > e.opts.MaxObjects {
		result.Skipped += len(work) - e.opts.MaxObjects
		work = work[:e.opts.MaxObjects]
		e.logger.Info("Object cap reached, remaining objects skipped",
			zap.String("bucket", bucket),
			zap.Int("max_objects", e.opts.MaxObjects),
			zap.Int("skipped", result.Skipped))
	}

	batches := partition(work, e.opts.BatchSize)
	log := e.logger.With(zap.String("bucket", bucket), zap.String("run_id", result.ID))
	log.Info("Starting migration run",
		zap.Bool("dry_run", e.opts.DryRun),
		zap.Int("objects", len(work)),
		zap.Int("batches", len(batches)))

	cancelled := false
	for i, batch := range batches {
		if i > 0 && e.opts.InterBatchDelay > 0 {
			e.sleep(ctx, e.opts.InterBatchDelay)
		}
		if ctx.Err() != nil {
			cancelled = true
			for _, rest := range batches[i:] {
				result.Skipped += len(rest)
			}
			log.Warn("Run cancelled at batch boundary",
				zap.Int("completed_batches", i),
				zap.Int("skipped", result.Skipped))
			break
		}

		batchNo := i + 1
		models.Notify(e.observer, models.Event{
			Type: models.EventBatchStarted, Bucket: bucket,
			Batch: batchNo, Batches: len(batches), Objects: len(batch),
		})

		start := time.Now()
		transitions := e.runBatch(ctx, bucket, batchNo, batch)
		e.metrics.RecordBatch(time.Since(start))
		failed := e.accumulate(result, transitions)
		result.Batches++

		log.Debug("Batch settled",
			zap.Int("batch", batchNo),
			zap.Int("objects", len(batch)),
			zap.Int("failed", failed))
		models.Notify(e.observer, models.Event{
			Type: models.EventBatchCompleted, Bucket: bucket,
			Batch: batchNo, Batches: len(batches), Objects: len(batch),
		})
	}

	result.PartialFailure = result.Failed > 0
	switch {
	case cancelled:
		result.Outcome = models.OutcomeCancelled
		if result.PartialFailure {
			log.Warn("Cancelled run had failed objects",
				zap.Int("failed", result.Failed),
				zap.Int("succeeded", result.Succeeded))
		}
	case result.PartialFailure:
		result.Outcome = models.OutcomePartialFailure
	default:
		result.Outcome = models.OutcomeSucceeded
	}
	result.CompletedAt = e.now()

	e.metrics.RecordRun(string(result.Outcome))
	if !result.DryRun {
		e.metrics.RecordRealizedSavings(bucket, result.RealizedMonthlySavings)
	}
	e.persist(ctx, log, result)

	log.Info("Migration run finished",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("simulated", result.Simulated),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Float64("estimated_monthly_savings", result.EstimatedMonthlySavings),
		zap.Float64("realized_monthly_savings", result.RealizedMonthlySavings))
	models.Notify(e.observer, models.Event{
		Type: models.EventRunCompleted, Bucket: bucket,
		Batches: result.Batches, Objects: result.Processed,
	})

	return result, nil
}

// runBatch issues every object of the batch concurrently and waits for all
// of them. Each goroutine writes only its own slot.
func (e *Executor) runBatch(ctx context.Context, bucket string, batchNo int, batch []models.Recommendation) []models.Transition {
	out := make([]models.Transition, len(batch))

	// In-flight calls outlive cancellation of the run
	callCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, rec := range batch {
		g.Go(func() error {
			out[i] = e.migrateOne(callCtx, bucket, batchNo, rec)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Executor) migrateOne(ctx context.Context, bucket string, batchNo int, rec models.Recommendation) models.Transition {
	t := models.Transition{
		Key:            rec.Key,
		FromTier:       rec.CurrentTier,
		ToTier:         rec.RecommendedTier,
		SizeBytes:      rec.SizeBytes,
		MonthlySavings: rec.PotentialMonthlySavings,
		Status:         models.StatusPending,
		Batch:          batchNo,
	}

	if e.opts.DryRun {
		t.Status = models.StatusSimulated
		t.CompletedAt = e.now()
		return t
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			t.Status = models.StatusFailed
			t.Error = &models.MigrationCallError{Bucket: bucket, Key: rec.Key, Tier: rec.RecommendedTier, Err: err}
			t.CompletedAt = e.now()
			return t
		}
	}

	callCtx := ctx
	if e.opts.ObjectTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.ObjectTimeout)
		defer cancel()
	}

	if err := e.backend.SetTier(callCtx, bucket, rec.Key, rec.RecommendedTier); err != nil {
		t.Status = models.StatusFailed
		t.Error = &models.MigrationCallError{Bucket: bucket, Key: rec.Key, Tier: rec.RecommendedTier, Err: err}
	} else {
		t.Status = models.StatusSuccess
	}
	t.CompletedAt = e.now()

	return t
}

// accumulate folds a settled batch into the run totals and returns the
// number of failures in it
func (e *Executor) accumulate(result *models.MigrationResult, transitions []models.Transition) int {
	failed := 0
	for _, t := range transitions {
		result.Processed++
		result.EstimatedMonthlySavings += t.MonthlySavings

		switch t.Status {
		case models.StatusSimulated:
			result.Simulated++
		case models.StatusSuccess:
			result.Succeeded++
			result.RealizedMonthlySavings += t.MonthlySavings
		case models.StatusFailed:
			failed++
			result.Failed++
			e.recordFailure(result, t)
		}
		e.metrics.RecordTransition(string(t.Status), t.ToTier)

		if len(result.Samples) < e.opts.MaxSamples {
			result.Samples = append(result.Samples, t)
		}
	}
	return failed
}

func (e *Executor) recordFailure(result *models.MigrationResult, t models.Transition) {
	reason := "unknown error"
	if t.Error != nil {
		reason = t.Error.Error()
		var mce *models.MigrationCallError
		if errors.As(t.Error, &mce) && mce.Err != nil {
			reason = mce.Err.Error()
		}
	}

	if len(result.Errors) < e.opts.MaxErrors {
		result.Errors = append(result.Errors, models.MigrationError{
			Key:        t.Key,
			Reason:     reason,
			OccurredAt: t.CompletedAt,
		})
	} else {
		result.ErrorsTruncated = true
	}

	e.logger.Warn("Object migration failed",
		zap.String("bucket", result.Bucket),
		zap.String("key", t.Key),
		zap.String("to_tier", t.ToTier),
		zap.Error(t.Error))
	models.Notify(e.observer, models.Event{
		Type: models.EventObjectFailed, Bucket: result.Bucket,
		Batch: t.Batch, Key: t.Key, Err: t.Error,
	})
}

// persist hands the summary to the sink. Failures never change the outcome.
func (e *Executor) persist(ctx context.Context, log *zap.Logger, result *models.MigrationResult) {
	if e.sink == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := e.sink.SaveMigrationRun(pctx, result); err != nil {
		perr := &models.PersistenceError{Op: "migration_run", Err: err}
		e.metrics.RecordPersistenceFailure(perr.Op)
		log.Warn("Failed to persist migration run", zap.Error(perr))
	}
}

func partition(recs []models.Recommendation, size int) [][]models.Recommendation {
	var batches [][]models.Recommendation
	for start := 0; start < len(recs); start += size {
		end := start + size
		if end > len(recs) {
			end = len(recs)
		}
		batches = append(batches, recs[start:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
