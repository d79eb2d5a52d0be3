package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/opscart/s3-tier-optimizer/pkg/aggregator"
	"github.com/opscart/s3-tier-optimizer/pkg/engine"
	"github.com/opscart/s3-tier-optimizer/pkg/executor"
	"github.com/opscart/s3-tier-optimizer/pkg/logger"
	"github.com/opscart/s3-tier-optimizer/pkg/metrics"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
	"github.com/opscart/s3-tier-optimizer/pkg/objectstore"
	"github.com/opscart/s3-tier-optimizer/pkg/pricing"
	"github.com/opscart/s3-tier-optimizer/pkg/reporter"
	"github.com/opscart/s3-tier-optimizer/pkg/storage"
)

// app holds everything a command needs. Built once per invocation.
type app struct {
	log     *zap.Logger
	metrics *metrics.Collector
	store   storage.Store
	client  *objectstore.Client
	engine  *engine.Engine
}

func newApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client, err := objectstore.NewClient(ctx, cfg.AWSProfile, cfg.AWSRegion)
	if err != nil {
		store.Close()
		return nil, err
	}

	pricingConfig, err := cfg.PricingConfig()
	if err != nil {
		store.Close()
		return nil, err
	}
	provider, err := pricing.NewProvider(pricingConfig)
	if err != nil {
		store.Close()
		return nil, err
	}
	table, err := provider.RuleTable(ctx, cfg.AWSRegion)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load tier rule table: %w", err)
	}
	log.Info("Tier rule table loaded",
		zap.String("provider", provider.Name()),
		zap.String("region", cfg.AWSRegion),
		zap.String("hottest_tier", table.HottestTier()),
		zap.Int64("min_tier_size_bytes", table.MinTierSizeBytes()))

	source := objectstore.NewInventorySource(client.S3, objectstore.InventoryOptions{
		Prefix:      cfg.ObjectPrefix,
		Limit:       maxList,
		DefaultTier: table.HottestTier(),
		Logger:      log,
	})

	observer := progressObserver(log)
	options := []engine.Option{
		engine.WithLogger(log),
		engine.WithMetrics(collector),
		engine.WithSink(store),
		engine.WithObserver(observer),
		engine.WithRegionResolver(client),
		engine.WithRegionalPricing(provider),
	}
	if cfg.IsMigrate() {
		exec := executor.New(objectstore.NewTierMigrator(client.S3), cfg.ExecutorOptions(),
			executor.WithLogger(log),
			executor.WithMetrics(collector),
			executor.WithSink(store),
			executor.WithObserver(observer))
		options = append(options, engine.WithMigrator(exec))
	}

	return &app{
		log:     log,
		metrics: collector,
		store:   store,
		client:  client,
		engine:  engine.New(source, table, cfg.AggregatorOptions(), options...),
	}, nil
}

func (a *app) close() {
	if cfg.MetricsTextfile != "" {
		if err := a.metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			a.log.Warn("Failed to write metrics textfile", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close storage", zap.Error(err))
	}
	_ = a.log.Sync()
}

// progressObserver logs engine events at debug level
func progressObserver(log *zap.Logger) models.Observer {
	return models.ObserverFunc(func(e models.Event) {
		fields := []zap.Field{
			zap.String("event", string(e.Type)),
			zap.String("bucket", e.Bucket),
		}
		if e.Batches > 0 {
			fields = append(fields, zap.Int("batch", e.Batch), zap.Int("batches", e.Batches))
		}
		if e.Key != "" {
			fields = append(fields, zap.String("key", e.Key))
		}
		if e.Err != nil {
			fields = append(fields, zap.Error(e.Err))
		}
		log.Debug("Progress", fields...)
	})
}

func runRightsize(ctx context.Context, args []string) error {
	if len(args) == 0 && !allBuckets {
		return fmt.Errorf("either bucket names or --all must be specified")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	buckets := args
	if allBuckets {
		buckets, err = a.client.ListBuckets(ctx)
		if err != nil {
			return err
		}
		a.log.Info("Discovered buckets", zap.Int("buckets", len(buckets)))
	}

	if cfg.IsMigrate() {
		a.log.Info("Migration mode",
			zap.Bool("dry_run", cfg.DryRun),
			zap.Int("batch_size", cfg.BatchSize),
			zap.Duration("inter_batch_delay", cfg.InterBatchDelay))
	}

	reports := a.engine.RunAll(ctx, buckets)

	if err := writeReports(os.Stdout, cfg.OutputFormat, reports); err != nil {
		return err
	}
	if reportOutput != "" {
		if err := writeReportFile(reports); err != nil {
			a.log.Error("Failed to write report file", zap.Error(err))
		}
	}

	failed := 0
	for _, r := range reports {
		if r.Outcome == models.OutcomeNotStarted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d bucket(s) could not be processed", failed, len(reports))
	}
	return nil
}

func writeReports(w io.Writer, format string, reports []*engine.BucketReport) error {
	if format == "json" {
		output := map[string]interface{}{
			"buckets":   reports,
			"count":     len(reports),
			"mode":      cfg.Mode,
			"timestamp": time.Now().Format(time.RFC3339),
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	}

	rep := reporter.New(reporter.ReportFormat(format))
	report, err := rep.Generate(reports)
	if err != nil {
		return err
	}
	return rep.Write(report, w)
}

func writeReportFile(reports []*engine.BucketReport) error {
	file, err := os.Create(reportOutput)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	rep := reporter.New(reporter.ReportFormat(reportFormat))
	report, err := rep.Generate(reports)
	if err != nil {
		return err
	}
	if err := rep.Write(report, file); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "[INFO] %s report generated: %s\n", reportFormat, reportOutput)
	return nil
}

func runLifecycle(ctx context.Context, bucket string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	analysis, err := a.engine.Analyze(ctx, bucket)
	if err != nil {
		return err
	}

	policy := aggregator.BuildLifecyclePolicy(bucket, analysis.Lifecycle)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(policy); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	if !applyPolicy {
		return nil
	}
	if len(policy.Rules) == 0 {
		fmt.Fprintf(os.Stderr, "[INFO] No lifecycle rules to apply for %s\n", bucket)
		return nil
	}
	if err := objectstore.NewLifecycleApplier(a.client.S3).Apply(ctx, policy); err != nil {
		return err
	}
	a.log.Info("Lifecycle policy applied", zap.String("bucket", bucket), zap.Int("rules", len(policy.Rules)))
	return nil
}

func runHistory(ctx context.Context, bucket string) error {
	// History needs the database even when saving is off
	cfg.StorageEnabled = true
	store, err := storage.NewStore(cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	analyses, err := store.ListAnalyses(ctx, bucket, historyLimit)
	if err != nil {
		return err
	}
	runs, err := store.ListMigrationRuns(ctx, bucket, historyLimit)
	if err != nil {
		return err
	}

	if len(analyses) == 0 && len(runs) == 0 {
		fmt.Printf("No history found for bucket: %s\n", bucket)
		return nil
	}

	if len(analyses) > 0 {
		fmt.Printf("Recent analyses for bucket '%s':\n\n", bucket)
		for i, a := range analyses {
			fmt.Printf("%d. %s (ID: %s)\n", i+1, a.AnalyzedAt.Format("2006-01-02 15:04:05"), a.ID)
			fmt.Printf("   Objects: %d\n", a.TotalObjects)
			fmt.Printf("   To transition: %d\n", a.ObjectsToTransition)
			if a.NoGainObjects > 0 {
				fmt.Printf("   No cheaper tier: %d\n", a.NoGainObjects)
			}
			fmt.Printf("   Savings: $%.2f/mo\n", a.MonthlySavings)
			fmt.Println()
		}
	}

	if len(runs) > 0 {
		fmt.Printf("Recent migration runs for bucket '%s':\n\n", bucket)
		for i, r := range runs {
			mode := "live"
			if r.DryRun {
				mode = "dry-run"
			}
			fmt.Printf("%d. %s %s (ID: %s)\n", i+1, r.StartedAt.Format("2006-01-02 15:04:05"), mode, r.ID)
			if r.PartialFailure && r.Outcome == models.OutcomeCancelled {
				fmt.Printf("   Outcome: %s (with failures)\n", r.Outcome)
			} else {
				fmt.Printf("   Outcome: %s\n", r.Outcome)
			}
			fmt.Printf("   Processed: %d (succeeded %d, simulated %d, failed %d, skipped %d)\n",
				r.Processed, r.Succeeded, r.Simulated, r.Failed, r.Skipped)
			fmt.Printf("   Savings: $%.2f/mo estimated, $%.2f/mo realized\n",
				r.EstimatedMonthlySavings, r.RealizedMonthlySavings)
			fmt.Println()
		}
	}

	return nil
}
