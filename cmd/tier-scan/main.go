package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opscart/s3-tier-optimizer/pkg/config"
)

var (
	// Global config, env defaults overridden by flags
	cfg *config.Config

	allBuckets   bool
	preset       string
	maxList      int
	reportFormat string
	reportOutput string
	applyPolicy  bool
	historyLimit int
)

func main() {
	cfg = config.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "tier-scan",
		Short: "S3 storage tier rightsizing",
		Long: `Analyze S3 buckets for objects stored in a tier warmer than their age
warrants, report the monthly savings, and optionally migrate them.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.AWSProfile, "profile", cfg.AWSProfile, "AWS shared config profile")
	pf.StringVar(&cfg.AWSRegion, "region", cfg.AWSRegion, "AWS region used for pricing and API calls")
	pf.StringVar(&cfg.ObjectPrefix, "prefix", cfg.ObjectPrefix, "Only list keys under this prefix")
	pf.IntVar(&maxList, "max-list", 0, "Stop listing each bucket after this many objects (0 = all)")
	pf.StringVarP(&cfg.OutputFormat, "output", "o", cfg.OutputFormat, "Output format: text, json, csv")
	pf.Float64Var(&cfg.MinSavingsThreshold, "min-savings", cfg.MinSavingsThreshold, "Minimum monthly USD saving per object to migrate")
	pf.Int64Var(&cfg.MinTierSizeBytes, "min-tier-size", cfg.MinTierSizeBytes, "Objects smaller than this stay in the hottest tier")
	pf.StringVar(&cfg.TierPricing, "pricing", cfg.TierPricing, "Tier price overrides, e.g. STANDARD=0.023,GLACIER=0.0036")
	pf.StringVar(&cfg.TierTableFile, "tier-table", cfg.TierTableFile, "YAML tier rule table")
	pf.StringVar(&cfg.PricingProvider, "pricing-provider", cfg.PricingProvider, "Pricing provider: aws, default, file")
	pf.BoolVar(&cfg.StorageEnabled, "save", cfg.StorageEnabled, "Save analyses and runs to the database")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console, json")
	pf.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file after the run")
	pf.StringVar(&reportFormat, "report-format", "html", "Report file format: html, csv, text")
	pf.StringVar(&reportOutput, "report-output", "", "Also write a report to this file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [bucket...]",
		Short: "Recommend tier transitions without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Mode = config.ModeRecommend
			return runRightsize(cmd.Context(), args)
		},
	}
	analyzeCmd.Flags().BoolVar(&allBuckets, "all", false, "Analyze every bucket visible to the caller")

	migrateCmd := &cobra.Command{
		Use:   "migrate [bucket...]",
		Short: "Analyze and migrate eligible objects to their recommended tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Mode = config.ModeMigrate
			if err := cfg.ApplyPreset(preset, cmd.Flags().Changed); err != nil {
				return err
			}
			return runRightsize(cmd.Context(), args)
		},
	}
	mf := migrateCmd.Flags()
	mf.BoolVar(&allBuckets, "all", false, "Migrate every bucket visible to the caller")
	mf.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Simulate transitions without calling S3")
	mf.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Objects per batch")
	mf.DurationVar(&cfg.InterBatchDelay, "inter-batch-delay", cfg.InterBatchDelay, "Pause between batches")
	mf.IntVar(&cfg.MaxObjects, "max-objects", cfg.MaxObjects, "Cap on objects migrated per bucket (0 = no cap)")
	mf.IntVar(&cfg.MaxErrors, "max-errors", cfg.MaxErrors, "Cap on per-object errors kept in the run summary")
	mf.DurationVar(&cfg.ObjectTimeout, "object-timeout", cfg.ObjectTimeout, "Timeout for each tier change (0 = none)")
	mf.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "Rate limit for tier changes (0 = unlimited)")
	mf.StringVar(&preset, "preset", "", "Pacing preset: cautious, bulk")

	lifecycleCmd := &cobra.Command{
		Use:   "lifecycle <bucket>",
		Short: "Print, and optionally apply, a lifecycle policy derived from the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Mode = config.ModeRecommend
			return runLifecycle(cmd.Context(), args[0])
		},
	}
	lifecycleCmd.Flags().BoolVar(&applyPolicy, "apply", false, "Put the policy on the bucket, replacing existing rules")

	historyCmd := &cobra.Command{
		Use:   "history <bucket>",
		Short: "View past analyses and migration runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), args[0])
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of entries to show")

	rootCmd.AddCommand(analyzeCmd, migrateCmd, lifecycleCmd, historyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
