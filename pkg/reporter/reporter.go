package reporter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/opscart/s3-tier-optimizer/pkg/engine"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatHTML ReportFormat = "html"
	FormatCSV  ReportFormat = "csv"
)

// Report contains all data for generating reports
type Report struct {
	GeneratedAt time.Time
	Buckets     []*engine.BucketReport

	BucketCount         int
	AnalyzedCount       int
	FailedCount         int
	TotalObjects        int
	TotalBytes          int64
	ObjectsToTransition int
	TotalSavings        float64
	AnnualSavings       float64

	MigratedObjects int
	FailedObjects   int
	RealizedSavings float64

	TierStats map[string]*TierStats
}

// TierStats holds statistics per target tier across buckets
type TierStats struct {
	Tier         string
	ObjectCount  int
	Buckets      int
	TotalSavings float64
	SavingsShare float64 // percentage of all potential savings
}

// Reporter generates tier optimization reports
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// Generate builds a report from bucket run reports
func (r *Reporter) Generate(buckets []*engine.BucketReport) (*Report, error) {
	report := &Report{
		GeneratedAt: time.Now(),
		Buckets:     buckets,
		TierStats:   make(map[string]*TierStats),
	}

	r.calculateStats(report)

	return report, nil
}

// Write renders the report in the reporter's format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatText, "":
		return GenerateText(report, w)
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatHTML:
		return GenerateHTML(report, w)
	default:
		return fmt.Errorf("unsupported report format: %s", r.format)
	}
}

// calculateStats computes all statistics for the report
func (r *Reporter) calculateStats(report *Report) {
	for _, b := range report.Buckets {
		report.BucketCount++
		if b.Analysis == nil {
			report.FailedCount++
			continue
		}
		report.AnalyzedCount++

		a := b.Analysis
		report.TotalObjects += a.TotalObjects
		report.TotalBytes += a.TotalBytes
		report.ObjectsToTransition += a.Summary.ObjectsToTransition
		report.TotalSavings += a.Summary.MonthlySavings

		for tier, ts := range a.Summary.ByTargetTier {
			if _, exists := report.TierStats[tier]; !exists {
				report.TierStats[tier] = &TierStats{Tier: tier}
			}
			stat := report.TierStats[tier]
			stat.ObjectCount += ts.ObjectCount
			stat.TotalSavings += ts.MonthlySavings
			stat.Buckets++
		}

		if m := b.Migration; m != nil && !m.DryRun {
			report.MigratedObjects += m.Succeeded
			report.FailedObjects += m.Failed
			report.RealizedSavings += m.RealizedMonthlySavings
		}
	}

	report.AnnualSavings = report.TotalSavings * 12

	for _, stat := range report.TierStats {
		if report.TotalSavings > 0 {
			stat.SavingsShare = stat.TotalSavings / report.TotalSavings * 100
		}
	}
}

// SortedTierStats returns tier stats by savings, highest first
func (r *Report) SortedTierStats() []*TierStats {
	stats := make([]*TierStats, 0, len(r.TierStats))
	for _, s := range r.TierStats {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalSavings != stats[j].TotalSavings {
			return stats[i].TotalSavings > stats[j].TotalSavings
		}
		return stats[i].Tier < stats[j].Tier
	})
	return stats
}

// formatBytes renders a byte count in binary units
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
