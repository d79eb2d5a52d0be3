package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// GenerateCSV creates a CSV report with one row per transition group
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Bucket",
		"Region",
		"From Tier",
		"To Tier",
		"Objects",
		"Bytes",
		"Percent Of Bucket",
		"Monthly Savings ($)",
		"Outcome",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, b := range report.Buckets {
		if b.Analysis == nil {
			if err := w.Write([]string{b.Bucket, "", "", "", "0", "0", "0.0", "0.00", string(b.Outcome)}); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
			continue
		}
		for _, g := range b.Analysis.Groups {
			row := []string{
				b.Bucket,
				b.Analysis.Region,
				g.FromTier,
				g.ToTier,
				fmt.Sprintf("%d", g.ObjectCount),
				fmt.Sprintf("%d", g.TotalBytes),
				fmt.Sprintf("%.1f", g.PercentageOfBucket),
				fmt.Sprintf("%.4f", g.MonthlySavings),
				string(b.Outcome),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	// Summary rows
	rows := [][]string{
		{},
		{"SUMMARY"},
		{"Buckets", fmt.Sprintf("%d", report.BucketCount)},
		{"Failed Buckets", fmt.Sprintf("%d", report.FailedCount)},
		{"Objects To Transition", fmt.Sprintf("%d", report.ObjectsToTransition)},
		{"Total Monthly Savings", fmt.Sprintf("$%.2f", report.TotalSavings)},
		{"Total Annual Savings", fmt.Sprintf("$%.2f", report.AnnualSavings)},
		{},
		{"TARGET TIER BREAKDOWN"},
		{"Tier", "Objects", "Buckets", "Savings", "Share"},
	}
	for _, stat := range report.SortedTierStats() {
		rows = append(rows, []string{
			stat.Tier,
			fmt.Sprintf("%d", stat.ObjectCount),
			fmt.Sprintf("%d", stat.Buckets),
			fmt.Sprintf("$%.2f", stat.TotalSavings),
			fmt.Sprintf("%.1f%%", stat.SavingsShare),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV summary: %w", err)
	}

	return nil
}
