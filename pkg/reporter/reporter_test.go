package reporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/opscart/s3-tier-optimizer/pkg/engine"
	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

func sampleReports() []*engine.BucketReport {
	logs := &models.BucketAnalysis{
		Bucket:       "logs",
		Region:       "us-east-1",
		TotalObjects: 4,
		TotalBytes:   3 << 30,
		Groups: []models.TransitionGroup{
			{TransitionKey: models.TransitionKey{FromTier: "STANDARD", ToTier: "DEEP_ARCHIVE"}, ObjectCount: 1, TotalBytes: 1 << 30, MonthlySavings: 0.022, PercentageOfBucket: 25},
			{TransitionKey: models.TransitionKey{FromTier: "STANDARD", ToTier: "STANDARD_IA"}, ObjectCount: 1, TotalBytes: 1 << 30, MonthlySavings: 0.0105, PercentageOfBucket: 25},
		},
		Advisories: []models.Advisory{{Type: models.AdvisoryRightSizing, Priority: models.PriorityHigh, Message: "2 objects (50.0%) can move to cheaper tiers"}},
		Summary: models.SavingsSummary{
			ObjectsToTransition: 2,
			MonthlySavings:      0.0325,
			AnnualSavings:       0.39,
			ByTargetTier: map[string]models.TierSavings{
				"DEEP_ARCHIVE": {ObjectCount: 1, MonthlySavings: 0.022},
				"STANDARD_IA":  {ObjectCount: 1, MonthlySavings: 0.0105},
			},
		},
	}
	archive := &models.BucketAnalysis{
		Bucket:       "archive",
		TotalObjects: 10,
		Groups: []models.TransitionGroup{
			{TransitionKey: models.TransitionKey{FromTier: "STANDARD_IA", ToTier: "DEEP_ARCHIVE"}, ObjectCount: 10, MonthlySavings: 1.0, PercentageOfBucket: 100},
		},
		Summary: models.SavingsSummary{
			ObjectsToTransition: 10,
			MonthlySavings:      1.0,
			ByTargetTier: map[string]models.TierSavings{
				"DEEP_ARCHIVE": {ObjectCount: 10, MonthlySavings: 1.0},
			},
		},
	}

	return []*engine.BucketReport{
		{
			Bucket: "archive", Outcome: models.OutcomePartialFailure, Analysis: archive,
			Migration: &models.MigrationResult{Outcome: models.OutcomePartialFailure, Processed: 10, Succeeded: 9, Failed: 1, RealizedMonthlySavings: 0.9},
		},
		{Bucket: "logs", Outcome: models.OutcomeSucceeded, Analysis: logs},
		{Bucket: "private", Outcome: models.OutcomeNotStarted, Error: "fetch inventory for bucket private: AccessDenied", Err: errors.New("AccessDenied")},
	}
}

func TestGenerateStats(t *testing.T) {
	report, err := New(FormatText).Generate(sampleReports())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.BucketCount != 3 || report.AnalyzedCount != 2 || report.FailedCount != 1 {
		t.Errorf("Unexpected bucket counts: %d/%d/%d", report.BucketCount, report.AnalyzedCount, report.FailedCount)
	}
	if report.ObjectsToTransition != 12 {
		t.Errorf("Expected 12 objects to transition, got %d", report.ObjectsToTransition)
	}
	if diff := report.TotalSavings - 1.0325; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected total savings 1.0325, got %f", report.TotalSavings)
	}
	if report.MigratedObjects != 9 || report.FailedObjects != 1 {
		t.Errorf("Expected 9 migrated and 1 failed, got %d/%d", report.MigratedObjects, report.FailedObjects)
	}

	deep := report.TierStats["DEEP_ARCHIVE"]
	if deep == nil || deep.ObjectCount != 11 || deep.Buckets != 2 {
		t.Fatalf("Unexpected DEEP_ARCHIVE stats: %+v", deep)
	}

	sorted := report.SortedTierStats()
	if len(sorted) != 2 || sorted[0].Tier != "DEEP_ARCHIVE" {
		t.Errorf("Expected DEEP_ARCHIVE first, got %+v", sorted)
	}
}

func TestGenerateText(t *testing.T) {
	rep := New(FormatText)
	report, _ := rep.Generate(sampleReports())

	var buf bytes.Buffer
	if err := rep.Write(report, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"1. archive",
		"2. logs [us-east-1]",
		"STANDARD -> DEEP_ARCHIVE: 1 objects (25.0%)",
		"[HIGH] 2 objects",
		"Migration (live): PARTIAL_FAILURE: 10 processed, 9 succeeded, 0 simulated, 1 failed, 0 skipped",
		"To transition: 2 (0 eligible)",
		"Error: fetch inventory for bucket private",
		"Total potential savings: $1.03/month",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text report missing %q\n%s", want, out)
		}
	}
}

func TestGenerateTextBucketWithoutSavings(t *testing.T) {
	quiet := &models.BucketAnalysis{
		Bucket:        "cold",
		Region:        "ap-south-2",
		PricingRegion: "us-east-1",
		TotalObjects:  3,
		NoGainObjects: 2,
	}
	rep := New(FormatText)
	report, _ := rep.Generate([]*engine.BucketReport{{
		Bucket: "cold", Outcome: models.OutcomeCancelled, Analysis: quiet,
		Migration: &models.MigrationResult{Outcome: models.OutcomeCancelled, Processed: 3, Succeeded: 2, Failed: 1, PartialFailure: true},
	}})

	var buf bytes.Buffer
	if err := rep.Write(report, &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"1. cold [ap-south-2] (priced for us-east-1)",
		"No transitions recommended",
		"Objects with no cheaper tier: 2",
		"Migration (live): CANCELLED with failures: 3 processed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "To transition:") {
		t.Errorf("Bucket without savings should not list transitions\n%s", out)
	}
}

func TestGenerateCSV(t *testing.T) {
	report, _ := New(FormatCSV).Generate(sampleReports())

	var buf bytes.Buffer
	if err := GenerateCSV(report, &buf); err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}

	if rows[0][0] != "Bucket" {
		t.Errorf("Expected header row, got %v", rows[0])
	}
	// archive (1 group) + logs (2 groups) + private (failed)
	if rows[1][0] != "archive" || rows[2][0] != "logs" || rows[3][0] != "logs" || rows[4][0] != "private" {
		t.Errorf("Unexpected data rows: %v", rows[1:5])
	}
	if rows[4][8] != "NOT_STARTED" {
		t.Errorf("Expected failed bucket outcome, got %v", rows[4])
	}

	found := false
	for _, row := range rows {
		if len(row) == 2 && row[0] == "Total Monthly Savings" && row[1] == "$1.03" {
			found = true
		}
	}
	if !found {
		t.Error("Summary row missing")
	}
}

func TestGenerateHTML(t *testing.T) {
	report, _ := New(FormatHTML).Generate(sampleReports())

	var buf bytes.Buffer
	if err := GenerateHTML(report, &buf); err != nil {
		t.Fatalf("GenerateHTML failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "outcome-partial_failure") {
		t.Error("Expected lower-cased outcome class")
	}
	if !strings.Contains(out, "AccessDenied") {
		t.Error("Expected failed bucket error")
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	rep := New("markdown")
	report, _ := rep.Generate(nil)
	if err := rep.Write(report, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{3 << 30, "3.00 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
