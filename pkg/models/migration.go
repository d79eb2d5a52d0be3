package models

import (
	"fmt"
	"time"
)

// ObjectStatus is the per-object migration state
type ObjectStatus string

const (
	StatusPending   ObjectStatus = "PENDING"
	StatusSimulated ObjectStatus = "SIMULATED"
	StatusSuccess   ObjectStatus = "SUCCESS"
	StatusFailed    ObjectStatus = "FAILED"
)

// RunOutcome distinguishes how a bucket run ended
type RunOutcome string

const (
	OutcomeSucceeded      RunOutcome = "SUCCEEDED"
	OutcomePartialFailure RunOutcome = "PARTIAL_FAILURE"
	OutcomeNotStarted     RunOutcome = "NOT_STARTED"
	OutcomeCancelled      RunOutcome = "CANCELLED"
)

// Transition records what happened to one object
type Transition struct {
	Key            string       `json:"key"`
	FromTier       string       `json:"from_tier"`
	ToTier         string       `json:"to_tier"`
	SizeBytes      int64        `json:"size_bytes"`
	MonthlySavings float64      `json:"monthly_savings"`
	Status         ObjectStatus `json:"status"`
	Batch          int          `json:"batch"`
	CompletedAt    time.Time    `json:"completed_at"`
	Error          error        `json:"-"`
}

// MigrationError is a per-object failure entry
type MigrationError struct {
	Key        string    `json:"key"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MigrationResult summarises one executor run
type MigrationResult struct {
	ID          string     `json:"id"`
	Bucket      string     `json:"bucket"`
	DryRun      bool       `json:"dry_run"`
	Outcome     RunOutcome `json:"outcome"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`

	TotalObjects int `json:"total_objects"`
	Batches      int `json:"batches"`
	Processed    int `json:"processed"`
	Simulated    int `json:"simulated"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`

	// PartialFailure is set when any object failed, including cancelled runs
	PartialFailure bool `json:"partial_failure"`

	EstimatedMonthlySavings float64 `json:"estimated_monthly_savings"`
	RealizedMonthlySavings  float64 `json:"realized_monthly_savings"`

	Errors          []MigrationError `json:"errors"`
	ErrorsTruncated bool             `json:"errors_truncated"`
	Samples         []Transition     `json:"sample_transitions"`
}

// Summary renders a one-line run summary
func (r *MigrationResult) Summary() string {
	outcome := string(r.Outcome)
	if r.Outcome == OutcomeCancelled && r.PartialFailure {
		outcome += " with failures"
	}
	return fmt.Sprintf("%s: %d processed, %d succeeded, %d simulated, %d failed, %d skipped",
		outcome, r.Processed, r.Succeeded, r.Simulated, r.Failed, r.Skipped)
}
