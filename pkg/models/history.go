package models

import "time"

// AnalysisRecord is a stored analysis snapshot as listed in history
type AnalysisRecord struct {
	ID                  string    `json:"id"`
	Bucket              string    `json:"bucket"`
	Region              string    `json:"region,omitempty"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
	IsEmpty             bool      `json:"is_empty"`
	TotalObjects        int       `json:"total_objects"`
	TotalBytes          int64     `json:"total_bytes"`
	NoGainObjects       int       `json:"no_gain_objects"`
	ObjectsToTransition int       `json:"objects_to_transition"`
	MonthlySavings      float64   `json:"monthly_savings"`
}

// RunRecord is a stored migration run summary as listed in history
type RunRecord struct {
	ID                      string     `json:"id"`
	Bucket                  string     `json:"bucket"`
	DryRun                  bool       `json:"dry_run"`
	Outcome                 RunOutcome `json:"outcome"`
	StartedAt               time.Time  `json:"started_at"`
	CompletedAt             time.Time  `json:"completed_at"`
	Processed               int        `json:"processed"`
	Succeeded               int        `json:"succeeded"`
	Failed                  int        `json:"failed"`
	Skipped                 int        `json:"skipped"`
	PartialFailure          bool       `json:"partial_failure"`
	Simulated               int        `json:"simulated"`
	EstimatedMonthlySavings float64    `json:"estimated_monthly_savings"`
	RealizedMonthlySavings  float64    `json:"realized_monthly_savings"`
}
