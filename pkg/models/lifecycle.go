package models

// LifecyclePolicy is a bucket lifecycle configuration derived from an analysis
type LifecyclePolicy struct {
	Bucket string          `json:"bucket"`
	Rules  []LifecycleRule `json:"rules"`
}

// LifecycleRule transitions every object under Prefix after Days
type LifecycleRule struct {
	ID          string                `json:"id"`
	Status      string                `json:"status"`
	Prefix      string                `json:"prefix"`
	Transitions []LifecycleTransition `json:"transitions"`
}

type LifecycleTransition struct {
	Days         int    `json:"days"`
	StorageClass string `json:"storage_class"`
}

const LifecycleRuleEnabled = "Enabled"
