package models

import "fmt"

// InventoryFetchError means the inventory for a bucket could not be read.
// It is fatal for that bucket only.
type InventoryFetchError struct {
	Bucket string
	Err    error
}

func (e *InventoryFetchError) Error() string {
	return fmt.Sprintf("fetch inventory for bucket %s: %v", e.Bucket, e.Err)
}

func (e *InventoryFetchError) Unwrap() error { return e.Err }

// ClassificationError reports a malformed inventory record
type ClassificationError struct {
	Key    string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify object %q: %s", e.Key, e.Reason)
}

// MigrationCallError is a per-object backend failure
type MigrationCallError struct {
	Bucket string
	Key    string
	Tier   string
	Err    error
}

func (e *MigrationCallError) Error() string {
	return fmt.Sprintf("set tier %s for s3://%s/%s: %v", e.Tier, e.Bucket, e.Key, e.Err)
}

func (e *MigrationCallError) Unwrap() error { return e.Err }

// PersistenceError wraps a sink failure. It is logged, never returned to callers of a run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
