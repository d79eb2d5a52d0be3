package models

import "time"

// EventType names a progress event
type EventType string

const (
	EventAnalysisStarted   EventType = "analysis_started"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventBatchStarted      EventType = "batch_started"
	EventBatchCompleted    EventType = "batch_completed"
	EventObjectFailed      EventType = "object_failed"
	EventRunCompleted      EventType = "run_completed"
	EventBucketFailed      EventType = "bucket_failed"
)

// Event is emitted to observers while the engine runs
type Event struct {
	Type      EventType
	Bucket    string
	Batch     int
	Batches   int
	Objects   int
	Key       string
	Err       error
	Timestamp time.Time
}

// Observer receives progress events. Implementations must not block for long;
// events are delivered synchronously from the control flow.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// OnEvent calls f(e)
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Notify delivers e to o when o is non-nil
func Notify(o Observer, e Event) {
	if o == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	o.OnEvent(e)
}
