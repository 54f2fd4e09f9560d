package domain

import "time"

// EventKind represents the kind of lifecycle event.
type EventKind string

const (
	EventKindStarted  EventKind = "started"
	EventKindClosed   EventKind = "closed"
	EventKindReopened EventKind = "reopened"
)

// LifecycleEvent records a committed state transition of a task.
type LifecycleEvent struct {
	Kind       EventKind
	TaskID     string
	OccurredAt time.Time
}

// NewClosedEvent builds the event that triggers archival.
func NewClosedEvent(taskID string, at time.Time) LifecycleEvent {
	return LifecycleEvent{Kind: EventKindClosed, TaskID: taskID, OccurredAt: at}
}
