package domain

import (
	"context"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns UTC wall time at microsecond precision, which both stores preserve.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// IDGenerator produces globally unique task ids.
type IDGenerator interface {
	NewID() string
}

// NotificationSink pushes best-effort signals to connected observers of the owner.
type NotificationSink interface {
	NotifyTaskClosed(ctx context.Context, ownerID, taskID string)
	NotifyTaskRestored(ctx context.Context, ownerID, taskID string)
	NotifyTaskUpdated(ctx context.Context, ownerID, taskID string)
}
