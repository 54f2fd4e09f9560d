// Package notifytest provides a NotificationSink that records calls for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/mtlprog/tasktrail/internal/notify"
)

// Recorder records every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

// NotifyTaskClosed records a TaskClosed notification.
func (r *Recorder) NotifyTaskClosed(_ context.Context, ownerID, taskID string) {
	r.add(notify.KindTaskClosed, ownerID, taskID)
}

// NotifyTaskRestored records a TaskRestored notification.
func (r *Recorder) NotifyTaskRestored(_ context.Context, ownerID, taskID string) {
	r.add(notify.KindTaskRestored, ownerID, taskID)
}

// NotifyTaskUpdated records a TaskUpdated notification.
func (r *Recorder) NotifyTaskUpdated(_ context.Context, ownerID, taskID string) {
	r.add(notify.KindTaskUpdated, ownerID, taskID)
}

// Sent returns a copy of the recorded notifications in arrival order.
func (r *Recorder) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

// Has reports whether a notification of kind for taskID was recorded.
func (r *Recorder) Has(kind notify.Kind, taskID string) bool {
	for _, n := range r.Sent() {
		if n.Type == kind && n.TaskID == taskID {
			return true
		}
	}
	return false
}

func (r *Recorder) add(kind notify.Kind, ownerID, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notify.Notification{Type: kind, OwnerID: ownerID, TaskID: taskID})
}
