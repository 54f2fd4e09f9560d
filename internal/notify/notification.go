// Package notify pushes task notifications to connected observers.
package notify

// Kind names a notification type as seen by clients.
type Kind string

const (
	KindTaskClosed   Kind = "TaskClosed"
	KindTaskRestored Kind = "TaskRestored"
	KindTaskUpdated  Kind = "TaskUpdated"
)

// Notification is a signal about one task, routed to the task owner.
type Notification struct {
	Type    Kind   `json:"type"`
	TaskID  string `json:"task_id"`
	OwnerID string `json:"owner_id,omitempty"`
}

// Frame is what a websocket client receives.
type Frame struct {
	Type   Kind   `json:"type"`
	TaskID string `json:"task_id"`
}

// Dispatcher delivers a notification to local observers.
type Dispatcher interface {
	Dispatch(n Notification)
}
