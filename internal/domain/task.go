package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxNameLength is the maximum task name length in characters.
	MaxNameLength = 200
	// MaxDescriptionLength is the maximum task description length in characters.
	MaxDescriptionLength = 2000
)

// TaskStatus represents the status of a task in the state machine.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusClosed     TaskStatus = "CLOSED"
	TaskStatusReopened   TaskStatus = "REOPENED"
)

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusClosed, TaskStatusReopened:
		return true
	default:
		return false
	}
}

// IsActive returns true for statuses that may transition to Closed.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusOpen || s == TaskStatusReopened
}

// ParseTaskStatus converts a string into a TaskStatus.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", &ValidationError{Field: "status", Message: "must be one of OPEN, IN_PROGRESS, CLOSED, REOPENED"}
	}
	return s, nil
}

// Task is a unit of work owned by a single user.
type Task struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	DueDate     time.Time
	Status      TaskStatus
	CreatedAt   time.Time
	ClosedAt    *time.Time
	ReopenedAt  *time.Time
}

// NewTask creates an Open task after validating its content.
func NewTask(id, ownerID, name, description string, dueDate, now time.Time) (*Task, error) {
	name, description, err := validateContent(name, description)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Message: "is required"}
	}

	return &Task{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		DueDate:     DateOf(dueDate),
		Status:      TaskStatusOpen,
		CreatedAt:   now,
	}, nil
}

// Close moves an Open or Reopened task to Closed.
func (t *Task) Close(now time.Time) error {
	if !t.Status.IsActive() {
		return &InvalidTransitionError{From: t.Status, To: TaskStatusClosed}
	}
	t.Status = TaskStatusClosed
	t.ClosedAt = &now
	return nil
}

// Reopen moves a Closed task to Reopened. ClosedAt is kept.
func (t *Task) Reopen(now time.Time) error {
	if t.Status != TaskStatusClosed {
		return &InvalidTransitionError{From: t.Status, To: TaskStatusReopened}
	}
	t.Status = TaskStatusReopened
	t.ReopenedAt = &now
	return nil
}

// Update replaces the task content. Status and timestamps are never touched.
func (t *Task) Update(name, description string, dueDate time.Time) error {
	name, description, err := validateContent(name, description)
	if err != nil {
		return err
	}
	t.Name = name
	t.Description = description
	t.DueDate = DateOf(dueDate)
	return nil
}

// IsOwnedBy checks if the task belongs to the given user.
func (t *Task) IsOwnedBy(ownerID string) bool {
	return t.OwnerID == ownerID
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.ClosedAt != nil {
		closedAt := *t.ClosedAt
		c.ClosedAt = &closedAt
	}
	if t.ReopenedAt != nil {
		reopenedAt := *t.ReopenedAt
		c.ReopenedAt = &reopenedAt
	}
	return &c
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateContent(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if name == "" {
		return "", "", &ValidationError{Field: "name", Message: "is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", "", &ValidationError{Field: "name", Message: "must be at most 200 characters"}
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", "", &ValidationError{Field: "description", Message: "must be at most 2000 characters"}
	}
	return name, description, nil
}
