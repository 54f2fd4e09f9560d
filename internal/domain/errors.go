package domain

import (
	"errors"
	"fmt"
)

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Event channel errors
	ErrChannelClosed = errors.New("event channel closed")

	// Validation errors
	ErrValidation    = errors.New("validation failed")
	ErrInvalidStatus = errors.New("invalid task status")

	// Authentication errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid authentication token")
)

// ValidationError reports a violated field constraint. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidTransitionError carries the attempted status change. It matches ErrInvalidTransition.
type InvalidTransitionError struct {
	From TaskStatus
	To   TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: task cannot transition %s -> %s", ErrInvalidTransition, e.From, e.To)
}

// Is reports whether target is ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NotFound wraps ErrTaskNotFound with the task id.
func NotFound(taskID string) error {
	return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}
