package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// EventPublisher accepts lifecycle events without blocking.
type EventPublisher interface {
	Publish(event domain.LifecycleEvent) error
}

// TaskService handles the lifecycle of tasks in the active store.
type TaskService struct {
	active    domain.ActiveStore
	publisher EventPublisher
	sink      domain.NotificationSink
	ids       domain.IDGenerator
	clock     domain.Clock
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	active domain.ActiveStore,
	publisher EventPublisher,
	sink domain.NotificationSink,
	ids domain.IDGenerator,
	clock domain.Clock,
) *TaskService {
	return &TaskService{
		active:    active,
		publisher: publisher,
		sink:      sink,
		ids:       ids,
		clock:     clock,
	}
}

// CreateTaskParams holds parameters for creating a task.
type CreateTaskParams struct {
	Name        string
	Description string
	DueDate     time.Time
}

// UpdateTaskParams holds the new content of a task.
type UpdateTaskParams struct {
	Name        string
	Description string
	DueDate     time.Time
}

// Create creates an Open task owned by the principal.
func (s *TaskService) Create(ctx context.Context, p domain.Principal, params CreateTaskParams) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(s.ids.NewID(), p.UserID, params.Name, params.Description, params.DueDate, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.active.Add(ctx, task); err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}

	s.sink.NotifyTaskUpdated(ctx, task.OwnerID, task.ID)

	slog.Info("task created", "task_id", task.ID, "owner_id", task.OwnerID)
	return task, nil
}

// Get returns one of the principal's active tasks.
func (s *TaskService) Get(ctx context.Context, p domain.Principal, taskID string) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.active.GetOwned(ctx, p.UserID, taskID)
}

// GetAll lists the principal's active tasks, newest first.
func (s *TaskService) GetAll(ctx context.Context, p domain.Principal, filter domain.ListFilter) ([]*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStatus, filter.Status)
	}

	tasks, err := s.active.ListByOwner(ctx, p.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Update replaces the content of a task. Status is never changed.
func (s *TaskService) Update(ctx context.Context, p domain.Principal, taskID string, params UpdateTaskParams) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	task, err := s.active.GetOwned(ctx, p.UserID, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Update(params.Name, params.Description, params.DueDate); err != nil {
		return nil, err
	}

	if err := s.active.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.sink.NotifyTaskUpdated(ctx, task.OwnerID, task.ID)

	slog.Info("task updated", "task_id", task.ID, "owner_id", task.OwnerID)
	return task, nil
}

// Close closes a task and hands it to the archival worker.
// Archival is asynchronous: the returned task is Closed but may still be in the active store.
func (s *TaskService) Close(ctx context.Context, p domain.Principal, taskID string) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	task, err := s.active.GetOwned(ctx, p.UserID, taskID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := task.Close(now); err != nil {
		return nil, err
	}

	if err := s.active.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	// The close is durable at this point; a lost event only delays archival until the next re-drive.
	if err := s.publisher.Publish(domain.NewClosedEvent(task.ID, now)); err != nil {
		slog.Error("failed to publish closed event",
			"task_id", task.ID,
			"error", err,
		)
	}

	slog.Info("task closed", "task_id", task.ID, "owner_id", task.OwnerID)
	return task, nil
}

// Reopen reopens a Closed task in place in the active store.
func (s *TaskService) Reopen(ctx context.Context, p domain.Principal, taskID string) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	task, err := s.active.GetOwned(ctx, p.UserID, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Reopen(s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.active.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.sink.NotifyTaskUpdated(ctx, task.OwnerID, task.ID)

	slog.Info("task reopened", "task_id", task.ID, "owner_id", task.OwnerID)
	return task, nil
}
