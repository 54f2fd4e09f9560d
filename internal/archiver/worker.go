// Package archiver moves closed tasks from the active store to the archive store.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/events"
)

// DefaultMigrationTimeout bounds a single migration once it has started.
const DefaultMigrationTimeout = 30 * time.Second

// EventSource yields lifecycle events to the single consumer.
type EventSource interface {
	Next(ctx context.Context) (domain.LifecycleEvent, error)
}

// Worker is the sole consumer of the lifecycle event channel.
type Worker struct {
	events  EventSource
	active  domain.ActiveStore
	archive domain.ArchiveStore
	sink    domain.NotificationSink
	log     *slog.Logger

	migrationTimeout time.Duration
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Worker) { w.log = log }
}

// WithMigrationTimeout overrides DefaultMigrationTimeout.
func WithMigrationTimeout(d time.Duration) Option {
	return func(w *Worker) { w.migrationTimeout = d }
}

// NewWorker creates a Worker.
func NewWorker(
	source EventSource,
	active domain.ActiveStore,
	archive domain.ArchiveStore,
	sink domain.NotificationSink,
	opts ...Option,
) *Worker {
	w := &Worker{
		events:           source,
		active:           active,
		archive:          archive,
		sink:             sink,
		log:              slog.Default().With("component", "archiver"),
		migrationTimeout: DefaultMigrationTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains events until ctx is cancelled or the source is closed.
// Cancellation is observed between events; a migration that has started runs to completion.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("archival worker started")

	for {
		if ctx.Err() != nil {
			w.log.Info("archival worker stopped")
			return nil
		}

		event, err := w.events.Next(ctx)
		if err != nil {
			if errors.Is(err, events.ErrClosed) || ctx.Err() != nil {
				w.log.Info("archival worker stopped")
				return nil
			}
			return fmt.Errorf("receive lifecycle event: %w", err)
		}

		w.handle(context.WithoutCancel(ctx), event)
	}
}

// handle processes one event. Failures are logged and never escape.
func (w *Worker) handle(ctx context.Context, event domain.LifecycleEvent) {
	if event.Kind != domain.EventKindClosed {
		w.log.Debug("ignoring lifecycle event", "kind", event.Kind, "task_id", event.TaskID)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("task archival panicked", "task_id", event.TaskID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, w.migrationTimeout)
	defer cancel()

	if _, err := w.Migrate(ctx, event.TaskID); err != nil {
		w.log.Error("task archival failed", "task_id", event.TaskID, "error", err)
	}
}

// Migrate moves one task from the active store to the archive store and notifies its owner.
// It reports false without error when there is nothing to move, which makes repeated calls safe.
func (w *Worker) Migrate(ctx context.Context, taskID string) (bool, error) {
	task, err := w.active.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			w.log.Warn("task not found in active store for archival", "task_id", taskID)
			return false, nil
		}
		return false, fmt.Errorf("load task: %w", err)
	}

	// Reopened before the worker got to it.
	if task.Status != domain.TaskStatusClosed {
		w.log.Info("task no longer closed, skipping archival", "task_id", taskID, "status", task.Status)
		return false, nil
	}

	if err := w.archive.Add(ctx, task); err != nil {
		return false, fmt.Errorf("add to archive: %w", err)
	}

	deleted, err := w.active.DeleteClosed(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("delete from active store: %w", err)
	}
	if !deleted {
		return false, w.withdraw(ctx, taskID)
	}

	w.sink.NotifyTaskClosed(ctx, task.OwnerID, taskID)

	w.log.Info("task archived", "task_id", taskID, "owner_id", task.OwnerID)
	return true, nil
}

// withdraw resolves a conditional delete that matched nothing. A task that changed
// after it was read stays active and its archived copy is removed; a task already
// gone was archived by someone else and the copy is kept.
func (w *Worker) withdraw(ctx context.Context, taskID string) error {
	current, err := w.active.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			w.log.Info("task already archived", "task_id", taskID)
			return nil
		}
		return fmt.Errorf("reload task: %w", err)
	}

	if err := w.archive.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("withdraw archived copy: %w", err)
	}
	w.log.Info("task changed during archival, kept active", "task_id", taskID, "status", current.Status)
	return nil
}

// MigrateAll synchronously archives every Closed task left in the active store.
// Returns the number of tasks archived, and an error if any tasks failed.
func (w *Worker) MigrateAll(ctx context.Context) (int, error) {
	tasks, err := w.active.ListClosed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list closed tasks: %w", err)
	}

	if len(tasks) == 0 {
		w.log.Info("no closed tasks awaiting archival")
		return 0, nil
	}

	count := 0
	var errs []error
	for _, task := range tasks {
		archived, err := w.Migrate(ctx, task.ID)
		if err != nil {
			w.log.Error("task archival failed", "task_id", task.ID, "error", err)
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		if archived {
			count++
		}
	}

	w.log.Info("archived pending tasks",
		"total", len(tasks),
		"archived", count,
		"failed", len(errs),
	)

	if len(errs) > 0 {
		return count, fmt.Errorf("archived %d/%d tasks: %w", count, len(tasks), errors.Join(errs...))
	}

	return count, nil
}
