package archiver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// EventPublisher accepts lifecycle events without blocking.
type EventPublisher interface {
	Publish(event domain.LifecycleEvent) error
}

// Redrive republishes a Closed event for every Closed task still in the active store.
// It recovers archivals whose events were lost when the process stopped.
func Redrive(ctx context.Context, active domain.ActiveStore, publisher EventPublisher, clock domain.Clock) (int, error) {
	tasks, err := active.ListClosed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list closed tasks: %w", err)
	}

	now := clock.Now()
	for i, task := range tasks {
		if err := publisher.Publish(domain.NewClosedEvent(task.ID, now)); err != nil {
			return i, fmt.Errorf("publish closed event for task %s: %w", task.ID, err)
		}
	}

	if len(tasks) > 0 {
		slog.Info("re-drove pending archivals", "count", len(tasks))
	}
	return len(tasks), nil
}
