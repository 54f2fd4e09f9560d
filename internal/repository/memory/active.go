// Package memory implements the task stores in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// ActiveStore is an in-memory domain.ActiveStore. Tasks are copied on the way in and out.
type ActiveStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewActiveStore creates an empty ActiveStore.
func NewActiveStore() *ActiveStore {
	return &ActiveStore{tasks: make(map[string]*domain.Task)}
}

// GetByID retrieves a task by ID regardless of owner.
func (s *ActiveStore) GetByID(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.NotFound(taskID)
	}
	return task.Clone(), nil
}

// GetOwned retrieves a task by ID only if it belongs to ownerID.
func (s *ActiveStore) GetOwned(_ context.Context, ownerID, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok || !task.IsOwnedBy(ownerID) {
		return nil, domain.NotFound(taskID)
	}
	return task.Clone(), nil
}

// ListByOwner returns the owner's tasks, newest first.
func (s *ActiveStore) ListByOwner(_ context.Context, ownerID string, filter domain.ListFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if !task.IsOwnedBy(ownerID) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		tasks = append(tasks, task.Clone())
	}
	sortNewestFirst(tasks)
	return tasks, nil
}

// ListClosed returns every Closed task, oldest close first.
func (s *ActiveStore) ListClosed(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.Status == domain.TaskStatusClosed {
			tasks = append(tasks, task.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return closedAt(tasks[i]).Before(closedAt(tasks[j]))
	})
	return tasks, nil
}

// Add inserts or overwrites the task.
func (s *ActiveStore) Add(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task.Clone()
	return nil
}

// Update overwrites an existing task.
func (s *ActiveStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return domain.NotFound(task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// Delete removes the task if present.
func (s *ActiveStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, taskID)
	return nil
}

// DeleteClosed removes the task if it is present and Closed.
func (s *ActiveStore) DeleteClosed(_ context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.Status != domain.TaskStatusClosed {
		return false, nil
	}
	delete(s.tasks, taskID)
	return true, nil
}

// Len returns the number of stored tasks.
func (s *ActiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func sortNewestFirst(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}
