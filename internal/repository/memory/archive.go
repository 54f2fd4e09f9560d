package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// ArchiveStore is an in-memory domain.ArchiveStore.
type ArchiveStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewArchiveStore creates an empty ArchiveStore.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{tasks: make(map[string]*domain.Task)}
}

// GetByID retrieves an archived task by ID regardless of owner.
func (s *ArchiveStore) GetByID(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.NotFound(taskID)
	}
	return task.Clone(), nil
}

// GetOwned retrieves an archived task by ID only if it belongs to ownerID.
func (s *ArchiveStore) GetOwned(_ context.Context, ownerID, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok || !task.IsOwnedBy(ownerID) {
		return nil, domain.NotFound(taskID)
	}
	return task.Clone(), nil
}

// Search matches query.Text case-insensitively against name and description.
func (s *ArchiveStore) Search(_ context.Context, ownerID string, query domain.SearchQuery) (*domain.ArchivePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query.Text)
	matches := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if !task.IsOwnedBy(ownerID) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(task.Name), needle) &&
			!strings.Contains(strings.ToLower(task.Description), needle) {
			continue
		}
		matches = append(matches, task)
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := closedAt(matches[i]), closedAt(matches[j])
		if a.Equal(b) {
			return matches[i].ID < matches[j].ID
		}
		return a.After(b)
	})

	page := &domain.ArchivePage{
		Items:      make([]*domain.Task, 0, query.PageSize),
		TotalCount: int64(len(matches)),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	start := query.Offset()
	if start >= len(matches) {
		return page, nil
	}
	end := min(start+query.PageSize, len(matches))
	for _, task := range matches[start:end] {
		page.Items = append(page.Items, task.Clone())
	}
	return page, nil
}

// Add inserts or overwrites the task.
func (s *ArchiveStore) Add(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task.Clone()
	return nil
}

// Delete removes the task if present.
func (s *ArchiveStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, taskID)
	return nil
}

// PurgeAll removes every archived task of the owner.
func (s *ArchiveStore) PurgeAll(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, task := range s.tasks {
		if task.IsOwnedBy(ownerID) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of archived tasks.
func (s *ArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func closedAt(task *domain.Task) time.Time {
	if task.ClosedAt == nil {
		return time.Time{}
	}
	return *task.ClosedAt
}
