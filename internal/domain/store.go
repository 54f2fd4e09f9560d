package domain

import "context"

// ActiveStore holds tasks that have not been archived.
// Lookups that miss return an error matching ErrTaskNotFound.
type ActiveStore interface {
	GetByID(ctx context.Context, taskID string) (*Task, error)
	GetOwned(ctx context.Context, ownerID, taskID string) (*Task, error)
	ListByOwner(ctx context.Context, ownerID string, filter ListFilter) ([]*Task, error)
	// ListClosed returns Closed tasks that are still waiting for archival.
	ListClosed(ctx context.Context) ([]*Task, error)
	// Add inserts the task, overwriting any row with the same id.
	Add(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	// Delete removes the task. Missing ids are not an error.
	Delete(ctx context.Context, taskID string) error
	// DeleteClosed removes the task only while it is still Closed and reports whether it did.
	DeleteClosed(ctx context.Context, taskID string) (bool, error)
}

// ArchiveStore holds closed tasks and serves paginated search over them.
type ArchiveStore interface {
	GetByID(ctx context.Context, taskID string) (*Task, error)
	GetOwned(ctx context.Context, ownerID, taskID string) (*Task, error)
	Search(ctx context.Context, ownerID string, query SearchQuery) (*ArchivePage, error)
	// Add inserts the task, overwriting any row with the same id.
	Add(ctx context.Context, task *Task) error
	// Delete removes the task. Missing ids are not an error.
	Delete(ctx context.Context, taskID string) error
	// PurgeAll removes every archived task of the owner and returns how many were removed.
	PurgeAll(ctx context.Context, ownerID string) (int64, error)
}

// ListFilter narrows an active task listing. Empty Status means all statuses.
type ListFilter struct {
	Status TaskStatus
}

// SearchQuery is a normalized archive search request. Page is 1-based.
type SearchQuery struct {
	Text     string
	Page     int
	PageSize int
}

// Offset returns the number of rows to skip.
func (q SearchQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ArchivePage is one page of archive search results, most recently closed first.
type ArchivePage struct {
	Items      []*Task
	TotalCount int64
	Page       int
	PageSize   int
}
