package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mtlprog/tasktrail/internal/domain"
)

const (
	// DefaultPageSize is used when a search does not specify one.
	DefaultPageSize = 20
	// MaxPageSize caps the page size of a search.
	MaxPageSize = 100
)

// SearchParams holds raw archive search input.
type SearchParams struct {
	Query    string
	Page     int
	PageSize int
}

// ArchiveService handles archived tasks.
type ArchiveService struct {
	active  domain.ActiveStore
	archive domain.ArchiveStore
	sink    domain.NotificationSink
	clock   domain.Clock
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(
	active domain.ActiveStore,
	archive domain.ArchiveStore,
	sink domain.NotificationSink,
	clock domain.Clock,
) *ArchiveService {
	return &ArchiveService{
		active:  active,
		archive: archive,
		sink:    sink,
		clock:   clock,
	}
}

// NormalizeSearch trims the query and applies paging defaults.
// Zero values take defaults; negative values are rejected.
func NormalizeSearch(params SearchParams) (domain.SearchQuery, error) {
	if params.Page < 0 {
		return domain.SearchQuery{}, &domain.ValidationError{Field: "page", Message: "must be at least 1"}
	}
	if params.PageSize < 0 {
		return domain.SearchQuery{}, &domain.ValidationError{Field: "page_size", Message: "must be at least 1"}
	}

	q := domain.SearchQuery{
		Text:     strings.TrimSpace(params.Query),
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	// Keeps Offset() from overflowing.
	if q.Page > math.MaxInt/MaxPageSize {
		return domain.SearchQuery{}, &domain.ValidationError{Field: "page", Message: "is too large"}
	}
	return q, nil
}

// Search returns a page of the principal's archived tasks, most recently closed first.
func (s *ArchiveService) Search(ctx context.Context, p domain.Principal, params SearchParams) (*domain.ArchivePage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query, err := NormalizeSearch(params)
	if err != nil {
		return nil, err
	}

	page, err := s.archive.Search(ctx, p.UserID, query)
	if err != nil {
		return nil, fmt.Errorf("search archive: %w", err)
	}
	return page, nil
}

// GetByID returns one of the principal's archived tasks.
func (s *ArchiveService) GetByID(ctx context.Context, p domain.Principal, taskID string) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.archive.GetOwned(ctx, p.UserID, taskID)
}

// Restore reopens an archived task and moves it back to the active store.
func (s *ArchiveService) Restore(ctx context.Context, p domain.Principal, taskID string) (*domain.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	task, err := s.archive.GetOwned(ctx, p.UserID, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.Reopen(s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.active.Add(ctx, task); err != nil {
		return nil, fmt.Errorf("add to active store: %w", err)
	}

	if err := s.archive.Delete(ctx, taskID); err != nil {
		// Undo the insert so the task stays in exactly one store.
		if undoErr := s.active.Delete(context.WithoutCancel(ctx), taskID); undoErr != nil {
			slog.Error("failed to undo restore, task present in both stores",
				"task_id", taskID,
				"error", undoErr,
			)
			err = errors.Join(err, undoErr)
		}
		return nil, fmt.Errorf("delete from archive: %w", err)
	}

	s.sink.NotifyTaskRestored(ctx, task.OwnerID, task.ID)

	slog.Info("task restored", "task_id", task.ID, "owner_id", task.OwnerID)
	return task, nil
}

// Delete permanently removes one of the principal's archived tasks.
func (s *ArchiveService) Delete(ctx context.Context, p domain.Principal, taskID string) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if _, err := s.archive.GetOwned(ctx, p.UserID, taskID); err != nil {
		return err
	}

	if err := s.archive.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("delete archived task: %w", err)
	}

	slog.Info("archived task deleted", "task_id", taskID, "owner_id", p.UserID)
	return nil
}

// PurgeAll removes all of the principal's archived tasks and returns how many were removed.
func (s *ArchiveService) PurgeAll(ctx context.Context, p domain.Principal) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	removed, err := s.archive.PurgeAll(ctx, p.UserID)
	if err != nil {
		return 0, fmt.Errorf("purge archive: %w", err)
	}

	slog.Info("archive purged", "owner_id", p.UserID, "removed", removed)
	return removed, nil
}
