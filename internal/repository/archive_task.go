package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// ArchivedTask is the archive row for a task.
type ArchivedTask struct {
	ID          string     `gorm:"primaryKey;size:64"`
	OwnerID     string     `gorm:"size:128;not null;index:idx_archived_owner_closed,priority:1"`
	Name        string     `gorm:"size:200;not null"`
	Description string     `gorm:"size:2000;not null;default:''"`
	DueDate     time.Time  `gorm:"not null"`
	Status      string     `gorm:"size:16;not null"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	ClosedAt    *time.Time `gorm:"index:idx_archived_owner_closed,priority:2,sort:desc"`
	ReopenedAt  *time.Time

	// Lower-cased copies for search; SQLite LOWER() folds ASCII only.
	NameFold        string `gorm:"not null;default:''"`
	DescriptionFold string `gorm:"not null;default:''"`
}

// TableName specifies the table name for GORM.
func (ArchivedTask) TableName() string {
	return "archived_tasks"
}

func toArchivedTask(task *domain.Task) *ArchivedTask {
	return &ArchivedTask{
		ID:          task.ID,
		OwnerID:     task.OwnerID,
		Name:        task.Name,
		Description: task.Description,
		DueDate:     task.DueDate,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		ClosedAt:    task.ClosedAt,
		ReopenedAt:  task.ReopenedAt,

		NameFold:        strings.ToLower(task.Name),
		DescriptionFold: strings.ToLower(task.Description),
	}
}

func (a *ArchivedTask) toDomain() *domain.Task {
	return &domain.Task{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Name:        a.Name,
		Description: a.Description,
		DueDate:     domain.DateOf(a.DueDate.UTC()),
		Status:      domain.TaskStatus(a.Status),
		CreatedAt:   a.CreatedAt.UTC(),
		ClosedAt:    utcPtr(a.ClosedAt),
		ReopenedAt:  utcPtr(a.ReopenedAt),
	}
}

// ArchiveTaskRepository is the GORM implementation of domain.ArchiveStore.
type ArchiveTaskRepository struct {
	db *gorm.DB
}

// NewArchiveTaskRepository creates a new ArchiveTaskRepository.
func NewArchiveTaskRepository(db *gorm.DB) *ArchiveTaskRepository {
	return &ArchiveTaskRepository{db: db}
}

// GetByID retrieves an archived task by ID regardless of owner.
func (r *ArchiveTaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	var row ArchivedTask
	if err := r.db.WithContext(ctx).First(&row, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(taskID)
		}
		return nil, fmt.Errorf("get archived task %s: %w", taskID, err)
	}
	return row.toDomain(), nil
}

// GetOwned retrieves an archived task by ID, filtered by owner.
func (r *ArchiveTaskRepository) GetOwned(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	var row ArchivedTask
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", taskID, ownerID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(taskID)
		}
		return nil, fmt.Errorf("get archived task %s: %w", taskID, err)
	}
	return row.toDomain(), nil
}

// Search finds the owner's archived tasks whose name or description contains
// query.Text, ignoring case, most recently closed first.
func (r *ArchiveTaskRepository) Search(ctx context.Context, ownerID string, query domain.SearchQuery) (*domain.ArchivePage, error) {
	base := r.db.WithContext(ctx).
		Model(&ArchivedTask{}).
		Where("owner_id = ?", ownerID)

	if query.Text != "" {
		pattern := "%" + escapeLike(strings.ToLower(query.Text)) + "%"
		base = base.Where(
			`(name_fold LIKE ? ESCAPE '\' OR description_fold LIKE ? ESCAPE '\')`,
			pattern, pattern,
		)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count archived tasks: %w", err)
	}

	var rows []ArchivedTask
	err := base.
		Order("closed_at DESC").
		Order("id ASC").
		Offset(query.Offset()).
		Limit(query.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search archived tasks: %w", err)
	}

	items := make([]*domain.Task, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDomain())
	}

	return &domain.ArchivePage{
		Items:      items,
		TotalCount: total,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}, nil
}

// Add inserts the task, overwriting an existing row with the same ID.
func (r *ArchiveTaskRepository) Add(ctx context.Context, task *domain.Task) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(toArchivedTask(task)).Error
	if err != nil {
		return fmt.Errorf("archive task %s: %w", task.ID, err)
	}
	return nil
}

// Delete removes the archived task. Deleting a missing task succeeds.
func (r *ArchiveTaskRepository) Delete(ctx context.Context, taskID string) error {
	if err := r.db.WithContext(ctx).Delete(&ArchivedTask{}, "id = ?", taskID).Error; err != nil {
		return fmt.Errorf("delete archived task %s: %w", taskID, err)
	}
	return nil
}

// PurgeAll removes every archived task of the owner.
func (r *ArchiveTaskRepository) PurgeAll(ctx context.Context, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&ArchivedTask{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge archived tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
