package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// psql is the shared Squirrel statement builder configured for PostgreSQL dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// activeTaskColumns is the shared list of columns for active task queries.
var activeTaskColumns = []string{
	"id", "owner_id", "name", "description", "due_date", "status",
	"created_at", "closed_at", "reopened_at",
}

// ActiveTaskRepository is the PostgreSQL implementation of domain.ActiveStore.
type ActiveTaskRepository struct {
	pool *pgxpool.Pool
}

// NewActiveTaskRepository creates a new ActiveTaskRepository.
func NewActiveTaskRepository(pool *pgxpool.Pool) *ActiveTaskRepository {
	return &ActiveTaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Name,
		&task.Description,
		&task.DueDate,
		&task.Status,
		&task.CreatedAt,
		&task.ClosedAt,
		&task.ReopenedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.DueDate = domain.DateOf(task.DueDate)
	task.CreatedAt = task.CreatedAt.UTC()
	task.ClosedAt = utcPtr(task.ClosedAt)
	task.ReopenedAt = utcPtr(task.ReopenedAt)
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a task by ID regardless of owner.
func (r *ActiveTaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(activeTaskColumns...).
		From("active_tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, domain.NotFound(taskID)
	}
	return task, err
}

// GetOwned retrieves a task by ID, filtered by owner.
func (r *ActiveTaskRepository) GetOwned(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(activeTaskColumns...).
		From("active_tasks").
		Where(sq.Eq{"id": taskID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetOwned query for task %s: %w", taskID, err)
	}

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, domain.NotFound(taskID)
	}
	return task, err
}

// ListByOwner retrieves the owner's tasks, newest first.
func (r *ActiveTaskRepository) ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]*domain.Task, error) {
	qb := psql.
		Select(activeTaskColumns...).
		From("active_tasks").
		Where(sq.Eq{"owner_id": ownerID})

	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"status": filter.Status})
	}

	query, args, err := qb.OrderBy("created_at DESC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByOwner query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}

// ListClosed retrieves Closed tasks still awaiting archival, oldest close first.
func (r *ActiveTaskRepository) ListClosed(ctx context.Context) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(activeTaskColumns...).
		From("active_tasks").
		Where(sq.Eq{"status": domain.TaskStatusClosed}).
		OrderBy("closed_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListClosed query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query closed tasks: %w", err)
	}

	return scanTasks(rows)
}

// Add inserts the task, overwriting an existing row with the same ID.
func (r *ActiveTaskRepository) Add(ctx context.Context, task *domain.Task) error {
	query, args, err := psql.
		Insert("active_tasks").
		Columns(activeTaskColumns...).
		Values(
			task.ID, task.OwnerID, task.Name, task.Description, task.DueDate, task.Status,
			task.CreatedAt, task.ClosedAt, task.ReopenedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			due_date = EXCLUDED.due_date,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			closed_at = EXCLUDED.closed_at,
			reopened_at = EXCLUDED.reopened_at,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Add query for task %s: %w", task.ID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing task.
func (r *ActiveTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	query, args, err := psql.
		Update("active_tasks").
		Set("name", task.Name).
		Set("description", task.Description).
		Set("due_date", task.DueDate).
		Set("status", task.Status).
		Set("closed_at", task.ClosedAt).
		Set("reopened_at", task.ReopenedAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": task.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for task %s: %w", task.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NotFound(task.ID)
	}

	return nil
}

// Delete removes the task. Deleting a missing task succeeds.
func (r *ActiveTaskRepository) Delete(ctx context.Context, taskID string) error {
	query, args, err := psql.
		Delete("active_tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %s: %w", taskID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteClosed removes the task only if it is still Closed.
func (r *ActiveTaskRepository) DeleteClosed(ctx context.Context, taskID string) (bool, error) {
	query, args, err := psql.
		Delete("active_tasks").
		Where(sq.Eq{"id": taskID, "status": domain.TaskStatusClosed}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build DeleteClosed query for task %s: %w", taskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete closed task: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
