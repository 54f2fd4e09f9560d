package dto

import (
	"time"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// TaskResponse represents a task, active or archived.
type TaskResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DueDate     string     `json:"due_date"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	ReopenedAt  *time.Time `json:"reopened_at"`
}

// TasksListResponse represents the response for GET /tasks.
type TasksListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// ArchivePageResponse represents the response for GET /archive.
type ArchivePageResponse struct {
	Items      []TaskResponse `json:"items"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// PurgeResponse represents the response for DELETE /archive.
type PurgeResponse struct {
	Removed int64 `json:"removed"`
}

// ToTaskResponse converts a domain task.
func ToTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Name:        task.Name,
		Description: task.Description,
		DueDate:     task.DueDate.Format(DateLayout),
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		ClosedAt:    task.ClosedAt,
		ReopenedAt:  task.ReopenedAt,
	}
}

// ToTasksListResponse converts a task listing.
func ToTasksListResponse(tasks []*domain.Task) TasksListResponse {
	items := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, ToTaskResponse(task))
	}
	return TasksListResponse{Tasks: items, Total: len(items)}
}

// ToArchivePageResponse converts an archive search page.
func ToArchivePageResponse(page *domain.ArchivePage) ArchivePageResponse {
	items := make([]TaskResponse, 0, len(page.Items))
	for _, task := range page.Items {
		items = append(items, ToTaskResponse(task))
	}
	return ArchivePageResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
	}
}
