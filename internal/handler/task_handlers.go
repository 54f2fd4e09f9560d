package handler

import (
	"context"
	"net/http"

	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/handler/dto"
	"github.com/mtlprog/tasktrail/internal/middleware"
	"github.com/mtlprog/tasktrail/internal/service"
)

// handleListTasks lists the caller's active tasks, optionally filtered by ?status=.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var filter domain.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		filter.Status = status
	}

	tasks, err := h.taskService.GetAll(ctx, principal, filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTasksListResponse(tasks))
}

// handleCreateTask creates a new task owned by the caller.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(ctx, principal, service.CreateTaskParams{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.Due(),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToTaskResponse(task))
}

// handleGetTask returns one active task.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(ctx, principal, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleUpdateTask replaces the name, description and due date of an active task.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.Update(ctx, principal, taskID, service.UpdateTaskParams{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.Due(),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleCloseTask closes a task. Archival happens asynchronously.
func (h *Handler) handleCloseTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.taskService.Close)
}

// handleReopenTask reopens a closed task that has not been archived yet.
func (h *Handler) handleReopenTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.taskService.Reopen)
}

type transitionFunc func(ctx context.Context, p domain.Principal, taskID string) (*domain.Task, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := fn(ctx, principal, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}
