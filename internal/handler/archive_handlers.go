package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/handler/dto"
	"github.com/mtlprog/tasktrail/internal/middleware"
	"github.com/mtlprog/tasktrail/internal/service"
)

// handleSearchArchive searches the caller's archive with ?q=, ?page= and ?page_size=.
func (h *Handler) handleSearchArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	page, err := h.archiveService.Search(ctx, principal, params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToArchivePageResponse(page))
}

// handleGetArchived returns one archived task.
func (h *Handler) handleGetArchived(w http.ResponseWriter, r *http.Request) {
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

	task, err := h.archiveService.GetByID(ctx, principal, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleRestoreArchived moves an archived task back to the active store as Reopened.
func (h *Handler) handleRestoreArchived(w http.ResponseWriter, r *http.Request) {
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

	task, err := h.archiveService.Restore(ctx, principal, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleDeleteArchived permanently removes one archived task.
func (h *Handler) handleDeleteArchived(w http.ResponseWriter, r *http.Request) {
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

	if err := h.archiveService.Delete(ctx, principal, taskID); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handlePurgeArchive removes every archived task the caller owns.
func (h *Handler) handlePurgeArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	removed, err := h.archiveService.PurgeAll(ctx, principal)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.PurgeResponse{Removed: removed})
}

func parseSearchParams(q url.Values) (service.SearchParams, error) {
	params := service.SearchParams{Query: q.Get("q")}

	var err error
	if params.Page, err = parseIntParam(q, "page"); err != nil {
		return service.SearchParams{}, err
	}
	if params.PageSize, err = parseIntParam(q, "page_size"); err != nil {
		return service.SearchParams{}, err
	}

	return params, nil
}

// parseIntParam returns 0 for an absent parameter so the service applies its default.
func parseIntParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}
