package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mtlprog/tasktrail/internal/handler/dto"
	"github.com/mtlprog/tasktrail/internal/idgen"
	"github.com/mtlprog/tasktrail/internal/middleware"
	"github.com/mtlprog/tasktrail/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WebsocketServer upgrades a request into an owner-scoped notification stream.
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, ownerID string)
}

// Deps lists what the HTTP layer needs.
type Deps struct {
	Tasks    *service.TaskService
	Archive  *service.ArchiveService
	Verifier middleware.TokenVerifier
	Sockets  WebsocketServer
	// Health maps a store name to its liveness check.
	Health map[string]Pinger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	taskService    *service.TaskService
	archiveService *service.ArchiveService
	sockets        WebsocketServer
	health         map[string]Pinger
	authMiddleware *middleware.AuthMiddleware
}

// New creates a new Handler instance with all dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		taskService:    deps.Tasks,
		archiveService: deps.Archive,
		sockets:        deps.Sockets,
		health:         deps.Health,
		authMiddleware: middleware.NewAuthMiddleware(deps.Verifier),
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Active tasks
	mux.Handle("GET /api/v1/tasks", h.authed(h.handleListTasks))
	mux.Handle("POST /api/v1/tasks", h.authed(h.handleCreateTask))
	mux.Handle("GET /api/v1/tasks/{id}", h.authed(h.handleGetTask))
	mux.Handle("PUT /api/v1/tasks/{id}", h.authed(h.handleUpdateTask))
	mux.Handle("PATCH /api/v1/tasks/{id}/close", h.authed(h.handleCloseTask))
	mux.Handle("PATCH /api/v1/tasks/{id}/reopen", h.authed(h.handleReopenTask))

	// Archive
	mux.Handle("GET /api/v1/archive", h.authed(h.handleSearchArchive))
	mux.Handle("DELETE /api/v1/archive", h.authed(h.handlePurgeArchive))
	mux.Handle("GET /api/v1/archive/{id}", h.authed(h.handleGetArchived))
	mux.Handle("DELETE /api/v1/archive/{id}", h.authed(h.handleDeleteArchived))
	mux.Handle("PATCH /api/v1/archive/{id}/restore", h.authed(h.handleRestoreArchived))

	// Notifications
	mux.Handle("GET /ws", h.authed(h.handleWebsocket))
}

func (h *Handler) authed(fn http.HandlerFunc) http.Handler {
	return h.authMiddleware.Authenticate(fn)
}

// handleHealthz returns 200 OK if every store is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for name, p := range h.health {
		if err := p.Ping(ctx); err != nil {
			slog.Error("health check failed", "store", name, "error", err)
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleWebsocket streams the caller's notifications.
func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.GetPrincipalFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.sockets.ServeWS(w, r, principal.UserID)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractTaskID extracts and validates task ID from path parameter.
// Returns (taskID, true) if valid, ("", false) if invalid (error already sent to client).
func extractTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.PathValue("id")
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is required")
		return "", false
	}

	if !idgen.IsValid(taskID) {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is malformed")
		return "", false
	}

	return taskID, true
}

// decodeJSON reads a request body into dst and validates it.
// Returns false if the body was rejected (error already sent to client).
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}

	if err := dto.Validate(dst); err != nil {
		respondDomainError(w, err)
		return false
	}

	return true
}
