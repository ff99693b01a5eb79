package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shiftplate/shiftplate/internal/domain"
	"github.com/shiftplate/shiftplate/internal/handler/dto"
	"github.com/shiftplate/shiftplate/internal/middleware"
	"github.com/shiftplate/shiftplate/internal/repository"
	"github.com/shiftplate/shiftplate/internal/service"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pool         *pgxpool.Pool
	taskService  *service.TaskService
	orchestrator *service.Orchestrator
	historyRepo  *repository.StatusHistoryRepository
	secret       *middleware.SecretMiddleware
}

// New creates a new Handler instance.
func New(
	pool *pgxpool.Pool,
	taskService *service.TaskService,
	orchestrator *service.Orchestrator,
	historyRepo *repository.StatusHistoryRepository,
	cronSecret string,
) *Handler {
	return &Handler{
		pool:         pool,
		taskService:  taskService,
		orchestrator: orchestrator,
		historyRepo:  historyRepo,
		secret:       middleware.NewSecretMiddleware(cronSecret),
	}
}

// RegisterRoutes registers all HTTP routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.Handle("POST /api/v1/lifecycle/run", h.secret.Protect(http.HandlerFunc(h.handleRunLifecycle)))

	mux.HandleFunc("PATCH /api/v1/tasks/{id}/status", h.handleTransitionStatus)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}/due-date", h.handleChangeDueDate)
	mux.HandleFunc("GET /api/v1/tasks/{id}/history", h.handleTaskHistory)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database is not reachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRunLifecycle(w http.ResponseWriter, r *http.Request) {
	report := h.orchestrator.RunLifecyclePass(r.Context(), time.Now())
	respondJSON(w, http.StatusOK, dto.NewLifecycleRunResponse(report))
}

func (h *Handler) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.TransitionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	if err := h.taskService.TransitionStatus(r.Context(), taskID, req.ActorID, domain.TaskStatus(req.Status), req.Note); err != nil {
		status, code, message := dto.MapDomainError(err)
		if status == http.StatusInternalServerError {
			slog.Error("status transition failed", "task_id", taskID, "error", err)
		}
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleChangeDueDate(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.ChangeDueDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	if err := h.taskService.ChangeDueDate(r.Context(), taskID, req.DueAt); err != nil {
		status, code, message := dto.MapDomainError(err)
		if status == http.StatusInternalServerError {
			slog.Error("due date change failed", "task_id", taskID, "error", err)
		}
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	entries, err := h.historyRepo.ByTaskID(r.Context(), taskID)
	if err != nil {
		slog.Error("loading task history failed", "task_id", taskID, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskHistoryResponse(taskID, entries))
}

// taskIDFromPath extracts and parses the {id} path segment. On failure it
// writes the error response and returns ok=false.
func taskIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_TASK_ID", "task id must be a positive integer")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}
