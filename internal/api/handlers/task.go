package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TaskHandler struct {
	store domain.TaskStore
}

func NewTaskHandler(store domain.TaskStore) *TaskHandler {
	return &TaskHandler{store: store}
}

type createTaskRequest struct {
	UserID           string     `json:"user_id"`
	Title            string     `json:"title"`
	Priority         int        `json:"priority"`
	Difficulty       int        `json:"difficulty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Deadline         *time.Time `json:"deadline,omitempty"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Priority < 1 || req.Priority > 5 {
		writeError(w, http.StatusBadRequest, "priority must be between 1 and 5")
		return
	}
	if req.Difficulty < 1 || req.Difficulty > 5 {
		writeError(w, http.StatusBadRequest, "difficulty must be between 1 and 5")
		return
	}
	if req.EstimatedMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "estimated_minutes must be positive")
		return
	}

	task := &domain.Task{
		UserID:           userID,
		Title:            req.Title,
		Priority:         req.Priority,
		Difficulty:       req.Difficulty,
		EstimatedMinutes: req.EstimatedMinutes,
		Deadline:         req.Deadline,
		Status:           domain.TaskPending,
	}

	if err := h.store.Create(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

type updateTaskStatusRequest struct {
	Status string `json:"status"`
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req updateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidTaskStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	task, err := h.store.GetByID(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.store.UpdateStatus(r.Context(), taskID, domain.TaskStatus(req.Status)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	task.Status = domain.TaskStatus(req.Status)
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	tasks, err := h.store.ListPending(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}
