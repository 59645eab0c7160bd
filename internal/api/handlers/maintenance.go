package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cadencehq/cadence/internal/service"
	"github.com/google/uuid"
)

type MaintenanceHandler struct {
	inference *service.InferenceService
	agents    *service.AgentService
}

func NewMaintenanceHandler(inference *service.InferenceService, agents *service.AgentService) *MaintenanceHandler {
	return &MaintenanceHandler{inference: inference, agents: agents}
}

type inferFeedbackRequest struct {
	MinAgeMinutes int `json:"min_age_minutes,omitempty"`
	Limit         int `json:"limit,omitempty"`
}

type inferFeedbackResponse struct {
	ProcessedCount int `json:"processed_count"`
}

// InferFeedback runs one implicit-feedback sweep on demand, outside the
// background schedule.
func (h *MaintenanceHandler) InferFeedback(w http.ResponseWriter, r *http.Request) {
	var req inferFeedbackRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.MinAgeMinutes < 0 || req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "min_age_minutes and limit must not be negative")
		return
	}

	processed, err := h.inference.RunBatch(r.Context(), time.Duration(req.MinAgeMinutes)*time.Minute, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "inference sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, inferFeedbackResponse{ProcessedCount: processed})
}

type persistRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// Persist flushes learned models to durable storage, either for one user or
// for every user with unsaved changes.
func (h *MaintenanceHandler) Persist(w http.ResponseWriter, r *http.Request) {
	var req persistRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		if err := h.agents.PersistUser(r.Context(), userID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist model")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "persisted", "user_id": req.UserID})
		return
	}

	if err := h.agents.PersistAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist models")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "persisted"})
}
