package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
)

type MoodHandler struct {
	store domain.MoodStore
}

func NewMoodHandler(store domain.MoodStore) *MoodHandler {
	return &MoodHandler{store: store}
}

type createMoodRequest struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

func (h *MoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if req.Score < 1 || req.Score > 10 {
		writeError(w, http.StatusBadRequest, "score must be between 1 and 10")
		return
	}

	mood := &domain.Mood{UserID: userID, Score: req.Score}
	if err := h.store.Create(r.Context(), mood); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record mood")
		return
	}

	writeJSON(w, http.StatusCreated, mood)
}
