package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/cadencehq/cadence/internal/service"
	"github.com/google/uuid"
)

type FeedbackHandler struct {
	svc *service.FeedbackService
}

func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type submitFeedbackRequest struct {
	RecommendationID string `json:"recommendation_id"`
	Outcome          string `json:"outcome"`
	Rating           *int   `json:"rating,omitempty"`
}

type submitFeedbackResponse struct {
	RecommendationID uuid.UUID `json:"recommendation_id"`
	Outcome          string    `json:"outcome"`
	Reward           float64   `json:"reward"`
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recID, err := uuid.Parse(req.RecommendationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recommendation_id")
		return
	}

	reward, err := h.svc.Submit(r.Context(), recID, domain.Outcome(req.Outcome), req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOutcome),
			errors.Is(err, service.ErrInvalidRating):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRecommendationNotFound):
			writeError(w, http.StatusNotFound, "recommendation not found")
		case errors.Is(err, service.ErrDuplicateFeedback):
			writeError(w, http.StatusConflict, "feedback already recorded")
		default:
			writeError(w, http.StatusInternalServerError, "failed to record feedback")
		}
		return
	}

	writeJSON(w, http.StatusOK, submitFeedbackResponse{
		RecommendationID: recID,
		Outcome:          req.Outcome,
		Reward:           reward,
	})
}
