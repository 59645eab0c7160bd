package handlers

import (
	"errors"
	"net/http"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/cadencehq/cadence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type RecommendationHandler struct {
	svc *service.RecommenderService
}

func NewRecommendationHandler(svc *service.RecommenderService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

type recommendationResponse struct {
	ID               uuid.UUID        `json:"id"`
	Action           domain.Action    `json:"action"`
	DisplayName      string           `json:"display_name"`
	Explanation      string           `json:"explanation"`
	Strategy         domain.Strategy  `json:"strategy"`
	Confidence       float64          `json:"confidence"`
	Phase            domain.Phase     `json:"phase"`
	State            domain.UserState `json:"state"`
	SuggestedMinutes int              `json:"suggested_minutes"`
	SuggestedTask    *domain.Task     `json:"suggested_task,omitempty"`
	Alternatives     []domain.Task    `json:"alternatives,omitempty"`
	Degraded         bool             `json:"degraded,omitempty"`
}

func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	result, err := h.svc.Recommend(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserIDMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create recommendation")
		}
		return
	}

	writeJSON(w, http.StatusCreated, recommendationResponse{
		ID:               result.Record.ID,
		Action:           result.Record.Action,
		DisplayName:      result.DisplayName,
		Explanation:      result.Explanation,
		Strategy:         result.Record.Strategy,
		Confidence:       result.Record.Confidence,
		Phase:            result.Record.Phase,
		State:            result.Record.State,
		SuggestedMinutes: result.Record.SuggestedMinutes,
		SuggestedTask:    result.SuggestedTask,
		Alternatives:     result.Alternatives,
		Degraded:         result.Degraded,
	})
}

type phaseResponse struct {
	Phase               domain.Phase `json:"phase"`
	RecommendationCount int          `json:"recommendation_count"`
}

func (h *RecommendationHandler) GetPhase(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	phase, count, err := h.svc.GetPhase(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read phase")
		return
	}

	writeJSON(w, http.StatusOK, phaseResponse{Phase: phase, RecommendationCount: count})
}

func (h *RecommendationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	stats, err := h.svc.GetStats(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
