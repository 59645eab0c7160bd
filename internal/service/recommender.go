package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUserIDMissing = errors.New("user_id is required")

const (
	// Rule-strategy confidence is the appropriateness score normalized by
	// this span, halved when collaborators were unreachable.
	ruleConfidenceSpan       = 3.0
	degradedConfidenceFactor = 0.5
)

// RecommendationResult is the full answer returned to callers: the persisted
// record plus presentation fields that are not stored.
type RecommendationResult struct {
	Record        domain.Recommendation
	DisplayName   string
	Explanation   string
	SuggestedTask *domain.Task
	Alternatives  []domain.Task
	Degraded      bool
}

// RecommenderService coordinates one recommendation request: encode state,
// mask actions, pick a strategy by phase, attach a task, and persist the
// record before returning it.
type RecommenderService struct {
	encoder   *StateEncoder
	masker    *ActionMasker
	rules     *RuleEngine
	agents    *AgentService
	selector  *TaskSelector
	catalog   *domain.Catalog
	taskStore domain.TaskStore
	moodStore domain.MoodStore
	recStore  domain.RecommendationStore
	logger    *zap.Logger

	now func() time.Time
}

func NewRecommenderService(
	catalog *domain.Catalog,
	agents *AgentService,
	taskStore domain.TaskStore,
	moodStore domain.MoodStore,
	recStore domain.RecommendationStore,
	logger *zap.Logger,
) *RecommenderService {
	return &RecommenderService{
		encoder:   NewStateEncoder(),
		masker:    NewActionMasker(catalog),
		rules:     NewRuleEngine(),
		agents:    agents,
		selector:  NewTaskSelector(),
		catalog:   catalog,
		taskStore: taskStore,
		moodStore: moodStore,
		recStore:  recStore,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock injects a deterministic clock for tests.
func (s *RecommenderService) SetClock(now func() time.Time) {
	s.now = now
}

// Recommend issues the next-action recommendation for a user.
func (s *RecommenderService) Recommend(ctx context.Context, userID uuid.UUID) (*RecommendationResult, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDMissing
	}

	now := s.now()
	degraded := false

	tasks, err := s.taskStore.ListPending(ctx, userID)
	if err != nil {
		s.logger.Warn("task store unavailable, degrading to rules",
			zap.String("user_id", userID.String()), zap.Error(err))
		degraded = true
		tasks = nil
	}

	var moodScore *int
	mood, err := s.moodStore.GetLatest(ctx, userID)
	if err != nil {
		s.logger.Warn("mood store unavailable, degrading to rules",
			zap.String("user_id", userID.String()), zap.Error(err))
		degraded = true
	} else if mood != nil {
		moodScore = &mood.Score
	}

	completed := 0
	if !degraded {
		completed, err = s.taskStore.CountCompletedSince(ctx, userID, startOfDay(now))
		if err != nil {
			s.logger.Warn("completed-count lookup failed, degrading to rules",
				zap.String("user_id", userID.String()), zap.Error(err))
			degraded = true
			completed = 0
		}
	}

	state := s.encoder.Encode(EncoderInput{
		Now:            now,
		MoodScore:      moodScore,
		PendingTasks:   tasks,
		CompletedToday: completed,
	})
	candidates := s.masker.Mask(state, tasks)

	phase, _ := s.agents.Phase(ctx, userID)

	action, strategy, confidence, explanation := s.choose(ctx, userID, state, candidates, phase, degraded)

	spec, ok := s.catalog.Get(action)
	if !ok {
		return nil, fmt.Errorf("action %q missing from catalog", action)
	}

	selection := s.selector.Select(spec, tasks, now)

	seq := s.agents.RecordIssued(ctx, userID)

	record := domain.Recommendation{
		UserID:           userID,
		State:            state,
		StateKey:         state.Key(),
		Action:           action,
		Strategy:         strategy,
		Confidence:       confidence,
		Phase:            phase,
		SequenceNum:      seq,
		MoodAtIssue:      moodScore,
		SuggestedMinutes: spec.SuggestedMinutes,
	}
	if selection.Task != nil {
		record.TaskID = &selection.Task.ID
	}

	// The record must be durable before the caller sees it; the feedback
	// path and the phase-counter floor both depend on it existing.
	if err := s.recStore.Create(ctx, &record); err != nil {
		return nil, fmt.Errorf("persist recommendation: %w", err)
	}

	s.logger.Info("recommendation issued",
		zap.String("user_id", userID.String()),
		zap.String("state", record.StateKey),
		zap.String("action", string(action)),
		zap.String("strategy", string(strategy)),
		zap.String("phase", string(phase)),
		zap.Float64("confidence", confidence),
		zap.Int("sequence", seq),
		zap.Bool("degraded", degraded),
	)

	return &RecommendationResult{
		Record:        record,
		DisplayName:   spec.DisplayName,
		Explanation:   explanation,
		SuggestedTask: selection.Task,
		Alternatives:  selection.Alternatives,
		Degraded:      degraded,
	}, nil
}

// choose applies the phase policy: rules during bootstrap (and whenever a
// collaborator is down), otherwise the agent's pick when its confidence
// clears the phase threshold.
func (s *RecommenderService) choose(
	ctx context.Context,
	userID uuid.UUID,
	state domain.UserState,
	candidates []ScoredAction,
	phase domain.Phase,
	degraded bool,
) (domain.Action, domain.Strategy, float64, string) {
	if phase != domain.PhaseBootstrap && !degraded {
		choice, err := s.agents.SelectAction(ctx, userID, state, candidates)
		if err == nil && choice.Confidence >= phase.ConfidenceThreshold() {
			explanation := "This has worked well for you in similar moments."
			if choice.Explored {
				explanation = "Trying something a little different to learn what suits you here."
			}
			return choice.Action, domain.StrategyRL, choice.Confidence, explanation
		}
	}

	action, explanation := s.rules.Decide(state)
	score, valid := maskScore(candidates, action)
	if !valid && len(candidates) > 0 {
		// The rule's pick was masked out (e.g. no pending tasks); fall back
		// to the most appropriate valid action.
		top := candidates[0]
		action = top.Spec.Action
		score = top.Score
		explanation = fmt.Sprintf("%s is the best fit for this moment.", top.Spec.DisplayName)
	}

	confidence := score / ruleConfidenceSpan
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	if degraded {
		confidence *= degradedConfidenceFactor
	}
	return action, domain.StrategyRule, confidence, explanation
}

func maskScore(candidates []ScoredAction, action domain.Action) (float64, bool) {
	for _, c := range candidates {
		if c.Spec.Action == action {
			return c.Score, true
		}
	}
	return 0, false
}

// GetPhase reports the user's phase and recommendation count.
func (s *RecommenderService) GetPhase(ctx context.Context, userID uuid.UUID) (domain.Phase, int, error) {
	if userID == uuid.Nil {
		return "", 0, ErrUserIDMissing
	}
	phase, count := s.agents.Phase(ctx, userID)
	return phase, count, nil
}

// GetStats reports the user's learned state summary.
func (s *RecommenderService) GetStats(ctx context.Context, userID uuid.UUID) (*AgentStats, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDMissing
	}
	return s.agents.Stats(ctx, userID), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
