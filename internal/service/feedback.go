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

var (
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrDuplicateFeedback      = errors.New("feedback already recorded for this recommendation")
	ErrInvalidOutcome         = errors.New("invalid outcome")
	ErrInvalidRating          = errors.New("rating must be between 1 and 5")
)

// FeedbackService resolves recommendations: it claims the open record,
// derives the reward, and applies exactly one agent update per record.
type FeedbackService struct {
	recStore   domain.RecommendationStore
	taskStore  domain.TaskStore
	moodStore  domain.MoodStore
	agents     *AgentService
	calculator *RewardCalculator
	logger     *zap.Logger

	now func() time.Time
}

func NewFeedbackService(
	recStore domain.RecommendationStore,
	taskStore domain.TaskStore,
	moodStore domain.MoodStore,
	agents *AgentService,
	logger *zap.Logger,
) *FeedbackService {
	return &FeedbackService{
		recStore:   recStore,
		taskStore:  taskStore,
		moodStore:  moodStore,
		agents:     agents,
		calculator: NewRewardCalculator(),
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock injects a deterministic clock for tests.
func (s *FeedbackService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit records explicit user feedback for a recommendation. A second
// submission for the same record is rejected with ErrDuplicateFeedback so
// rewards are never double-counted.
func (s *FeedbackService) Submit(ctx context.Context, recID uuid.UUID, outcome domain.Outcome, rating *int) (float64, error) {
	if !domain.ValidOutcome(string(outcome)) {
		return 0, ErrInvalidOutcome
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return 0, ErrInvalidRating
	}
	return s.resolve(ctx, recID, outcome, rating, domain.OutcomeSourceExplicit)
}

// Resolve closes a recommendation with an inferred outcome. Used by the
// implicit-feedback sweep; duplicates are rejected the same way.
func (s *FeedbackService) Resolve(ctx context.Context, recID uuid.UUID, outcome domain.Outcome) (float64, error) {
	return s.resolve(ctx, recID, outcome, nil, domain.OutcomeSourceInferred)
}

func (s *FeedbackService) resolve(ctx context.Context, recID uuid.UUID, outcome domain.Outcome, rating *int, source domain.OutcomeSource) (float64, error) {
	rec, err := s.recStore.GetByID(ctx, recID)
	if err != nil {
		return 0, fmt.Errorf("load recommendation: %w", err)
	}
	if rec == nil {
		return 0, ErrRecommendationNotFound
	}
	if rec.Closed() {
		return 0, ErrDuplicateFeedback
	}

	// Claim the record first. The conditional update is what makes the
	// duplicate check race-safe: only the caller that flips it applies the
	// agent update.
	claimed, err := s.recStore.Close(ctx, recID, outcome, rating, source)
	if err != nil {
		return 0, fmt.Errorf("close recommendation: %w", err)
	}
	if claimed == 0 {
		return 0, ErrDuplicateFeedback
	}

	reward := s.calculator.Compute(RewardInput{
		Outcome:          outcome,
		Rating:           rating,
		MoodBefore:       rec.MoodAtIssue,
		MoodAfter:        s.latestMoodScore(ctx, rec.UserID),
		ActualMinutes:    s.actualMinutes(ctx, rec),
		SuggestedMinutes: rec.SuggestedMinutes,
	})

	// Inferred outcomes land from the batch sweep well after the fact, so
	// their contribution decays with the record's age.
	if source == domain.OutcomeSourceInferred {
		reward = s.calculator.Weighted(reward, s.now().Sub(rec.CreatedAt))
	}

	if err := s.agents.Update(ctx, rec.UserID, rec.StateKey, rec.Action, reward); err != nil {
		return 0, fmt.Errorf("apply reward: %w", err)
	}

	s.logger.Info("feedback applied",
		zap.String("recommendation_id", recID.String()),
		zap.String("user_id", rec.UserID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("source", string(source)),
		zap.Float64("reward", reward),
	)
	return reward, nil
}

func (s *FeedbackService) latestMoodScore(ctx context.Context, userID uuid.UUID) *int {
	mood, err := s.moodStore.GetLatest(ctx, userID)
	if err != nil || mood == nil {
		return nil
	}
	return &mood.Score
}

// actualMinutes derives how long the suggested task actually took, when it
// has a completion timestamp.
func (s *FeedbackService) actualMinutes(ctx context.Context, rec *domain.Recommendation) *int {
	if rec.TaskID == nil {
		return nil
	}
	task, err := s.taskStore.GetByID(ctx, *rec.TaskID)
	if err != nil || task == nil || task.CompletedAt == nil {
		return nil
	}
	minutes := int(task.CompletedAt.Sub(rec.CreatedAt).Minutes())
	if minutes < 0 {
		return nil
	}
	return &minutes
}
