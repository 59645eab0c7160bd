package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultInferenceInterval = 10 * time.Minute
	defaultInferenceMinAge   = 30 * time.Minute
	defaultInferenceLimit    = 100

	completionGraceFactor = 2                // completed within 2x suggested duration
	supersededWindow      = 10 * time.Minute // new request this soon means skipped
	ignoredAfter          = 2 * time.Hour
)

// InferenceSignals are the observable facts about one open recommendation.
type InferenceSignals struct {
	Record        domain.Recommendation
	Task          *domain.Task // suggested task's current state, nil if none
	NextRequestAt *time.Time   // user's next recommendation after this one
	Now           time.Time
}

// InferenceRule is one step of the outcome-inference chain: a named
// predicate that either concludes an outcome or passes.
type InferenceRule struct {
	Name    string
	Applies func(InferenceSignals) (domain.Outcome, bool)
}

// DefaultInferenceRules is the ordered chain used when no explicit feedback
// arrives. The first applicable rule wins; the caller defaults to partial.
func DefaultInferenceRules() []InferenceRule {
	return []InferenceRule{
		{
			Name: "completed_on_time",
			Applies: func(sig InferenceSignals) (domain.Outcome, bool) {
				if sig.Task == nil || sig.Task.CompletedAt == nil {
					return "", false
				}
				grace := time.Duration(sig.Record.SuggestedMinutes*completionGraceFactor) * time.Minute
				if sig.Task.CompletedAt.Sub(sig.Record.CreatedAt) <= grace {
					return domain.OutcomeCompleted, true
				}
				return "", false
			},
		},
		{
			Name: "completed_late_or_in_progress",
			Applies: func(sig InferenceSignals) (domain.Outcome, bool) {
				if sig.Task == nil {
					return "", false
				}
				if sig.Task.CompletedAt != nil || sig.Task.Status == domain.TaskInProgress {
					return domain.OutcomePartial, true
				}
				return "", false
			},
		},
		{
			Name: "superseded_quickly",
			Applies: func(sig InferenceSignals) (domain.Outcome, bool) {
				if sig.NextRequestAt == nil {
					return "", false
				}
				if sig.Task != nil && sig.Task.Touched() {
					return "", false
				}
				if sig.NextRequestAt.Sub(sig.Record.CreatedAt) <= supersededWindow {
					return domain.OutcomeSkipped, true
				}
				return "", false
			},
		},
		{
			Name: "no_related_activity",
			Applies: func(sig InferenceSignals) (domain.Outcome, bool) {
				if sig.Task != nil && sig.Task.Touched() {
					return "", false
				}
				if sig.Now.Sub(sig.Record.CreatedAt) >= ignoredAfter {
					return domain.OutcomeIgnored, true
				}
				return "", false
			},
		},
	}
}

// InferenceService infers outcomes for recommendations that never received
// explicit feedback and runs the sweep on a background schedule.
type InferenceService struct {
	recStore  domain.RecommendationStore
	taskStore domain.TaskStore
	feedback  *FeedbackService
	logger    *zap.Logger
	rules     []InferenceRule

	interval time.Duration
	minAge   time.Duration
	limit    int
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewInferenceService(
	recStore domain.RecommendationStore,
	taskStore domain.TaskStore,
	feedback *FeedbackService,
	logger *zap.Logger,
) *InferenceService {
	return &InferenceService{
		recStore:  recStore,
		taskStore: taskStore,
		feedback:  feedback,
		logger:    logger,
		rules:     DefaultInferenceRules(),
		interval:  defaultInferenceInterval,
		minAge:    defaultInferenceMinAge,
		limit:     defaultInferenceLimit,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (s *InferenceService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *InferenceService) SetDefaults(minAge time.Duration, limit int) {
	if minAge > 0 {
		s.minAge = minAge
	}
	if limit > 0 {
		s.limit = limit
	}
}

// SetClock injects a deterministic clock for tests.
func (s *InferenceService) SetClock(now func() time.Time) {
	s.now = now
}

// Start runs the inference sweep on a periodic schedule in a background
// goroutine.
func (s *InferenceService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("implicit feedback inferencer started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
				if _, err := s.RunBatch(ctx, s.minAge, s.limit); err != nil {
					s.logger.Error("inference sweep failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("implicit feedback inferencer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the inferencer.
func (s *InferenceService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Infer runs the rule chain over the signals, defaulting to partial.
func (s *InferenceService) Infer(sig InferenceSignals) domain.Outcome {
	for _, r := range s.rules {
		if outcome, ok := r.Applies(sig); ok {
			return outcome
		}
	}
	return domain.OutcomePartial
}

// RunBatch infers outcomes for up to limit open recommendations at least
// minAge old, and returns how many it resolved.
func (s *InferenceService) RunBatch(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	if minAge <= 0 {
		minAge = s.minAge
	}
	if limit <= 0 {
		limit = s.limit
	}

	now := s.now()
	records, err := s.recStore.ListUnresolved(ctx, now.Add(-minAge), limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, rec := range records {
		sig := InferenceSignals{Record: rec, Now: now}

		if rec.TaskID != nil {
			task, err := s.taskStore.GetByID(ctx, *rec.TaskID)
			if err != nil {
				s.logger.Warn("skipping record, suggested task lookup failed",
					zap.String("recommendation_id", rec.ID.String()), zap.Error(err))
				continue
			}
			sig.Task = task
		}

		next, err := s.recStore.NextAfter(ctx, rec.UserID, rec.CreatedAt)
		if err != nil {
			s.logger.Warn("skipping record, next-request lookup failed",
				zap.String("recommendation_id", rec.ID.String()), zap.Error(err))
			continue
		}
		if next != nil {
			sig.NextRequestAt = &next.CreatedAt
		}

		outcome := s.Infer(sig)
		if _, err := s.feedback.Resolve(ctx, rec.ID, outcome); err != nil {
			// Explicit feedback may have landed since the listing; that is
			// the expected race, anything else is worth a warning.
			if !errors.Is(err, ErrDuplicateFeedback) {
				s.logger.Warn("failed to apply inferred outcome",
					zap.String("recommendation_id", rec.ID.String()), zap.Error(err))
			}
			continue
		}

		s.logger.Debug("outcome inferred",
			zap.String("recommendation_id", rec.ID.String()),
			zap.String("outcome", string(outcome)),
		)
		processed++
	}

	return processed, nil
}
