package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
)

func newTestInferenceService(t *testing.T) (*InferenceService, *mockRecommendationStore, *mockTaskStore, *AgentService) {
	t.Helper()
	recStore := newMockRecommendationStore()
	taskStore := newMockTaskStore()
	moodStore := newMockMoodStore()
	agents := NewAgentService(newMockModelStore(), recStore, testLogger())
	feedback := NewFeedbackService(recStore, taskStore, moodStore, agents, testLogger())
	svc := NewInferenceService(recStore, taskStore, feedback, testLogger())
	return svc, recStore, taskStore, agents
}

func timePtr(t time.Time) *time.Time { return &t }

func inferenceRecord(now time.Time, suggestedMinutes int) domain.Recommendation {
	return domain.Recommendation{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		StateKey:         testStateKey,
		Action:           domain.ActionDeepFocus,
		SuggestedMinutes: suggestedMinutes,
		CreatedAt:        now.Add(-3 * time.Hour),
	}
}

func TestInfer_CompletedOnTime(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	now := time.Now()
	rec := inferenceRecord(now, 90)

	// Completed within 2x the suggested 90 minutes.
	completed := rec.CreatedAt.Add(120 * time.Minute)
	outcome := svc.Infer(InferenceSignals{
		Record: rec,
		Task:   &domain.Task{Status: domain.TaskCompleted, CompletedAt: &completed},
		Now:    now,
	})
	if outcome != domain.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
}

func TestInfer_CompletedLateIsPartial(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	now := time.Now()
	rec := inferenceRecord(now, 30)

	// Completed well past the 2x60-minute grace window.
	completed := rec.CreatedAt.Add(3 * time.Hour)
	outcome := svc.Infer(InferenceSignals{
		Record: rec,
		Task:   &domain.Task{Status: domain.TaskCompleted, CompletedAt: &completed},
		Now:    now,
	})
	if outcome != domain.OutcomePartial {
		t.Fatalf("expected partial, got %s", outcome)
	}
}

func TestInfer_InProgressIsPartial(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	now := time.Now()
	rec := inferenceRecord(now, 90)

	started := rec.CreatedAt.Add(10 * time.Minute)
	outcome := svc.Infer(InferenceSignals{
		Record: rec,
		Task:   &domain.Task{Status: domain.TaskInProgress, StartedAt: &started},
		Now:    now,
	})
	if outcome != domain.OutcomePartial {
		t.Fatalf("expected partial for in-progress task, got %s", outcome)
	}
}

func TestInfer_SupersededQuickly(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	now := time.Now()
	rec := inferenceRecord(now, 90)

	// A new request 5 minutes later with the task untouched means skipped.
	outcome := svc.Infer(InferenceSignals{
		Record:        rec,
		Task:          &domain.Task{Status: domain.TaskPending},
		NextRequestAt: timePtr(rec.CreatedAt.Add(5 * time.Minute)),
		Now:           now,
	})
	if outcome != domain.OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", outcome)
	}

	// Touched task blocks the superseded rule.
	started := rec.CreatedAt.Add(2 * time.Minute)
	outcome = svc.Infer(InferenceSignals{
		Record:        rec,
		Task:          &domain.Task{Status: domain.TaskInProgress, StartedAt: &started},
		NextRequestAt: timePtr(rec.CreatedAt.Add(5 * time.Minute)),
		Now:           now,
	})
	if outcome == domain.OutcomeSkipped {
		t.Fatal("touched task must not be inferred as skipped")
	}
}

func TestInfer_NoActivityIsIgnored(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	now := time.Now()
	rec := inferenceRecord(now, 90) // 3 hours old, past the 2-hour window

	outcome := svc.Infer(InferenceSignals{
		Record: rec,
		Task:   &domain.Task{Status: domain.TaskPending},
		Now:    now,
	})
	if outcome != domain.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
}

func TestInfer_DefaultsToPartial(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	now := time.Now()

	// One hour old, no task, no next request: no rule applies.
	rec := inferenceRecord(now, 90)
	rec.CreatedAt = now.Add(-time.Hour)
	outcome := svc.Infer(InferenceSignals{Record: rec, Now: now})
	if outcome != domain.OutcomePartial {
		t.Fatalf("expected fallback partial, got %s", outcome)
	}
}

func TestRunBatch_ResolvesOldOpenRecords(t *testing.T) {
	svc, recStore, _, agents := newTestInferenceService(t)
	ctx := context.Background()
	userID := uuid.New()

	// Three hours old and untouched: should be resolved as ignored.
	recStore.add(domain.Recommendation{
		UserID:           userID,
		StateKey:         testStateKey,
		Action:           domain.ActionBreak,
		SuggestedMinutes: 15,
		CreatedAt:        time.Now().Add(-3 * time.Hour),
	})
	// Five minutes old: too fresh for the sweep.
	fresh := recStore.add(domain.Recommendation{
		UserID:           userID,
		StateKey:         testStateKey,
		Action:           domain.ActionBreak,
		SuggestedMinutes: 15,
		CreatedAt:        time.Now().Add(-5 * time.Minute),
	})

	processed, err := svc.RunBatch(ctx, 30*time.Minute, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 record processed, got %d", processed)
	}

	stored, _ := recStore.GetByID(ctx, fresh.ID)
	if stored.Closed() {
		t.Fatal("fresh record must not be resolved")
	}

	// The resolution fed the agent.
	stats := agents.Stats(ctx, userID)
	if stats.TotalVisits != 1 {
		t.Fatalf("expected one agent update, got %d visits", stats.TotalVisits)
	}
}

func TestRunBatch_DiscountsStaleRewards(t *testing.T) {
	recStore := newMockRecommendationStore()
	taskStore := newMockTaskStore()
	agents := NewAgentService(newMockModelStore(), recStore, testLogger())
	feedback := NewFeedbackService(recStore, taskStore, newMockMoodStore(), agents, testLogger())
	svc := NewInferenceService(recStore, taskStore, feedback, testLogger())

	now := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	feedback.SetClock(func() time.Time { return now })
	svc.SetClock(func() time.Time { return now })

	userID := uuid.New()
	recStore.add(domain.Recommendation{
		UserID:           userID,
		StateKey:         testStateKey,
		Action:           domain.ActionBreak,
		SuggestedMinutes: 15,
		CreatedAt:        now.Add(-72 * time.Hour),
	})

	processed, err := svc.RunBatch(context.Background(), 30*time.Minute, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 record processed, got %d", processed)
	}

	// A three-day-old untouched record is inferred ignored (-0.2) and the
	// reward decays by 0.95^3 before the first update at alpha 0.30:
	// 0.5 + 0.30*(-0.2*0.95^3 - 0.5).
	stats := agents.Stats(context.Background(), userID)
	if len(stats.Entries) != 1 {
		t.Fatalf("expected one learned entry, got %d", len(stats.Entries))
	}
	want := 0.5 + 0.30*(-0.2*math.Pow(0.95, 3)-0.5)
	if math.Abs(stats.Entries[0].Value-want) > 1e-9 {
		t.Fatalf("expected value %f, got %f", want, stats.Entries[0].Value)
	}
}

func TestRunBatch_IgnoresClosedRecords(t *testing.T) {
	svc, recStore, _, _ := newTestInferenceService(t)
	ctx := context.Background()

	rec := recStore.add(domain.Recommendation{
		UserID:           uuid.New(),
		StateKey:         testStateKey,
		Action:           domain.ActionBreak,
		SuggestedMinutes: 15,
		CreatedAt:        time.Now().Add(-3 * time.Hour),
	})

	// Explicit feedback already landed for the only old record.
	if rows, _ := recStore.Close(ctx, rec.ID, domain.OutcomeCompleted, nil, domain.OutcomeSourceExplicit); rows != 1 {
		t.Fatal("setup: expected to close the record")
	}

	processed, err := svc.RunBatch(ctx, 30*time.Minute, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected 0 processed, got %d", processed)
	}
}

func TestRunBatch_HonorsLimit(t *testing.T) {
	svc, recStore, _, _ := newTestInferenceService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		recStore.add(domain.Recommendation{
			UserID:           uuid.New(),
			StateKey:         testStateKey,
			Action:           domain.ActionBreak,
			SuggestedMinutes: 15,
			CreatedAt:        time.Now().Add(-3 * time.Hour),
		})
	}

	processed, err := svc.RunBatch(ctx, 30*time.Minute, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected limit of 2, got %d", processed)
	}
}

func TestInferenceService_StartStop(t *testing.T) {
	svc, _, _, _ := newTestInferenceService(t)
	svc.SetInterval(time.Hour)

	svc.Start()
	svc.Stop()
}
