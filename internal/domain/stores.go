package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrModelNotFound is returned by a ModelStore when no snapshot has been
// persisted for the user yet.
var ErrModelNotFound = errors.New("model snapshot not found")

type TaskStore interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]Task, error)
	CountCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status TaskStatus) error
}

type MoodStore interface {
	Create(ctx context.Context, m *Mood) error
	GetLatest(ctx context.Context, userID uuid.UUID) (*Mood, error)
}

type RecommendationStore interface {
	Create(ctx context.Context, r *Recommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error)
	// Close attaches an outcome to an open record. It reports how many rows
	// were updated: zero means the record was already closed.
	Close(ctx context.Context, id uuid.UUID, outcome Outcome, rating *int, source OutcomeSource) (int64, error)
	// ListUnresolved returns open records created before the cutoff, oldest
	// first, bounded by limit.
	ListUnresolved(ctx context.Context, before time.Time, limit int) ([]Recommendation, error)
	// NextAfter returns the user's earliest recommendation issued strictly
	// after the given time, or nil if none exists.
	NextAfter(ctx context.Context, userID uuid.UUID, after time.Time) (*Recommendation, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// ModelStore persists per-user learned state. Save must replace the prior
// durable copy atomically so a crash mid-write never leaves a partial file.
type ModelStore interface {
	Load(userID uuid.UUID) (*ModelSnapshot, error)
	Save(snapshot *ModelSnapshot) error
}
