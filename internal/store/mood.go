package store

import (
	"context"
	"errors"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MoodStore struct {
	db *pgxpool.Pool
}

func NewMoodStore(db *pgxpool.Pool) *MoodStore {
	return &MoodStore{db: db}
}

func (s *MoodStore) Create(ctx context.Context, m *domain.Mood) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO moods (user_id, score)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		m.UserID, m.Score,
	).Scan(&m.ID, &m.CreatedAt)
}

// GetLatest returns the user's most recent mood entry, or nil if none exists.
func (s *MoodStore) GetLatest(ctx context.Context, userID uuid.UUID) (*domain.Mood, error) {
	var m domain.Mood
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, score, created_at
		 FROM moods WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&m.ID, &m.UserID, &m.Score, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
