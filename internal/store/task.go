package store

import (
	"context"
	"errors"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskStore struct {
	db *pgxpool.Pool
}

func NewTaskStore(db *pgxpool.Pool) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(ctx context.Context, t *domain.Task) error {
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, priority, difficulty, estimated_minutes, deadline, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.UserID, t.Title, t.Priority, t.Difficulty, t.EstimatedMinutes, t.Deadline, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var t domain.Task
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, title, priority, difficulty, estimated_minutes, deadline, status, created_at, started_at, completed_at
		 FROM tasks WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Priority, &t.Difficulty, &t.EstimatedMinutes,
		&t.Deadline, &t.Status, &t.CreatedAt, &t.StartedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskStore) ListPending(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, title, priority, difficulty, estimated_minutes, deadline, status, created_at, started_at, completed_at
		 FROM tasks
		 WHERE user_id = $1 AND status IN ('pending', 'in_progress')
		 ORDER BY priority DESC, deadline ASC NULLS LAST, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Priority, &t.Difficulty, &t.EstimatedMinutes,
			&t.Deadline, &t.Status, &t.CreatedAt, &t.StartedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) CountCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2`,
		userID, since,
	).Scan(&count)
	return count, err
}

func (s *TaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE tasks SET status = $2,
		        started_at = CASE WHEN $2 = 'in_progress' AND started_at IS NULL THEN now() ELSE started_at END,
		        completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END
		 WHERE id = $1`,
		id, status,
	)
	return err
}
