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

type RecommendationStore struct {
	db *pgxpool.Pool
}

func NewRecommendationStore(db *pgxpool.Pool) *RecommendationStore {
	return &RecommendationStore{db: db}
}

const recommendationColumns = `id, user_id, time_block, day_of_week, energy_level, workload_pressure,
	action, strategy, confidence, task_id, phase, sequence_num, mood_at_issue, suggested_minutes,
	created_at, outcome, rating, outcome_source, resolved_at`

func (s *RecommendationStore) Create(ctx context.Context, r *domain.Recommendation) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO recommendations
		   (user_id, time_block, day_of_week, energy_level, workload_pressure,
		    action, strategy, confidence, task_id, phase, sequence_num, mood_at_issue, suggested_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at`,
		r.UserID, r.State.TimeBlock, r.State.DayOfWeek, r.State.Energy, r.State.Workload,
		r.Action, r.Strategy, r.Confidence, r.TaskID, r.Phase, r.SequenceNum, r.MoodAtIssue, r.SuggestedMinutes,
	).Scan(&r.ID, &r.CreatedAt)
}

func (s *RecommendationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recommendation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1`, id)
	rec, err := scanRecommendation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecommendationStore) Close(ctx context.Context, id uuid.UUID, outcome domain.Outcome, rating *int, source domain.OutcomeSource) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE recommendations
		 SET outcome = $2, rating = $3, outcome_source = $4, resolved_at = now()
		 WHERE id = $1 AND outcome IS NULL`,
		id, outcome, rating, source,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *RecommendationStore) ListUnresolved(ctx context.Context, before time.Time, limit int) ([]domain.Recommendation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+recommendationColumns+`
		 FROM recommendations
		 WHERE outcome IS NULL AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

func (s *RecommendationStore) NextAfter(ctx context.Context, userID uuid.UUID, after time.Time) (*domain.Recommendation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recommendationColumns+`
		 FROM recommendations
		 WHERE user_id = $1 AND created_at > $2
		 ORDER BY created_at ASC LIMIT 1`,
		userID, after,
	)
	rec, err := scanRecommendation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecommendationStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}

func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var r domain.Recommendation
	var source *string
	err := row.Scan(&r.ID, &r.UserID, &r.State.TimeBlock, &r.State.DayOfWeek, &r.State.Energy, &r.State.Workload,
		&r.Action, &r.Strategy, &r.Confidence, &r.TaskID, &r.Phase, &r.SequenceNum, &r.MoodAtIssue, &r.SuggestedMinutes,
		&r.CreatedAt, &r.Outcome, &r.Rating, &source, &r.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if source != nil {
		r.OutcomeSource = domain.OutcomeSource(*source)
	}
	r.StateKey = r.State.Key()
	return &r, nil
}
