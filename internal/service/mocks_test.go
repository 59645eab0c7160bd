package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// mockTaskStore implements domain.TaskStore for testing.
type mockTaskStore struct {
	mu             sync.Mutex
	tasks          map[uuid.UUID]*domain.Task
	completedToday int

	listErr  error
	getErr   error
	countErr error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *mockTaskStore) add(t domain.Task) domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	cp := t
	m.tasks[t.ID] = &cp
	return t
}

func (m *mockTaskStore) Create(ctx context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskStore) ListPending(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.UserID == userID && (t.Status == domain.TaskPending || t.Status == domain.TaskInProgress) {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}

func (m *mockTaskStore) CountCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.completedToday, nil
}

func (m *mockTaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	now := time.Now()
	t.Status = status
	if status == domain.TaskInProgress && t.StartedAt == nil {
		t.StartedAt = &now
	}
	if status == domain.TaskCompleted {
		t.CompletedAt = &now
	}
	return nil
}

// mockMoodStore implements domain.MoodStore for testing.
type mockMoodStore struct {
	mu     sync.Mutex
	latest map[uuid.UUID]*domain.Mood

	getErr error
}

func newMockMoodStore() *mockMoodStore {
	return &mockMoodStore{latest: make(map[uuid.UUID]*domain.Mood)}
}

func (m *mockMoodStore) setLatest(userID uuid.UUID, score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[userID] = &domain.Mood{ID: uuid.New(), UserID: userID, Score: score, CreatedAt: time.Now()}
}

func (m *mockMoodStore) Create(ctx context.Context, mood *domain.Mood) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mood.ID = uuid.New()
	mood.CreatedAt = time.Now()
	cp := *mood
	m.latest[mood.UserID] = &cp
	return nil
}

func (m *mockMoodStore) GetLatest(ctx context.Context, userID uuid.UUID) (*domain.Mood, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mood, ok := m.latest[userID]
	if !ok {
		return nil, nil
	}
	cp := *mood
	return &cp, nil
}

// mockRecommendationStore implements domain.RecommendationStore for testing.
type mockRecommendationStore struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*domain.Recommendation

	createErr error
	closeErr  error
	listErr   error
}

func newMockRecommendationStore() *mockRecommendationStore {
	return &mockRecommendationStore{recs: make(map[uuid.UUID]*domain.Recommendation)}
}

func (m *mockRecommendationStore) add(r domain.Recommendation) domain.Recommendation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := r
	m.recs[r.ID] = &cp
	return r
}

func (m *mockRecommendationStore) Create(ctx context.Context, r *domain.Recommendation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	m.recs[r.ID] = &cp
	return nil
}

func (m *mockRecommendationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecommendationStore) Close(ctx context.Context, id uuid.UUID, outcome domain.Outcome, rating *int, source domain.OutcomeSource) (int64, error) {
	if m.closeErr != nil {
		return 0, m.closeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok || r.Outcome != nil {
		return 0, nil
	}
	now := time.Now()
	r.Outcome = &outcome
	r.Rating = rating
	r.OutcomeSource = source
	r.ResolvedAt = &now
	return 1, nil
}

func (m *mockRecommendationStore) ListUnresolved(ctx context.Context, before time.Time, limit int) ([]domain.Recommendation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Recommendation
	for _, r := range m.recs {
		if r.Outcome == nil && r.CreatedAt.Before(before) {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRecommendationStore) NextAfter(ctx context.Context, userID uuid.UUID, after time.Time) (*domain.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *domain.Recommendation
	for _, r := range m.recs {
		if r.UserID != userID || !r.CreatedAt.After(after) {
			continue
		}
		if next == nil || r.CreatedAt.Before(next.CreatedAt) {
			next = r
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (m *mockRecommendationStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.recs {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

// mockModelStore implements domain.ModelStore in memory.
type mockModelStore struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]*domain.ModelSnapshot
	saves     int

	loadErr error
	saveErr error
}

func newMockModelStore() *mockModelStore {
	return &mockModelStore{snapshots: make(map[uuid.UUID]*domain.ModelSnapshot)}
}

func (m *mockModelStore) Load(userID uuid.UUID) (*domain.ModelSnapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[userID]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	cp := *s
	cp.Table = s.Table.Clone()
	return &cp, nil
}

func (m *mockModelStore) Save(snapshot *domain.ModelSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *snapshot
	cp.Table = snapshot.Table.Clone()
	m.snapshots[snapshot.UserID] = &cp
	return nil
}
