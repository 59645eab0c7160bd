package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrRewardNotFinite = errors.New("reward must be a finite number")

const (
	epsilonStart     = 0.25
	epsilonFloor     = 0.05
	epsilonHoldCount = 60
	epsilonDecayRate = 0.985

	// Learning rate tiers by visit count at the state-action pair.
	alphaFast      = 0.30
	alphaMid       = 0.10
	alphaSlow      = 0.05
	fastVisitLimit = 5
	midVisitLimit  = 20

	// Confidence formula terms; see DESIGN.md.
	confidenceVisitScale   = 10.0
	confidenceSpreadWeight = 0.25

	persistConcurrency = 4
)

// Epsilon returns the exploration rate after n issued recommendations:
// constant 0.25 through the first 60, then 0.25*0.985^(n-60) decaying to a
// floor of 0.05.
func Epsilon(n int) float64 {
	if n < epsilonHoldCount {
		return epsilonStart
	}
	eps := epsilonStart * math.Pow(epsilonDecayRate, float64(n-epsilonHoldCount))
	if eps < epsilonFloor {
		return epsilonFloor
	}
	return eps
}

// Choice is the agent's answer for one selection request.
type Choice struct {
	Action     domain.Action
	Confidence float64
	Value      float64
	Explored   bool
}

// StateActionStat is one Q-table entry in a stats summary.
type StateActionStat struct {
	StateKey string        `json:"state_key"`
	Action   domain.Action `json:"action"`
	Value    float64       `json:"value"`
	Visits   int           `json:"visits"`
}

// AgentStats summarizes a user's learned state.
type AgentStats struct {
	Phase               domain.Phase      `json:"phase"`
	RecommendationCount int               `json:"recommendation_count"`
	Epsilon             float64           `json:"epsilon"`
	StatesSeen          int               `json:"states_seen"`
	TotalVisits         int               `json:"total_visits"`
	Entries             []StateActionStat `json:"state_action_values"`
}

// userAgent owns one user's learned state. All access to the table and
// counter goes through its lock; agents for different users never contend.
type userAgent struct {
	mu      sync.RWMutex
	table   domain.QTable
	counter int
	dirty   bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// AgentService is the registry mapping user ids to their learning agents.
// Models load lazily on first access and stay cached for the process
// lifetime; the persister flushes dirty agents on an interval and at
// shutdown so nothing unpersisted is silently dropped.
type AgentService struct {
	modelStore domain.ModelStore
	recStore   domain.RecommendationStore
	logger     *zap.Logger
	newRand    func() *rand.Rand

	mu     sync.Mutex
	agents map[uuid.UUID]*userAgent
}

func NewAgentService(modelStore domain.ModelStore, recStore domain.RecommendationStore, logger *zap.Logger) *AgentService {
	return &AgentService{
		modelStore: modelStore,
		recStore:   recStore,
		logger:     logger,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		agents: make(map[uuid.UUID]*userAgent),
	}
}

// SetRandSource injects a seedable random source so action selection is
// reproducible in tests. Must be called before the first selection.
func (s *AgentService) SetRandSource(newRand func() *rand.Rand) {
	s.newRand = newRand
}

// get returns the user's agent, loading the persisted snapshot on first
// access. A missing snapshot yields a fresh optimistic table; a corrupted
// one is discarded with a warning rather than failing the request.
func (s *AgentService) get(ctx context.Context, userID uuid.UUID) *userAgent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.agents[userID]; ok {
		return a
	}

	a := &userAgent{table: make(domain.QTable), rng: s.newRand()}

	snapshot, err := s.modelStore.Load(userID)
	switch {
	case err == nil:
		a.table = snapshot.Table
		a.counter = snapshot.Counter
	case errors.Is(err, domain.ErrModelNotFound):
		// First contact with this user.
	default:
		s.logger.Warn("discarding unreadable model snapshot, starting fresh",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	// The recommendation log is written before every response, so its count
	// is a floor for the counter even when the snapshot is stale or lost.
	if s.recStore != nil {
		if n, err := s.recStore.CountByUser(ctx, userID); err == nil && n > a.counter {
			a.counter = n
		}
	}

	s.agents[userID] = a
	return a
}

func (a *userAgent) entry(stateKey string, action domain.Action) domain.QEntry {
	if row, ok := a.table[stateKey]; ok {
		if e, ok := row[action]; ok {
			return e
		}
	}
	return domain.QEntry{Value: domain.OptimisticInitialValue}
}

// SelectAction picks among the masked valid actions: with probability
// epsilon a uniform random candidate, otherwise the highest-valued one with
// ties broken by the masker's appropriateness score.
func (s *AgentService) SelectAction(ctx context.Context, userID uuid.UUID, state domain.UserState, candidates []ScoredAction) (Choice, error) {
	if len(candidates) == 0 {
		return Choice{}, errors.New("no valid actions to select from")
	}

	a := s.get(ctx, userID)

	a.mu.RLock()
	eps := Epsilon(a.counter)
	stateKey := state.Key()

	best := candidates[0]
	bestEntry := a.entry(stateKey, best.Spec.Action)
	sum := bestEntry.Value
	for _, c := range candidates[1:] {
		e := a.entry(stateKey, c.Spec.Action)
		sum += e.Value
		if e.Value > bestEntry.Value ||
			(e.Value == bestEntry.Value && c.Score > best.Score) {
			best, bestEntry = c, e
		}
	}
	mean := sum / float64(len(candidates))
	confidence := selectionConfidence(bestEntry, mean)
	a.mu.RUnlock()

	a.rngMu.Lock()
	explore := a.rng.Float64() < eps
	var pick ScoredAction
	if explore {
		pick = candidates[a.rng.Intn(len(candidates))]
	}
	a.rngMu.Unlock()

	if explore {
		a.mu.RLock()
		value := a.entry(stateKey, pick.Spec.Action).Value
		a.mu.RUnlock()
		return Choice{Action: pick.Spec.Action, Confidence: confidence, Value: value, Explored: true}, nil
	}

	return Choice{Action: best.Spec.Action, Confidence: confidence, Value: bestEntry.Value}, nil
}

// selectionConfidence is monotonic in the best action's visit count and
// bounded to [0,1]: visits/(visits+10) + 0.25 * normalized value spread.
func selectionConfidence(best domain.QEntry, meanValue float64) float64 {
	visits := float64(best.Visits)
	conf := visits / (visits + confidenceVisitScale)

	spread := (best.Value - meanValue) / (RewardMax - RewardMin)
	if spread > 0 {
		if spread > 1 {
			spread = 1
		}
		conf += confidenceSpreadWeight * spread
	}

	if conf > 1 {
		return 1
	}
	if conf < 0 {
		return 0
	}
	return conf
}

// Update applies one reward observation:
// Q(s,a) <- Q(s,a) + alpha*(r - Q(s,a)), with alpha stepped down as the
// pair accumulates visits.
func (s *AgentService) Update(ctx context.Context, userID uuid.UUID, stateKey string, action domain.Action, reward float64) error {
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return ErrRewardNotFinite
	}
	if _, err := domain.ParseStateKey(stateKey); err != nil {
		return fmt.Errorf("update rejected: %w", err)
	}
	if !domain.ValidAction(string(action)) {
		return fmt.Errorf("update rejected: unknown action %q", action)
	}

	a := s.get(ctx, userID)

	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.table[stateKey]
	if !ok {
		row = make(map[domain.Action]domain.QEntry)
		a.table[stateKey] = row
	}
	e, ok := row[action]
	if !ok {
		e = domain.QEntry{Value: domain.OptimisticInitialValue}
	}

	alpha := alphaFor(e.Visits)
	e.Value += alpha * (reward - e.Value)
	e.Visits++
	row[action] = e
	a.dirty = true

	s.logger.Debug("q-value updated",
		zap.String("user_id", userID.String()),
		zap.String("state", stateKey),
		zap.String("action", string(action)),
		zap.Float64("reward", reward),
		zap.Float64("value", e.Value),
		zap.Int("visits", e.Visits),
	)
	return nil
}

func alphaFor(visits int) float64 {
	switch {
	case visits < fastVisitLimit:
		return alphaFast
	case visits < midVisitLimit:
		return alphaMid
	default:
		return alphaSlow
	}
}

// RecordIssued increments the user's monotonic recommendation counter and
// returns the new count.
func (s *AgentService) RecordIssued(ctx context.Context, userID uuid.UUID) int {
	a := s.get(ctx, userID)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counter++
	a.dirty = true
	return a.counter
}

// Phase returns the user's maturity phase and recommendation count.
func (s *AgentService) Phase(ctx context.Context, userID uuid.UUID) (domain.Phase, int) {
	a := s.get(ctx, userID)
	a.mu.RLock()
	defer a.mu.RUnlock()
	return domain.PhaseForCount(a.counter), a.counter
}

// Stats summarizes the user's learned state for callers.
func (s *AgentService) Stats(ctx context.Context, userID uuid.UUID) *AgentStats {
	a := s.get(ctx, userID)
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := &AgentStats{
		Phase:               domain.PhaseForCount(a.counter),
		RecommendationCount: a.counter,
		Epsilon:             Epsilon(a.counter),
		StatesSeen:          len(a.table),
	}
	for key, row := range a.table {
		for action, e := range row {
			stats.TotalVisits += e.Visits
			stats.Entries = append(stats.Entries, StateActionStat{
				StateKey: key,
				Action:   action,
				Value:    e.Value,
				Visits:   e.Visits,
			})
		}
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		if stats.Entries[i].StateKey != stats.Entries[j].StateKey {
			return stats.Entries[i].StateKey < stats.Entries[j].StateKey
		}
		return stats.Entries[i].Action < stats.Entries[j].Action
	})
	return stats
}

// snapshot deep-copies the agent state under its lock and clears the dirty
// flag, so the write can happen without holding the lock for the I/O.
func (a *userAgent) snapshot(userID uuid.UUID) *domain.ModelSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = false
	return &domain.ModelSnapshot{
		UserID:  userID,
		Counter: a.counter,
		Table:   a.table.Clone(),
	}
}

func (a *userAgent) isDirty() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dirty
}

func (a *userAgent) markDirty() {
	a.mu.Lock()
	a.dirty = true
	a.mu.Unlock()
}

// PersistUser flushes one user's model to durable storage.
func (s *AgentService) PersistUser(ctx context.Context, userID uuid.UUID) error {
	a := s.get(ctx, userID)
	snapshot := a.snapshot(userID)
	if err := s.modelStore.Save(snapshot); err != nil {
		a.markDirty() // keep it eligible for the next scheduled flush
		return err
	}
	return nil
}

// PersistAll flushes every dirty loaded agent, a few users at a time.
func (s *AgentService) PersistAll(ctx context.Context) error {
	s.mu.Lock()
	dirty := make(map[uuid.UUID]*userAgent)
	for id, a := range s.agents {
		if a.isDirty() {
			dirty[id] = a
		}
	}
	s.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(persistConcurrency)
	for id, a := range dirty {
		id, a := id, a
		g.Go(func() error {
			snapshot := a.snapshot(id)
			if err := s.modelStore.Save(snapshot); err != nil {
				a.markDirty()
				s.logger.Error("model persist failed, will retry on next interval",
					zap.String("user_id", id.String()),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
