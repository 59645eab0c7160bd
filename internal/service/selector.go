package service

import (
	"sort"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
)

const (
	maxAlternatives = 2

	deepFocusMinPriority = 3
	deepFocusMaxMinutes  = 120
	lightTaskMaxPriority = 3
	lightTaskMaxMinutes  = 45

	durationFitLow  = 0.5
	durationFitHigh = 1.5

	agePerDayBonus = 0.1
	ageBonusCap    = 1.0
)

// Selection is the concrete task picked for an action, plus runners-up.
type Selection struct {
	Task         *domain.Task
	Alternatives []domain.Task
}

// TaskSelector maps a chosen action onto a concrete pending task. Actions
// that consume no task, and action/task sets with no qualifying match,
// yield an empty selection rather than an error.
type TaskSelector struct{}

func NewTaskSelector() *TaskSelector {
	return &TaskSelector{}
}

func (s *TaskSelector) Select(spec domain.ActionSpec, pending []domain.Task, now time.Time) Selection {
	if !spec.ConsumesTask {
		return Selection{}
	}

	type scored struct {
		task  domain.Task
		score float64
	}
	var qualified []scored
	for _, t := range pending {
		if !s.qualifies(spec.Action, t) {
			continue
		}
		qualified = append(qualified, scored{task: t, score: s.score(spec, t, now)})
	}
	if len(qualified) == 0 {
		return Selection{}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].score > qualified[j].score
	})

	sel := Selection{Task: &qualified[0].task}
	for _, q := range qualified[1:] {
		if len(sel.Alternatives) == maxAlternatives {
			break
		}
		sel.Alternatives = append(sel.Alternatives, q.task)
	}
	return sel
}

func (s *TaskSelector) qualifies(action domain.Action, t domain.Task) bool {
	switch action {
	case domain.ActionDeepFocus:
		return t.Priority >= deepFocusMinPriority && t.EstimatedMinutes <= deepFocusMaxMinutes
	case domain.ActionLightTask:
		return t.Priority <= lightTaskMaxPriority && t.EstimatedMinutes <= lightTaskMaxMinutes
	default:
		return false
	}
}

func (s *TaskSelector) score(spec domain.ActionSpec, t domain.Task, now time.Time) float64 {
	score := s.deadlineScore(t, now)

	score += float64(t.Priority)

	if spec.SuggestedMinutes > 0 {
		ratio := float64(t.EstimatedMinutes) / float64(spec.SuggestedMinutes)
		if ratio >= durationFitLow && ratio <= durationFitHigh {
			score += 1
		}
	}

	// Small age bonus so old tasks don't starve behind a stream of new ones.
	ageDays := now.Sub(t.CreatedAt).Hours() / 24
	ageBonus := ageDays * agePerDayBonus
	if ageBonus > ageBonusCap {
		ageBonus = ageBonusCap
	}
	if ageBonus > 0 {
		score += ageBonus
	}

	return score
}

func (s *TaskSelector) deadlineScore(t domain.Task, now time.Time) float64 {
	if t.Deadline == nil {
		return 0
	}
	d := *t.Deadline
	switch {
	case d.Before(now):
		return 5 // overdue
	case d.Sub(now) < 4*time.Hour:
		return 4
	case sameDay(d, now):
		return 3
	case d.Sub(now) < 72*time.Hour:
		return 2
	default:
		return 1
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
