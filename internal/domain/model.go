package domain

import (
	"time"

	"github.com/google/uuid"
)

// OptimisticInitialValue seeds unseen state-action pairs above the expected
// reward so early selection keeps exploring.
const OptimisticInitialValue = 0.5

// QEntry is one learned state-action value.
type QEntry struct {
	Value  float64 `json:"value"`
	Visits int     `json:"visits"`
}

// QTable maps composite state keys to per-action entries.
type QTable map[string]map[Action]QEntry

// Clone deep-copies the table so a snapshot can be written outside any lock.
func (t QTable) Clone() QTable {
	out := make(QTable, len(t))
	for key, actions := range t {
		row := make(map[Action]QEntry, len(actions))
		for a, e := range actions {
			row[a] = e
		}
		out[key] = row
	}
	return out
}

// ModelSnapshot is the durable per-user learned state: the Q-table plus the
// monotonic recommendation counter that drives the phase.
type ModelSnapshot struct {
	UserID  uuid.UUID `json:"user_id"`
	Counter int       `json:"recommendation_count"`
	Table   QTable    `json:"q_table"`
	SavedAt time.Time `json:"saved_at"`
}

type Phase string

const (
	PhaseBootstrap  Phase = "bootstrap"
	PhaseTransition Phase = "transition"
	PhaseLearned    Phase = "learned"
)

const (
	// TransitionThreshold is the recommendation count at which the learned
	// policy is first consulted.
	TransitionThreshold = 20
	// LearnedThreshold is the count at which the learned policy is preferred.
	LearnedThreshold = 60
)

// PhaseForCount derives the maturity phase from a recommendation counter.
func PhaseForCount(n int) Phase {
	switch {
	case n < TransitionThreshold:
		return PhaseBootstrap
	case n < LearnedThreshold:
		return PhaseTransition
	default:
		return PhaseLearned
	}
}

// ConfidenceThreshold is the minimum agent confidence required for the
// learned policy's choice to be used in the given phase.
func (p Phase) ConfidenceThreshold() float64 {
	switch p {
	case PhaseTransition:
		return 0.5
	case PhaseLearned:
		return 0.7
	default:
		return 1.01 // bootstrap never trusts the agent
	}
}
