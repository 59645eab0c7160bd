package domain

import (
	"time"

	"github.com/google/uuid"
)

type Strategy string

const (
	StrategyRule Strategy = "rule"
	StrategyRL   Strategy = "rl"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeIgnored   Outcome = "ignored"
)

func ValidOutcome(o string) bool {
	switch Outcome(o) {
	case OutcomeCompleted, OutcomePartial, OutcomeSkipped, OutcomeIgnored:
		return true
	}
	return false
}

type OutcomeSource string

const (
	OutcomeSourceExplicit OutcomeSource = "explicit"
	OutcomeSourceInferred OutcomeSource = "inferred"
)

// Recommendation is the record of one issued recommendation. It is created
// before the response is returned and closed exactly once when an outcome
// (explicit or inferred) arrives.
type Recommendation struct {
	ID               uuid.UUID     `json:"id"`
	UserID           uuid.UUID     `json:"user_id"`
	State            UserState     `json:"state"`
	StateKey         string        `json:"state_key"`
	Action           Action        `json:"action"`
	Strategy         Strategy      `json:"strategy"`
	Confidence       float64       `json:"confidence"`
	TaskID           *uuid.UUID    `json:"task_id,omitempty"`
	Phase            Phase         `json:"phase"`
	SequenceNum      int           `json:"sequence_num"` // counter value at issuance
	MoodAtIssue      *int          `json:"mood_at_issue,omitempty"`
	SuggestedMinutes int           `json:"suggested_minutes"`
	CreatedAt        time.Time     `json:"created_at"`
	Outcome          *Outcome      `json:"outcome,omitempty"`
	Rating           *int          `json:"rating,omitempty"`
	OutcomeSource    OutcomeSource `json:"outcome_source,omitempty"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
}

// Closed reports whether an outcome has been attached. Closed records are
// terminal.
func (r Recommendation) Closed() bool {
	return r.Outcome != nil
}
