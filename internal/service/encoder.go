package service

import (
	"time"

	"github.com/cadencehq/cadence/internal/domain"
)

const (
	defaultMoodScore      = 5 // medium-equivalent when no mood is recorded
	freshMorningCompleted = 1 // "few tasks completed yet" means at most this many
	heavyDayCompleted     = 5
	highEnergyScore       = 8
	mediumEnergyScore     = 5
)

// EncoderInput is the raw context for one request.
type EncoderInput struct {
	Now            time.Time
	MoodScore      *int // 1..10, nil when no mood is recorded
	PendingTasks   []domain.Task
	CompletedToday int
}

// StateEncoder maps raw context into one of the 168 discrete user states.
// It has no error path: missing inputs default to neutral values.
type StateEncoder struct{}

func NewStateEncoder() *StateEncoder {
	return &StateEncoder{}
}

func (e *StateEncoder) Encode(in EncoderInput) domain.UserState {
	block := domain.TimeBlockForHour(in.Now.Hour())

	return domain.UserState{
		TimeBlock: block,
		DayOfWeek: domain.DayOfWeekFor(in.Now),
		Energy:    e.energyLevel(block, in),
		Workload:  e.workloadPressure(in.Now, in.PendingTasks),
	}
}

func (e *StateEncoder) energyLevel(block domain.TimeBlock, in EncoderInput) domain.EnergyLevel {
	score := defaultMoodScore
	if in.MoodScore != nil {
		score = *in.MoodScore
	}

	if block == domain.BlockMorning && in.CompletedToday <= freshMorningCompleted {
		score++
	}
	if in.CompletedToday >= heavyDayCompleted {
		score--
	}
	switch block {
	case domain.BlockEvening:
		score--
	case domain.BlockNight:
		score -= 2
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	switch {
	case score >= highEnergyScore:
		return domain.EnergyHigh
	case score >= mediumEnergyScore:
		return domain.EnergyMedium
	default:
		return domain.EnergyLow
	}
}

func (e *StateEncoder) workloadPressure(now time.Time, pending []domain.Task) domain.WorkloadPressure {
	deadline := now.Add(24 * time.Hour)
	for _, t := range pending {
		if t.Priority >= 4 {
			return domain.WorkloadHigh
		}
		if t.Deadline != nil && t.Deadline.Before(deadline) {
			return domain.WorkloadHigh
		}
	}
	return domain.WorkloadLow
}
