package service

import (
	"sort"

	"github.com/cadencehq/cadence/internal/domain"
)

// Appropriateness scoring terms.
const (
	maskBaseScore               = 1.0
	maskBlockFitBonus           = 1.0
	maskEnergyFitBonus          = 0.5
	maskWorkloadFitBonus        = 0.5
	maskLoadMismatchPenalty     = 1.5
	maskIdleCapacityPenalty     = 0.3
	maskLowPriorityFocusPenalty = 0.5
)

// ScoredAction is a catalog entry that survived masking, with a soft
// appropriateness score used for ranking and tie-breaks.
type ScoredAction struct {
	Spec  domain.ActionSpec
	Score float64
}

// ActionMasker filters the catalog against a user state and live task
// availability. Exclusion rules are evaluated independently and combined by
// intersection; BREAK is never excluded, so the valid set is never empty.
type ActionMasker struct {
	catalog *domain.Catalog
}

func NewActionMasker(catalog *domain.Catalog) *ActionMasker {
	return &ActionMasker{catalog: catalog}
}

// Mask returns the valid actions for the state, highest scored first.
func (m *ActionMasker) Mask(state domain.UserState, pending []domain.Task) []ScoredAction {
	hasPending := len(pending) > 0
	hasHighPriority := false
	for _, t := range pending {
		if t.Priority >= 4 {
			hasHighPriority = true
			break
		}
	}

	var out []ScoredAction
	for _, spec := range m.catalog.Specs() {
		if m.excluded(spec.Action, state, hasPending) {
			continue
		}
		out = append(out, ScoredAction{
			Spec:  spec,
			Score: m.score(spec, state, hasHighPriority),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (m *ActionMasker) excluded(a domain.Action, state domain.UserState, hasPending bool) bool {
	if a == domain.ActionBreak {
		return false
	}
	if state.TimeBlock == domain.BlockNight {
		return true
	}
	if state.Energy == domain.EnergyLow && a == domain.ActionDeepFocus {
		return true
	}
	if a == domain.ActionExercise &&
		state.TimeBlock != domain.BlockMorning && state.TimeBlock != domain.BlockEvening {
		return true
	}
	if !hasPending && (a == domain.ActionDeepFocus || a == domain.ActionLightTask) {
		return true
	}
	return false
}

func (m *ActionMasker) score(spec domain.ActionSpec, state domain.UserState, hasHighPriority bool) float64 {
	score := maskBaseScore

	if spec.AllowsBlock(state.TimeBlock) {
		score += maskBlockFitBonus
	}
	if state.Energy.Rank() >= spec.MinEnergy.Rank() {
		score += maskEnergyFitBonus
	}
	if m.workloadFits(spec, state.Workload) {
		score += maskWorkloadFitBonus
	}
	if spec.CognitiveLoad.Rank() > state.Energy.Rank() {
		score -= maskLoadMismatchPenalty
	}
	if state.Energy == domain.EnergyHigh && spec.CognitiveLoad == domain.LoadLow {
		score -= maskIdleCapacityPenalty
	}
	if spec.Action == domain.ActionDeepFocus && !hasHighPriority {
		score -= maskLowPriorityFocusPenalty
	}
	return score
}

// workloadFits: heavy workload favors task-consuming actions, light workload
// favors restorative ones.
func (m *ActionMasker) workloadFits(spec domain.ActionSpec, w domain.WorkloadPressure) bool {
	if w == domain.WorkloadHigh {
		return spec.ConsumesTask
	}
	return !spec.ConsumesTask
}
