package service

import (
	"github.com/cadencehq/cadence/internal/domain"
)

// Rule is one step of the deterministic fallback policy: a named predicate
// over the user state, the action it recommends, and a ready-made
// explanation for the user.
type Rule struct {
	Name        string
	When        func(domain.UserState) bool
	Action      domain.Action
	Explanation string
}

// DefaultRules is the fallback decision chain, evaluated in order. The last
// rule always matches.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "night_wind_down",
			When: func(s domain.UserState) bool {
				return s.TimeBlock == domain.BlockNight
			},
			Action:      domain.ActionBreak,
			Explanation: "It's late. Rest now so tomorrow starts fresh.",
		},
		{
			Name: "pressure_focus",
			When: func(s domain.UserState) bool {
				return s.Workload == domain.WorkloadHigh && s.Energy != domain.EnergyLow
			},
			Action:      domain.ActionDeepFocus,
			Explanation: "Something urgent is waiting and you have the energy for it. Clear it with a focused session.",
		},
		{
			Name: "morning_momentum",
			When: func(s domain.UserState) bool {
				return s.TimeBlock == domain.BlockMorning && s.Energy == domain.EnergyHigh
			},
			Action:      domain.ActionLightTask,
			Explanation: "You're fresh this morning. Build momentum with a quick win.",
		},
		{
			Name: "low_energy_recover",
			When: func(s domain.UserState) bool {
				return s.Energy == domain.EnergyLow
			},
			Action:      domain.ActionBreak,
			Explanation: "Your energy is low. A short break will pay for itself.",
		},
		{
			Name: "evening_reflect",
			When: func(s domain.UserState) bool {
				return s.TimeBlock == domain.BlockEvening
			},
			Action:      domain.ActionReflect,
			Explanation: "The day is winding down. Take a few minutes to review how it went.",
		},
		{
			Name: "default_light_task",
			When: func(domain.UserState) bool {
				return true
			},
			Action:      domain.ActionLightTask,
			Explanation: "Keep things moving with a light task.",
		},
	}
}

// RuleEngine walks an ordered rule list and returns the first match. It
// looks only at the user state, never at learned values.
type RuleEngine struct {
	rules []Rule
}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{rules: DefaultRules()}
}

// NewRuleEngineWith builds an engine over a custom chain, used by tests to
// exercise rules in isolation.
func NewRuleEngineWith(rules []Rule) *RuleEngine {
	return &RuleEngine{rules: rules}
}

// Decide returns the first matching rule's action and explanation.
func (e *RuleEngine) Decide(state domain.UserState) (domain.Action, string) {
	for _, r := range e.rules {
		if r.When(state) {
			return r.Action, r.Explanation
		}
	}
	// Unreachable with the default chain; kept so custom chains fail safe.
	return domain.ActionBreak, "Take a short break."
}
