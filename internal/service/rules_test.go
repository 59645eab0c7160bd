package service

import (
	"testing"

	"github.com/cadencehq/cadence/internal/domain"
)

func TestRuleEngine_NightWindDown(t *testing.T) {
	engine := NewRuleEngine()

	// Night beats even high workload pressure.
	action, _ := engine.Decide(domain.UserState{
		TimeBlock: domain.BlockNight,
		DayOfWeek: domain.DayMon,
		Energy:    domain.EnergyHigh,
		Workload:  domain.WorkloadHigh,
	})
	if action != domain.ActionBreak {
		t.Fatalf("expected BREAK at night, got %s", action)
	}
}

func TestRuleEngine_PressureFocus(t *testing.T) {
	engine := NewRuleEngine()

	action, _ := engine.Decide(domain.UserState{
		TimeBlock: domain.BlockAfternoon,
		DayOfWeek: domain.DayTue,
		Energy:    domain.EnergyMedium,
		Workload:  domain.WorkloadHigh,
	})
	if action != domain.ActionDeepFocus {
		t.Fatalf("expected DEEP_FOCUS under pressure, got %s", action)
	}

	// Low energy blocks the pressure rule; recovery wins instead.
	action, _ = engine.Decide(domain.UserState{
		TimeBlock: domain.BlockAfternoon,
		DayOfWeek: domain.DayTue,
		Energy:    domain.EnergyLow,
		Workload:  domain.WorkloadHigh,
	})
	if action != domain.ActionBreak {
		t.Fatalf("expected BREAK at low energy despite pressure, got %s", action)
	}
}

func TestRuleEngine_MorningMomentum(t *testing.T) {
	engine := NewRuleEngine()

	action, _ := engine.Decide(domain.UserState{
		TimeBlock: domain.BlockMorning,
		DayOfWeek: domain.DayWed,
		Energy:    domain.EnergyHigh,
		Workload:  domain.WorkloadLow,
	})
	if action != domain.ActionLightTask {
		t.Fatalf("expected LIGHT_TASK on a fresh morning, got %s", action)
	}
}

func TestRuleEngine_EveningReflect(t *testing.T) {
	engine := NewRuleEngine()

	action, _ := engine.Decide(domain.UserState{
		TimeBlock: domain.BlockEvening,
		DayOfWeek: domain.DayThu,
		Energy:    domain.EnergyMedium,
		Workload:  domain.WorkloadLow,
	})
	if action != domain.ActionReflect {
		t.Fatalf("expected REFLECT in the evening, got %s", action)
	}
}

func TestRuleEngine_DefaultLightTask(t *testing.T) {
	engine := NewRuleEngine()

	// Afternoon, medium energy, low workload falls through to the default.
	action, _ := engine.Decide(domain.UserState{
		TimeBlock: domain.BlockAfternoon,
		DayOfWeek: domain.DayFri,
		Energy:    domain.EnergyMedium,
		Workload:  domain.WorkloadLow,
	})
	if action != domain.ActionLightTask {
		t.Fatalf("expected default LIGHT_TASK, got %s", action)
	}
}

func TestRuleEngine_EveryStateGetsAnAnswer(t *testing.T) {
	engine := NewRuleEngine()

	for _, state := range domain.AllStates() {
		action, explanation := engine.Decide(state)
		if !domain.ValidAction(string(action)) {
			t.Fatalf("state %s: invalid action %q", state.Key(), action)
		}
		if explanation == "" {
			t.Fatalf("state %s: empty explanation", state.Key())
		}
	}
}

func TestRuleEngine_OrderMatters(t *testing.T) {
	// With a custom chain, the first matching rule wins even when a later
	// rule also matches.
	engine := NewRuleEngineWith([]Rule{
		{
			Name:        "first",
			When:        func(domain.UserState) bool { return true },
			Action:      domain.ActionReflect,
			Explanation: "first",
		},
		{
			Name:        "second",
			When:        func(domain.UserState) bool { return true },
			Action:      domain.ActionBreak,
			Explanation: "second",
		},
	})

	action, explanation := engine.Decide(domain.UserState{})
	if action != domain.ActionReflect || explanation != "first" {
		t.Fatalf("expected first rule to win, got %s (%s)", action, explanation)
	}
}
