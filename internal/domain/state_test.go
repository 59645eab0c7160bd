package domain

import (
	"testing"
	"time"
)

func TestTimeBlockForHour(t *testing.T) {
	cases := []struct {
		hour int
		want TimeBlock
	}{
		{0, BlockNight},
		{5, BlockNight},
		{6, BlockMorning},
		{11, BlockMorning},
		{12, BlockAfternoon},
		{17, BlockAfternoon},
		{18, BlockEvening},
		{21, BlockEvening},
		{22, BlockNight},
		{23, BlockNight},
	}
	for _, c := range cases {
		if got := TimeBlockForHour(c.hour); got != c.want {
			t.Fatalf("hour %d: expected %s, got %s", c.hour, c.want, got)
		}
	}
}

func TestDayOfWeekFor(t *testing.T) {
	// 2026-03-02 is a Monday.
	for i, want := range []DayOfWeek{DayMon, DayTue, DayWed, DayThu, DayFri, DaySat, DaySun} {
		day := time.Date(2026, 3, 2+i, 12, 0, 0, 0, time.UTC)
		if got := DayOfWeekFor(day); got != want {
			t.Fatalf("%s: expected %s, got %s", day.Weekday(), want, got)
		}
	}
}

func TestUserState_KeyRoundTrip(t *testing.T) {
	for _, state := range AllStates() {
		parsed, err := ParseStateKey(state.Key())
		if err != nil {
			t.Fatalf("key %s: %v", state.Key(), err)
		}
		if parsed != state {
			t.Fatalf("round trip mismatch: %+v != %+v", parsed, state)
		}
	}
}

func TestParseStateKey_RejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"morning",
		"morning|mon|high",
		"morning|mon|high|high|extra",
		"dawn|mon|high|high",
		"morning|someday|high|high",
		"morning|mon|extreme|high",
		"morning|mon|high|medium",
	}
	for _, key := range bad {
		if _, err := ParseStateKey(key); err == nil {
			t.Fatalf("expected error for %q", key)
		}
	}
}

func TestAllStates_CountAndUniqueness(t *testing.T) {
	states := AllStates()
	if len(states) != 168 {
		t.Fatalf("expected 168 states, got %d", len(states))
	}
	seen := make(map[string]bool, len(states))
	for _, s := range states {
		key := s.Key()
		if seen[key] {
			t.Fatalf("duplicate state %s", key)
		}
		seen[key] = true
	}
}

func TestEnergyLevelRank(t *testing.T) {
	if EnergyLow.Rank() >= EnergyMedium.Rank() || EnergyMedium.Rank() >= EnergyHigh.Rank() {
		t.Fatal("energy ranks must be strictly increasing")
	}
}
