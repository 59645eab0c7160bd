package domain

import (
	"fmt"
	"strings"
	"time"
)

type TimeBlock string

const (
	BlockMorning   TimeBlock = "morning"
	BlockAfternoon TimeBlock = "afternoon"
	BlockEvening   TimeBlock = "evening"
	BlockNight     TimeBlock = "night"
)

func ValidTimeBlock(b string) bool {
	switch TimeBlock(b) {
	case BlockMorning, BlockAfternoon, BlockEvening, BlockNight:
		return true
	}
	return false
}

// TimeBlockForHour maps an hour of day onto a block:
// 06-12 morning, 12-18 afternoon, 18-22 evening, 22-06 night.
func TimeBlockForHour(hour int) TimeBlock {
	switch {
	case hour >= 6 && hour < 12:
		return BlockMorning
	case hour >= 12 && hour < 18:
		return BlockAfternoon
	case hour >= 18 && hour < 22:
		return BlockEvening
	default:
		return BlockNight
	}
}

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

func ValidEnergyLevel(e string) bool {
	switch EnergyLevel(e) {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

// Rank orders energy tiers for comparisons against an action's minimum tier.
func (e EnergyLevel) Rank() int {
	switch e {
	case EnergyHigh:
		return 3
	case EnergyMedium:
		return 2
	default:
		return 1
	}
}

type WorkloadPressure string

const (
	WorkloadLow  WorkloadPressure = "low"
	WorkloadHigh WorkloadPressure = "high"
)

func ValidWorkloadPressure(w string) bool {
	switch WorkloadPressure(w) {
	case WorkloadLow, WorkloadHigh:
		return true
	}
	return false
}

type DayOfWeek string

const (
	DayMon DayOfWeek = "mon"
	DayTue DayOfWeek = "tue"
	DayWed DayOfWeek = "wed"
	DayThu DayOfWeek = "thu"
	DayFri DayOfWeek = "fri"
	DaySat DayOfWeek = "sat"
	DaySun DayOfWeek = "sun"
)

var daysOfWeek = []DayOfWeek{DayMon, DayTue, DayWed, DayThu, DayFri, DaySat, DaySun}

func ValidDayOfWeek(d string) bool {
	for _, day := range daysOfWeek {
		if DayOfWeek(d) == day {
			return true
		}
	}
	return false
}

func DayOfWeekFor(t time.Time) DayOfWeek {
	return DayOfWeek(strings.ToLower(t.Weekday().String()[:3]))
}

// UserState is the discretized context snapshot used to index learned values.
// There are exactly 4*7*3*2 = 168 valid combinations.
type UserState struct {
	TimeBlock TimeBlock        `json:"time_block"`
	DayOfWeek DayOfWeek        `json:"day_of_week"`
	Energy    EnergyLevel      `json:"energy_level"`
	Workload  WorkloadPressure `json:"workload_pressure"`
}

const stateKeySep = "|"

// Key serializes the state as a stable composite key. Field order is fixed.
func (s UserState) Key() string {
	return strings.Join([]string{
		string(s.TimeBlock),
		string(s.DayOfWeek),
		string(s.Energy),
		string(s.Workload),
	}, stateKeySep)
}

// ParseStateKey decomposes a composite key back into a UserState.
// Partial or unknown states are rejected.
func ParseStateKey(key string) (UserState, error) {
	parts := strings.Split(key, stateKeySep)
	if len(parts) != 4 {
		return UserState{}, fmt.Errorf("state key %q: expected 4 fields, got %d", key, len(parts))
	}
	if !ValidTimeBlock(parts[0]) {
		return UserState{}, fmt.Errorf("state key %q: invalid time block %q", key, parts[0])
	}
	if !ValidDayOfWeek(parts[1]) {
		return UserState{}, fmt.Errorf("state key %q: invalid day of week %q", key, parts[1])
	}
	if !ValidEnergyLevel(parts[2]) {
		return UserState{}, fmt.Errorf("state key %q: invalid energy level %q", key, parts[2])
	}
	if !ValidWorkloadPressure(parts[3]) {
		return UserState{}, fmt.Errorf("state key %q: invalid workload pressure %q", key, parts[3])
	}
	return UserState{
		TimeBlock: TimeBlock(parts[0]),
		DayOfWeek: DayOfWeek(parts[1]),
		Energy:    EnergyLevel(parts[2]),
		Workload:  WorkloadPressure(parts[3]),
	}, nil
}

// AllStates enumerates every valid UserState combination.
func AllStates() []UserState {
	blocks := []TimeBlock{BlockMorning, BlockAfternoon, BlockEvening, BlockNight}
	energies := []EnergyLevel{EnergyLow, EnergyMedium, EnergyHigh}
	workloads := []WorkloadPressure{WorkloadLow, WorkloadHigh}

	states := make([]UserState, 0, len(blocks)*len(daysOfWeek)*len(energies)*len(workloads))
	for _, b := range blocks {
		for _, d := range daysOfWeek {
			for _, e := range energies {
				for _, w := range workloads {
					states = append(states, UserState{TimeBlock: b, DayOfWeek: d, Energy: e, Workload: w})
				}
			}
		}
	}
	return states
}
