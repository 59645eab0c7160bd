package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Action string

const (
	ActionDeepFocus Action = "deep_focus"
	ActionLightTask Action = "light_task"
	ActionBreak     Action = "break"
	ActionExercise  Action = "exercise"
	ActionReflect   Action = "reflect"
)

func ValidAction(a string) bool {
	switch Action(a) {
	case ActionDeepFocus, ActionLightTask, ActionBreak, ActionExercise, ActionReflect:
		return true
	}
	return false
}

type CognitiveLoad string

const (
	LoadLow    CognitiveLoad = "low"
	LoadMedium CognitiveLoad = "medium"
	LoadHigh   CognitiveLoad = "high"
)

func (l CognitiveLoad) Rank() int {
	switch l {
	case LoadHigh:
		return 3
	case LoadMedium:
		return 2
	default:
		return 1
	}
}

// ActionSpec holds the static attributes of one recommendable action.
type ActionSpec struct {
	Action           Action        `yaml:"action" json:"action"`
	DisplayName      string        `yaml:"display_name" json:"display_name"`
	CognitiveLoad    CognitiveLoad `yaml:"cognitive_load" json:"cognitive_load"`
	SuggestedMinutes int           `yaml:"suggested_minutes" json:"suggested_minutes"`
	AllowedBlocks    []TimeBlock   `yaml:"allowed_blocks" json:"allowed_blocks"`
	MinEnergy        EnergyLevel   `yaml:"min_energy" json:"min_energy"`
	ConsumesTask     bool          `yaml:"consumes_task" json:"consumes_task"`
}

// AllowsBlock reports whether the action fits the given time block.
func (s ActionSpec) AllowsBlock(b TimeBlock) bool {
	for _, allowed := range s.AllowedBlocks {
		if allowed == b {
			return true
		}
	}
	return false
}

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the static registry of the five action types.
type Catalog struct {
	specs map[Action]ActionSpec
	order []Action
}

type catalogFile struct {
	Actions []ActionSpec `yaml:"actions"`
}

// LoadCatalog parses the embedded action catalog. It fails on unknown
// actions, duplicates, or a registry that does not cover all five types.
func LoadCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("parse action catalog: %w", err)
	}

	c := &Catalog{specs: make(map[Action]ActionSpec, len(file.Actions))}
	for _, spec := range file.Actions {
		if !ValidAction(string(spec.Action)) {
			return nil, fmt.Errorf("action catalog: unknown action %q", spec.Action)
		}
		if _, exists := c.specs[spec.Action]; exists {
			return nil, fmt.Errorf("action catalog: duplicate action %q", spec.Action)
		}
		if spec.SuggestedMinutes <= 0 {
			return nil, fmt.Errorf("action catalog: %s has no suggested duration", spec.Action)
		}
		for _, b := range spec.AllowedBlocks {
			if !ValidTimeBlock(string(b)) {
				return nil, fmt.Errorf("action catalog: %s allows unknown block %q", spec.Action, b)
			}
		}
		c.specs[spec.Action] = spec
		c.order = append(c.order, spec.Action)
	}

	for _, required := range []Action{ActionDeepFocus, ActionLightTask, ActionBreak, ActionExercise, ActionReflect} {
		if _, ok := c.specs[required]; !ok {
			return nil, fmt.Errorf("action catalog: missing action %q", required)
		}
	}
	return c, nil
}

// MustLoadCatalog is for wiring paths where a broken embedded catalog is
// a programming error.
func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Get(a Action) (ActionSpec, bool) {
	spec, ok := c.specs[a]
	return spec, ok
}

// Actions returns all actions in catalog order.
func (c *Catalog) Actions() []Action {
	out := make([]Action, len(c.order))
	copy(out, c.order)
	return out
}

// Specs returns all action specs in catalog order.
func (c *Catalog) Specs() []ActionSpec {
	out := make([]ActionSpec, 0, len(c.order))
	for _, a := range c.order {
		out = append(out, c.specs[a])
	}
	return out
}
