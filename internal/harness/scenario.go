package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modset/internal/course"
)

// Scenario defines one cascade scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Course is the path to a course file or CUE directory, relative to
	// the scenario file once loaded.
	Course string `yaml:"course,omitempty"`

	// Inline is a course embedded in the scenario. Exactly one of Course
	// and Inline must be set.
	Inline *course.Course `yaml:"inline,omitempty"`

	// Window overrides the debounce window ("50ms"). Empty means the
	// registry default.
	Window string `yaml:"window,omitempty"`

	// Steps drive the tree, in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	StepStart        = "start"
	StepStorageReady = "storage_ready"
	StepSetAvailable = "set_available"
	StepSetComplete  = "set_complete"
	StepSetConfig    = "set_config"
	StepTrigger      = "trigger"
	StepPutState     = "put_state"
	StepAdvance      = "advance"
	StepSettle       = "settle"
)

// Step is one action applied to the running scenario.
type Step struct {
	Action string `yaml:"action"`

	// Node is the target of set_available, set_complete, set_config,
	// trigger and put_state.
	Node string `yaml:"node,omitempty"`

	// Value is the flag written by set_available and set_complete.
	Value *bool `yaml:"value,omitempty"`

	// Kind and Config are used by set_config.
	Kind   string         `yaml:"kind,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`

	// Event is the trigger name: refresh, modified or reset.
	Event string `yaml:"event,omitempty"`

	// Namespace and IDs are used by put_state.
	Namespace string   `yaml:"namespace,omitempty"`
	IDs       []string `yaml:"ids,omitempty"`

	// Duration is used by advance ("120ms").
	Duration string `yaml:"duration,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node scopes available, save_state, pass_count and trace_count.
	Node string `yaml:"node,omitempty"`

	// Expect is the expected child ids (available) or tracking ids
	// (save_state).
	Expect []string `yaml:"expect,omitempty"`

	// Namespace is the save_state namespace, e.g. "randomise" or
	// "randomise#reset".
	Namespace string `yaml:"namespace,omitempty"`

	// Absent asserts that save_state has no entry.
	Absent bool `yaml:"absent,omitempty"`

	// Count is the expected number for pass_count and trace_count.
	Count int `yaml:"count,omitempty"`

	// Trigger filters pass_count.
	Trigger string `yaml:"trigger,omitempty"`

	// Event is the observer event type counted by trace_count.
	Event string `yaml:"event,omitempty"`

	// Kind filters trace_count.
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertAvailable       = "available"
	AssertSaveState       = "save_state"
	AssertSuspendBalanced = "suspend_balanced"
	AssertPassCount       = "pass_count"
	AssertTraceCount      = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. A relative course
// path is resolved against the scenario file's directory. Unknown fields
// are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Course != "" && !filepath.IsAbs(scenario.Course) {
		scenario.Course = filepath.Join(filepath.Dir(path), scenario.Course)
	}
	if scenario.Course != "" {
		if _, err := os.Stat(scenario.Course); err != nil {
			return nil, fmt.Errorf("invalid scenario: course not found: %s", scenario.Course)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Course == "") == (s.Inline == nil) {
		return fmt.Errorf("exactly one of course and inline is required")
	}

	if s.Window != "" {
		if d, err := time.ParseDuration(s.Window); err != nil || d <= 0 {
			return fmt.Errorf("window must be a positive duration, got %q", s.Window)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	needNode := func() error {
		if st.Node == "" {
			return fmt.Errorf("steps[%d]: node is required for %s", index, st.Action)
		}
		return nil
	}

	switch st.Action {
	case StepStart, StepStorageReady, StepSettle:
	case StepSetAvailable, StepSetComplete:
		if err := needNode(); err != nil {
			return err
		}
		if st.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, st.Action)
		}
	case StepSetConfig:
		if err := needNode(); err != nil {
			return err
		}
		if st.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required for set_config", index)
		}
	case StepTrigger:
		if err := needNode(); err != nil {
			return err
		}
		if _, ok := triggerEvents[st.Event]; !ok {
			return fmt.Errorf("steps[%d]: unknown trigger event %q", index, st.Event)
		}
	case StepPutState:
		if err := needNode(); err != nil {
			return err
		}
		if st.Namespace == "" {
			return fmt.Errorf("steps[%d]: namespace is required for put_state", index)
		}
	case StepAdvance:
		d, err := time.ParseDuration(st.Duration)
		if err != nil || d < 0 {
			return fmt.Errorf("steps[%d]: advance needs a non-negative duration, got %q", index, st.Duration)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertAvailable:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for available", index)
		}
	case AssertSaveState:
		if a.Node == "" || a.Namespace == "" {
			return fmt.Errorf("assertions[%d]: node and namespace are required for save_state", index)
		}
		if a.Absent && len(a.Expect) > 0 {
			return fmt.Errorf("assertions[%d]: absent and expect are exclusive", index)
		}
	case AssertSuspendBalanced:
	case AssertPassCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for pass_count", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
