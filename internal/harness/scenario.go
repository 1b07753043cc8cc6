package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kitchensync/internal/model"
)

// Scenario defines a scenario test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional seed file applied before setup.
	// LoadScenario resolves it relative to the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// Setup steps establish initial state and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are the mutations under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one engine action.
type Step struct {
	// Action is an action name such as "create_order"; see Actions.
	Action string `yaml:"action"`

	// Args are the action's arguments, decoded strictly into its input type.
	Args map[string]any `yaml:"args"`

	// Expect checks the outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a flow step.
type Expect struct {
	// Error is the expected error kind; empty means success.
	// One of "validation", "not_found", "recompute".
	Error string `yaml:"error,omitempty"`

	// Result is a subset match against the JSON form of the step's result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// EntityType and Operation select envelopes (envelope_contains,
	// envelope_count) or the entity to load (final_state, type only).
	EntityType model.EntityType `yaml:"entity_type,omitempty"`
	Operation  model.Operation  `yaml:"operation,omitempty"`

	// ID is the entity id (final_state).
	ID string `yaml:"id,omitempty"`

	// Payload is a subset match on the envelope payload (envelope_contains).
	Payload any `yaml:"payload,omitempty"`

	// Count is the expected number of matching envelopes (envelope_count).
	Count int `yaml:"count,omitempty"`

	// Sequence lists "EntityType.Operation" names in expected order
	// (envelope_order).
	Sequence []string `yaml:"sequence,omitempty"`

	// Expect is a subset match on the stored entity (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEnvelopeContains = "envelope_contains"
	AssertEnvelopeOrder    = "envelope_order"
	AssertEnvelopeCount    = "envelope_count"
	AssertFinalState       = "final_state"
)

// Expected error kinds.
const (
	ErrorValidation = "validation"
	ErrorNotFound   = "not_found"
	ErrorRecompute  = "recompute"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
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
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); err != nil {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil {
			switch step.Expect.Error {
			case "", ErrorValidation, ErrorNotFound, ErrorRecompute:
			default:
				return fmt.Errorf("flow[%d].expect: unknown error kind %q", i, step.Expect.Error)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Action == "" {
		return fmt.Errorf("action is required")
	}
	if _, ok := actions[step.Action]; !ok {
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEnvelopeContains, AssertEnvelopeCount:
		if !a.EntityType.Valid() {
			return fmt.Errorf("assertions[%d]: valid entity_type is required for %s", index, a.Type)
		}
		if a.Operation != "" && !a.Operation.Valid() {
			return fmt.Errorf("assertions[%d]: unknown operation %q", index, a.Operation)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEnvelopeOrder:
		if len(a.Sequence) == 0 {
			return fmt.Errorf("assertions[%d]: sequence is required for envelope_order", index)
		}
	case AssertFinalState:
		if !a.EntityType.Valid() {
			return fmt.Errorf("assertions[%d]: valid entity_type is required for final_state", index)
		}
		if a.ID == "" && a.EntityType != model.EntitySettings {
			return fmt.Errorf("assertions[%d]: id is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
