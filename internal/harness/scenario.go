package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
)

// Scenario is a scripted sequence of batches with assertions on the
// resulting events and cells.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Workbook is the starting content. A single empty "Sheet1" when nil.
	Workbook *engine.Snapshot `yaml:"workbook,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the event trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one batch, or an undo of the latest committed batch.
type Step struct {
	Ops    []Op        `yaml:"ops,omitempty"`
	Atomic bool        `yaml:"atomic,omitempty"`
	Undo   bool        `yaml:"undo,omitempty"`
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect checks the ApplyResult of a step. Nil fields are not checked.
type StepExpect struct {
	Applied  *int   `yaml:"applied,omitempty"`
	Revision *int64 `yaml:"revision,omitempty"`
	// Error is the expected error code; "none" requires success.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Sheet is a display index (cell_value, cell_error).
	Sheet int `yaml:"sheet,omitempty"`

	// Cell is an A1 address (cell_value, cell_error).
	Cell string `yaml:"cell,omitempty"`

	// Value is the expected rendered value (cell_value), or the error
	// text (cell_error).
	Value string `yaml:"value,omitempty"`

	// Event is the event kind (event_count).
	Event EventKind `yaml:"event,omitempty"`

	// Events is the expected kind sequence (event_order).
	Events []EventKind `yaml:"events,omitempty"`

	// Count is the expected number (event_count, undo_groups).
	Count int `yaml:"count,omitempty"`

	// Revision is the expected final revision (revision).
	Revision int64 `yaml:"revision,omitempty"`
}

// Assertion types.
const (
	AssertCellValue  = "cell_value"
	AssertCellError  = "cell_error"
	AssertEventCount = "event_count"
	AssertEventOrder = "event_order"
	AssertRevision   = "revision"
	AssertUndoGroups = "undo_groups"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Undo && len(step.Ops) > 0 {
			return fmt.Errorf("steps[%d]: undo steps take no ops", i)
		}
		if !step.Undo && len(step.Ops) == 0 {
			return fmt.Errorf("steps[%d]: ops are required", i)
		}
		for j, op := range step.Ops {
			if err := validateOp(op); err != nil {
				return fmt.Errorf("steps[%d].ops[%d]: %w", i, j, err)
			}
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOps checks op kinds and cell addresses without applying them.
func ValidateOps(ops []Op) error {
	for i, op := range ops {
		if err := validateOp(op); err != nil {
			return fmt.Errorf("ops[%d]: %w", i, err)
		}
	}
	return nil
}

func validateOp(op Op) error {
	switch op.Kind {
	case OpSetCellValue, OpSetCellFormula, OpClearCell:
		if op.Cell != "" && !ir.LooksLikeA1(op.Cell) {
			return fmt.Errorf("cell %q is not an A1 address", op.Cell)
		}
	case OpSimulateError:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", op.Kind)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCellValue, AssertCellError:
		if !ir.LooksLikeA1(a.Cell) {
			return fmt.Errorf("assertions[%d]: cell is required for %s", index, a.Type)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertRevision, AssertUndoGroups:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
