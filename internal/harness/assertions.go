package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Trace    []Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event)
		}
	}
	return buf.String()
}

// AssertionContext gives assertions access to the final workbook.
type AssertionContext struct {
	Engine  *engine.Engine
	Session *Session
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCellValue, AssertCellError:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: %s requires an engine", i, assertion.Type)
			} else if assertion.Type == AssertCellValue {
				err = assertCellValue(actx.Engine, assertion)
			} else {
				err = assertCellError(actx.Engine, assertion)
			}
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, assertion)
		case AssertRevision:
			if result.Revision != assertion.Revision {
				err = &AssertionError{
					Type:     AssertRevision,
					Expected: fmt.Sprintf("revision %d", assertion.Revision),
					Actual:   fmt.Sprintf("revision %d", result.Revision),
					Trace:    result.Trace,
				}
			}
		case AssertUndoGroups:
			if result.UndoGroups != assertion.Count {
				err = &AssertionError{
					Type:     AssertUndoGroups,
					Expected: fmt.Sprintf("%d undo groups", assertion.Count),
					Actual:   fmt.Sprintf("%d undo groups", result.UndoGroups),
				}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func resolveCell(e *engine.Engine, sheetIndex int, addr string) (ir.CellID, error) {
	sheet, ok := e.SheetIDAt(sheetIndex)
	if !ok {
		return ir.CellID{}, fmt.Errorf("sheet index %d not found", sheetIndex)
	}
	a, err := ir.ParseA1(addr)
	if err != nil {
		return ir.CellID{}, err
	}
	return ir.NewCellID(sheet, a.Row, a.Col), nil
}

// assertCellValue compares the rendered value of a cell: numbers in
// shortest form, TRUE/FALSE, text as is, errors by their code.
func assertCellValue(e *engine.Engine, assertion Assertion) error {
	id, err := resolveCell(e, assertion.Sheet, assertion.Cell)
	if err != nil {
		return fmt.Errorf("cell_value %s: %w", assertion.Cell, err)
	}
	got := ir.ToText(e.Value(id))
	if got != assertion.Value {
		return &AssertionError{
			Type:     AssertCellValue,
			Expected: fmt.Sprintf("%s = %q", id, assertion.Value),
			Actual:   fmt.Sprintf("%s = %q", id, got),
		}
	}
	return nil
}

// assertCellError requires an error value, and the given code when Value
// is set.
func assertCellError(e *engine.Engine, assertion Assertion) error {
	id, err := resolveCell(e, assertion.Sheet, assertion.Cell)
	if err != nil {
		return fmt.Errorf("cell_error %s: %w", assertion.Cell, err)
	}
	v := e.Value(id)
	ev, ok := v.(ir.Error)
	if !ok || (assertion.Value != "" && ev.Msg != assertion.Value) {
		want := "an error"
		if assertion.Value != "" {
			want = assertion.Value
		}
		return &AssertionError{
			Type:     AssertCellError,
			Expected: fmt.Sprintf("%s holds %s", id, want),
			Actual:   fmt.Sprintf("%s = %q (%s)", id, ir.ToText(v), v.Kind()),
		}
	}
	return nil
}

func assertEventCount(trace []Event, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == assertion.Event {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks that the kinds appear in the trace in the given
// order. Other events may appear in between.
func assertEventOrder(trace []Event, assertion Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(assertion.Events) && ev.Kind == assertion.Events[next] {
			next++
		}
	}
	if next < len(assertion.Events) {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("events in order: %v", assertion.Events),
			Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(assertion.Events), assertion.Events[next]),
			Trace:    trace,
		}
	}
	return nil
}
