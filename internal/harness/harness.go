package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/testutil"
)

// Result is the outcome of running a scenario.
type Result struct {
	Pass   bool
	Errors []string

	// Trace is every event emitted, in order.
	Trace []Event

	Steps []StepResult

	// Final workbook state.
	Revision   int64
	UndoGroups int
	Cells      []CellResult
}

// StepResult pairs a step's ApplyResult with the events it emitted.
type StepResult struct {
	Undo   bool
	Ops    int
	Atomic bool
	ApplyResult
	// Skipped is set for an undo step with nothing to undo.
	Skipped bool
	Events  []Event
}

// CellResult is one non-empty cell of the final workbook.
type CellResult struct {
	Cell  ir.CellID
	Raw   string
	Value ir.Value
}

// NewResult returns a passing Result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failure.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Run executes a scenario on a fresh engine and evaluates its assertions.
//
// The engine reads a DeterministicClock, RAND returns 0.5, and batch ids
// come from a SequenceGenerator, so two runs of the same scenario
// produce identical results.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithRandom(func() float64 { return 0.5 }),
	}

	var eng *engine.Engine
	if scenario.Workbook != nil {
		var err error
		eng, err = engine.FromSnapshot(scenario.Workbook, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load workbook: %w", err)
		}
	} else {
		eng = engine.New(opts...)
	}

	sess := NewSession(eng,
		WithIDGenerator(&SequenceGenerator{Prefix: "batch"}),
		WithLogger(logger))

	result := NewResult()
	for i, step := range scenario.Steps {
		before := len(sess.Events())
		sr := StepResult{Undo: step.Undo, Ops: len(step.Ops), Atomic: step.Atomic}
		if step.Undo {
			res, ok := sess.Undo()
			sr.ApplyResult = res
			sr.Skipped = !ok
		} else {
			sr.ApplyResult = sess.ApplyOps(step.Ops, step.Atomic)
		}
		sr.Events = sess.Events()[before:]
		result.Steps = append(result.Steps, sr)

		for _, msg := range checkExpect(i, step.Expect, sr) {
			result.AddError(msg)
		}
		logger.Info("step completed", "step", i, "applied", sr.Applied, "revision", sr.Revision)
	}

	result.Trace = sess.Events()
	result.Revision = eng.Revision()
	result.UndoGroups = sess.UndoGroupCount()
	for _, sh := range eng.Sheets() {
		for _, id := range eng.Cells(sh.ID) {
			result.Cells = append(result.Cells, CellResult{Cell: id, Raw: eng.Raw(id), Value: eng.Value(id)})
		}
	}

	actx := &AssertionContext{Engine: eng, Session: sess}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func checkExpect(index int, want *StepExpect, got StepResult) []string {
	if want == nil {
		return nil
	}
	var errs []string
	if want.Applied != nil && *want.Applied != got.Applied {
		errs = append(errs, fmt.Sprintf("step %d: expected applied=%d, got %d", index, *want.Applied, got.Applied))
	}
	if want.Revision != nil && *want.Revision != got.Revision {
		errs = append(errs, fmt.Sprintf("step %d: expected revision=%d, got %d", index, *want.Revision, got.Revision))
	}
	switch {
	case want.Error == "":
	case want.Error == "none":
		if got.Error != nil {
			errs = append(errs, fmt.Sprintf("step %d: expected no error, got %s", index, got.Error.Code))
		}
	case got.Error == nil:
		errs = append(errs, fmt.Sprintf("step %d: expected error %s, got none", index, want.Error))
	case got.Error.Code != want.Error:
		errs = append(errs, fmt.Sprintf("step %d: expected error %s, got %s", index, want.Error, got.Error.Code))
	}
	return errs
}
