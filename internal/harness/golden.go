package harness

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gridcalc/internal/ir"
)

// Transcript renders a scenario result as stable text for golden
// comparison:
//
//	scenario: partial_apply
//	step 1: ops=2 atomic=false applied=1 revision=1 error=simulated_error@1 "boom"
//	  revision_changed revision=1 previous=0
//	  cells_changed revision=1 cells=Sheet1!A1,Sheet1!B1
//	  batch_applied revision=1 applied=1 total=2 error=simulated_error@1
//	final: revision=1 undo_groups=1
//	  Sheet1!A1 = 5
//	  Sheet1!B1 = 10
//
// Text values are quoted so that "5" and 5 differ.
func Transcript(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for i, sr := range result.Steps {
		fmt.Fprintf(&b, "step %d: ", i+1)
		switch {
		case sr.Undo && sr.Skipped:
			b.WriteString("undo skipped\n")
			continue
		case sr.Undo:
			fmt.Fprintf(&b, "undo applied=%d revision=%d", sr.Applied, sr.Revision)
		default:
			fmt.Fprintf(&b, "ops=%d atomic=%t applied=%d revision=%d", sr.Ops, sr.Atomic, sr.Applied, sr.Revision)
		}
		if sr.Error != nil {
			fmt.Fprintf(&b, " error=%s@%d %q", sr.Error.Code, sr.Error.OpIndex, sr.Error.Message)
		}
		b.WriteByte('\n')
		for _, ev := range sr.Events {
			fmt.Fprintf(&b, "  %s\n", ev)
		}
	}
	fmt.Fprintf(&b, "final: revision=%d undo_groups=%d\n", result.Revision, result.UndoGroups)
	for _, c := range result.Cells {
		fmt.Fprintf(&b, "  %s = %s\n", c.Cell, renderValue(c.Value))
	}
	return []byte(b.String())
}

func renderValue(v ir.Value) string {
	if t, ok := v.(ir.Text); ok {
		return strconv.Quote(string(t))
	}
	return ir.ToText(v)
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. A transcript mismatch fails
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's transcript against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Transcript(scenarioName, result))
}
