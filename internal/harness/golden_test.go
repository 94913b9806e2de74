package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		scenario, err := LoadScenario(f)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestTranscript_QuotesText(t *testing.T) {
	r := NewResult()
	r.Cells = []CellResult{
		{Cell: ir.NewCellID(1, 0, 0), Value: ir.Text("5")},
		{Cell: ir.NewCellID(1, 0, 1), Value: ir.Number(5)},
		{Cell: ir.NewCellID(1, 0, 2), Value: ir.ErrNA},
	}
	got := string(Transcript("quotes", r))
	assert.Equal(t, `scenario: quotes
final: revision=0 undo_groups=0
  Sheet1!A1 = "5"
  Sheet1!B1 = 5
  Sheet1!C1 = #N/A
`, got)
}
