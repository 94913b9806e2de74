package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
)

func sheet(cells map[string]string) *engine.Snapshot {
	return &engine.Snapshot{Sheets: []engine.SheetSnapshot{{Name: "Sheet1", Cells: cells}}}
}

// TestAnalyzeCycles_DAG tests that an acyclic workbook produces no warnings.
func TestAnalyzeCycles_DAG(t *testing.T) {
	warnings, err := AnalyzeCycles(sheet(map[string]string{"A1": "1", "B1": "=A1+1", "C1": "=B1*2"}))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotNil(t, warnings)
}

func TestAnalyzeCycles_Divergent(t *testing.T) {
	warnings, err := AnalyzeCycles(sheet(map[string]string{"A1": "=B1+1", "B1": "=A1"}))
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	w := warnings[0]
	assert.Equal(t, LevelWarning, w.Level)
	require.Len(t, w.Path, 3)
	assert.Equal(t, w.Path[0], w.Path[2])
	assert.ElementsMatch(t, []string{"Sheet1!A1", "Sheet1!B1"}, w.Path[:2])
	assert.Contains(t, w.Message, "Circular reference")
}

func TestAnalyzeCycles_Converging(t *testing.T) {
	warnings, err := AnalyzeCycles(sheet(map[string]string{"A1": "=B1/2+1", "B1": "=A1"}))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelInfo, warnings[0].Level)
}

func TestAnalyzeCycles_SelfReference(t *testing.T) {
	warnings, err := AnalyzeCycles(sheet(map[string]string{"C3": "=C3+1"}))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"Sheet1!C3", "Sheet1!C3"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "references itself")
}

func TestAnalyzeCycles_Ordered(t *testing.T) {
	warnings, err := AnalyzeCycles(sheet(map[string]string{
		"D1": "=E1", "E1": "=D1+1",
		"A1": "=A1",
	}))
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Equal(t, "Sheet1!A1", warnings[0].Path[0])
}

func TestAnalyzeCycles_BadSnapshot(t *testing.T) {
	_, err := AnalyzeCycles(&engine.Snapshot{})
	require.Error(t, err)
}

func TestCellLabel_UsesSheetName(t *testing.T) {
	eng, err := engine.FromSnapshot(&engine.Snapshot{Sheets: []engine.SheetSnapshot{{Name: "Data"}}})
	require.NoError(t, err)
	id, ok := eng.SheetIDAt(0)
	require.True(t, ok)

	assert.Equal(t, "Data!B2", CellLabel(eng, ir.NewCellID(id, 1, 1)))
	assert.Equal(t, "Sheet99!A1", CellLabel(eng, ir.NewCellID(99, 0, 0)))
}
