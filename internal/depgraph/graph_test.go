package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/testutil"
)

func c(a1 string) ir.CellID { return testutil.Cell(1, a1) }

func cs(a1s ...string) []ir.CellID { return testutil.Cells(1, a1s...) }

// build wires formula -> precedents from a compact description.
func build(edges map[string][]string) *Graph {
	g := New()
	for cell, preds := range edges {
		g.ReplaceEdges(c(cell), cs(preds...))
	}
	return g
}

func TestReplaceEdges_Symmetric(t *testing.T) {
	g := New()
	g.ReplaceEdges(c("C1"), cs("A1", "B1"))

	assert.Equal(t, cs("A1", "B1"), g.Precedents(c("C1")))
	assert.Equal(t, cs("C1"), g.Dependents(c("A1")))
	assert.Equal(t, cs("C1"), g.Dependents(c("B1")))
	assert.Equal(t, 2, g.PrecedentCount(c("C1")))
	assert.Equal(t, 1, g.DependentCount(c("A1")))
	assert.NoError(t, g.Validate())
}

func TestReplaceEdges_ReplacesWholesale(t *testing.T) {
	g := New()
	g.ReplaceEdges(c("C1"), cs("A1", "B1"))
	g.ReplaceEdges(c("C1"), cs("B1", "D1"))

	assert.Equal(t, cs("B1", "D1"), g.Precedents(c("C1")))
	assert.Empty(t, g.Dependents(c("A1")), "stale edge must be gone from the reverse index")
	assert.Equal(t, 2, g.EdgeCount())
	assert.NoError(t, g.Validate())
}

func TestReplaceEdges_NoReferences(t *testing.T) {
	g := New()
	g.ReplaceEdges(c("A1"), nil)

	assert.True(t, g.IsFormula(c("A1")))
	assert.Empty(t, g.Precedents(c("A1")))
	assert.Equal(t, 1, g.FormulaCount())
}

func TestReplaceEdges_SelfLoop(t *testing.T) {
	g := New()
	g.ReplaceEdges(c("A1"), cs("A1"))

	assert.True(t, g.HasSelfLoop(c("A1")))
	assert.Equal(t, cs("A1"), g.Dependents(c("A1")))
	assert.NoError(t, g.Validate())
}

func TestClearCell_KeepsIncomingEdges(t *testing.T) {
	g := build(map[string][]string{"B1": {"A1"}, "C1": {"B1"}})
	g.ClearCell(c("B1"))

	assert.False(t, g.IsFormula(c("B1")))
	assert.Empty(t, g.Precedents(c("B1")))
	assert.Empty(t, g.Dependents(c("A1")))
	assert.Equal(t, cs("C1"), g.Dependents(c("B1")), "C1 still reads B1")
	assert.NoError(t, g.Validate())
}

func TestTransitiveDependents(t *testing.T) {
	g := build(map[string][]string{
		"B1": {"A1"},
		"C1": {"B1"},
		"D1": {"C1", "A1"},
		"E1": {"Z9"},
	})

	got := ir.SortedCellIDs(g.TransitiveDependents(cs("A1")))
	assert.Equal(t, cs("B1", "C1", "D1"), got)
	assert.Empty(t, g.TransitiveDependents(cs("E1")))
}

func TestRemoveSheet(t *testing.T) {
	g := New()
	other := testutil.Cell(2, "A1")
	g.ReplaceEdges(c("B1"), []ir.CellID{other})
	g.ReplaceEdges(testutil.Cell(2, "B1"), []ir.CellID{other})
	g.ReplaceEdges(c("C1"), cs("A1"))

	affected := g.RemoveSheet(2)
	assert.Equal(t, cs("B1"), affected)
	assert.False(t, g.IsFormula(testutil.Cell(2, "B1")))
	assert.True(t, g.IsFormula(c("B1")), "cross-sheet readers stay until rebound")
	assert.NoError(t, g.Validate())
}

func TestApplyMapping_InsertRow(t *testing.T) {
	g := build(map[string][]string{"A3": {"A1", "A2"}})

	// Insert one row above row 2: rows >= 1 (zero-based) shift down.
	g.ApplyMapping(func(id ir.CellID) (ir.CellID, bool) {
		if id.Row >= 1 {
			id.Row++
		}
		return id, true
	})

	assert.False(t, g.IsFormula(c("A3")))
	assert.Equal(t, cs("A1", "A3"), g.Precedents(c("A4")))
	assert.NoError(t, g.Validate())
}

func TestApplyMapping_DeleteDropsNodes(t *testing.T) {
	g := build(map[string][]string{"A3": {"A1", "A2"}, "A2": {"A1"}})

	g.ApplyMapping(func(id ir.CellID) (ir.CellID, bool) {
		switch {
		case id.Row == 1:
			return id, false
		case id.Row > 1:
			id.Row--
		}
		return id, true
	})

	assert.Equal(t, cs("A2"), g.Formulas())
	assert.Equal(t, cs("A1"), g.Precedents(c("A2")))
	require.NoError(t, g.Validate())
}

func TestValidate_DetectsAsymmetry(t *testing.T) {
	g := build(map[string][]string{"B1": {"A1"}})
	delete(g.dependents[c("A1")], c("B1"))

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "B1 reads Sheet1!A1 but is missing")
}
