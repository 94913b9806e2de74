package recalc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/depgraph"
	"github.com/roach88/gridcalc/internal/ir"
)

func TestReport_Summary(t *testing.T) {
	r := &Report{CellsRecomputed: 628, Duration: 14 * time.Millisecond, MaxDepth: 7, UnknownDepsRecomputed: 3}
	assert.Equal(t, "628 cells in 14ms, depth=7, cycles=false, unknown=3", r.Summary())

	r.HadCycles, r.SCCCount, r.IterationsPerformed = true, 2, 31
	assert.Equal(t, "628 cells in 14ms, depth=7, cycles=true, unknown=3, sccs=2, iters=31, converged=false", r.Summary())
}

func TestReport_LogLine(t *testing.T) {
	r := &Report{CellsRecomputed: 628, Duration: 14 * time.Millisecond, MaxDepth: 7, UnknownDepsRecomputed: 3}
	assert.Equal(t, "[recalc/full]   14ms  628 cells  depth=7  unknown=3  cycles=0  errors=0", r.LogLine())

	r.HadCycles = true
	r.Errors = []RecalcError{{Cell: c("A1"), Message: "#CYCLE!"}}
	r.SCCCount, r.IterationsPerformed, r.Converged = 1, 100, false
	assert.Equal(t,
		"[recalc/full]   14ms  628 cells  depth=7  unknown=3  cycles=1  errors=1  sccs=1  iters=100  converged=false",
		r.LogLine())

	r.Kind = "incremental"
	assert.True(t, strings.HasPrefix(r.LogLine(), "[recalc/incremental]   14ms  628 cells"), r.LogLine())
}

func TestReport_AdjacentCells(t *testing.T) {
	r := newReport("full")
	r.CellInfo[c("A1")] = CellInfo{EvalOrder: 0}
	r.CellInfo[c("B1")] = CellInfo{EvalOrder: 1}
	r.CellInfo[c("C1")] = CellInfo{EvalOrder: 2}

	prev, next, hasPrev, hasNext := r.AdjacentCells(c("B1"))
	require.True(t, hasPrev)
	require.True(t, hasNext)
	assert.Equal(t, c("A1"), prev)
	assert.Equal(t, c("C1"), next)

	_, _, hasPrev, hasNext = r.AdjacentCells(c("A1"))
	assert.False(t, hasPrev)
	assert.True(t, hasNext)

	_, _, hasPrev, hasNext = r.AdjacentCells(c("Z9"))
	assert.False(t, hasPrev)
	assert.False(t, hasNext)
}

func TestReport_Hotspots(t *testing.T) {
	g := depgraph.New()
	// B1 feeds three cells and reads A1.
	g.ReplaceEdges(c("B1"), []ir.CellID{c("A1")})
	for _, a1 := range []string{"C1", "C2", "C3"} {
		g.ReplaceEdges(c(a1), []ir.CellID{c("B1")})
	}
	g.ReplaceEdges(c("D1"), nil)

	r := newReport("full")
	r.CellInfo[c("B1")] = CellInfo{Depth: 1}
	r.CellInfo[c("C1")] = CellInfo{Depth: 2}
	r.CellInfo[c("C2")] = CellInfo{Depth: 2}
	r.CellInfo[c("D1")] = CellInfo{Depth: 1, HasUnknownDeps: true}

	hot := r.Hotspots(g, 3)
	require.Len(t, hot, 3)
	// B1: 3*3 + 1*1.5 + 1 = 11.5; D1: 1 + 10 = 11; C1: 1.5 + 2 = 3.5.
	assert.Equal(t, Hotspot{Cell: c("B1"), FanIn: 1, FanOut: 3, Depth: 1, Score: 11.5}, hot[0])
	assert.Equal(t, c("D1"), hot[1].Cell)
	assert.Equal(t, 11.0, hot[1].Score)
	assert.Equal(t, c("C1"), hot[2].Cell, "ties break by cell order")
}

func TestReport_ErrorText(t *testing.T) {
	r := &Report{Errors: []RecalcError{{Cell: c("A1"), Message: "#DIV/0!"}}}
	assert.Equal(t, "Sheet1!A1: #DIV/0!\n", r.ErrorText())
}
