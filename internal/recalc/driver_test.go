package recalc

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/depgraph"
	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/testutil"
)

// fakeSheet is a Target whose formulas are Go functions over the other
// cells. Edges are registered explicitly.
type fakeSheet struct {
	g        *depgraph.Graph
	values   map[ir.CellID]ir.Value
	formulas map[ir.CellID]func(get func(string) ir.Value) ir.Value
	dynamic  map[ir.CellID]bool
	evals    []ir.CellID
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{
		g:        depgraph.New(),
		values:   map[ir.CellID]ir.Value{},
		formulas: map[ir.CellID]func(func(string) ir.Value) ir.Value{},
		dynamic:  map[ir.CellID]bool{},
	}
}

func c(a1 string) ir.CellID { return testutil.Cell(1, a1) }

func (s *fakeSheet) value(a1 string, v ir.Value) { s.values[c(a1)] = v }

func (s *fakeSheet) formula(a1 string, preds []string, f func(get func(string) ir.Value) ir.Value) {
	s.formulas[c(a1)] = f
	s.g.ReplaceEdges(c(a1), testutil.Cells(1, preds...))
}

func (s *fakeSheet) get(a1 string) ir.Value { return s.Value(c(a1)) }

func (s *fakeSheet) num(a1 string) float64 {
	n, _ := ir.ToNumber(s.get(a1))
	return n
}

func (s *fakeSheet) Evaluate(cell ir.CellID) ir.Value {
	s.evals = append(s.evals, cell)
	v := s.formulas[cell](s.get)
	s.values[cell] = v
	return v
}

func (s *fakeSheet) Value(cell ir.CellID) ir.Value {
	if v, ok := s.values[cell]; ok {
		return v
	}
	return ir.Empty{}
}

func (s *fakeSheet) Store(cell ir.CellID, v ir.Value) { s.values[cell] = v }

func (s *fakeSheet) HasUnknownDeps(cell ir.CellID) bool { return s.dynamic[cell] }

func (s *fakeSheet) UnknownDepsCells() []ir.CellID {
	var out []ir.CellID
	for cell := range s.dynamic {
		out = append(out, cell)
	}
	return ir.SortCellIDs(out)
}

func plus(a1 string, k float64) func(func(string) ir.Value) ir.Value {
	return func(get func(string) ir.Value) ir.Value {
		n, err := ir.ToNumber(get(a1))
		if err != nil {
			return ir.AsError(err)
		}
		return ir.Number(n + k)
	}
}

func newDriver(s *fakeSheet, opts ...Option) *Driver {
	clock := testutil.NewDeterministicClock()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNow(clock.Now),
	}
	return NewDriver(s.g, s, append(base, opts...)...)
}

func TestRecalcAll_ChainOrderAndDepth(t *testing.T) {
	s := newFakeSheet()
	s.value("A1", ir.Number(1))
	s.formula("A3", []string{"A2"}, plus("A2", 1))
	s.formula("A2", []string{"A1"}, plus("A1", 1))
	s.formula("B1", nil, func(func(string) ir.Value) ir.Value { return ir.Number(7) })

	r := newDriver(s).RecalcAll()

	assert.Equal(t, 3.0, s.num("A3"))
	assert.Equal(t, 3, r.CellsRecomputed)
	assert.Equal(t, 2, r.MaxDepth)
	assert.Equal(t, []ir.CellID{c("B1"), c("A2"), c("A3")}, r.CellsByEvalOrder())
	assert.Equal(t, 1, r.CellInfo[c("A2")].Depth)
	assert.Equal(t, 2, r.CellInfo[c("A3")].Depth)
	assert.Equal(t, 1, r.CellInfo[c("B1")].Depth)
	assert.False(t, r.HadCycles)
	assert.True(t, r.Converged)
}

func TestRecalc_IncrementalTouchesOnlyDependents(t *testing.T) {
	s := newFakeSheet()
	s.value("A1", ir.Number(1))
	s.value("B1", ir.Number(10))
	s.formula("A2", []string{"A1"}, plus("A1", 1))
	s.formula("A3", []string{"A2"}, plus("A2", 1))
	s.formula("B2", []string{"B1"}, plus("B1", 1))
	d := newDriver(s)
	d.RecalcAll()

	s.value("A1", ir.Number(5))
	s.evals = nil
	r := d.Recalc([]ir.CellID{c("A1")})

	assert.Equal(t, []ir.CellID{c("A2"), c("A3")}, s.evals)
	assert.Equal(t, 7.0, s.num("A3"))
	assert.Equal(t, 2, r.CellInfo[c("A3")].Depth, "depth survives across passes")
}

func TestRecalc_IncrementalDepthUsesRememberedPrecedents(t *testing.T) {
	s := newFakeSheet()
	s.value("A1", ir.Number(1))
	s.formula("A2", []string{"A1"}, plus("A1", 1))
	s.formula("A3", []string{"A2"}, plus("A2", 1))
	d := newDriver(s)
	d.RecalcAll()

	s.formula("A4", []string{"A3"}, plus("A3", 1))
	r := d.Recalc([]ir.CellID{c("A4")})

	assert.Equal(t, 1, r.CellsRecomputed)
	assert.Equal(t, 3, r.CellInfo[c("A4")].Depth)
}

func TestRecalc_DepthForFormulaNeverSeen(t *testing.T) {
	s := newFakeSheet()
	s.formula("A1", nil, func(func(string) ir.Value) ir.Value { return ir.Number(1) })
	s.formula("A2", []string{"A1"}, plus("A1", 1))
	s.formula("A3", []string{"A2"}, plus("A2", 1))

	r := newDriver(s).Recalc([]ir.CellID{c("A3")})
	assert.Equal(t, 3, r.CellInfo[c("A3")].Depth)
}

func TestRecalc_SelfReferenceNeverConverges(t *testing.T) {
	s := newFakeSheet()
	s.formula("A1", []string{"A1"}, plus("A1", 1))
	s.formula("B1", []string{"A1"}, plus("A1", 0))

	r := newDriver(s, WithMaxIterations(10)).RecalcAll()

	assert.Equal(t, ir.ErrCycle, s.get("A1"))
	assert.Equal(t, ir.ErrCycle, s.get("B1"), "downstream cells see the cycle error")
	assert.True(t, r.HadCycles)
	assert.False(t, r.Converged)
	assert.Equal(t, 1, r.SCCCount)
	assert.Equal(t, 1, r.CycleCells)
	assert.Equal(t, 10, r.IterationsPerformed)
	require.Len(t, r.Cycles, 1)
	assert.Equal(t, "Cell A1 references itself", r.Cycles[0].Message)
	require.NotEmpty(t, r.Errors)
	assert.Equal(t, RecalcError{Cell: c("A1"), Message: "Cell A1 references itself"}, r.Errors[0])
}

func TestRecalc_ConvergingCycle(t *testing.T) {
	// A1 = B1/2 + 1, B1 = A1: fixed point A1 = B1 = 2.
	s := newFakeSheet()
	s.formula("A1", []string{"B1"}, func(get func(string) ir.Value) ir.Value {
		n, _ := ir.ToNumber(get("B1"))
		return ir.Number(n/2 + 1)
	})
	s.formula("B1", []string{"A1"}, plus("A1", 0))
	s.formula("C1", []string{"B1"}, plus("B1", 10))

	r := newDriver(s).RecalcAll()

	assert.InDelta(t, 2.0, s.num("A1"), 1e-8)
	assert.InDelta(t, 2.0, s.num("B1"), 1e-8)
	assert.InDelta(t, 12.0, s.num("C1"), 1e-8)
	assert.True(t, r.Converged)
	assert.True(t, r.HadCycles)
	assert.Equal(t, 2, r.CycleCells)
	assert.Greater(t, r.IterationsPerformed, 1)
	assert.Empty(t, r.Errors)
	assert.Equal(t, "Circular reference: A1 → B1", r.Cycles[0].Message)
	assert.Less(t, r.CellInfo[c("B1")].EvalOrder, r.CellInfo[c("C1")].EvalOrder)
}

func TestRecalc_CycleIsIdempotent(t *testing.T) {
	s := newFakeSheet()
	s.formula("A1", []string{"B1"}, func(get func(string) ir.Value) ir.Value {
		n, _ := ir.ToNumber(get("B1"))
		return ir.Number(n/3 + 1)
	})
	s.formula("B1", []string{"A1"}, plus("A1", 0))
	d := newDriver(s)

	d.RecalcAll()
	first := s.num("A1")
	d.RecalcAll()
	assert.Equal(t, first, s.num("A1"))
}

func TestRecalc_UnknownDepsRunLast(t *testing.T) {
	s := newFakeSheet()
	s.value("A1", ir.Number(1))
	s.formula("A2", []string{"A1"}, plus("A1", 1))
	s.formula("A3", []string{"A2"}, plus("A2", 1))
	s.formula("B1", nil, plus("A3", 100))
	s.dynamic[c("B1")] = true
	s.formula("C1", []string{"B1"}, plus("B1", 1))

	r := newDriver(s).RecalcAll()

	assert.Equal(t, []ir.CellID{c("A2"), c("A3"), c("B1"), c("C1")}, r.CellsByEvalOrder())
	assert.Equal(t, 1, r.UnknownDepsRecomputed)
	assert.Equal(t, 3, r.CellInfo[c("B1")].Depth, "max known depth + 1")
	assert.True(t, r.CellInfo[c("B1")].HasUnknownDeps)
	assert.Equal(t, 4, r.CellInfo[c("C1")].Depth)
	assert.Equal(t, 104.0, s.num("C1"))
}

func TestRecalc_UnknownDepsRecomputedEveryPass(t *testing.T) {
	s := newFakeSheet()
	s.value("A1", ir.Number(1))
	s.value("Z1", ir.Number(0))
	s.formula("B1", nil, plus("A1", 0))
	s.dynamic[c("B1")] = true
	d := newDriver(s)
	d.RecalcAll()

	s.value("A1", ir.Number(9))
	r := d.Recalc([]ir.CellID{c("Z1")})
	assert.Equal(t, 9.0, s.num("B1"))
	assert.Equal(t, 1, r.UnknownDepsRecomputed)
}

func TestRecalc_UnknownDepsReadEachOtherInOrder(t *testing.T) {
	s := newFakeSheet()
	s.value("Z1", ir.Number(0))
	draws := 0.0
	s.formula("B1", nil, func(func(string) ir.Value) ir.Value {
		draws++
		return ir.Number(draws)
	})
	s.formula("A1", []string{"B1"}, plus("B1", 10))
	s.dynamic[c("A1")] = true
	s.dynamic[c("B1")] = true
	d := newDriver(s)
	d.RecalcAll()
	require.Equal(t, 11.0, s.num("A1"))

	r := d.Recalc([]ir.CellID{c("Z1")})

	assert.Equal(t, 2.0, s.num("B1"))
	assert.Equal(t, 12.0, s.num("A1"), "A1 must see this pass's B1")
	assert.Equal(t, []ir.CellID{c("B1"), c("A1")}, r.CellsByEvalOrder())
	assert.Less(t, r.CellInfo[c("B1")].Depth, r.CellInfo[c("A1")].Depth)
	assert.Equal(t, 2, r.UnknownDepsRecomputed)
}

func TestRecalc_UnknownDepsCycleIterates(t *testing.T) {
	s := newFakeSheet()
	s.formula("A1", []string{"B1"}, plus("B1", 1))
	s.formula("B1", []string{"A1"}, plus("A1", 0))
	s.dynamic[c("A1")] = true
	s.dynamic[c("B1")] = true

	r := newDriver(s, WithMaxIterations(5)).RecalcAll()

	assert.True(t, r.HadCycles)
	assert.False(t, r.Converged)
	assert.Equal(t, ir.ErrCycle, s.get("A1"))
	assert.True(t, r.CellInfo[c("B1")].HasUnknownDeps)
	assert.Equal(t, 2, r.UnknownDepsRecomputed)
}

func TestRecalc_ErrorsAreCapped(t *testing.T) {
	s := newFakeSheet()
	for i := range 5 {
		a1 := ir.NewCellID(1, i, 0).A1()
		s.formula(a1, nil, func(func(string) ir.Value) ir.Value { return ir.ErrDiv0 })
	}

	r := newDriver(s, WithMaxErrors(3)).RecalcAll()
	assert.Len(t, r.Errors, 3)
	assert.Equal(t, 2, r.ErrorsTruncated)
	assert.Equal(t, 5, r.CellsRecomputed, "errors never abort the pass")
	assert.Equal(t, "#DIV/0!", r.Errors[0].Message)
}

func TestRecalc_Deterministic(t *testing.T) {
	build := func() *fakeSheet {
		s := newFakeSheet()
		s.value("A1", ir.Number(2))
		for _, a1 := range []string{"B1", "C1", "D1", "E1"} {
			s.formula(a1, []string{"A1"}, plus("A1", 1))
		}
		s.formula("F1", []string{"B1", "E1"}, plus("E1", 1))
		return s
	}
	first := newDriver(build()).RecalcAll().CellsByEvalOrder()
	for range 5 {
		assert.Equal(t, first, newDriver(build()).RecalcAll().CellsByEvalOrder())
	}
}

func TestRecalc_Metrics(t *testing.T) {
	s := newFakeSheet()
	s.formula("A1", []string{"A1"}, plus("A1", 1))
	s.formula("B1", nil, plus("Z9", 1))

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	newDriver(s, WithMetrics(m), WithMaxIterations(4)).RecalcAll()

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Passes.WithLabelValues("full")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.CellsRecomputed))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.SCCIterations))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Unconverged))
}

func TestReport_TimingsFromClock(t *testing.T) {
	s := newFakeSheet()
	s.formula("A1", nil, plus("Z9", 1))
	clock := testutil.NewDeterministicClock()
	clock.SetStep(time.Millisecond)

	r := newDriver(s, WithNow(clock.Now)).RecalcAll()
	assert.Equal(t, 4*time.Millisecond, r.Duration)
	assert.Equal(t, 3*time.Millisecond, r.CellInfo[c("A1")].RecomputedAt)
}
