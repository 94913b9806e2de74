package recalc

import (
	"log/slog"
	"time"

	"github.com/roach88/gridcalc/internal/depgraph"
	"github.com/roach88/gridcalc/internal/ir"
)

// Defaults for the iterative resolution of circular references.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-9
	DefaultMaxErrors     = 100
)

// Target is the workbook side of a pass: it owns formulas and values.
type Target interface {
	// Evaluate recomputes the formula in cell, stores the result and
	// returns it.
	Evaluate(cell ir.CellID) ir.Value
	// Value returns the stored value of cell.
	Value(cell ir.CellID) ir.Value
	// Store overwrites the stored value of a formula cell.
	Store(cell ir.CellID, v ir.Value)
	// HasUnknownDeps reports whether cell's formula reads cells that
	// cannot be known before evaluation.
	HasUnknownDeps(cell ir.CellID) bool
	// UnknownDepsCells lists every formula cell with unknown dependencies.
	UnknownDepsCells() []ir.CellID
}

// Driver runs recalculation passes. It remembers cell depths between
// passes so that incremental passes can extend them.
//
// Driver is not safe for concurrent use.
type Driver struct {
	graph   *depgraph.Graph
	target  Target
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	maxIterations int
	tolerance     float64
	maxErrors     int

	depths map[ir.CellID]int
}

// Option configures a Driver.
type Option func(*Driver)

// WithMaxIterations caps the rounds spent on each circular component.
func WithMaxIterations(n int) Option {
	return func(d *Driver) { d.maxIterations = n }
}

// WithTolerance sets the largest change between rounds that still counts
// as converged.
func WithTolerance(tol float64) Option {
	return func(d *Driver) { d.tolerance = tol }
}

// WithMaxErrors caps the errors kept in a report.
func WithMaxErrors(n int) Option {
	return func(d *Driver) { d.maxErrors = n }
}

// WithLogger sets the logger for pass diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithMetrics records every pass in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithNow sets the time source used for report timings.
func WithNow(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver creates a driver over g and t.
func NewDriver(g *depgraph.Graph, t Target, opts ...Option) *Driver {
	d := &Driver{
		graph:         g,
		target:        t,
		logger:        slog.Default(),
		now:           time.Now,
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
		maxErrors:     DefaultMaxErrors,
		depths:        make(map[ir.CellID]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Forget drops the remembered depth of cell. Call it when a cell stops
// being a formula outside of a pass.
func (d *Driver) Forget(cell ir.CellID) {
	delete(d.depths, cell)
}

// Reset drops every remembered depth.
func (d *Driver) Reset() {
	d.depths = make(map[ir.CellID]int)
}

// Recalc recomputes everything affected by changed: the formula cells
// among changed, their transitive dependents, and every cell with unknown
// dependencies together with its dependents.
func (d *Driver) Recalc(changed []ir.CellID) *Report {
	start := d.now()
	for _, c := range changed {
		if !d.graph.IsFormula(c) {
			delete(d.depths, c)
		}
	}
	dirty := d.graph.TransitiveDependents(changed)
	for _, c := range changed {
		if d.graph.IsFormula(c) {
			dirty[c] = struct{}{}
		}
	}
	unknown := d.target.UnknownDepsCells()
	for _, c := range unknown {
		dirty[c] = struct{}{}
	}
	for c := range d.graph.TransitiveDependents(unknown) {
		dirty[c] = struct{}{}
	}
	return d.run("incremental", dirty, start)
}

// RecalcAll recomputes every formula cell in dependency order.
func (d *Driver) RecalcAll() *Report {
	start := d.now()
	d.Reset()
	dirty := make(map[ir.CellID]struct{}, d.graph.FormulaCount())
	for _, c := range d.graph.Formulas() {
		dirty[c] = struct{}{}
	}
	return d.run("full", dirty, start)
}

// pass is the state of one run.
type pass struct {
	d           *Driver
	report      *Report
	start       time.Time
	next        int
	depths      map[ir.CellID]int
	rounds      int
	unconverged int
}

func (d *Driver) run(kind string, dirty map[ir.CellID]struct{}, start time.Time) *Report {
	p := &pass{d: d, report: newReport(kind), start: start, depths: make(map[ir.CellID]int, len(dirty))}
	r := p.report

	// Cells with unknown dependencies run after every cell that cannot
	// see them; cells downstream of them run last.
	var dynamic []ir.CellID
	for c := range dirty {
		if d.target.HasUnknownDeps(c) {
			dynamic = append(dynamic, c)
		}
	}
	ir.SortCellIDs(dynamic)
	downstream := d.graph.TransitiveDependents(dynamic)
	var known, after []ir.CellID
	for c := range dirty {
		switch {
		case d.target.HasUnknownDeps(c):
		case isMember(downstream, c):
			after = append(after, c)
		default:
			known = append(known, c)
		}
	}
	invalidated := d.now()
	r.Phases.Invalidation = invalidated.Sub(start)

	knownOrder, knownRest := d.graph.Schedule(known)
	afterOrder, afterRest := d.graph.Schedule(after)
	sorted := d.now()
	r.Phases.TopoSort = sorted.Sub(invalidated)

	p.evalOrdered(knownOrder)
	p.evalComponents(knownRest)
	if len(dynamic) > 0 {
		// Unknown-dependency cells still honor their static edges
		// among themselves.
		floor := r.MaxDepth + 1
		dynOrder, dynRest := d.graph.Schedule(dynamic)
		for _, c := range dynOrder {
			p.evalCell(c, max(floor, p.depthFrom(c, nil)), true)
		}
		p.evalComponents(dynRest)
		for _, comp := range dynRest {
			for _, c := range comp.Cells {
				info := r.CellInfo[c]
				info.HasUnknownDeps = true
				r.CellInfo[c] = info
			}
		}
		r.UnknownDepsRecomputed += len(dynamic)
	}
	p.evalOrdered(afterOrder)
	p.evalComponents(afterRest)

	end := d.now()
	r.Phases.Eval = end.Sub(sorted)
	r.Duration = end.Sub(start)
	for c, depth := range p.depths {
		d.depths[c] = depth
	}

	d.metrics.observe(kind, r, p.rounds, p.unconverged)
	d.logger.Debug("recalc pass",
		"kind", kind,
		"cells", r.CellsRecomputed,
		"depth", r.MaxDepth,
		"unknown", r.UnknownDepsRecomputed,
		"sccs", r.SCCCount,
		"errors", len(r.Errors),
		"duration", r.Duration)
	return r
}

func isMember(set map[ir.CellID]struct{}, c ir.CellID) bool {
	_, ok := set[c]
	return ok
}

func (p *pass) evalOrdered(order []ir.CellID) {
	for _, c := range order {
		p.evalCell(c, p.depthFrom(c, nil), false)
	}
}

func (p *pass) evalCell(c ir.CellID, depth int, unknown bool) {
	p.record(c, depth, unknown)
	if e, ok := p.d.target.Evaluate(c).(ir.Error); ok {
		p.addError(c, e.Msg)
	}
}

func (p *pass) record(c ir.CellID, depth int, unknown bool) {
	r := p.report
	r.CellInfo[c] = CellInfo{
		Depth:          depth,
		EvalOrder:      p.next,
		RecomputedAt:   p.d.now().Sub(p.start),
		HasUnknownDeps: unknown,
	}
	p.next++
	r.CellsRecomputed++
	r.MaxDepth = max(r.MaxDepth, depth)
	p.depths[c] = depth
}

func (p *pass) addError(c ir.CellID, msg string) {
	r := p.report
	if len(r.Errors) >= p.d.maxErrors {
		r.ErrorsTruncated++
		return
	}
	r.Errors = append(r.Errors, RecalcError{Cell: c, Message: msg})
}

// depthFrom is 1 + the largest depth among c's precedents, ignoring the
// cells in skip.
func (p *pass) depthFrom(c ir.CellID, skip map[ir.CellID]struct{}) int {
	deepest := 0
	for _, pred := range p.d.graph.Precedents(c) {
		if isMember(skip, pred) {
			continue
		}
		deepest = max(deepest, p.depthOf(pred))
	}
	return deepest + 1
}

// depthOf returns the depth of a cell that is not being evaluated right
// now: this pass's value, the remembered value, 0 for plain cells, or a
// fresh computation for formulas never seen by a pass.
func (p *pass) depthOf(c ir.CellID) int {
	if d, ok := p.depths[c]; ok {
		return d
	}
	if d, ok := p.d.depths[c]; ok {
		return d
	}
	if !p.d.graph.IsFormula(c) {
		return 0
	}
	return p.d.settleDepth(c)
}

// settleDepth computes and remembers the depth of c and of any formula
// precedents without a remembered depth. Cells on the current walk count
// as depth 0 so that a cycle cannot loop forever.
func (d *Driver) settleDepth(root ir.CellID) int {
	type frame struct {
		cell  ir.CellID
		preds []ir.CellID
		next  int
		best  int
	}
	onPath := map[ir.CellID]bool{root: true}
	stack := []frame{{cell: root, preds: d.graph.Precedents(root)}}
	var result int
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.preds) {
			pred := top.preds[top.next]
			top.next++
			known, ok := d.depths[pred]
			switch {
			case ok:
				top.best = max(top.best, known)
			case !d.graph.IsFormula(pred) || onPath[pred]:
			default:
				onPath[pred] = true
				stack = append(stack, frame{cell: pred, preds: d.graph.Precedents(pred)})
			}
			continue
		}
		depth := top.best + 1
		d.depths[top.cell] = depth
		delete(onPath, top.cell)
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			parent.best = max(parent.best, depth)
		} else {
			result = depth
		}
	}
	return result
}

func (p *pass) evalComponents(comps []depgraph.Component) {
	for _, comp := range comps {
		if !comp.Cyclic {
			for _, c := range comp.Cells {
				p.evalCell(c, p.depthFrom(c, nil), false)
			}
			continue
		}
		p.iterate(comp.Cells)
	}
}

// iterate resolves a circular component by repeated evaluation from a
// blank start until no member moves by tolerance or more. Members of a
// component that hits the cap become #CYCLE!.
func (p *pass) iterate(members []ir.CellID) {
	d, r := p.d, p.report
	inside := make(map[ir.CellID]struct{}, len(members))
	for _, c := range members {
		inside[c] = struct{}{}
	}
	depth := 0
	for _, c := range members {
		depth = max(depth, p.depthFrom(c, inside))
	}
	for _, c := range members {
		p.record(c, depth, false)
		d.target.Store(c, ir.Empty{})
	}

	converged := false
	rounds := 0
	for rounds < d.maxIterations {
		rounds++
		worst := 0.0
		for _, c := range members {
			before := d.target.Value(c)
			worst = max(worst, ir.Delta(before, d.target.Evaluate(c)))
		}
		if worst < d.tolerance {
			converged = true
			break
		}
	}

	cycle := d.graph.ReportSCC(members)
	r.HadCycles = true
	r.SCCCount++
	r.CycleCells += len(members)
	r.IterationsPerformed = max(r.IterationsPerformed, rounds)
	r.Cycles = append(r.Cycles, cycle)
	p.rounds += rounds

	if !converged {
		r.Converged = false
		p.unconverged++
		d.logger.Warn("circular reference did not converge",
			"cells", len(members),
			"iterations", rounds,
			"cycle", cycle.Message)
		for _, c := range members {
			d.target.Store(c, ir.ErrCycle)
			p.addError(c, cycle.Message)
		}
		return
	}
	for _, c := range members {
		if e, ok := d.target.Value(c).(ir.Error); ok {
			p.addError(c, e.Msg)
		}
	}
}
