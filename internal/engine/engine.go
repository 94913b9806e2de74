package engine

import (
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/gridcalc/internal/depgraph"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/recalc"
)

// cell is the stored state of one non-empty cell.
type cell struct {
	// raw is the text as entered, or the regenerated formula text after
	// a rename or structural edit.
	raw string

	// expr is the bound formula; nil for literals and unparsable formulas.
	expr formula.Expr

	// parseErr is set when raw is a formula that does not parse.
	parseErr error

	value ir.Value
}

func (c *cell) isFormula() bool { return formula.IsFormula(c.raw) }

// Engine is a workbook with incremental recalculation.
type Engine struct {
	sheets    []sheet
	nextSheet ir.SheetID

	cells   map[ir.CellID]*cell
	dynamic map[ir.CellID]struct{}
	names   *formula.NameStore

	graph     *depgraph.Graph
	driver    *recalc.Driver
	revisions *Revisions

	logger        *slog.Logger
	clock         Clock
	random        func() float64
	metrics       *recalc.Metrics
	parseCache    *formula.ParseCache
	maxIterations int
	tolerance     float64
	maxErrors     int

	// Batch state. saved holds the state of each touched cell before its
	// first edit in the open batch; nil means the cell was empty.
	batchDepth int
	pending    map[ir.CellID]struct{}
	saved      map[ir.CellID]*cell
	structural bool

	// touched holds the value of each cell before its first evaluation in
	// the running pass.
	touched map[ir.CellID]ir.Value

	lastReport *recalc.Report
	lastCommit *Commit
}

func newEngine(opts ...Option) *Engine {
	e := &Engine{
		nextSheet:     1,
		cells:         make(map[ir.CellID]*cell),
		dynamic:       make(map[ir.CellID]struct{}),
		names:         formula.NewNameStore(),
		graph:         depgraph.New(),
		revisions:     NewRevisions(),
		logger:        slog.Default(),
		clock:         SystemClock{},
		random:        rand.Float64,
		maxIterations: recalc.DefaultMaxIterations,
		tolerance:     recalc.DefaultTolerance,
		maxErrors:     recalc.DefaultMaxErrors,
		pending:       make(map[ir.CellID]struct{}),
		saved:         make(map[ir.CellID]*cell),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.driver = e.newDriver()
	return e
}

// New creates an engine with one sheet named "Sheet1".
func New(opts ...Option) *Engine {
	e := newEngine(opts...)
	e.appendSheet("Sheet1")
	return e
}

func (e *Engine) newDriver() *recalc.Driver {
	return recalc.NewDriver(e.graph, target{e},
		recalc.WithMaxIterations(e.maxIterations),
		recalc.WithTolerance(e.tolerance),
		recalc.WithMaxErrors(e.maxErrors),
		recalc.WithLogger(e.logger),
		recalc.WithMetrics(e.metrics),
		recalc.WithNow(e.clock.Now))
}

// Graph exposes the dependency graph for inspection. Callers must not
// mutate it.
func (e *Engine) Graph() *depgraph.Graph { return e.graph }

// Revision returns the current workbook revision.
func (e *Engine) Revision() int64 { return e.revisions.Current() }

// LastReport returns the report of the most recent recalc pass, or nil.
func (e *Engine) LastReport() *recalc.Report { return e.lastReport }

// LastCommit returns the outcome of the most recent committed batch, or nil.
func (e *Engine) LastCommit() *Commit { return e.lastCommit }

// cellID checks an address and builds its id.
func (e *Engine) cellID(sheet ir.SheetID, row, col int) (ir.CellID, error) {
	if _, ok := e.SheetIndex(sheet); !ok {
		return ir.CellID{}, NewInvalidSheetError(sheet, "no such sheet")
	}
	if row < 0 || row >= ir.MaxRows || col < 0 || col >= ir.MaxCols {
		return ir.CellID{}, NewInvalidCellError(sheet, row, col)
	}
	return ir.NewCellID(sheet, row, col), nil
}

// SetCellValue stores raw text in a cell. Text with a leading '=' is a
// formula; anything else is parsed as a literal. Empty text clears the
// cell.
func (e *Engine) SetCellValue(sheet ir.SheetID, row, col int, text string) error {
	id, err := e.cellID(sheet, row, col)
	if err != nil {
		return err
	}
	e.edit(func() { e.write(id, text) })
	return nil
}

// SetCellFormula stores a formula. The leading '=' is optional.
func (e *Engine) SetCellFormula(sheet ir.SheetID, row, col int, text string) error {
	if len(text) == 0 || text[0] != '=' {
		text = "=" + text
	}
	return e.SetCellValue(sheet, row, col, text)
}

// ClearCell empties a cell.
func (e *Engine) ClearCell(sheet ir.SheetID, row, col int) error {
	return e.SetCellValue(sheet, row, col, "")
}

// write replaces the content of id and queues it for recalculation.
func (e *Engine) write(id ir.CellID, raw string) {
	e.save(id)
	e.pending[id] = struct{}{}
	if raw == "" {
		e.drop(id)
		return
	}
	c := &cell{raw: raw, value: ir.Empty{}}
	e.cells[id] = c
	if c.isFormula() {
		e.bind(id, c)
		return
	}
	c.value = ir.ParseLiteral(raw)
	e.graph.ClearCell(id)
	delete(e.dynamic, id)
	e.driver.Forget(id)
}

// drop removes a cell entirely.
func (e *Engine) drop(id ir.CellID) {
	delete(e.cells, id)
	delete(e.dynamic, id)
	e.graph.ClearCell(id)
	e.driver.Forget(id)
}

// bind parses and binds the formula text of c, then wires its edges.
// A formula that does not parse keeps a node with no edges and
// evaluates to #ERROR!.
func (e *Engine) bind(id ir.CellID, c *cell) {
	expr, err := e.parseCache.Parse(c.raw)
	if err != nil {
		c.expr, c.parseErr, c.value = nil, err, ir.ErrParse
		e.graph.ReplaceEdges(id, nil)
		delete(e.dynamic, id)
		e.logger.Debug("formula did not parse", "cell", id, "error", err)
		return
	}
	c.expr, c.parseErr = formula.Bind(expr, e), nil
	e.wire(id, c)
}

// wire derives the edges of a bound formula from its expression.
func (e *Engine) wire(id ir.CellID, c *cell) {
	if c.expr == nil {
		e.graph.ReplaceEdges(id, nil)
		delete(e.dynamic, id)
		return
	}
	e.graph.ReplaceEdges(id, formula.ExtractCellIDList(c.expr, id.Sheet, e.names, e))
	if formula.HasDynamicDeps(c.expr) {
		e.dynamic[id] = struct{}{}
	} else {
		delete(e.dynamic, id)
	}
}

// reformat regenerates the text of a rewritten formula.
func (e *Engine) reformat(c *cell) {
	if c.expr != nil {
		c.raw = "=" + formula.Format(c.expr, e)
	}
}

// Value returns the current value of a cell, Empty when unset.
func (e *Engine) Value(id ir.CellID) ir.Value {
	if c, ok := e.cells[id]; ok {
		return c.value
	}
	return ir.Empty{}
}

// Raw returns the text stored in a cell, "" when unset.
func (e *Engine) Raw(id ir.CellID) string {
	if c, ok := e.cells[id]; ok {
		return c.raw
	}
	return ""
}

// Formula returns the formula text of a cell with sheet names as they
// are now. ok is false for literals and empty cells.
func (e *Engine) Formula(id ir.CellID) (text string, ok bool) {
	c, found := e.cells[id]
	if !found || !c.isFormula() {
		return "", false
	}
	if c.expr == nil {
		return c.raw, true
	}
	return "=" + formula.Format(c.expr, e), true
}

// ParseError returns the parse failure of a formula cell, if any.
func (e *Engine) ParseError(id ir.CellID) error {
	if c, ok := e.cells[id]; ok {
		return c.parseErr
	}
	return nil
}

// HasUnknownDeps reports whether a formula reads cells that cannot be
// known before it runs.
func (e *Engine) HasUnknownDeps(id ir.CellID) bool {
	_, ok := e.dynamic[id]
	return ok
}

// Cells lists the non-empty cells of a sheet in (row, col) order.
func (e *Engine) Cells(sheet ir.SheetID) []ir.CellID {
	var out []ir.CellID
	for id := range e.cells {
		if id.Sheet == sheet {
			out = append(out, id)
		}
	}
	return ir.SortCellIDs(out)
}

// Values returns the value of every non-empty cell.
func (e *Engine) Values() map[ir.CellID]ir.Value {
	out := make(map[ir.CellID]ir.Value, len(e.cells))
	for id, c := range e.cells {
		out[id] = c.value
	}
	return out
}

// StateHash fingerprints every cell value.
func (e *Engine) StateHash() (string, error) {
	return ir.StateHash(e.Values())
}

// WouldCreateCycle reports the cycle that storing text in the cell would
// close, without storing it. It returns nil when text is not a formula,
// does not parse, or closes no cycle.
func (e *Engine) WouldCreateCycle(sheet ir.SheetID, row, col int, text string) (*depgraph.CycleReport, error) {
	id, err := e.cellID(sheet, row, col)
	if err != nil {
		return nil, err
	}
	if !formula.IsFormula(text) {
		return nil, nil
	}
	expr, err := e.parseCache.Parse(text)
	if err != nil {
		return nil, nil
	}
	preds := formula.ExtractCellIDList(formula.Bind(expr, e), sheet, e.names, e)
	return e.graph.WouldCreateCycle(id, preds), nil
}

// RecomputeFullOrdered recomputes every formula in dependency order. It
// does not change the revision.
func (e *Engine) RecomputeFullOrdered() *recalc.Report {
	e.touched = nil
	r := e.driver.RecalcAll()
	e.lastReport = r
	e.logger.Debug("full recalc", "summary", r.Summary())
	return r
}

// RebuildDepGraph discards the graph and rebuilds it from the formula
// text of every cell. Remembered depths are dropped with it.
func (e *Engine) RebuildDepGraph() {
	e.graph = depgraph.New()
	e.dynamic = make(map[ir.CellID]struct{})
	e.driver = e.newDriver()
	for _, id := range ir.SortedCellIDs(e.cellSet()) {
		if c := e.cells[id]; c.isFormula() {
			e.bind(id, c)
		}
	}
	e.logger.Debug("dependency graph rebuilt",
		"formulas", e.graph.FormulaCount(),
		"edges", e.graph.EdgeCount())
}

func (e *Engine) cellSet() map[ir.CellID]struct{} {
	out := make(map[ir.CellID]struct{}, len(e.cells))
	for id := range e.cells {
		out[id] = struct{}{}
	}
	return out
}

// formulaCells lists formula cells with a bound expression, sorted.
func (e *Engine) formulaCells() []ir.CellID {
	var out []ir.CellID
	for id, c := range e.cells {
		if c.expr != nil {
			out = append(out, id)
		}
	}
	return ir.SortCellIDs(out)
}
