package engine

import (
	"time"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

// target is the engine as seen by the recalc driver.
type target struct{ e *Engine }

func (t target) Evaluate(id ir.CellID) ir.Value {
	e := t.e
	c, ok := e.cells[id]
	if !ok {
		return ir.Empty{}
	}
	e.touch(id, c.value)
	switch {
	case c.expr != nil:
		c.value = formula.Evaluate(c.expr, &lookup{e: e, cell: id})
	case c.parseErr != nil:
		c.value = ir.ErrParse
	}
	return c.value
}

func (t target) Value(id ir.CellID) ir.Value { return t.e.Value(id) }

func (t target) Store(id ir.CellID, v ir.Value) {
	if c, ok := t.e.cells[id]; ok {
		t.e.touch(id, c.value)
		c.value = v
	}
}

func (t target) HasUnknownDeps(id ir.CellID) bool { return t.e.HasUnknownDeps(id) }

func (t target) UnknownDepsCells() []ir.CellID { return ir.SortedCellIDs(t.e.dynamic) }

// touch records the value a cell held before the running pass first
// changed it.
func (e *Engine) touch(id ir.CellID, before ir.Value) {
	if e.touched == nil {
		return
	}
	if _, seen := e.touched[id]; !seen {
		e.touched[id] = before
	}
}

// lookup is the read-only workbook view handed to one formula evaluation.
type lookup struct {
	e    *Engine
	cell ir.CellID
}

func (l *lookup) ResolveName(name string) (formula.NameTarget, bool) { return l.e.names.ResolveName(name) }
func (l *lookup) SheetIDAt(index int) (ir.SheetID, bool)             { return l.e.SheetIDAt(index) }
func (l *lookup) SheetIDByName(name string) (ir.SheetID, bool)       { return l.e.SheetIDByName(name) }
func (l *lookup) CurrentSheet() ir.SheetID                           { return l.cell.Sheet }
func (l *lookup) CurrentCell() (ir.CellID, bool)                     { return l.cell, true }
func (l *lookup) Value(id ir.CellID) ir.Value                        { return l.e.Value(id) }
func (l *lookup) Now() time.Time                                     { return l.e.clock.Now() }
func (l *lookup) Random() float64                                    { return l.e.random() }
