package engine

import (
	"fmt"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

// InsertRows inserts n blank rows before row at on sheet. Cells at or
// below at move down, and every reference and name that pointed at them
// follows. Cells pushed off the grid are dropped.
func (e *Engine) InsertRows(sheet ir.SheetID, at, n int) error {
	return e.insert(sheet, formula.Rows, at, n)
}

// InsertCols inserts n blank columns before column at on sheet.
func (e *Engine) InsertCols(sheet ir.SheetID, at, n int) error {
	return e.insert(sheet, formula.Cols, at, n)
}

func (e *Engine) insert(sheet ir.SheetID, axis formula.Axis, at, n int) error {
	index, ok := e.SheetIndex(sheet)
	if !ok {
		return NewInvalidSheetError(sheet, "no such sheet")
	}
	limit := ir.MaxRows
	if axis == formula.Cols {
		limit = ir.MaxCols
	}
	if n <= 0 || at < 0 || at >= limit {
		return NewInvalidCellError(sheet, at, n)
	}

	move := func(id ir.CellID) (ir.CellID, bool) {
		if id.Sheet != sheet {
			return id, true
		}
		switch {
		case axis == formula.Rows && id.Row >= at:
			id.Row += n
		case axis == formula.Cols && id.Col >= at:
			id.Col += n
		default:
			return id, true
		}
		return id, id.Row < ir.MaxRows && id.Col < ir.MaxCols
	}

	e.edit(func() {
		e.structural = true
		e.graph.ApplyMapping(move)
		e.driver.Reset()

		e.dynamic = remap(e.dynamic, move)
		e.pending = remap(e.pending, move)
		saved := make(map[ir.CellID]*cell, len(e.saved))
		for id, c := range e.saved {
			if to, keep := move(id); keep {
				saved[to] = c
			}
		}
		e.saved = saved

		cells := make(map[ir.CellID]*cell, len(e.cells))
		for id, c := range e.cells {
			to, keep := move(id)
			if !keep {
				continue
			}
			cells[to] = c
			if to != id {
				e.pending[to] = struct{}{}
			}
		}
		e.cells = cells

		for _, id := range e.formulaCells() {
			c := e.cells[id]
			out, changed := formula.ShiftRefs(c.expr, id.Sheet, sheet, axis, at, n)
			if !changed {
				continue
			}
			c.expr = out
			e.reformat(c)
			e.wire(id, c)
			e.pending[id] = struct{}{}
		}

		moved := make(map[string]bool)
		for _, nr := range e.names.List() {
			t, shifted := nr.Target.Shift(index, axis, at, n)
			if !shifted {
				continue
			}
			nr.Target = t
			_ = e.names.Set(nr)
			moved[ir.Fold(nr.Name)] = true
		}
		e.rewireNames(moved)
	})
	e.logger.Debug("structure edited", "sheet", sheet, "edit", describeInsert(axis, at, n))
	return nil
}

func remap(set map[ir.CellID]struct{}, move func(ir.CellID) (ir.CellID, bool)) map[ir.CellID]struct{} {
	out := make(map[ir.CellID]struct{}, len(set))
	for id := range set {
		if to, keep := move(id); keep {
			out[to] = struct{}{}
		}
	}
	return out
}

// describeInsert renders an axis edit for logs, e.g. "insert 2 rows at 5".
func describeInsert(axis formula.Axis, at, n int) string {
	return fmt.Sprintf("insert %d %s at %d", n, axis, at)
}
