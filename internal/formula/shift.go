package formula

import "github.com/roach88/gridcalc/internal/ir"

// Axis selects rows or columns for a structural edit.
type Axis int

const (
	Rows Axis = iota
	Cols
)

func (a Axis) String() string {
	if a == Cols {
		return "cols"
	}
	return "rows"
}

// ShiftRefs moves every reference into sheet whose row (or column) is at
// or past at by n, as inserting n rows (or columns) before at requires.
// ctx is the sheet that owns the formula. A range that spans at grows.
func ShiftRefs(e Expr, ctx, sheet ir.SheetID, axis Axis, at, n int) (out Expr, changed bool) {
	shift := func(c CellRef, s SheetRef) CellRef {
		if id, ok := s.Resolve(ctx); !ok || id != sheet {
			return c
		}
		if axis == Rows && c.Row >= at {
			c.Row += n
			changed = true
		}
		if axis == Cols && c.Col >= at {
			c.Col += n
			changed = true
		}
		return c
	}
	var walk func(Expr) Expr
	walk = func(e Expr) Expr {
		switch r := e.(type) {
		case CellRef:
			return shift(r, r.Sheet)
		case RangeRef:
			r.Start = shift(r.Start, r.Sheet)
			r.End = shift(r.End, r.Sheet)
			return r
		case Call:
			args := make([]Expr, len(r.Args))
			for i, a := range r.Args {
				args[i] = walk(a)
			}
			return Call{Name: r.Name, Args: args}
		case Binary:
			return Binary{Op: r.Op, Left: walk(r.Left), Right: walk(r.Right)}
		case Unary:
			return Unary{Op: r.Op, Operand: walk(r.Operand)}
		default:
			return e
		}
	}
	out = walk(e)
	return out, changed
}

// Shift applies the same move to a name target on the sheet at position
// sheetIndex.
func (t NameTarget) Shift(sheetIndex int, axis Axis, at, n int) (NameTarget, bool) {
	if t.Sheet != sheetIndex {
		return t, false
	}
	moved := false
	bump := func(v *int) {
		if *v >= at {
			*v += n
			moved = true
		}
	}
	if axis == Rows {
		bump(&t.StartRow)
		bump(&t.EndRow)
	} else {
		bump(&t.StartCol)
		bump(&t.EndCol)
	}
	return t, moved
}
