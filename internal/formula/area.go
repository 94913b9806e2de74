package formula

import (
	"fmt"

	"github.com/roach88/gridcalc/internal/ir"
)

// maxAreaCells bounds how many cells a single range argument may span.
const maxAreaCells = 1 << 22

// area is a normalized rectangle on one sheet.
type area struct {
	sheet  ir.SheetID
	r0, c0 int
	r1, c1 int
}

func newArea(sheet ir.SheetID, r0, c0, r1, c1 int) area {
	return area{sheet: sheet, r0: min(r0, r1), c0: min(c0, c1), r1: max(r0, r1), c1: max(c0, c1)}
}

func (a area) rows() int { return a.r1 - a.r0 + 1 }
func (a area) cols() int { return a.c1 - a.c0 + 1 }
func (a area) size() int { return a.rows() * a.cols() }

// at returns the cell at offset (i, j) from the top-left corner.
func (a area) at(i, j int) ir.CellID {
	return ir.NewCellID(a.sheet, a.r0+i, a.c0+j)
}

func (a area) shape() string {
	return fmt.Sprintf("%dx%d", a.rows(), a.cols())
}

// values returns the area's values in row-major order.
func (c *evalCtx) values(a area) []ir.Value {
	out := make([]ir.Value, 0, a.size())
	for i := 0; i < a.rows(); i++ {
		for j := 0; j < a.cols(); j++ {
			out = append(out, c.lk.Value(a.at(i, j)))
		}
	}
	return out
}

// isReference reports whether e denotes a reference rather than a value.
func isReference(e Expr) bool {
	switch n := e.(type) {
	case CellRef, RangeRef, NameRef:
		return true
	case Call:
		_, ok := referenceFuncs[n.Name]
		return ok
	default:
		return false
	}
}

// area resolves a reference expression. The returned ir.Value is non-nil
// when resolution fails (#REF!, #NAME?, or a non-reference argument).
func (c *evalCtx) area(e Expr) (area, ir.Value) {
	ctx := c.lk.CurrentSheet()
	switch n := e.(type) {
	case CellRef:
		sheet, ok := n.Sheet.Resolve(ctx)
		if !ok {
			return area{}, ir.ErrRef
		}
		return newArea(sheet, n.Row, n.Col, n.Row, n.Col), nil
	case RangeRef:
		sheet, ok := n.Sheet.Resolve(ctx)
		if !ok {
			return area{}, ir.ErrRef
		}
		a := newArea(sheet, n.Start.Row, n.Start.Col, n.End.Row, n.End.Col)
		if a.size() > maxAreaCells {
			return area{}, ir.Errorf("range %s is too large", a.shape())
		}
		return a, nil
	case NameRef:
		t, ok := c.lk.ResolveName(n.Name)
		if !ok {
			return area{}, ir.ErrName
		}
		sheet, ok := c.lk.SheetIDAt(t.Sheet)
		if !ok {
			return area{}, ir.ErrRef
		}
		return newArea(sheet, t.StartRow, t.StartCol, t.EndRow, t.EndCol), nil
	case Call:
		if fn, ok := referenceFuncs[n.Name]; ok {
			return fn(c, n.Args)
		}
	}
	return area{}, ir.Error{Msg: "argument must be a reference"}
}
