package formula

import (
	"math"
	"time"

	"github.com/roach88/gridcalc/internal/ir"
)

// Lookup is the read-only view of the workbook handed to Evaluate.
// It is valid only for the duration of one Evaluate call.
type Lookup interface {
	NameResolver
	SheetIndexResolver
	SheetNameResolver

	// CurrentSheet is the sheet that owns the formula being evaluated.
	CurrentSheet() ir.SheetID
	// Value returns the current value of a cell, Empty when unset.
	Value(id ir.CellID) ir.Value
	// Now is the wall-clock reading used by TODAY and NOW.
	Now() time.Time
	// Random returns a number in [0,1) for RAND and RANDBETWEEN.
	Random() float64
}

// Evaluate computes the value of a bound expression.
// A formula whose result is Empty (e.g. =A1 with A1 blank) yields 0.
func Evaluate(e Expr, lk Lookup) ir.Value {
	c := &evalCtx{lk: lk}
	v := c.eval(e)
	if _, ok := v.(ir.Empty); ok {
		return ir.Number(0)
	}
	return v
}

type evalCtx struct {
	lk Lookup
}

func (c *evalCtx) eval(e Expr) ir.Value {
	switch n := e.(type) {
	case NumberLit:
		return ir.Number(n.Value)
	case TextLit:
		return ir.Text(n.Value)
	case BoolLit:
		return ir.Boolean(n.Value)
	case ErrorLit:
		return n.Value
	case CellRef:
		sheet, ok := n.Sheet.Resolve(c.lk.CurrentSheet())
		if !ok {
			return ir.ErrRef
		}
		return c.lk.Value(ir.NewCellID(sheet, n.Row, n.Col))
	case RangeRef, NameRef:
		a, errv := c.area(e)
		if errv != nil {
			return errv
		}
		return c.areaScalar(a)
	case Call:
		return c.call(n)
	case Binary:
		return c.binary(n)
	case Unary:
		return c.unary(n)
	default:
		return ir.ErrValue
	}
}

// areaScalar collapses a 1x1 area to its value.
func (c *evalCtx) areaScalar(a area) ir.Value {
	if a.size() != 1 {
		return ir.Error{Msg: "Range must be used in a function"}
	}
	return c.lk.Value(a.at(0, 0))
}

func (c *evalCtx) call(n Call) ir.Value {
	fn, ok := registry[n.Name]
	if !ok {
		return ir.ErrName
	}
	return fn(c, n.Args)
}

func (c *evalCtx) unary(n Unary) ir.Value {
	v := c.eval(n.Operand)
	if ir.IsError(v) {
		return v
	}
	x, err := ir.ToNumber(v)
	if err != nil {
		return ir.AsError(err)
	}
	switch n.Op {
	case OpNeg:
		return ir.Number(-x)
	case OpPercent:
		return ir.Number(x / 100)
	default:
		return ir.Number(x)
	}
}

func (c *evalCtx) binary(n Binary) ir.Value {
	l := c.eval(n.Left)
	if ir.IsError(l) {
		return l
	}
	r := c.eval(n.Right)
	if ir.IsError(r) {
		return r
	}
	switch n.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		return arithmetic(n.Op, l, r)
	case OpConcat:
		return ir.Text(ir.ToText(l) + ir.ToText(r))
	default:
		return compareOp(n.Op, l, r)
	}
}

func arithmetic(op BinaryOp, l, r ir.Value) ir.Value {
	a, err := ir.ToNumber(l)
	if err != nil {
		return ir.AsError(err)
	}
	b, err := ir.ToNumber(r)
	if err != nil {
		return ir.AsError(err)
	}
	var out float64
	switch op {
	case OpAdd:
		out = a + b
	case OpSub:
		out = a - b
	case OpMul:
		out = a * b
	case OpDiv:
		if b == 0 {
			return ir.ErrDiv0
		}
		out = a / b
	case OpPow:
		out = math.Pow(a, b)
	}
	return numberResult(out)
}

// numberResult maps NaN and infinities to #NUM!.
func numberResult(x float64) ir.Value {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ir.ErrNum
	}
	return ir.Number(x)
}

func compareOp(op BinaryOp, l, r ir.Value) ir.Value {
	var c int
	switch lv := l.(type) {
	case ir.Number:
		if rv, ok := r.(ir.Number); ok {
			c = compareNumbers(float64(lv), float64(rv))
			return ir.Boolean(applyComparison(op, c))
		}
	case ir.Text:
		if rv, ok := r.(ir.Text); ok {
			c = ir.CompareText(string(lv), string(rv))
			return ir.Boolean(applyComparison(op, c))
		}
	case ir.Boolean:
		if rv, ok := r.(ir.Boolean); ok {
			switch op {
			case OpEq:
				return ir.Boolean(lv == rv)
			case OpNe:
				return ir.Boolean(lv != rv)
			default:
				return ir.ErrValue
			}
		}
	}
	a, errA := ir.ToNumber(l)
	b, errB := ir.ToNumber(r)
	if errA == nil && errB == nil {
		c = compareNumbers(a, b)
	} else {
		c = ir.CompareText(ir.ToText(l), ir.ToText(r))
	}
	return ir.Boolean(applyComparison(op, c))
}

func compareNumbers(a, b float64) int {
	switch {
	case ir.NumbersEqual(a, b):
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

func applyComparison(op BinaryOp, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	default:
		return false
	}
}
