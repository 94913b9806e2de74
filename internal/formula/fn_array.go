package formula

import (
	"github.com/roach88/gridcalc/internal/ir"
)

var arrayFuncs = map[string]fn{
	"SUMPRODUCT": fnSumProduct,
}

// operand is one SUMPRODUCT argument: a reference area or a scalar
// treated as a 1x1 array.
type operand struct {
	area   area
	scalar ir.Value
	isRef  bool
}

func (o operand) rows() int {
	if o.isRef {
		return o.area.rows()
	}
	return 1
}

func (o operand) cols() int {
	if o.isRef {
		return o.area.cols()
	}
	return 1
}

func (c *evalCtx) operandAt(o operand, i, j int) ir.Value {
	if o.isRef {
		return c.lk.Value(o.area.at(i, j))
	}
	return o.scalar
}

// fnSumProduct multiplies corresponding members of equally shaped arrays
// and sums the products. Iteration is row-major. An error member aborts
// the call; any other non-number zeroes its position.
func fnSumProduct(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("SUMPRODUCT", args, 1, -1); errv != nil {
		return errv
	}
	ops := make([]operand, len(args))
	for k, arg := range args {
		if isReference(arg) {
			a, errv := c.area(arg)
			if errv != nil {
				return errv
			}
			ops[k] = operand{area: a, isRef: true}
		} else {
			v := c.eval(arg)
			if ir.IsError(v) {
				return v
			}
			ops[k] = operand{scalar: v}
		}
	}

	rows, cols := ops[0].rows(), ops[0].cols()
	for k, o := range ops[1:] {
		if o.rows() != rows || o.cols() != cols {
			return ir.Errorf("SUMPRODUCT: argument %d has shape %dx%d, expected %dx%d",
				k+2, o.rows(), o.cols(), rows, cols)
		}
	}

	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			product := 1.0
		operands:
			for _, o := range ops {
				switch v := c.operandAt(o, i, j).(type) {
				case ir.Number:
					product *= float64(v)
					continue
				case ir.Error:
					return v
				}
				product = 0
				break operands
			}
			sum += product
		}
	}
	return numberResult(sum)
}
