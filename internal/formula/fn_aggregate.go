package formula

import (
	"math"
	"slices"

	"github.com/roach88/gridcalc/internal/ir"
)

// Aggregates over ranges. MIN and MAX of an empty set are 0 while AVERAGE
// and MEDIAN of an empty set are errors; existing workbooks depend on it.
var aggregateFuncs = map[string]fn{
	"SUM":        fnSum,
	"AVERAGE":    fnAverage("AVERAGE"),
	"AVG":        fnAverage("AVERAGE"),
	"MIN":        fnMin,
	"MAX":        fnMax,
	"COUNT":      fnCount,
	"COUNTA":     fnCountA,
	"COUNTBLANK": fnCountBlank,
	"MEDIAN":     fnMedian,
	"PRODUCT":    fnProduct,
	"SUMSQ":      fnSumSq,
}

func fnSum(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return numberResult(sum)
	})
}

func fnAverage(name string) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		return c.withNumbers(args, func(vals []float64) ir.Value {
			if len(vals) == 0 {
				return ir.Errorf("%s requires at least one value", name)
			}
			sum := 0.0
			for _, v := range vals {
				sum += v
			}
			return numberResult(sum / float64(len(vals)))
		})
	}
}

func fnMin(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		if len(vals) == 0 {
			return ir.Number(0)
		}
		return ir.Number(slices.Min(vals))
	})
}

func fnMax(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		if len(vals) == 0 {
			return ir.Number(0)
		}
		return ir.Number(slices.Max(vals))
	})
}

func fnCount(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		return ir.Number(len(vals))
	})
}

func fnCountA(c *evalCtx, args []Expr) ir.Value {
	vals, err := c.collectValues(args)
	if err != nil {
		return ir.AsError(err)
	}
	n := 0
	for _, v := range vals {
		if !isBlank(v) {
			n++
		}
	}
	return ir.Number(n)
}

func fnCountBlank(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("COUNTBLANK", args, 1, 1); errv != nil {
		return errv
	}
	a, errv := c.area(args[0])
	if errv != nil {
		return errv
	}
	n := 0
	for _, v := range c.values(a) {
		if isBlank(v) {
			n++
		}
	}
	return ir.Number(n)
}

// isBlank treats an empty cell and empty text alike.
func isBlank(v ir.Value) bool {
	switch val := v.(type) {
	case ir.Empty:
		return true
	case ir.Text:
		return val == ""
	default:
		return false
	}
}

func fnMedian(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		if len(vals) == 0 {
			return ir.Error{Msg: "MEDIAN requires at least one value"}
		}
		sorted := slices.Clone(vals)
		slices.Sort(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return ir.Number((sorted[mid-1] + sorted[mid]) / 2)
		}
		return ir.Number(sorted[mid])
	})
}

func fnProduct(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		if len(vals) == 0 {
			return ir.Number(0)
		}
		p := 1.0
		for _, v := range vals {
			p *= v
		}
		return numberResult(p)
	})
}

func fnSumSq(c *evalCtx, args []Expr) ir.Value {
	return c.withNumbers(args, func(vals []float64) ir.Value {
		sum := 0.0
		for _, v := range vals {
			sum += v * v
		}
		if math.IsInf(sum, 0) {
			return ir.ErrNum
		}
		return ir.Number(sum)
	})
}
