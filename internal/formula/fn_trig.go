package formula

import (
	"math"

	"github.com/roach88/gridcalc/internal/ir"
)

var trigFuncs = map[string]fn{
	"SIN":     unaryMath("SIN", math.Sin),
	"COS":     unaryMath("COS", math.Cos),
	"TAN":     unaryMath("TAN", math.Tan),
	"ASIN":    unitDomain("ASIN", math.Asin),
	"ACOS":    unitDomain("ACOS", math.Acos),
	"ATAN":    unaryMath("ATAN", math.Atan),
	"ATAN2":   fnAtan2,
	"DEGREES": unaryMath("DEGREES", func(x float64) float64 { return x * 180 / math.Pi }),
	"RADIANS": unaryMath("RADIANS", func(x float64) float64 { return x * math.Pi / 180 }),
	"LOG":     fnLog,
	"LOG10":   fnLog10,
}

// unitDomain wraps inverse functions defined on [-1, 1].
func unitDomain(name string, f func(float64) float64) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		x, err := c.num(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		if x < -1 || x > 1 {
			return ir.ErrNum
		}
		return numberResult(f(x))
	}
}

// fnAtan2 takes (x, y), in that order.
func fnAtan2(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("ATAN2", args, 2, 2); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	y, err := c.num(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	if x == 0 && y == 0 {
		return ir.ErrDiv0
	}
	return ir.Number(math.Atan2(y, x))
}

// fnLog defaults to base 10.
func fnLog(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("LOG", args, 1, 2); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if x <= 0 {
		return ir.ErrNum
	}
	if len(args) == 1 {
		return ir.Number(math.Log10(x))
	}
	base, err := c.num(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	if base <= 0 || base == 1 {
		return ir.ErrNum
	}
	return numberResult(math.Log(x) / math.Log(base))
}

func fnLog10(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("LOG10", args, 1, 1); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if x <= 0 {
		return ir.ErrNum
	}
	return ir.Number(math.Log10(x))
}
