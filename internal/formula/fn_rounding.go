package formula

import (
	"math"
	"strconv"

	"github.com/roach88/gridcalc/internal/ir"
)

var roundingFuncs = map[string]fn{
	"ROUND":     roundWith("ROUND", math.Round),
	"ROUNDUP":   roundWith("ROUNDUP", math.Ceil),
	"ROUNDDOWN": roundWith("ROUNDDOWN", math.Floor),
	"TRUNC":     roundWith("TRUNC", math.Floor),
	"INT":       fnInt,
	"CEILING":   fnCeiling,
	"FLOOR":     fnFloor,
}

// roundWith builds a rounding function that applies op to |x| scaled by
// 10^digits and restores the sign afterwards, so ROUNDUP moves away from
// zero and ROUNDDOWN/TRUNC move toward zero for negative inputs too.
func roundWith(name string, op func(float64) float64) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		lo := 1
		if name == "ROUNDUP" || name == "ROUNDDOWN" {
			lo = 2
		}
		if errv := checkArity(name, args, lo, 2); errv != nil {
			return errv
		}
		x, err := c.num(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		digits := 0
		if len(args) == 2 {
			if digits, err = c.integer(args[1]); err != nil {
				return ir.AsError(err)
			}
		}
		return numberResult(roundDigits(x, digits, op))
	}
}

func roundDigits(x float64, digits int, op func(float64) float64) float64 {
	if digits < 0 {
		factor := math.Pow(10, float64(-digits))
		return math.Copysign(op(clean(math.Abs(x)/factor))*factor, x)
	}
	factor := math.Pow(10, float64(digits))
	return math.Copysign(op(clean(math.Abs(x)*factor))/factor, x)
}

// clean rounds v to 15 significant digits, dropping binary noise such as
// 0.30000000000000004 or 234.49999999999997 before a rounding step.
func clean(v float64) float64 {
	if v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 15, 64), 64)
	if err != nil {
		return v
	}
	return out
}

func fnInt(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("INT", args, 1, 1); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	return ir.Number(math.Floor(x))
}

func fnCeiling(c *evalCtx, args []Expr) ir.Value {
	return toMultiple(c, "CEILING", args, math.Ceil)
}

func fnFloor(c *evalCtx, args []Expr) ir.Value {
	return toMultiple(c, "FLOOR", args, math.Floor)
}

// toMultiple rounds x to a multiple of significance (default 1).
func toMultiple(c *evalCtx, name string, args []Expr, op func(float64) float64) ir.Value {
	if errv := checkArity(name, args, 1, 2); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	sig := 1.0
	if len(args) == 2 {
		if sig, err = c.num(args[1]); err != nil {
			return ir.AsError(err)
		}
	}
	switch {
	case sig == 0 && name == "FLOOR":
		return ir.ErrDiv0
	case sig == 0:
		return ir.Number(0)
	case x > 0 && sig < 0:
		return ir.ErrNum
	}
	return numberResult(op(clean(x/sig)) * sig)
}
