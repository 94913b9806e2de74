package formula

import (
	"math"

	"github.com/roach88/gridcalc/internal/ir"
)

var mathFuncs = map[string]fn{
	"ABS":         unaryMath("ABS", math.Abs),
	"SIGN":        unaryMath("SIGN", sign),
	"EXP":         unaryMath("EXP", math.Exp),
	"SQRT":        fnSqrt,
	"LN":          fnLn,
	"MOD":         fnMod,
	"POWER":       fnPower,
	"PI":          fnPi,
	"RAND":        fnRand,
	"RANDBETWEEN": fnRandBetween,
}

func unaryMath(name string, f func(float64) float64) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		x, err := c.num(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		return numberResult(f(x))
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func fnSqrt(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("SQRT", args, 1, 1); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if x < 0 {
		return ir.ErrNum
	}
	return ir.Number(math.Sqrt(x))
}

func fnLn(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("LN", args, 1, 1); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if x <= 0 {
		return ir.ErrNum
	}
	return ir.Number(math.Log(x))
}

// fnMod follows the divisor's sign: MOD(-3, 2) = 1.
func fnMod(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("MOD", args, 2, 2); errv != nil {
		return errv
	}
	n, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	d, err := c.num(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	if d == 0 {
		return ir.ErrDiv0
	}
	return numberResult(n - d*math.Floor(n/d))
}

func fnPower(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("POWER", args, 2, 2); errv != nil {
		return errv
	}
	base, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	exp, err := c.num(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	return numberResult(math.Pow(base, exp))
}

func fnPi(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("PI", args, 0, 0); errv != nil {
		return errv
	}
	return ir.Number(math.Pi)
}

func fnRand(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("RAND", args, 0, 0); errv != nil {
		return errv
	}
	return ir.Number(c.lk.Random())
}

func fnRandBetween(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("RANDBETWEEN", args, 2, 2); errv != nil {
		return errv
	}
	lo, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	hi, err := c.num(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	lo, hi = math.Ceil(lo), math.Floor(hi)
	if lo > hi {
		return ir.ErrNum
	}
	return ir.Number(lo + math.Floor(c.lk.Random()*(hi-lo+1)))
}
