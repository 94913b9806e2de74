package formula

import (
	"math"

	"github.com/roach88/gridcalc/internal/ir"
)

var statisticalFuncs = map[string]fn{
	"STDEV":       dispersion(1, math.Sqrt),
	"STDEV.S":     dispersion(1, math.Sqrt),
	"STDEV.P":     dispersion(0, math.Sqrt),
	"STDEVP":      dispersion(0, math.Sqrt),
	"VAR":         dispersion(1, nil),
	"VAR.S":       dispersion(1, nil),
	"VAR.P":       dispersion(0, nil),
	"VARP":        dispersion(0, nil),
	"NORMSDIST":   normSDist("NORMSDIST", 1),
	"NORM.S.DIST": normSDist("NORM.S.DIST", 2),
}

// dispersion builds the variance family. ddof is subtracted from the
// count in the denominator: 1 for samples, 0 for populations. finish,
// when set, is applied to the variance.
func dispersion(ddof int, finish func(float64) float64) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		return c.withNumbers(args, func(vals []float64) ir.Value {
			if len(vals) <= ddof {
				return ir.ErrDiv0
			}
			mean := 0.0
			for _, v := range vals {
				mean += v
			}
			mean /= float64(len(vals))
			ss := 0.0
			for _, v := range vals {
				d := v - mean
				ss += d * d
			}
			variance := ss / float64(len(vals)-ddof)
			if finish != nil {
				variance = finish(variance)
			}
			return numberResult(variance)
		})
	}
}

// normSDist is the standard normal distribution, cumulative unless the
// second argument is FALSE.
func normSDist(name string, maxArgs int) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, maxArgs); errv != nil {
			return errv
		}
		z, err := c.num(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return ir.ErrNum
		}
		cumulative := true
		if len(args) == 2 {
			if cumulative, err = c.boolean(args[1]); err != nil {
				return ir.ErrValue
			}
		}
		if cumulative {
			return ir.Number(0.5 * (1 + math.Erf(z/math.Sqrt2)))
		}
		return ir.Number(math.Exp(-z*z/2) / math.Sqrt(2*math.Pi))
	}
}
