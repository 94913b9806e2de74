package formula

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

// fn is a built-in function. It receives unevaluated argument
// expressions so that it can treat references as ranges.
type fn func(c *evalCtx, args []Expr) ir.Value

// refFn is a built-in that evaluates to a reference (INDIRECT, OFFSET).
type refFn func(c *evalCtx, args []Expr) (area, ir.Value)

var (
	registry       = map[string]fn{}
	referenceFuncs = map[string]refFn{}
)

func init() {
	for _, family := range []map[string]fn{
		aggregateFuncs,
		mathFuncs,
		trigFuncs,
		statisticalFuncs,
		financialFuncs,
		roundingFuncs,
		criteriaFuncs,
		arrayFuncs,
		dateTimeFuncs,
		logicalFuncs,
		textFuncs,
		lookupFuncs,
	} {
		maps.Copy(registry, family)
	}
	for name, rf := range lookupRefFuncs {
		referenceFuncs[name] = rf
		registry[name] = valueOfReference(rf)
	}
}

func valueOfReference(rf refFn) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		a, errv := rf(c, args)
		if errv != nil {
			return errv
		}
		return c.areaScalar(a)
	}
}

// IsBuiltin reports whether name (any case) is a built-in function.
func IsBuiltin(name string) bool {
	_, ok := registry[strings.ToUpper(name)]
	return ok
}

// Builtins lists every built-in function name in sorted order.
func Builtins() []string {
	return slices.Sorted(maps.Keys(registry))
}

// checkArity returns a descriptive error value when len(args) is outside
// [lo, hi]. hi < 0 means unbounded.
func checkArity(name string, args []Expr, lo, hi int) ir.Value {
	n := len(args)
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}
	switch {
	case lo == hi && lo == 1:
		return ir.Errorf("%s requires exactly one argument", name)
	case lo == hi && lo == 0:
		return ir.Errorf("%s takes no arguments", name)
	case lo == hi:
		return ir.Errorf("%s requires exactly %d arguments", name, lo)
	case hi < 0:
		return ir.Errorf("%s requires at least %d %s", name, lo, plural(lo, "argument"))
	case hi == lo+1:
		return ir.Errorf("%s requires %d or %d arguments", name, lo, hi)
	default:
		return ir.Errorf("%s requires between %d and %d arguments", name, lo, hi)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// errValue converts an area/lookup failure into an error.
func errValue(v ir.Value) error {
	if e, ok := v.(ir.Error); ok {
		return e
	}
	return ir.ErrValue
}

func (c *evalCtx) num(e Expr) (float64, error) {
	return ir.ToNumber(c.eval(e))
}

func (c *evalCtx) integer(e Expr) (int, error) {
	n, err := c.num(e)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (c *evalCtx) str(e Expr) (string, error) {
	v := c.eval(e)
	if ev, ok := v.(ir.Error); ok {
		return "", ev
	}
	return ir.ToText(v), nil
}

func (c *evalCtx) boolean(e Expr) (bool, error) {
	return ir.ToBool(c.eval(e))
}

// numericMember reports the number a range member contributes to a
// numeric aggregate. Text counts only when it parses as a number;
// booleans, blanks and errors are skipped.
func numericMember(v ir.Value) (float64, bool) {
	switch val := v.(type) {
	case ir.Number:
		return float64(val), true
	case ir.Text:
		return ir.ParseNumber(string(val))
	default:
		return 0, false
	}
}

// collectNumbers gathers the numeric inputs of an aggregate.
// References contribute numeric members only; any other argument must
// coerce to a number or its error is returned.
func (c *evalCtx) collectNumbers(args []Expr) ([]float64, error) {
	var out []float64
	for _, arg := range args {
		if isReference(arg) {
			a, errv := c.area(arg)
			if errv != nil {
				return nil, errValue(errv)
			}
			for _, v := range c.values(a) {
				if n, ok := numericMember(v); ok {
					out = append(out, n)
				}
			}
			continue
		}
		n, err := c.num(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// collectValues expands references and evaluates scalars.
func (c *evalCtx) collectValues(args []Expr) ([]ir.Value, error) {
	var out []ir.Value
	for _, arg := range args {
		if isReference(arg) {
			a, errv := c.area(arg)
			if errv != nil {
				return nil, errValue(errv)
			}
			out = append(out, c.values(a)...)
			continue
		}
		out = append(out, c.eval(arg))
	}
	return out, nil
}

// withNumbers runs agg over collectNumbers(args), mapping failures to
// error values.
func (c *evalCtx) withNumbers(args []Expr, agg func([]float64) ir.Value) ir.Value {
	vals, err := c.collectNumbers(args)
	if err != nil {
		return ir.AsError(err)
	}
	return agg(vals)
}

func describeShape(what string, idx int, got, want area) ir.Value {
	return ir.Error{Msg: fmt.Sprintf("%s: argument %d has shape %s, expected %s", what, idx, got.shape(), want.shape())}
}
