package formula

import (
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

var logicalFuncs = map[string]fn{
	"IF":       fnIf,
	"AND":      logicalFold("AND", true, func(acc, v bool) bool { return acc && v }),
	"OR":       logicalFold("OR", false, func(acc, v bool) bool { return acc || v }),
	"NOT":      fnNot,
	"IFERROR":  fnIfError,
	"IFNA":     fnIfNA,
	"IFS":      fnIfs,
	"SWITCH":   fnSwitch,
	"ISNA":     fnIsNA,
	"ISBLANK":  fnIsBlank,
	"ISERROR":  isKind("ISERROR", ir.KindError),
	"ISNUMBER": isKind("ISNUMBER", ir.KindNumber),
	"ISTEXT":   isKind("ISTEXT", ir.KindText),
	"CHOOSE":   fnChoose,
}

// fnIf evaluates only the selected branch. A missing else branch yields
// FALSE.
func fnIf(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("IF", args, 2, 3); errv != nil {
		return errv
	}
	cond, err := c.boolean(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if cond {
		return c.eval(args[1])
	}
	if len(args) == 3 {
		return c.eval(args[2])
	}
	return ir.Boolean(false)
}

// logicalFold reduces booleans. Range members that are text or blank are
// skipped; a call with nothing to fold is #VALUE!.
func logicalFold(name string, seed bool, op func(acc, v bool) bool) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, -1); errv != nil {
			return errv
		}
		acc, seen := seed, false
		for _, arg := range args {
			if isReference(arg) {
				a, errv := c.area(arg)
				if errv != nil {
					return errv
				}
				for _, v := range c.values(a) {
					switch val := v.(type) {
					case ir.Error:
						return val
					case ir.Boolean, ir.Number:
						b, _ := ir.ToBool(val)
						acc, seen = op(acc, b), true
					}
				}
				continue
			}
			b, err := c.boolean(arg)
			if err != nil {
				return ir.AsError(err)
			}
			acc, seen = op(acc, b), true
		}
		if !seen {
			return ir.ErrValue
		}
		return ir.Boolean(acc)
	}
}

func fnNot(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("NOT", args, 1, 1); errv != nil {
		return errv
	}
	b, err := c.boolean(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	return ir.Boolean(!b)
}

func fnIfError(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("IFERROR", args, 2, 2); errv != nil {
		return errv
	}
	v := c.eval(args[0])
	if ir.IsError(v) {
		return c.eval(args[1])
	}
	return v
}

func fnIfNA(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("IFNA", args, 2, 2); errv != nil {
		return errv
	}
	v := c.eval(args[0])
	if isNA(v) {
		return c.eval(args[1])
	}
	return v
}

// isNA matches #N/A including the annotated forms lookups produce.
func isNA(v ir.Value) bool {
	e, ok := v.(ir.Error)
	return ok && strings.HasPrefix(e.Msg, ir.ErrNA.Msg)
}

func fnIsNA(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("ISNA", args, 1, 1); errv != nil {
		return errv
	}
	return ir.Boolean(isNA(c.eval(args[0])))
}

// fnIfs returns the value paired with the first true condition, or #N/A
// when none holds.
func fnIfs(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("IFS", args, 2, -1); errv != nil {
		return errv
	}
	if len(args)%2 != 0 {
		return ir.Error{Msg: "IFS requires condition and value pairs"}
	}
	for i := 0; i < len(args); i += 2 {
		cond, err := c.boolean(args[i])
		if err != nil {
			return ir.AsError(err)
		}
		if cond {
			return c.eval(args[i+1])
		}
	}
	return ir.ErrNA
}

// fnSwitch compares its first argument against each case value and
// returns the paired result. A trailing odd argument is the default.
func fnSwitch(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("SWITCH", args, 3, -1); errv != nil {
		return errv
	}
	subject := c.eval(args[0])
	if ir.IsError(subject) {
		return subject
	}
	cases := args[1:]
	for i := 0; i+1 < len(cases); i += 2 {
		v := c.eval(cases[i])
		if ir.IsError(v) {
			return v
		}
		if lookupEqual(subject, v) {
			return c.eval(cases[i+1])
		}
	}
	if len(cases)%2 == 1 {
		return c.eval(cases[len(cases)-1])
	}
	return ir.ErrNA
}

func fnIsBlank(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("ISBLANK", args, 1, 1); errv != nil {
		return errv
	}
	_, blank := c.eval(args[0]).(ir.Empty)
	return ir.Boolean(blank)
}

func isKind(name string, kind ir.Kind) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		return ir.Boolean(c.eval(args[0]).Kind() == kind)
	}
}

// fnChoose picks the index-th value argument (1-based).
func fnChoose(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("CHOOSE", args, 2, -1); errv != nil {
		return errv
	}
	idx, err := c.integer(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if idx < 1 || idx >= len(args) {
		return ir.ErrValue
	}
	return c.eval(args[idx])
}
