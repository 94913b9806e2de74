package formula

import (
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

var criteriaFuncs = map[string]fn{
	"SUMIF":      fnSumIf,
	"COUNTIF":    fnCountIf,
	"AVERAGEIF":  fnAverageIf,
	"SUMIFS":     fnSumIfs,
	"COUNTIFS":   fnCountIfs,
	"AVERAGEIFS": fnAverageIfs,
}

// MatchesCriteria reports whether value satisfies a SUMIF-style criterion.
//
// The criterion is either a bare value (case-insensitive equality) or a
// string prefixed by >=, <=, <>, >, < or =. Prefixed comparisons are
// numeric when both sides are numbers; <> and = fall back to
// case-insensitive text comparison, the ordering operators fall back to
// bare equality against the whole criterion text.
func MatchesCriteria(value, criterion ir.Value) bool {
	crit := ir.ToText(criterion)
	v, vNum := criteriaNumber(value)

	for _, op := range []string{">=", "<=", "<>", ">", "<", "="} {
		rest, ok := strings.CutPrefix(crit, op)
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		n, nNum := ir.ParseNumber(rest)
		switch op {
		case "<>":
			if nNum && vNum {
				return !ir.NumbersEqual(v, n)
			}
			return !ir.EqualFold(ir.ToText(value), rest)
		case "=":
			if nNum && vNum {
				return ir.NumbersEqual(v, n)
			}
			return ir.EqualFold(ir.ToText(value), rest)
		}
		if nNum && vNum {
			switch op {
			case ">=":
				return v >= n
			case "<=":
				return v <= n
			case ">":
				return v > n
			case "<":
				return v < n
			}
		}
		break
	}

	switch cv := criterion.(type) {
	case ir.Number:
		if vn, ok := value.(ir.Number); ok {
			return ir.NumbersEqual(float64(vn), float64(cv))
		}
	case ir.Text:
		if vt, ok := value.(ir.Text); ok {
			return ir.EqualFold(string(vt), string(cv))
		}
	}
	return ir.EqualFold(ir.ToText(value), crit)
}

// criteriaNumber is the numeric view of a cell for criteria comparisons.
// Blank cells and booleans never compare numerically.
func criteriaNumber(v ir.Value) (float64, bool) {
	switch val := v.(type) {
	case ir.Number:
		return float64(val), true
	case ir.Text:
		return ir.ParseNumber(string(val))
	default:
		return 0, false
	}
}

// criteriaPair is one (range, criterion) condition of an *IFS call.
type criteriaPair struct {
	area      area
	criterion ir.Value
}

// matchesAll reports whether the cell at offset (i, j) passes every pair.
func (c *evalCtx) matchesAll(pairs []criteriaPair, i, j int) bool {
	for _, p := range pairs {
		if !MatchesCriteria(c.lk.Value(p.area.at(i, j)), p.criterion) {
			return false
		}
	}
	return true
}

// criteriaArgs parses (range, criterion) pairs and checks their shapes
// against want. first is the 1-based position of args[0] in the call.
func (c *evalCtx) criteriaArgs(name string, args []Expr, first int, want *area) ([]criteriaPair, ir.Value) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, ir.Errorf("%s requires range/criteria pairs", name)
	}
	pairs := make([]criteriaPair, 0, len(args)/2)
	for k := 0; k < len(args); k += 2 {
		a, errv := c.area(args[k])
		if errv != nil {
			return nil, errv
		}
		if want != nil && (a.rows() != want.rows() || a.cols() != want.cols()) {
			return nil, describeShape(name, first+k, a, *want)
		}
		if want == nil {
			want = &a
		}
		crit := c.eval(args[k+1])
		if ir.IsError(crit) {
			return nil, crit
		}
		pairs = append(pairs, criteriaPair{area: a, criterion: crit})
	}
	return pairs, nil
}

// ifTarget resolves the optional value range of SUMIF/AVERAGEIF, resized
// to the shape of the criteria range from its top-left corner.
func (c *evalCtx) ifTarget(args []Expr, crit area) (area, ir.Value) {
	if len(args) < 3 {
		return crit, nil
	}
	a, errv := c.area(args[2])
	if errv != nil {
		return area{}, errv
	}
	return newArea(a.sheet, a.r0, a.c0, a.r0+crit.rows()-1, a.c0+crit.cols()-1), nil
}

type conditionalAgg struct {
	sum   float64
	count int
}

func (c *evalCtx) conditional(name string, args []Expr, lo, hi int) (conditionalAgg, ir.Value) {
	var agg conditionalAgg
	if errv := checkArity(name, args, lo, hi); errv != nil {
		return agg, errv
	}
	crit, errv := c.area(args[0])
	if errv != nil {
		return agg, errv
	}
	criterion := c.eval(args[1])
	if ir.IsError(criterion) {
		return agg, criterion
	}
	target, errv := c.ifTarget(args, crit)
	if errv != nil {
		return agg, errv
	}
	for i := 0; i < crit.rows(); i++ {
		for j := 0; j < crit.cols(); j++ {
			if !MatchesCriteria(c.lk.Value(crit.at(i, j)), criterion) {
				continue
			}
			if n, ok := numericMember(c.lk.Value(target.at(i, j))); ok {
				agg.sum += n
				agg.count++
			} else if name == "COUNTIF" {
				agg.count++
			}
		}
	}
	return agg, nil
}

func fnSumIf(c *evalCtx, args []Expr) ir.Value {
	agg, errv := c.conditional("SUMIF", args, 2, 3)
	if errv != nil {
		return errv
	}
	return numberResult(agg.sum)
}

func fnCountIf(c *evalCtx, args []Expr) ir.Value {
	agg, errv := c.conditional("COUNTIF", args, 2, 2)
	if errv != nil {
		return errv
	}
	return ir.Number(agg.count)
}

func fnAverageIf(c *evalCtx, args []Expr) ir.Value {
	agg, errv := c.conditional("AVERAGEIF", args, 2, 3)
	if errv != nil {
		return errv
	}
	if agg.count == 0 {
		return ir.ErrDiv0
	}
	return numberResult(agg.sum / float64(agg.count))
}

// conditionalMulti evaluates SUMIFS/AVERAGEIFS style calls whose first
// argument is the value range.
func (c *evalCtx) conditionalMulti(name string, args []Expr) (conditionalAgg, ir.Value) {
	var agg conditionalAgg
	if errv := checkArity(name, args, 3, -1); errv != nil {
		return agg, errv
	}
	target, errv := c.area(args[0])
	if errv != nil {
		return agg, errv
	}
	pairs, errv := c.criteriaArgs(name, args[1:], 2, &target)
	if errv != nil {
		return agg, errv
	}
	for i := 0; i < target.rows(); i++ {
		for j := 0; j < target.cols(); j++ {
			if !c.matchesAll(pairs, i, j) {
				continue
			}
			if n, ok := numericMember(c.lk.Value(target.at(i, j))); ok {
				agg.sum += n
				agg.count++
			}
		}
	}
	return agg, nil
}

func fnSumIfs(c *evalCtx, args []Expr) ir.Value {
	agg, errv := c.conditionalMulti("SUMIFS", args)
	if errv != nil {
		return errv
	}
	return numberResult(agg.sum)
}

func fnAverageIfs(c *evalCtx, args []Expr) ir.Value {
	agg, errv := c.conditionalMulti("AVERAGEIFS", args)
	if errv != nil {
		return errv
	}
	if agg.count == 0 {
		return ir.ErrDiv0
	}
	return numberResult(agg.sum / float64(agg.count))
}

func fnCountIfs(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("COUNTIFS", args, 2, -1); errv != nil {
		return errv
	}
	pairs, errv := c.criteriaArgs("COUNTIFS", args, 1, nil)
	if errv != nil {
		return errv
	}
	first := pairs[0].area
	n := 0
	for i := 0; i < first.rows(); i++ {
		for j := 0; j < first.cols(); j++ {
			if c.matchesAll(pairs, i, j) {
				n++
			}
		}
	}
	return ir.Number(n)
}
