package formula

import (
	"slices"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

var lookupFuncs = map[string]fn{
	"INDEX":   fnIndex,
	"MATCH":   fnMatch,
	"VLOOKUP": tableLookup("VLOOKUP", false),
	"HLOOKUP": tableLookup("HLOOKUP", true),
	"XLOOKUP": fnXLookup,
	"ROW":     position("ROW", func(a area) int { return a.r0 }, func(id ir.CellID) int { return id.Row }),
	"COLUMN":  position("COLUMN", func(a area) int { return a.c0 }, func(id ir.CellID) int { return id.Col }),
	"ROWS":    dimension("ROWS", area.rows),
	"COLUMNS": dimension("COLUMNS", area.cols),
}

// lookupRefFuncs evaluate to references and may stand wherever a range is
// expected.
var lookupRefFuncs = map[string]refFn{
	"INDIRECT": fnIndirect,
	"OFFSET":   fnOffset,
}

// CellLocator is implemented by lookups that know which cell is being
// evaluated. ROW() and COLUMN() without arguments need it.
type CellLocator interface {
	CurrentCell() (ir.CellID, bool)
}

// fnIndirect parses its text argument as a reference. The reference is
// bound against the live sheets at evaluation time.
func fnIndirect(c *evalCtx, args []Expr) (area, ir.Value) {
	if errv := checkArity("INDIRECT", args, 1, 2); errv != nil {
		return area{}, errv
	}
	text, err := c.str(args[0])
	if err != nil {
		return area{}, ir.AsError(err)
	}
	e, err := Parse(text)
	if err != nil {
		return area{}, ir.ErrRef
	}
	switch e.(type) {
	case CellRef, RangeRef, NameRef:
	default:
		return area{}, ir.ErrRef
	}
	return c.area(Bind(e, c.lk))
}

// fnOffset shifts a base reference by (rows, cols) and optionally resizes
// it to height x width.
func fnOffset(c *evalCtx, args []Expr) (area, ir.Value) {
	if errv := checkArity("OFFSET", args, 3, 5); errv != nil {
		return area{}, errv
	}
	base, errv := c.area(args[0])
	if errv != nil {
		return area{}, errv
	}
	var dims [4]int
	dims[2], dims[3] = base.rows(), base.cols()
	for i, arg := range args[1:] {
		n, err := c.integer(arg)
		if err != nil {
			return area{}, ir.AsError(err)
		}
		dims[i] = n
	}
	r0, c0 := base.r0+dims[0], base.c0+dims[1]
	height, width := dims[2], dims[3]
	if r0 < 0 || c0 < 0 || height < 1 || width < 1 ||
		r0+height > ir.MaxRows || c0+width > ir.MaxCols {
		return area{}, ir.ErrRef
	}
	return newArea(base.sheet, r0, c0, r0+height-1, c0+width-1), nil
}

// fnIndex returns the value at a 1-based (row, col) offset in a range.
// A single index into a one-row range selects a column.
func fnIndex(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("INDEX", args, 2, 3); errv != nil {
		return errv
	}
	a, errv := c.area(args[0])
	if errv != nil {
		return errv
	}
	row, err := c.integer(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	col := 1
	if len(args) == 3 {
		if col, err = c.integer(args[2]); err != nil {
			return ir.AsError(err)
		}
	} else if a.rows() == 1 {
		row, col = 1, row
	}
	if row < 1 || col < 1 {
		return ir.ErrValue
	}
	if row > a.rows() || col > a.cols() {
		return ir.ErrRef
	}
	return c.lk.Value(a.at(row-1, col-1))
}

// matchPosition finds key in vals. mode 0 is an exact match, 1 the
// largest value not above key and -1 the smallest value not below key.
// Only members of key's kind take part in approximate matches.
func matchPosition(vals []ir.Value, key ir.Value, mode int) (int, bool) {
	best := -1
	for i, v := range vals {
		if mode == 0 {
			if lookupEqual(v, key) {
				return i, true
			}
			continue
		}
		if v.Kind() != key.Kind() {
			continue
		}
		cmp := ir.Compare(v, key)
		if mode > 0 && cmp > 0 || mode < 0 && cmp < 0 {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		toBest := ir.Compare(v, vals[best])
		if mode > 0 && toBest > 0 || mode < 0 && toBest < 0 {
			best = i
		}
	}
	return best, best >= 0
}

// lookupEqual is case-insensitive for text and tolerant for numbers.
func lookupEqual(a, b ir.Value) bool {
	if na, ok := a.(ir.Number); ok {
		if nb, ok := b.(ir.Number); ok {
			return ir.NumbersEqual(float64(na), float64(nb))
		}
	}
	return a.Kind() == b.Kind() && ir.Compare(a, b) == 0
}

func fnMatch(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("MATCH", args, 2, 3); errv != nil {
		return errv
	}
	key := c.eval(args[0])
	if ir.IsError(key) {
		return key
	}
	a, errv := c.area(args[1])
	if errv != nil {
		return errv
	}
	if a.rows() != 1 && a.cols() != 1 {
		return ir.ErrNA
	}
	mode := 1
	if len(args) == 3 {
		n, err := c.integer(args[2])
		if err != nil {
			return ir.AsError(err)
		}
		mode = sign3(n)
	}
	i, ok := matchPosition(c.values(a), key, mode)
	if !ok {
		return ir.ErrNA
	}
	return ir.Number(i + 1)
}

func sign3(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// tableLookup builds VLOOKUP and HLOOKUP. The key is searched along the
// first column (or row, when horizontal) and the value is taken from the
// index-th column (row) of the matching line. Sorted (the default)
// selects the largest key not above the search key.
func tableLookup(name string, horizontal bool) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 3, 4); errv != nil {
			return errv
		}
		key := c.eval(args[0])
		if ir.IsError(key) {
			return key
		}
		a, errv := c.area(args[1])
		if errv != nil {
			return errv
		}
		idx, err := c.integer(args[2])
		if err != nil {
			return ir.AsError(err)
		}
		sorted := true
		if len(args) == 4 {
			if sorted, err = c.boolean(args[3]); err != nil {
				return ir.AsError(err)
			}
		}
		lines, width := a.rows(), a.cols()
		at := a.at
		if horizontal {
			lines, width = width, lines
			at = func(i, j int) ir.CellID { return a.at(j, i) }
		}
		if idx < 1 {
			return ir.ErrValue
		}
		if idx > width {
			return ir.ErrRef
		}
		first := make([]ir.Value, lines)
		for i := range first {
			first[i] = c.lk.Value(at(i, 0))
		}
		mode := 0
		if sorted {
			mode = 1
		}
		line, ok := matchPosition(first, key, mode)
		if !ok {
			return ir.ErrNA
		}
		return c.lk.Value(at(line, idx-1))
	}
}

// fnXLookup is XLOOKUP(key, lookup, return, [if_not_found], [match_mode],
// [search_mode]). match_mode 0 is exact, -1 falls back to the next
// smaller value, 1 to the next larger and 2 matches * and ? wildcards.
// A negative search_mode searches from the end.
func fnXLookup(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("XLOOKUP", args, 3, 6); errv != nil {
		return errv
	}
	key := c.eval(args[0])
	if ir.IsError(key) {
		return key
	}
	look, errv := c.area(args[1])
	if errv != nil {
		return errv
	}
	ret, errv := c.area(args[2])
	if errv != nil {
		return errv
	}
	if look.rows() != 1 && look.cols() != 1 {
		return ir.Error{Msg: "XLOOKUP: lookup array must be a single row or column"}
	}
	if ret.size() != look.size() {
		return describeShape("XLOOKUP", 3, ret, look)
	}
	var opts [2]int
	for i := 4; i < len(args); i++ {
		n, err := c.integer(args[i])
		if err != nil {
			return ir.AsError(err)
		}
		opts[i-4] = n
	}
	matchMode, reverse := opts[0], opts[1] < 0
	if matchMode < -1 || matchMode > 2 {
		return ir.ErrValue
	}
	vals := c.values(look)
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	if reverse {
		slices.Reverse(order)
	}
	hit := -1
	switch matchMode {
	case 2:
		pattern := ir.ToText(key)
		for _, i := range order {
			if t, ok := vals[i].(ir.Text); ok && wildcardMatch(pattern, string(t)) {
				hit = i
				break
			}
		}
	default:
		for _, i := range order {
			if lookupEqual(vals[i], key) {
				hit = i
				break
			}
		}
		if hit < 0 && matchMode != 0 {
			if i, ok := matchPosition(vals, key, -matchMode); ok {
				hit = i
			}
		}
	}
	if hit < 0 {
		if len(args) >= 4 {
			return c.eval(args[3])
		}
		return ir.ErrNA
	}
	return c.values(ret)[hit]
}

// wildcardMatch reports whether s matches pattern case-insensitively.
// * matches any run, ? any single character and ~ escapes the next one.
func wildcardMatch(pattern, s string) bool {
	p, t := []rune(strings.ToLower(pattern)), []rune(strings.ToLower(s))
	var match func(pi, ti int) bool
	memo := map[[2]int]bool{}
	match = func(pi, ti int) bool {
		k := [2]int{pi, ti}
		if v, ok := memo[k]; ok {
			return v
		}
		var ok bool
		switch {
		case pi == len(p):
			ok = ti == len(t)
		case p[pi] == '*':
			ok = match(pi+1, ti) || ti < len(t) && match(pi, ti+1)
		case p[pi] == '~' && pi+1 < len(p):
			ok = ti < len(t) && p[pi+1] == t[ti] && match(pi+2, ti+1)
		case p[pi] == '?':
			ok = ti < len(t) && match(pi+1, ti+1)
		default:
			ok = ti < len(t) && p[pi] == t[ti] && match(pi+1, ti+1)
		}
		memo[k] = ok
		return ok
	}
	return match(0, 0)
}

func position(name string, fromArea func(area) int, fromCell func(ir.CellID) int) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 0, 1); errv != nil {
			return errv
		}
		if len(args) == 1 {
			a, errv := c.area(args[0])
			if errv != nil {
				return errv
			}
			return ir.Number(fromArea(a) + 1)
		}
		loc, ok := c.lk.(CellLocator)
		if !ok {
			return ir.ErrValue
		}
		id, ok := loc.CurrentCell()
		if !ok {
			return ir.ErrValue
		}
		return ir.Number(fromCell(id) + 1)
	}
}

func dimension(name string, measure func(area) int) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		a, errv := c.area(args[0])
		if errv != nil {
			return errv
		}
		return ir.Number(measure(a))
	}
}
