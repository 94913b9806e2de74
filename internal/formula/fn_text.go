package formula

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/gridcalc/internal/ir"
)

var textFuncs = map[string]fn{
	"CONCATENATE": fnConcat("CONCATENATE"),
	"CONCAT":      fnConcat("CONCAT"),
	"LEN":         fnLen,
	"UPPER":       caseMapper("UPPER", func() cases.Caser { return cases.Upper(language.Und) }),
	"LOWER":       caseMapper("LOWER", func() cases.Caser { return cases.Lower(language.Und) }),
	"PROPER":      caseMapper("PROPER", func() cases.Caser { return cases.Title(language.Und) }),
	"TRIM":        fnTrim,
	"LEFT":        fnLeft,
	"RIGHT":       fnRight,
	"MID":         fnMid,
	"REPT":        fnRept,
	"VALUE":       fnValue,
	"EXACT":       fnExact,
	"TEXTJOIN":    fnTextJoin,
	"FIND":        fnFind,
	"SUBSTITUTE":  fnSubstitute,
	"TEXT":        fnText,
}

func fnConcat(name string) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, -1); errv != nil {
			return errv
		}
		vals, err := c.collectValues(args)
		if err != nil {
			return ir.AsError(err)
		}
		var b strings.Builder
		for _, v := range vals {
			if ev, ok := v.(ir.Error); ok {
				return ev
			}
			b.WriteString(ir.ToText(v))
		}
		return ir.Text(b.String())
	}
}

func fnLen(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("LEN", args, 1, 1); errv != nil {
		return errv
	}
	s, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	return ir.Number(utf8.RuneCountInString(s))
}

// caseMapper builds UPPER/LOWER/PROPER. Casers are stateful, so each
// call gets a fresh one.
func caseMapper(name string, caser func() cases.Caser) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		s, err := c.str(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		return ir.Text(caser().String(s))
	}
}

// fnTrim strips leading and trailing spaces and collapses inner runs.
func fnTrim(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("TRIM", args, 1, 1); errv != nil {
		return errv
	}
	s, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	return ir.Text(strings.Join(strings.Fields(s), " "))
}

// textAndCount evaluates (text, [count]) with count defaulting to 1.
func (c *evalCtx) textAndCount(name string, args []Expr) ([]rune, int, ir.Value) {
	if errv := checkArity(name, args, 1, 2); errv != nil {
		return nil, 0, errv
	}
	s, err := c.str(args[0])
	if err != nil {
		return nil, 0, ir.AsError(err)
	}
	n := 1
	if len(args) == 2 {
		if n, err = c.integer(args[1]); err != nil {
			return nil, 0, ir.AsError(err)
		}
	}
	if n < 0 {
		return nil, 0, ir.ErrValue
	}
	return []rune(s), n, nil
}

func fnLeft(c *evalCtx, args []Expr) ir.Value {
	r, n, errv := c.textAndCount("LEFT", args)
	if errv != nil {
		return errv
	}
	return ir.Text(string(r[:min(n, len(r))]))
}

func fnRight(c *evalCtx, args []Expr) ir.Value {
	r, n, errv := c.textAndCount("RIGHT", args)
	if errv != nil {
		return errv
	}
	return ir.Text(string(r[len(r)-min(n, len(r)):]))
}

// fnMid takes a 1-based start position.
func fnMid(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("MID", args, 3, 3); errv != nil {
		return errv
	}
	s, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	start, err := c.integer(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	n, err := c.integer(args[2])
	if err != nil {
		return ir.AsError(err)
	}
	if start < 1 || n < 0 {
		return ir.ErrValue
	}
	r := []rune(s)
	if start > len(r) {
		return ir.Text("")
	}
	end := min(start-1+n, len(r))
	return ir.Text(string(r[start-1 : end]))
}

// maxReptLen bounds REPT output.
const maxReptLen = 32767

func fnRept(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("REPT", args, 2, 2); errv != nil {
		return errv
	}
	s, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	n, err := c.integer(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	if n < 0 || (n > 0 && len(s) > maxReptLen/n) {
		return ir.ErrValue
	}
	return ir.Text(strings.Repeat(s, n))
}

func fnValue(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("VALUE", args, 1, 1); errv != nil {
		return errv
	}
	v := c.eval(args[0])
	if t, ok := v.(ir.Text); ok {
		s := strings.TrimSpace(string(t))
		if n, ok := ir.ParseNumber(s); ok {
			return ir.Number(n)
		}
		if serial, ok := ParseDate(s); ok {
			return ir.Number(serial)
		}
		return ir.ErrValue
	}
	n, err := ir.ToNumber(v)
	if err != nil {
		return ir.AsError(err)
	}
	return ir.Number(n)
}

// fnExact compares case-sensitively.
func fnExact(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("EXACT", args, 2, 2); errv != nil {
		return errv
	}
	a, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	b, err := c.str(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	return ir.Boolean(a == b)
}

// fnTextJoin is TEXTJOIN(delimiter, ignore_empty, values...).
func fnTextJoin(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("TEXTJOIN", args, 3, -1); errv != nil {
		return errv
	}
	delim, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	skipEmpty, err := c.boolean(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	vals, err := c.collectValues(args[2:])
	if err != nil {
		return ir.AsError(err)
	}
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if ev, ok := v.(ir.Error); ok {
			return ev
		}
		s := ir.ToText(v)
		if skipEmpty && s == "" {
			continue
		}
		parts = append(parts, s)
	}
	out := strings.Join(parts, delim)
	if len(out) > maxReptLen {
		return ir.ErrValue
	}
	return ir.Text(out)
}

// fnFind is a case-sensitive search returning a 1-based position.
func fnFind(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("FIND", args, 2, 3); errv != nil {
		return errv
	}
	needle, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	hay, err := c.str(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	start := 1
	if len(args) == 3 {
		if start, err = c.integer(args[2]); err != nil {
			return ir.AsError(err)
		}
	}
	r := []rune(hay)
	if start < 1 || start > len(r)+1 {
		return ir.ErrValue
	}
	i := strings.Index(string(r[start-1:]), needle)
	if i < 0 {
		return ir.ErrValue
	}
	return ir.Number(start + utf8.RuneCountInString(string(r[start-1:])[:i]))
}

// fnSubstitute replaces every occurrence of old, or only the
// instance-th one when the fourth argument is given.
func fnSubstitute(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("SUBSTITUTE", args, 3, 4); errv != nil {
		return errv
	}
	var s [3]string
	for i := range s {
		v, err := c.str(args[i])
		if err != nil {
			return ir.AsError(err)
		}
		s[i] = v
	}
	text, old, repl := s[0], s[1], s[2]
	if old == "" {
		return ir.Text(text)
	}
	if len(args) == 3 {
		if n := strings.Count(text, old); n > 0 && len(text)+n*(len(repl)-len(old)) > maxReptLen {
			return ir.ErrValue
		}
		return ir.Text(strings.ReplaceAll(text, old, repl))
	}
	nth, err := c.integer(args[3])
	if err != nil {
		return ir.AsError(err)
	}
	if nth < 1 {
		return ir.ErrValue
	}
	pos := 0
	for range nth {
		i := strings.Index(text[pos:], old)
		if i < 0 {
			return ir.Text(text)
		}
		pos += i + len(old)
	}
	at := pos - len(old)
	return ir.Text(text[:at] + repl + text[pos:])
}

// fnText renders a number with a digit pattern such as "#,##0.00",
// "0.0%" or "$0". Literal text around the digits is kept.
func fnText(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("TEXT", args, 2, 2); errv != nil {
		return errv
	}
	x, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	pattern, err := c.str(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	out, ok := formatNumber(x, pattern)
	if !ok {
		return ir.ErrValue
	}
	return ir.Text(out)
}

var groupingPrinter = message.NewPrinter(language.English)

func formatNumber(x float64, pattern string) (string, bool) {
	first := strings.IndexAny(pattern, "0#")
	last := strings.LastIndexAny(pattern, "0#")
	if first < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return "", false
	}
	digits := pattern[first : last+1]
	prefix, suffix := pattern[:first], pattern[last+1:]
	if strings.HasSuffix(prefix, ".") {
		prefix, digits = prefix[:len(prefix)-1], "."+digits
	}
	if strings.Contains(pattern, "%") {
		x *= 100
	}
	decimals := 0
	if dot := strings.IndexByte(digits, '.'); dot >= 0 {
		decimals = strings.Count(digits[dot:], "0") + strings.Count(digits[dot:], "#")
	}
	sign := ""
	if math.Round(x*math.Pow10(decimals)) < 0 {
		sign = "-"
	}
	x = math.Abs(x)
	var body string
	if strings.Contains(digits, ",") {
		body = groupingPrinter.Sprintf("%.*f", decimals, x)
	} else {
		body = strconv.FormatFloat(x, 'f', decimals, 64)
	}
	if strings.HasPrefix(digits, ".") && strings.HasPrefix(body, "0.") {
		body = body[1:]
	}
	return sign + prefix + body + suffix, true
}
