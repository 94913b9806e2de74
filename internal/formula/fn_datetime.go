package formula

import (
	"math"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

var dateTimeFuncs = map[string]fn{
	"DATE":      fnDate,
	"DATEVALUE": fnDateValue,
	"YEAR":      datePart("YEAR", func(y, _, _ int) int { return y }),
	"MONTH":     datePart("MONTH", func(_, m, _ int) int { return m }),
	"DAY":       datePart("DAY", func(_, _, d int) int { return d }),
	"WEEKDAY":   fnWeekday,
	"HOUR":      timePart("HOUR", func(s int) int { return s / 3600 }),
	"MINUTE":    timePart("MINUTE", func(s int) int { return s / 60 % 60 }),
	"SECOND":    timePart("SECOND", func(s int) int { return s % 60 }),
	"DATEDIF":   fnDateDif,
	"EDATE":     fnEDate,
	"EOMONTH":   fnEOMonth,
	"TODAY":     fnToday,
	"NOW":       fnNow,
}

func fnDate(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("DATE", args, 3, 3); errv != nil {
		return errv
	}
	var parts [3]int
	for i, arg := range args {
		n, err := c.integer(arg)
		if err != nil {
			return ir.AsError(err)
		}
		parts[i] = n
	}
	year := parts[0]
	if year >= 0 && year < 100 {
		year += 1900
	}
	if year < 0 || year > 9999 {
		return ir.ErrNum
	}
	return ir.Number(DateToSerial(year, parts[1], parts[2]))
}

func fnDateValue(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("DATEVALUE", args, 1, 1); errv != nil {
		return errv
	}
	s, err := c.str(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	serial, ok := ParseDate(s)
	if !ok {
		return ir.Errorf("#VALUE! Cannot parse '%s' as date", s)
	}
	return ir.Number(math.Floor(serial))
}

func datePart(name string, pick func(y, m, d int) int) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		serial, err := c.num(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		return ir.Number(pick(SerialToDate(serial)))
	}
}

func timePart(name string, pick func(secs int) int) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 1, 1); errv != nil {
			return errv
		}
		serial, err := c.num(args[0])
		if err != nil {
			return ir.AsError(err)
		}
		return ir.Number(pick(timeOfDay(serial)))
	}
}

// fnWeekday supports return types 1 (Sunday=1), 2 (Monday=1) and
// 3 (Monday=0).
func fnWeekday(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("WEEKDAY", args, 1, 2); errv != nil {
		return errv
	}
	serial, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	kind := 1
	if len(args) == 2 {
		if kind, err = c.integer(args[1]); err != nil {
			return ir.AsError(err)
		}
	}
	wd := floorMod(int(math.Floor(serial))+6, 7) // 0 = Sunday
	switch kind {
	case 1:
		return ir.Number(wd + 1)
	case 2:
		return ir.Number(floorMod(wd-1, 7) + 1)
	case 3:
		return ir.Number(floorMod(wd-1, 7))
	default:
		return ir.ErrNum
	}
}

func fnDateDif(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("DATEDIF", args, 3, 3); errv != nil {
		return errv
	}
	start, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	end, err := c.num(args[1])
	if err != nil {
		return ir.AsError(err)
	}
	unit, err := c.str(args[2])
	if err != nil {
		return ir.AsError(err)
	}
	if start > end {
		return ir.ErrNum
	}
	n, ok := dateDiff(start, end, strings.ToUpper(strings.TrimSpace(unit)))
	if !ok {
		return ir.ErrValue
	}
	return ir.Number(n)
}

// dateDiff computes DATEDIF for start <= end. Each unit truncates to
// whole periods.
func dateDiff(start, end float64, unit string) (float64, bool) {
	sy, sm, sd := SerialToDate(start)
	ey, em, ed := SerialToDate(end)
	switch unit {
	case "Y":
		years := ey - sy
		if em < sm || (em == sm && ed < sd) {
			years--
		}
		return float64(years), true
	case "M":
		months := (ey-sy)*12 + (em - sm)
		if ed < sd {
			months--
		}
		return float64(months), true
	case "D":
		return math.Floor(end) - math.Floor(start), true
	case "YM":
		months := em - sm
		if ed < sd {
			months--
		}
		if months < 0 {
			months += 12
		}
		return float64(months), true
	case "YD":
		days := DateToSerial(sy, em, ed) - math.Floor(start)
		if days < 0 {
			days = DateToSerial(sy+1, em, ed) - math.Floor(start)
		}
		return days, true
	case "MD":
		if ed >= sd {
			return float64(ed - sd), true
		}
		py, pm := addMonths(ey, em, -1)
		anchor := DateToSerial(py, pm, min(sd, DaysInMonth(py, pm)))
		return math.Floor(end) - anchor, true
	default:
		return 0, false
	}
}

// shiftMonths evaluates the (start, months) arguments shared by EDATE and
// EOMONTH and returns the shifted year and month plus the start day.
func (c *evalCtx) shiftMonths(name string, args []Expr) (year, month, day int, errv ir.Value) {
	if errv := checkArity(name, args, 2, 2); errv != nil {
		return 0, 0, 0, errv
	}
	start, err := c.num(args[0])
	if err != nil {
		return 0, 0, 0, ir.AsError(err)
	}
	n, err := c.integer(args[1])
	if err != nil {
		return 0, 0, 0, ir.AsError(err)
	}
	y, m, d := SerialToDate(start)
	y, m = addMonths(y, m, n)
	return y, m, d, nil
}

func fnEDate(c *evalCtx, args []Expr) ir.Value {
	y, m, d, errv := c.shiftMonths("EDATE", args)
	if errv != nil {
		return errv
	}
	return ir.Number(DateToSerial(y, m, min(d, DaysInMonth(y, m))))
}

func fnEOMonth(c *evalCtx, args []Expr) ir.Value {
	y, m, _, errv := c.shiftMonths("EOMONTH", args)
	if errv != nil {
		return errv
	}
	return ir.Number(DateToSerial(y, m, DaysInMonth(y, m)))
}

func fnToday(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("TODAY", args, 0, 0); errv != nil {
		return errv
	}
	return ir.Number(math.Floor(TimeToSerial(c.lk.Now())))
}

func fnNow(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("NOW", args, 0, 0); errv != nil {
		return errv
	}
	return ir.Number(TimeToSerial(c.lk.Now()))
}
