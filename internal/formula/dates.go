package formula

import (
	"math"
	"strings"
	"time"
)

// Serial dates count days from 1899-12-30; the fractional part is the
// time of day.
const (
	epochJDN      = 2415019
	secondsPerDay = 86400
)

// DateToSerial converts a calendar date to a serial day number.
// Months outside 1..12 roll into adjacent years and out-of-range days
// roll into adjacent months.
func DateToSerial(year, month, day int) float64 {
	year += floorDiv(month-1, 12)
	month = floorMod(month-1, 12) + 1

	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return float64(jdn - epochJDN)
}

// SerialToDate converts a serial day number to (year, month, day),
// ignoring any time-of-day fraction.
func SerialToDate(serial float64) (year, month, day int) {
	jdn := int(math.Floor(serial)) + epochJDN
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153

	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = 100*b + d - 4800 + m/10
	return year, month, day
}

// DaysInMonth returns the length of month in year (Gregorian).
func DaysInMonth(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// TimeToSerial converts t, read in its own location, to a serial date
// including the time-of-day fraction.
func TimeToSerial(t time.Time) float64 {
	y, m, d := t.Date()
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	frac := (float64(secs) + float64(t.Nanosecond())/1e9) / secondsPerDay
	return DateToSerial(y, int(m), d) + frac
}

// addMonths shifts (year, month) by n months.
func addMonths(year, month, n int) (int, int) {
	total := year*12 + (month - 1) + n
	return floorDiv(total, 12), floorMod(total, 12) + 1
}

// timeOfDay returns the seconds past midnight encoded in a serial,
// rounded to the nearest second.
func timeOfDay(serial float64) int {
	frac := serial - math.Floor(serial)
	secs := int(math.Round(frac * secondsPerDay))
	return secs % secondsPerDay
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses the date text forms accepted by DATEVALUE: ISO
// (2023-11-07), US (11/07/2023) and a few written-out variants.
func ParseDate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return TimeToSerial(t), true
		}
	}
	return 0, false
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
