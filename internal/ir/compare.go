package ir

import (
	"cmp"
	"math"
	"strings"

	"golang.org/x/text/cases"
)

// NumberEpsilon is the tolerance for numeric equality in comparisons and
// criteria matching.
const NumberEpsilon = 2.220446049250313e-16

// Fold returns the case-folded form of s for case-insensitive comparison.
// A Caser is stateful, so a fresh one is used per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under Unicode case folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// CompareText orders strings case-insensitively.
func CompareText(a, b string) int {
	return strings.Compare(Fold(a), Fold(b))
}

// NumbersEqual compares with NumberEpsilon tolerance.
func NumbersEqual(a, b float64) bool {
	return math.Abs(a-b) < NumberEpsilon
}

// Compare orders values for sorting and lookups.
//
// Values of different kinds compare by kind rank (Number < Text < Boolean
// < Empty < Error). Text compares case-insensitively, false < true.
func Compare(a, b Value) int {
	ka, kb := a.Kind(), b.Kind()
	if ka != kb {
		return cmp.Compare(ka, kb)
	}
	switch va := a.(type) {
	case Number:
		return cmp.Compare(float64(va), float64(b.(Number)))
	case Text:
		return CompareText(string(va), string(b.(Text)))
	case Boolean:
		vb := b.(Boolean)
		switch {
		case va == vb:
			return 0
		case !bool(va):
			return -1
		default:
			return 1
		}
	case Error:
		return strings.Compare(va.Msg, b.(Error).Msg)
	default:
		return 0
	}
}

// Equal reports whether two values are identical in kind and content.
// Text compares exactly here; use Compare for case-insensitive order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch va := a.(type) {
	case Number:
		vb := float64(b.(Number))
		return float64(va) == vb || (math.IsNaN(float64(va)) && math.IsNaN(vb))
	default:
		return a == b
	}
}

// Delta measures how far a moved to b between two iterations of a cycle.
// Numbers report the absolute difference, identical values report 0 and
// any other change reports +Inf.
func Delta(a, b Value) float64 {
	if Equal(a, b) {
		return 0
	}
	na, aok := a.(Number)
	nb, bok := b.(Number)
	if aok && bok {
		d := math.Abs(float64(na) - float64(nb))
		if math.IsNaN(d) {
			return math.Inf(1)
		}
		return d
	}
	return math.Inf(1)
}
