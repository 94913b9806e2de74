package ir

import (
	"fmt"
	"strconv"
)

// Grid limits. Addresses outside these bounds are rejected by ParseA1.
const (
	MaxRows = 1 << 20
	MaxCols = 1 << 14
)

// A1 is a parsed single-cell address such as "$B$3".
type A1 struct {
	Row    int
	Col    int
	AbsRow bool
	AbsCol bool
}

// ParseA1 parses an A1-style address with optional $ markers.
func ParseA1(s string) (A1, error) {
	var a A1
	i := 0
	if i < len(s) && s[i] == '$' {
		a.AbsCol = true
		i++
	}
	start := i
	for i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	if i == start {
		return A1{}, fmt.Errorf("invalid cell address %q", s)
	}
	a.Col = LettersToCol(s[start:i])
	if a.Col < 0 {
		return A1{}, fmt.Errorf("invalid column in %q", s)
	}
	if i < len(s) && s[i] == '$' {
		a.AbsRow = true
		i++
	}
	digits := s[i:]
	if digits == "" {
		return A1{}, fmt.Errorf("invalid cell address %q", s)
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return A1{}, fmt.Errorf("invalid row in %q", s)
		}
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 || row > MaxRows {
		return A1{}, fmt.Errorf("row out of range in %q", s)
	}
	a.Row = row - 1
	return a, nil
}

// LooksLikeA1 reports whether s parses as a cell address.
func LooksLikeA1(s string) bool {
	_, err := ParseA1(s)
	return err == nil
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}
