package ir

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SheetID is a stable sheet handle. It survives renames and reordering.
type SheetID uint64

// CellID identifies one cell by sheet handle, zero-based row and column.
type CellID struct {
	Sheet SheetID `json:"sheet"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
}

// NewCellID creates a CellID.
func NewCellID(sheet SheetID, row, col int) CellID {
	return CellID{Sheet: sheet, Row: row, Col: col}
}

// String renders the id as Sheet{id}!{col}{row}, e.g. "Sheet1!B3".
func (c CellID) String() string {
	return fmt.Sprintf("Sheet%d!%s", c.Sheet, c.A1())
}

// A1 renders only the in-sheet address, e.g. "B3".
func (c CellID) A1() string {
	return ColToLetters(c.Col) + fmt.Sprint(c.Row+1)
}

// MarshalText lets CellID serve as a JSON map key.
func (c CellID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the String form back into a CellID.
func (c *CellID) UnmarshalText(b []byte) error {
	s := string(b)
	rest, ok := strings.CutPrefix(s, "Sheet")
	if !ok {
		return fmt.Errorf("cell id %q: missing Sheet prefix", s)
	}
	idPart, addr, ok := strings.Cut(rest, "!")
	if !ok {
		return fmt.Errorf("cell id %q: missing '!'", s)
	}
	var id uint64
	if _, err := fmt.Sscanf(idPart, "%d", &id); err != nil {
		return fmt.Errorf("cell id %q: bad sheet: %w", s, err)
	}
	a, err := ParseA1(addr)
	if err != nil {
		return fmt.Errorf("cell id %q: %w", s, err)
	}
	*c = CellID{Sheet: SheetID(id), Row: a.Row, Col: a.Col}
	return nil
}

// CompareCellID orders cells by (sheet, row, col).
// All deterministic tie-breaks in the engine use this order.
func CompareCellID(a, b CellID) int {
	if c := cmp.Compare(a.Sheet, b.Sheet); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

// SortCellIDs sorts ids in place and returns them.
func SortCellIDs(ids []CellID) []CellID {
	slices.SortFunc(ids, CompareCellID)
	return ids
}

// SortedCellIDs returns the keys of set in (sheet, row, col) order.
func SortedCellIDs(set map[CellID]struct{}) []CellID {
	out := make([]CellID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return SortCellIDs(out)
}

// ColToLetters converts a zero-based column to letters: 0=A, 25=Z, 26=AA.
func ColToLetters(col int) string {
	if col < 0 {
		return "?"
	}
	var buf []byte
	n := col + 1
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	slices.Reverse(buf)
	return string(buf)
}

// LettersToCol converts column letters to a zero-based index.
// Returns -1 when s contains anything but ASCII letters.
func LettersToCol(s string) int {
	if s == "" {
		return -1
	}
	col := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int(ch-'A'+1)
		case ch >= 'a' && ch <= 'z':
			col = col*26 + int(ch-'a'+1)
		default:
			return -1
		}
		if col > MaxCols {
			return -1
		}
	}
	return col - 1
}
