package formula

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/roach88/gridcalc/internal/ir"
)

// NameTarget is what a named range points at: a single cell or a
// rectangle on the sheet at position Sheet.
type NameTarget struct {
	Sheet    int `json:"sheet" yaml:"sheet"`
	StartRow int `json:"start_row" yaml:"start_row"`
	StartCol int `json:"start_col" yaml:"start_col"`
	EndRow   int `json:"end_row" yaml:"end_row"`
	EndCol   int `json:"end_col" yaml:"end_col"`
}

// CellTarget builds a single-cell target.
func CellTarget(sheet, row, col int) NameTarget {
	return NameTarget{Sheet: sheet, StartRow: row, StartCol: col, EndRow: row, EndCol: col}
}

// RangeTarget builds a rectangular target.
func RangeTarget(sheet, startRow, startCol, endRow, endCol int) NameTarget {
	return NameTarget{Sheet: sheet, StartRow: startRow, StartCol: startCol, EndRow: endRow, EndCol: endCol}
}

// IsCell reports whether the target is a single cell.
func (t NameTarget) IsCell() bool {
	return t.StartRow == t.EndRow && t.StartCol == t.EndCol
}

// Contains reports whether (sheet,row,col) falls inside the target.
func (t NameTarget) Contains(sheet, row, col int) bool {
	r0, r1 := min(t.StartRow, t.EndRow), max(t.StartRow, t.EndRow)
	c0, c1 := min(t.StartCol, t.EndCol), max(t.StartCol, t.EndCol)
	return t.Sheet == sheet && row >= r0 && row <= r1 && col >= c0 && col <= c1
}

// String renders the in-sheet address, e.g. "B2" or "A1:C3".
func (t NameTarget) String() string {
	start := ir.ColToLetters(t.StartCol) + fmt.Sprint(t.StartRow+1)
	if t.IsCell() {
		return start
	}
	return start + ":" + ir.ColToLetters(t.EndCol) + fmt.Sprint(t.EndRow+1)
}

// NamedRange is a user-defined name.
type NamedRange struct {
	Name        string     `json:"name" yaml:"name"`
	Target      NameTarget `json:"target" yaml:"target"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// NameResolver looks up a named range target by name (case-insensitive).
type NameResolver interface {
	ResolveName(name string) (NameTarget, bool)
}

// NameStore holds named ranges keyed case-insensitively.
type NameStore struct {
	byKey map[string]NamedRange
}

// NewNameStore creates an empty store.
func NewNameStore() *NameStore {
	return &NameStore{byKey: make(map[string]NamedRange)}
}

func nameKey(name string) string {
	return ir.Fold(strings.TrimSpace(name))
}

// Set validates and stores nr, replacing any range with the same name.
func (s *NameStore) Set(nr NamedRange) error {
	nr.Name = strings.TrimSpace(nr.Name)
	if err := ValidateName(nr.Name); err != nil {
		return err
	}
	s.byKey[nameKey(nr.Name)] = nr
	return nil
}

// Get returns the named range for name.
func (s *NameStore) Get(name string) (NamedRange, bool) {
	nr, ok := s.byKey[nameKey(name)]
	return nr, ok
}

// ResolveName implements NameResolver.
func (s *NameStore) ResolveName(name string) (NameTarget, bool) {
	nr, ok := s.Get(name)
	return nr.Target, ok
}

// Remove deletes name and returns what was removed.
func (s *NameStore) Remove(name string) (NamedRange, bool) {
	key := nameKey(name)
	nr, ok := s.byKey[key]
	if ok {
		delete(s.byKey, key)
	}
	return nr, ok
}

// Rename moves a range to a new name.
func (s *NameStore) Rename(oldName, newName string) error {
	nr, ok := s.Get(oldName)
	if !ok {
		return fmt.Errorf("named range %q not found", oldName)
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if nameKey(oldName) != nameKey(newName) {
		if _, taken := s.Get(newName); taken {
			return fmt.Errorf("named range %q already exists", newName)
		}
	}
	delete(s.byKey, nameKey(oldName))
	nr.Name = strings.TrimSpace(newName)
	s.byKey[nameKey(nr.Name)] = nr
	return nil
}

// List returns all ranges sorted by name.
func (s *NameStore) List() []NamedRange {
	out := make([]NamedRange, 0, len(s.byKey))
	for _, nr := range s.byKey {
		out = append(out, nr)
	}
	slices.SortFunc(out, func(a, b NamedRange) int {
		return ir.CompareText(a.Name, b.Name)
	})
	return out
}

// FindByCell returns the ranges whose target covers the cell.
func (s *NameStore) FindByCell(sheet, row, col int) []NamedRange {
	var out []NamedRange
	for _, nr := range s.List() {
		if nr.Target.Contains(sheet, row, col) {
			out = append(out, nr)
		}
	}
	return out
}

// Len returns the number of names.
func (s *NameStore) Len() int { return len(s.byKey) }

var reservedErrorWords = []string{"REF", "DIV", "NAME", "VALUE", "NUM", "NA", "NULL", "ERROR"}

// ValidateName checks that name can be used for a named range.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	first := []rune(name)[0]
	if unicode.IsDigit(first) {
		return fmt.Errorf("name must start with a letter or underscore, not a digit")
	}
	if !unicode.IsLetter(first) && first != '_' {
		return fmt.Errorf("name must start with a letter or underscore")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return fmt.Errorf("name can only contain letters, numbers, underscores, and dots")
		}
	}
	if strings.HasSuffix(name, ".") {
		return fmt.Errorf("name cannot end with a dot")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("name cannot have consecutive dots")
	}
	if ir.LooksLikeA1(name) {
		return fmt.Errorf("%q looks like a cell reference; choose a different name", name)
	}
	upper := strings.ToUpper(name)
	if upper == "TRUE" || upper == "FALSE" {
		return fmt.Errorf("%q is a reserved boolean value; choose a different name", name)
	}
	if slices.Contains(reservedErrorWords, upper) || ir.IsErrorLiteral(name) {
		return fmt.Errorf("%q conflicts with an error value; choose a different name", name)
	}
	if IsBuiltin(upper) {
		return fmt.Errorf("%q is a function name; choose a different name", name)
	}
	return nil
}
