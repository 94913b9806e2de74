package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrNoSheets         = "E101" // at least one sheet required
	ErrSheetNameEmpty   = "E102" // sheet name is required
	ErrDuplicateSheet   = "E103" // sheet names are unique, ignoring case
	ErrDuplicateSheetID = "E104" // explicit sheet ids are unique
	ErrInvalidAddress   = "E105" // cell key is not an A1 address
	ErrFormulaSyntax    = "E106" // formula does not parse
	ErrInvalidName      = "E107" // named range name rejected
	ErrDuplicateName    = "E108" // named range defined twice
	ErrNameTarget       = "E109" // named range target out of bounds
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a snapshot without loading it into an engine.
// Returns all errors found (does not fail-fast), in sheet then cell
// address order.
func Validate(snap *engine.Snapshot) []ValidationError {
	var errs []ValidationError
	if len(snap.Sheets) == 0 {
		return []ValidationError{{
			Field:   "sheets",
			Message: "at least one sheet is required",
			Code:    ErrNoSheets,
		}}
	}

	names := make(map[string]bool)
	ids := make(map[ir.SheetID]bool)
	for i, ss := range snap.Sheets {
		field := fmt.Sprintf("sheets[%d]", i)
		if strings.TrimSpace(ss.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "sheet name is required and must be non-empty",
				Code:    ErrSheetNameEmpty,
			})
		} else {
			key := ir.Fold(ss.Name)
			if names[key] {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("duplicate sheet name: %q", ss.Name),
					Code:    ErrDuplicateSheet,
				})
			}
			names[key] = true
		}

		if ss.ID != 0 {
			if ids[ss.ID] {
				errs = append(errs, ValidationError{
					Field:   field + ".id",
					Message: fmt.Sprintf("duplicate sheet id: %d", ss.ID),
					Code:    ErrDuplicateSheetID,
				})
			}
			ids[ss.ID] = true
		}

		errs = append(errs, validateCells(field, ss.Cells)...)
	}

	errs = append(errs, validateNames(snap.Names, len(snap.Sheets))...)
	return errs
}

func validateCells(field string, cells map[string]string) []ValidationError {
	var errs []ValidationError
	addrs := make([]string, 0, len(cells))
	for addr := range cells {
		addrs = append(addrs, addr)
	}
	slices.SortFunc(addrs, compareAddr)

	for _, addr := range addrs {
		cellField := fmt.Sprintf("%s.cells.%s", field, addr)
		if !ir.LooksLikeA1(addr) {
			errs = append(errs, ValidationError{
				Field:   cellField,
				Message: fmt.Sprintf("%q is not an A1 address", addr),
				Code:    ErrInvalidAddress,
			})
			continue
		}
		raw := cells[addr]
		if !formula.IsFormula(raw) {
			continue
		}
		if _, err := formula.Parse(raw); err != nil {
			errs = append(errs, ValidationError{
				Field:   cellField,
				Message: fmt.Sprintf("formula %q: %v", raw, err),
				Code:    ErrFormulaSyntax,
			})
		}
	}
	return errs
}

// compareAddr orders A1 addresses by row then column; keys that do not
// parse sort last, by text.
func compareAddr(a, b string) int {
	pa, errA := ir.ParseA1(a)
	pb, errB := ir.ParseA1(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if pa.Row != pb.Row {
		return pa.Row - pb.Row
	}
	return pa.Col - pb.Col
}

func validateNames(list []formula.NamedRange, sheets int) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, nr := range list {
		field := fmt.Sprintf("names[%d]", i)
		if err := formula.ValidateName(nr.Name); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("name %q: %v", nr.Name, err),
				Code:    ErrInvalidName,
			})
		} else {
			key := ir.Fold(nr.Name)
			if seen[key] {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("duplicate name: %q", nr.Name),
					Code:    ErrDuplicateName,
				})
			}
			seen[key] = true
		}

		if msg := checkTarget(nr.Target, sheets); msg != "" {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: msg,
				Code:    ErrNameTarget,
			})
		}
	}
	return errs
}

func checkTarget(t formula.NameTarget, sheets int) string {
	switch {
	case t.Sheet < 0 || t.Sheet >= sheets:
		return fmt.Sprintf("sheet index %d out of range (workbook has %d)", t.Sheet, sheets)
	case t.StartRow < 0 || t.StartCol < 0:
		return "start row and column must be non-negative"
	case t.EndRow < t.StartRow || t.EndCol < t.StartCol:
		return "end must not precede start"
	case t.EndRow >= ir.MaxRows || t.EndCol >= ir.MaxCols:
		return "target exceeds grid bounds"
	}
	return ""
}
