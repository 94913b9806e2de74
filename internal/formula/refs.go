package formula

import (
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

// dynamicFunctions have reference sets or results that cannot be known
// from the formula text alone. Cells using them are recomputed every pass.
var dynamicFunctions = map[string]bool{
	"INDIRECT":    true,
	"OFFSET":      true,
	"TODAY":       true,
	"NOW":         true,
	"RAND":        true,
	"RANDBETWEEN": true,
}

// ExtractCellIDs returns the deduplicated set of cells a bound expression
// reads when evaluated on contextSheet.
//
// Ranges expand inclusively regardless of corner order. Named ranges
// resolve through names and sheets; unresolved names and references to
// removed sheets are skipped.
func ExtractCellIDs(e Expr, contextSheet ir.SheetID, names NameResolver, sheets SheetIndexResolver) map[ir.CellID]struct{} {
	out := make(map[ir.CellID]struct{})
	Walk(e, func(n Expr) bool {
		switch r := n.(type) {
		case CellRef:
			if sheet, ok := r.Sheet.Resolve(contextSheet); ok {
				out[ir.NewCellID(sheet, r.Row, r.Col)] = struct{}{}
			}
		case RangeRef:
			if sheet, ok := r.Sheet.Resolve(contextSheet); ok {
				addArea(out, sheet, r.Start.Row, r.Start.Col, r.End.Row, r.End.Col)
			}
		case NameRef:
			if names == nil || sheets == nil {
				return true
			}
			t, ok := names.ResolveName(r.Name)
			if !ok {
				return true
			}
			sheet, ok := sheets.SheetIDAt(t.Sheet)
			if !ok {
				return true
			}
			addArea(out, sheet, t.StartRow, t.StartCol, t.EndRow, t.EndCol)
		}
		return true
	})
	return out
}

// ExtractCellIDList is ExtractCellIDs in (sheet, row, col) order.
func ExtractCellIDList(e Expr, contextSheet ir.SheetID, names NameResolver, sheets SheetIndexResolver) []ir.CellID {
	return ir.SortedCellIDs(ExtractCellIDs(e, contextSheet, names, sheets))
}

func addArea(out map[ir.CellID]struct{}, sheet ir.SheetID, r0, c0, r1, c1 int) {
	minR, maxR := min(r0, r1), max(r0, r1)
	minC, maxC := min(c0, c1), max(c0, c1)
	for row := minR; row <= maxR; row++ {
		for col := minC; col <= maxC; col++ {
			out[ir.NewCellID(sheet, row, col)] = struct{}{}
		}
	}
}

// ReferencedNames returns the folded names of every NameRef in e.
func ReferencedNames(e Expr) []string {
	seen := make(map[string]bool)
	var out []string
	Walk(e, func(n Expr) bool {
		if r, ok := n.(NameRef); ok {
			key := ir.Fold(r.Name)
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
		return true
	})
	return out
}

// HasDynamicDeps reports whether e calls a function whose inputs cannot
// be determined statically.
func HasDynamicDeps(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if c, ok := n.(Call); ok && dynamicFunctions[strings.ToUpper(c.Name)] {
			found = true
		}
		return !found
	})
	return found
}
