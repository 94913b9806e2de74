package testutil

import (
	"fmt"
	"slices"
	"testing"

	"github.com/roach88/gridcalc/internal/ir"
)

// Cell builds a CellID from an A1 address and panics on a bad address.
// It is meant for literals in tests.
func Cell(sheet ir.SheetID, a1 string) ir.CellID {
	addr, err := ir.ParseA1(a1)
	if err != nil {
		panic(fmt.Sprintf("testutil.Cell(%d, %q): %v", sheet, a1, err))
	}
	return ir.NewCellID(sheet, addr.Row, addr.Col)
}

// Cells builds several CellIDs on one sheet.
func Cells(sheet ir.SheetID, a1s ...string) []ir.CellID {
	out := make([]ir.CellID, len(a1s))
	for i, a := range a1s {
		out[i] = Cell(sheet, a)
	}
	return out
}

// CellSetter is the part of a workbook that accepts raw cell input.
type CellSetter interface {
	SetCellValue(sheet ir.SheetID, row, col int, raw string) error
}

// Fill writes every A1 -> raw entry of grid into sheet, in (row, col)
// order so that the resulting state never depends on map iteration.
func Fill(t testing.TB, s CellSetter, sheet ir.SheetID, grid map[string]string) {
	t.Helper()
	addrs := make([]string, 0, len(grid))
	for a := range grid {
		addrs = append(addrs, a)
	}
	slices.SortFunc(addrs, func(a, b string) int {
		return ir.CompareCellID(Cell(sheet, a), Cell(sheet, b))
	})
	for _, a := range addrs {
		id := Cell(sheet, a)
		if err := s.SetCellValue(sheet, id.Row, id.Col, grid[a]); err != nil {
			t.Fatalf("set %s=%q: %v", a, grid[a], err)
		}
	}
}

// Chain returns a grid where A1 holds seed and each following row in
// column A adds one to the row above, n cells in total.
func Chain(seed string, n int) map[string]string {
	grid := map[string]string{"A1": seed}
	for i := 2; i <= n; i++ {
		grid[fmt.Sprintf("A%d", i)] = fmt.Sprintf("=A%d+1", i-1)
	}
	return grid
}
