package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/gridcalc/internal/ir"
)

type recordingSetter struct {
	calls []string
}

func (r *recordingSetter) SetCellValue(sheet ir.SheetID, row, col int, raw string) error {
	r.calls = append(r.calls, ir.NewCellID(sheet, row, col).A1()+"="+raw)
	return nil
}

func TestCell(t *testing.T) {
	assert.Equal(t, ir.NewCellID(2, 2, 1), Cell(2, "B3"))
	assert.Equal(t, []ir.CellID{ir.NewCellID(1, 0, 0), ir.NewCellID(1, 0, 26)}, Cells(1, "A1", "AA1"))
	assert.Panics(t, func() { Cell(1, "3B") })
}

func TestFill_RowMajorOrder(t *testing.T) {
	rec := &recordingSetter{}
	Fill(t, rec, 1, map[string]string{"B1": "2", "A2": "=A1", "A1": "1"})
	assert.Equal(t, []string{"A1=1", "B1=2", "A2==A1"}, rec.calls)
}

func TestChain(t *testing.T) {
	grid := Chain("5", 3)
	assert.Equal(t, map[string]string{"A1": "5", "A2": "=A1+1", "A3": "=A2+1"}, grid)
}
