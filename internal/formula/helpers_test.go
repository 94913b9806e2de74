package formula

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
)

// fakeBook is an in-memory Lookup. Sheet ids are index+1.
type fakeBook struct {
	sheets  []string
	cells   map[ir.CellID]ir.Value
	names   *NameStore
	current ir.SheetID
	cell    ir.CellID
	now     time.Time
}

func newFakeBook(sheets ...string) *fakeBook {
	if len(sheets) == 0 {
		sheets = []string{"Sheet1"}
	}
	return &fakeBook{
		sheets:  sheets,
		cells:   make(map[ir.CellID]ir.Value),
		names:   NewNameStore(),
		current: 1,
		now:     time.Date(2026, 1, 15, 12, 30, 0, 0, time.UTC),
	}
}

// set stores values on the current sheet. Strings go through
// ParseLiteral so "5" becomes a number.
func (b *fakeBook) set(t *testing.T, a1 string, v any) {
	t.Helper()
	b.setOn(t, b.current, a1, v)
}

func (b *fakeBook) setOn(t *testing.T, sheet ir.SheetID, a1 string, v any) {
	t.Helper()
	addr, err := ir.ParseA1(a1)
	require.NoError(t, err)
	id := ir.NewCellID(sheet, addr.Row, addr.Col)
	switch val := v.(type) {
	case ir.Value:
		b.cells[id] = val
	case string:
		b.cells[id] = ir.ParseLiteral(val)
	case int:
		b.cells[id] = ir.Number(val)
	case float64:
		b.cells[id] = ir.Number(val)
	case bool:
		b.cells[id] = ir.Boolean(val)
	default:
		t.Fatalf("unsupported value %T", v)
	}
}

func (b *fakeBook) eval(t *testing.T, text string) ir.Value {
	t.Helper()
	e, err := Parse(text)
	require.NoError(t, err, text)
	return Evaluate(Bind(e, b), b)
}

func (b *fakeBook) SheetIDByName(name string) (ir.SheetID, bool) {
	for i, s := range b.sheets {
		if ir.EqualFold(s, name) {
			return ir.SheetID(i + 1), true
		}
	}
	return 0, false
}

func (b *fakeBook) SheetIDAt(index int) (ir.SheetID, bool) {
	if index < 0 || index >= len(b.sheets) {
		return 0, false
	}
	return ir.SheetID(index + 1), true
}

func (b *fakeBook) SheetName(id ir.SheetID) (string, bool) {
	i := int(id) - 1
	if i < 0 || i >= len(b.sheets) {
		return "", false
	}
	return b.sheets[i], true
}

func (b *fakeBook) ResolveName(name string) (NameTarget, bool) {
	return b.names.ResolveName(name)
}

func (b *fakeBook) CurrentSheet() ir.SheetID { return b.current }

func (b *fakeBook) CurrentCell() (ir.CellID, bool) { return b.cell, true }

func (b *fakeBook) Value(id ir.CellID) ir.Value {
	if v, ok := b.cells[id]; ok {
		return v
	}
	return ir.Empty{}
}

func (b *fakeBook) Now() time.Time { return b.now }

func (b *fakeBook) Random() float64 { return 0.5 }

func cell(sheet ir.SheetID, a1 string) ir.CellID {
	addr, err := ir.ParseA1(a1)
	if err != nil {
		panic(err)
	}
	return ir.NewCellID(sheet, addr.Row, addr.Col)
}
