package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
)

func extract(t *testing.T, book *fakeBook, text string) []ir.CellID {
	t.Helper()
	e, err := Parse(text)
	require.NoError(t, err)
	return ExtractCellIDList(Bind(e, book), book.current, book.names, book)
}

func TestExtractCellIDs_RangeExpandsInclusive(t *testing.T) {
	book := newFakeBook()
	got := extract(t, book, "=SUM(B2:A1)")
	assert.Equal(t, []ir.CellID{
		cell(1, "A1"), cell(1, "B1"), cell(1, "A2"), cell(1, "B2"),
	}, got)
}

func TestExtractCellIDs_Deduplicates(t *testing.T) {
	book := newFakeBook()
	got := extract(t, book, "=A1+A1+SUM(A1:A2)")
	assert.Equal(t, []ir.CellID{cell(1, "A1"), cell(1, "A2")}, got)
}

func TestExtractCellIDs_CrossSheet(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	got := extract(t, book, "=Data!B1+C1")
	assert.Equal(t, []ir.CellID{cell(1, "C1"), cell(2, "B1")}, got)
}

func TestExtractCellIDs_SkipsDeletedSheet(t *testing.T) {
	book := newFakeBook()
	got := extract(t, book, "=Missing!A1+B1")
	assert.Equal(t, []ir.CellID{cell(1, "B1")}, got)
}

func TestExtractCellIDs_NamedRanges(t *testing.T) {
	book := newFakeBook("Sheet1", "Inputs")
	require.NoError(t, book.names.Set(NamedRange{Name: "Rate", Target: CellTarget(1, 0, 0)}))
	require.NoError(t, book.names.Set(NamedRange{Name: "Amounts", Target: RangeTarget(0, 0, 3, 1, 3)}))

	got := extract(t, book, "=Rate*SUM(Amounts)+Unknown")
	assert.Equal(t, []ir.CellID{cell(1, "D1"), cell(1, "D2"), cell(2, "A1")}, got)
}

func TestExtractCellIDs_NameOnMissingSheetIndex(t *testing.T) {
	book := newFakeBook()
	require.NoError(t, book.names.Set(NamedRange{Name: "Far", Target: CellTarget(5, 0, 0)}))
	assert.Empty(t, extract(t, book, "=Far"))
}

func TestExtractCellIDs_SelfReference(t *testing.T) {
	book := newFakeBook()
	assert.Equal(t, []ir.CellID{cell(1, "A1")}, extract(t, book, "=A1+1"))
}

func TestExtractCellIDs_Constant(t *testing.T) {
	book := newFakeBook()
	assert.Empty(t, extract(t, book, "=1+2"))
}

func TestReferencedNames(t *testing.T) {
	e, err := Parse("=Rate*rate+Total")
	require.NoError(t, err)
	assert.Equal(t, []string{"rate", "total"}, ReferencedNames(e))
}

func TestHasDynamicDeps(t *testing.T) {
	tests := map[string]bool{
		"=A1+1":                false,
		"=INDIRECT(\"A1\")":    true,
		"=SUM(OFFSET(A1,1,0))": true,
		"=TODAY()-A1":          true,
		"=IF(RAND()>0.5,1,2)":  true,
		"=ROUND(A1,2)":         false,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			e, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, want, HasDynamicDeps(e))
		})
	}
}
