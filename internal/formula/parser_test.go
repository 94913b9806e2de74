package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
)

func TestIsFormula(t *testing.T) {
	assert.True(t, IsFormula("=A1"))
	assert.False(t, IsFormula("="))
	assert.False(t, IsFormula("A1"))
	assert.False(t, IsFormula(""))
}

func TestParse_CellAndRange(t *testing.T) {
	e, err := Parse("=$B$3")
	require.NoError(t, err)
	assert.Equal(t, CellRef{Row: 2, Col: 1, AbsRow: true, AbsCol: true}, e)

	e, err = Parse("=SUM(A1:B2)")
	require.NoError(t, err)
	call, ok := e.(Call)
	require.True(t, ok)
	assert.Equal(t, "SUM", call.Name)
	require.Len(t, call.Args, 1)
	r, ok := call.Args[0].(RangeRef)
	require.True(t, ok)
	assert.Equal(t, 0, r.Start.Row)
	assert.Equal(t, 1, r.End.Col)
}

func TestParse_SheetQualified(t *testing.T) {
	e, err := Parse("='My Sheet'!C4 + Data!A1:A3")
	require.NoError(t, err)
	b, ok := e.(Binary)
	require.True(t, ok)
	left := b.Left.(CellRef)
	assert.Equal(t, SheetRef{Kind: SheetNamed, Name: "My Sheet"}, left.Sheet)
	right := b.Right.(RangeRef)
	assert.Equal(t, "Data", right.Sheet.Name)
}

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"=1+2*3", "1+2*3"},
		{"=(1+2)*3", "(1+2)*3"},
		{"=1-(2-3)", "1-(2-3)"},
		{"=-A1^2", "-A1^2"},
		{"=50%*2", "50%*2"},
		{"=\"a\"&\"b\"=\"ab\"", `"a"&"b"="ab"`},
		{"=IF(A1>=2,\"say \"\"hi\"\"\",FALSE)", `IF(A1>=2,"say ""hi""",FALSE)`},
		{"=sum(a1:b2)", "SUM(A1:B2)"},
		{"=#DIV/0!", "#DIV/0!"},
		{"=Rate*2", "Rate*2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(e, nil))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"=", "=1+", "=SUM(1,", "=(1", "=A1:", "=\"open", "=$foo", "=1 2"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestBind_ResolvesAndMarksMissingSheets(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	e, err := Parse("=Data!A1+Gone!B2")
	require.NoError(t, err)
	bound := Bind(e, book).(Binary)

	assert.Equal(t, SheetByID, bound.Left.(CellRef).Sheet.Kind)
	assert.Equal(t, ir.SheetID(2), bound.Left.(CellRef).Sheet.ID)
	assert.Equal(t, SheetRefError, bound.Right.(CellRef).Sheet.Kind)

	// The cached tree is not mutated by binding.
	assert.Equal(t, SheetNamed, e.(Binary).Left.(CellRef).Sheet.Kind)
}

func TestFormat_FollowsRename(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	e, err := Parse("=SUM(Data!A1:A3)")
	require.NoError(t, err)
	bound := Bind(e, book)
	book.sheets[1] = "Q1 Data"
	assert.Equal(t, "SUM('Q1 Data'!A1:A3)", Format(bound, book))
}

func TestMarkSheetRemoved(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	e, _ := Parse("=Data!A1+A2")
	bound := Bind(e, book)
	require.True(t, ReferencesSheet(bound, 2))

	out, changed := MarkSheetRemoved(bound, 2)
	assert.True(t, changed)
	assert.False(t, ReferencesSheet(out, 2))
	assert.Equal(t, ir.ErrRef, Evaluate(out, book))

	_, changed = MarkSheetRemoved(bound, 7)
	assert.False(t, changed)
}

func TestRenameSheetRefs_SurvivesRemoval(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	e, _ := Parse("=Data!A1+A2")
	bound := RenameSheetRefs(Bind(e, book), 2, "Q1 Data")
	require.True(t, ReferencesSheet(bound, 2))

	out, changed := MarkSheetRemoved(bound, 2)
	require.True(t, changed)
	book.sheets = book.sheets[:1]
	assert.Equal(t, "'Q1 Data'!A1+A2", Format(out, book))
}

func TestQuoteSheetName(t *testing.T) {
	assert.Equal(t, "Data", QuoteSheetName("Data"))
	assert.Equal(t, "'My Sheet'", QuoteSheetName("My Sheet"))
	assert.Equal(t, "'A1'", QuoteSheetName("A1"))
	assert.Equal(t, "'it''s'", QuoteSheetName("it's"))
}

func TestParseCache(t *testing.T) {
	pc, err := NewParseCache(2)
	require.NoError(t, err)

	e1, err := pc.Parse("=A1+1")
	require.NoError(t, err)
	e2, err := pc.Parse("=A1+1")
	require.NoError(t, err)
	assert.Equal(t, e1, e2)
	assert.Equal(t, 1, pc.Len())

	_, err = pc.Parse("=1+")
	require.Error(t, err)
	_, err = pc.Parse("=1+")
	require.Error(t, err)
	assert.Equal(t, 2, pc.Len())

	var nilCache *ParseCache
	_, err = nilCache.Parse("=1")
	require.NoError(t, err)
	assert.Equal(t, 0, nilCache.Len())
}
