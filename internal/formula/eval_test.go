package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
)

type evalCase struct {
	formula string
	want    ir.Value
}

func runEvalCases(t *testing.T, book *fakeBook, cases []evalCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.formula, func(t *testing.T) {
			got := book.eval(t, tc.formula)
			if n, ok := tc.want.(ir.Number); ok {
				gn, isNum := got.(ir.Number)
				require.True(t, isNum, "got %#v", got)
				assert.InDelta(t, float64(n), float64(gn), 1e-9)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluate_Operators(t *testing.T) {
	book := newFakeBook()
	book.set(t, "A1", 10)
	book.set(t, "A2", "hello")
	book.set(t, "A3", true)

	runEvalCases(t, book, []evalCase{
		{"=1+2*3", ir.Number(7)},
		{"=(1+2)*3", ir.Number(9)},
		{"=2^3", ir.Number(8)},
		{"=-2^2", ir.Number(4)},
		{"=50%", ir.Number(0.5)},
		{"=A1/4", ir.Number(2.5)},
		{"=A1/0", ir.ErrDiv0},
		{"=A2+1", ir.ErrValue},
		{"=A3+1", ir.Number(2)},
		{"=B9", ir.Number(0)},
		{"=B9+1", ir.Number(1)},
		{"=A2&\" world\"", ir.Text("hello world")},
		{"=A1&\"%\"", ir.Text("10%")},
		{"=A2=\"HELLO\"", ir.Boolean(true)},
		{"=A1>9.5", ir.Boolean(true)},
		{"=A1<>10", ir.Boolean(false)},
		{"=\"10\"=A1", ir.Boolean(true)},
		{"=TRUE>FALSE", ir.ErrValue},
		{"=TRUE=TRUE", ir.Boolean(true)},
		{"=#N/A+1", ir.ErrNA},
		{"=1/0+#N/A", ir.ErrDiv0},
		{"=0.1+0.2=0.3", ir.Boolean(true)},
	})
}

func TestEvaluate_RangeAsScalar(t *testing.T) {
	book := newFakeBook()
	book.set(t, "A1", 3)
	assert.Equal(t, ir.Number(3), book.eval(t, "=A1:A1"))
	assert.Equal(t, ir.Error{Msg: "Range must be used in a function"}, book.eval(t, "=A1:A2"))
}

func TestEvaluate_UnknownFunction(t *testing.T) {
	book := newFakeBook()
	assert.Equal(t, ir.ErrName, book.eval(t, "=NOSUCHFN(1)"))
	assert.Equal(t, ir.ErrName, book.eval(t, "=Undefined+1"))
}

func TestEvaluate_CrossSheetAndNames(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	book.setOn(t, 2, "A1", 4)
	book.setOn(t, 2, "A2", 6)
	require.NoError(t, book.names.Set(NamedRange{Name: "Values", Target: RangeTarget(1, 0, 0, 1, 0)}))
	require.NoError(t, book.names.Set(NamedRange{Name: "First", Target: CellTarget(1, 0, 0)}))

	runEvalCases(t, book, []evalCase{
		{"=Data!A1*2", ir.Number(8)},
		{"=SUM(Data!A1:A2)", ir.Number(10)},
		{"=SUM(Values)", ir.Number(10)},
		{"=First+1", ir.Number(5)},
		{"=Gone!A1", ir.ErrRef},
		{"=SUM(Gone!A1:A2)", ir.ErrRef},
	})
}

func TestEvaluate_ArityErrorsAreValues(t *testing.T) {
	book := newFakeBook()
	runEvalCases(t, book, []evalCase{
		{"=ABS()", ir.Error{Msg: "ABS requires exactly one argument"}},
		{"=PI(1)", ir.Error{Msg: "PI takes no arguments"}},
		{"=DATE(1,2)", ir.Error{Msg: "DATE requires exactly 3 arguments"}},
		{"=ROUND()", ir.Error{Msg: "ROUND requires 1 or 2 arguments"}},
		{"=SUMPRODUCT()", ir.Error{Msg: "SUMPRODUCT requires at least 1 argument"}},
		{"=OFFSET(A1)", ir.Error{Msg: "OFFSET requires between 3 and 5 arguments"}},
	})
}

func TestEvaluate_EveryBuiltinIsTotal(t *testing.T) {
	book := newFakeBook()
	book.set(t, "A1", "text")
	argSets := []string{"", "A1", "A1,A1", "1,\"x\",A1:B2", "-1,-1,-1,-1,-1", "#REF!"}
	for _, name := range Builtins() {
		for _, args := range argSets {
			formula := "=" + name + "(" + args + ")"
			assert.NotPanics(t, func() { book.eval(t, formula) }, formula)
		}
	}
}
