package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftRefs(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	tests := []struct {
		formula string
		axis    Axis
		want    string
		changed bool
	}{
		{"=A1+A3", Rows, "A1+A5", true},
		{"=SUM(A1:A4)", Rows, "SUM(A1:A6)", true},
		{"=SUM(A3:B4)", Rows, "SUM(A5:B6)", true},
		{"=A1+B1", Rows, "A1+B1", false},
		{"=$C$1+D1", Cols, "$E$1+F1", true},
		{"=Data!A5", Rows, "Data!A5", false},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			e, err := Parse(tt.formula)
			require.NoError(t, err)
			out, changed := ShiftRefs(Bind(e, book), 1, 1, tt.axis, 2, 2)
			assert.Equal(t, tt.want, Format(out, book))
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestShiftRefs_OtherSheetContext(t *testing.T) {
	book := newFakeBook("Sheet1", "Data")
	e, err := Parse("=Sheet1!A3+A3")
	require.NoError(t, err)

	// The formula lives on Data; only the qualified reference moves.
	out, changed := ShiftRefs(Bind(e, book), 2, 1, Rows, 0, 1)
	assert.True(t, changed)
	assert.Equal(t, "Sheet1!A4+A3", Format(out, book))
}

func TestNameTarget_Shift(t *testing.T) {
	target := RangeTarget(0, 1, 0, 4, 0)

	got, moved := target.Shift(0, Rows, 3, 2)
	assert.True(t, moved)
	assert.Equal(t, RangeTarget(0, 1, 0, 6, 0), got)

	_, moved = target.Shift(1, Rows, 0, 2)
	assert.False(t, moved, "other sheet")

	_, moved = target.Shift(0, Cols, 1, 1)
	assert.False(t, moved)
}
