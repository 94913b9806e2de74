package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/formula"
)

func TestCompileWorkbookBasic(t *testing.T) {
	snap, err := CompileSource("book.cue", []byte(`
		revision: 3
		sheets: [{
			name: "Sheet1"
			cells: {
				A1: 5
				A2: 1.5
				A3: true
				B1: "=A1*2"
			}
		}, {
			id:   7
			name: "Totals"
		}]
		names: [{
			name: "Rate"
			target: {sheet: 0, start_row: 1, start_col: 0, end_row: 1, end_col: 0}
		}]
	`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), snap.Revision)
	require.Len(t, snap.Sheets, 2)
	assert.Equal(t, "Sheet1", snap.Sheets[0].Name)
	assert.Equal(t, map[string]string{
		"A1": "5",
		"A2": "1.5",
		"A3": "TRUE",
		"B1": "=A1*2",
	}, snap.Sheets[0].Cells)
	assert.EqualValues(t, 7, snap.Sheets[1].ID)
	assert.Nil(t, snap.Sheets[1].Cells)

	require.Len(t, snap.Names, 1)
	assert.Equal(t, "Rate", snap.Names[0].Name)
	assert.Equal(t, formula.CellTarget(0, 1, 0), snap.Names[0].Target)
}

func TestCompileWorkbookNoSheets(t *testing.T) {
	_, err := CompileSource("book.cue", []byte(`sheets: []`))
	require.Error(t, err)
}

func TestCompileWorkbookUnknownField(t *testing.T) {
	_, err := CompileSource("book.cue", []byte(`
		sheets: [{name: "Sheet1"}]
		author: "someone"
	`))
	require.Error(t, err)
}

func TestCompileWorkbookBadCellKey(t *testing.T) {
	_, err := CompileSource("book.cue", []byte(`
		sheets: [{name: "Sheet1", cells: {total: 5}}]
	`))
	require.Error(t, err)
}

func TestCompileWorkbookTargetOrder(t *testing.T) {
	_, err := CompileSource("book.cue", []byte(`
		sheets: [{name: "Sheet1"}]
		names: [{
			name: "Bad"
			target: {sheet: 0, start_row: 4, start_col: 0, end_row: 1, end_col: 0}
		}]
	`))
	require.Error(t, err)
}

func TestCompileWorkbookSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileSource("book.cue", []byte("sheets: [\n{name: \n"))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "expected CompileError, got %T", err)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "book.cue:")
}

func TestCompileWorkbookFromValue(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`sheets: [{name: "Data", cells: {C3: "hello"}}]`)
	require.NoError(t, v.Err())

	snap, err := CompileWorkbook(v)
	require.NoError(t, err)
	assert.Equal(t, "hello", snap.Sheets[0].Cells["C3"])
}

func TestSchemaIsDefinition(t *testing.T) {
	s := Schema(cuecontext.New())
	require.NoError(t, s.Err())
	assert.True(t, s.Exists())
}
