package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/harness"
	"github.com/roach88/gridcalc/internal/ir"
)

func loadErrCode(t *testing.T, err error) string {
	t.Helper()
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected *LoadError, got %T: %v", err, err)
	return le.Code
}

func TestLoadWorkbook_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"book.yaml": simpleWorkbook,
		"book.json": `{"sheets": [{"name": "Sheet1", "cells": {"A1": "2", "A2": "3", "B1": "=A1+A2", "C1": "=B1*2"}}]}`,
		"book.cue": `sheets: [{
	name: "Sheet1"
	cells: {
		A1: 2
		A2: 3
		B1: "=A1+A2"
		C1: "=B1*2"
	}
}]
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name, content)
			snap, err := LoadWorkbook(path)
			require.NoError(t, err)
			require.Len(t, snap.Sheets, 1)
			assert.Equal(t, "Sheet1", snap.Sheets[0].Name)
			assert.Equal(t, map[string]string{"A1": "2", "A2": "3", "B1": "=A1+A2", "C1": "=B1*2"}, snap.Sheets[0].Cells)
		})
	}
}

func TestLoadWorkbook_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
		wantMsg  string
	}{
		{"missing", "", "", ErrCodeNotFound, "workbook not found"},
		{"unsupported", "book.txt", "sheets: []", ErrCodeUnsupported, "unsupported workbook extension"},
		{"empty_yaml", "empty.yaml", "", ErrCodeLoadFailed, "workbook is empty"},
		{"unknown_field", "typo.yaml", "sheetz: []\n", ErrCodeLoadFailed, "parsing YAML"},
		{"bad_json", "bad.json", `{"sheets": [`, ErrCodeLoadFailed, "parsing JSON"},
		{"json_unknown_field", "extra.json", `{"sheets": [], "extra": 1}`, ErrCodeLoadFailed, "parsing JSON"},
		{"cue_schema", "bad.cue", "sheets: [{name: \"\"}]\n", ErrCodeBuildFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "does-not-exist.yaml")
			if tt.file != "" {
				path = writeFile(t, dir, tt.file, tt.content)
			}
			_, err := LoadWorkbook(path)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, loadErrCode(t, err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadWorkbook_Directory(t *testing.T) {
	_, err := LoadWorkbook(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, loadErrCode(t, err))
}

func TestSplitLoadError(t *testing.T) {
	code, msg := splitLoadError(&LoadError{Code: ErrCodeLoadFailed, Message: "parsing YAML: bad"})
	assert.Equal(t, ErrCodeLoadFailed, code)
	assert.Equal(t, "parsing YAML: bad", msg)

	code, msg = splitLoadError(errors.New("boom"))
	assert.Equal(t, ErrCodeGeneric, code)
	assert.Equal(t, "boom", msg)
}

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src, err := LoadWorkbook(writeFile(t, dir, "book.yaml", simpleWorkbook))
	require.NoError(t, err)
	eng, err := engine.FromSnapshot(src)
	require.NoError(t, err)

	for _, name := range []string{"out.yaml", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteWorkbook(path, eng.Snapshot()))

			back, err := LoadWorkbook(path)
			require.NoError(t, err)
			require.Len(t, back.Sheets, 1)
			assert.Equal(t, src.Sheets[0].Cells, back.Sheets[0].Cells)
			assert.NotZero(t, back.Sheets[0].ID)
		})
	}

	err = WriteWorkbook(filepath.Join(dir, "out.cue"), eng.Snapshot())
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnsupported, loadErrCode(t, err))
}

func TestLoadOps(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, dir, "ops.yaml", `atomic: true
ops:
  - { op: set_cell_value, cell: A1, text: "5" }
  - { op: set_cell_formula, sheet: 0, cell: D1, text: "=C1+1" }
  - { op: clear_cell, cell: A2 }
`)
		f, err := LoadOps(path)
		require.NoError(t, err)
		assert.True(t, f.Atomic)
		require.Len(t, f.Ops, 3)
		assert.Equal(t, harness.SetValue(0, "A1", "5"), f.Ops[0])
		assert.Equal(t, harness.Clear(0, "A2"), f.Ops[2])
	})

	errorCases := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"empty", "", "must be non-empty"},
		{"unknown_op", "ops:\n  - { op: explode }\n", `ops[0]: unknown op "explode"`},
		{"bad_cell", "ops:\n  - { op: clear_cell, cell: \"1A\" }\n", "not an A1 address"},
		{"unknown_field", "ops:\n  - { op: clear_cell, cel: A1 }\n", "parsing ops"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".yaml", tt.content)
			_, err := LoadOps(path)
			require.Error(t, err)
			assert.Equal(t, ErrCodeLoadFailed, loadErrCode(t, err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := LoadOps(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, loadErrCode(t, err))
}

func TestResolveCell(t *testing.T) {
	eng, err := engine.FromSnapshot(&engine.Snapshot{Sheets: []engine.SheetSnapshot{
		{Name: "Sheet1"},
		{Name: "Data Set"},
	}})
	require.NoError(t, err)
	first, _ := eng.SheetIDAt(0)
	second, _ := eng.SheetIDAt(1)

	tests := []struct {
		ref  string
		want ir.CellID
	}{
		{"B1", ir.NewCellID(first, 0, 1)},
		{"Data Set!A2", ir.NewCellID(second, 1, 0)},
		{"'Data Set'!$C$3", ir.NewCellID(second, 2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveCell(eng, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"Nope!A1", "ZZ", ""} {
		_, err := resolveCell(eng, bad)
		assert.Error(t, err, "ref %q", bad)
	}
}
