package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/compiler"
)

func TestValidate_Valid(t *testing.T) {
	book := writeFile(t, t.TempDir(), "book.yaml", simpleWorkbook)

	out, _, err := runCLI(t, "validate", book)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+book+" valid (1 sheet(s), 4 cell(s))")
}

func TestValidate_Errors(t *testing.T) {
	book := writeFile(t, t.TempDir(), "bad.yaml", `sheets:
  - name: Sheet1
    cells:
      A1: "=SUM(1,"
      oops: "1"
  - name: SHEET1
`)

	out, _, err := runCLI(t, "--format", "json", "validate", book)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeJSON(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{compiler.ErrDuplicateSheet, compiler.ErrFormulaSyntax, compiler.ErrInvalidAddress}, codes)
	require.NotNil(t, resp.Error)
	assert.Equal(t, result.Errors[0].Code, resp.Error.Code)
}

func TestValidate_CycleWarnings(t *testing.T) {
	book := writeFile(t, t.TempDir(), "cyclic.yaml", `sheets:
  - name: Sheet1
    cells:
      A1: "=B1+1"
      B1: "=A1"
`)

	out, _, err := runCLI(t, "validate", book)
	require.NoError(t, err, "cycles are warnings")
	assert.Contains(t, out, "! warning:")
	assert.Contains(t, out, "valid")
}

func TestValidate_DecodeFailureIsFinding(t *testing.T) {
	book := writeFile(t, t.TempDir(), "typo.yaml", "sheetz: []\n")

	out, _, err := runCLI(t, "--format", "json", "validate", book)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	decodeJSON(t, out, &result)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "load", result.Errors[0].Field)
	assert.Equal(t, ErrCodeLoadFailed, result.Errors[0].Code)
}

func TestValidate_CommandErrors(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCLI(t, "validate", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")

	txt := writeFile(t, dir, "book.txt", "A1=1")
	out, _, err = runCLI(t, "validate", txt)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}
