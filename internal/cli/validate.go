package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/compiler"
	"github.com/roach88/gridcalc/internal/engine"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Workbook string                     `json:"workbook"`
	Valid    bool                       `json:"valid"`
	Sheets   int                        `json:"sheets"`
	Cells    int                        `json:"cells"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workbook>",
		Short: "Check a workbook without recomputing it",
		Long: `Check a workbook file against the workbook schema: sheet names and ids,
cell addresses, formula syntax and named ranges. CUE workbooks are
unified with the #Workbook definition first.

Circular references are reported as warnings, since the engine
iterates them and may converge.

Exit codes:
  0 - Workbook valid (warnings allowed)
  1 - Validation errors
  2 - Command error (workbook not found, unsupported extension)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	result := &ValidationResult{Workbook: path}

	snap, err := LoadWorkbook(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) || loadErr.Code == ErrCodeNotFound || loadErr.Code == ErrCodeUnsupported {
			code, msg := splitLoadError(err)
			return outputValidateError(formatter, code, msg)
		}
		// Decode and schema failures are findings about the workbook.
		result.Errors = []compiler.ValidationError{{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    loadErr.Line(),
		}}
		return outputValidation(formatter, result)
	}

	result.Sheets = len(snap.Sheets)
	for _, ss := range snap.Sheets {
		result.Cells += len(ss.Cells)
	}
	formatter.VerboseLog("Checking %d sheet(s), %d cell(s) in %s", result.Sheets, result.Cells, path)

	result.Errors = compiler.Validate(snap)
	if len(result.Errors) == 0 {
		warnings, err := compiler.AnalyzeCycles(snap, engine.FromConfig(opts.settings()))
		if err != nil {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "workbook",
				Message: err.Error(),
				Code:    ErrCodeInvalidWorkbook,
			})
		}
		result.Warnings = warnings
	}
	return outputValidation(formatter, result)
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidation(formatter *OutputFormatter, result *ValidationResult) error {
	result.Valid = len(result.Errors) == 0
	if result.Valid {
		return formatter.Success(result)
	}
	first := result.Errors[0]
	if err := formatter.Failure(result, first.Code, first.Message); err != nil {
		return err
	}
	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

// WriteText renders the result for the terminal.
func (r *ValidationResult) WriteText(w io.Writer) error {
	for _, e := range r.Errors {
		fmt.Fprintf(w, "✗ %s\n", e.Error())
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "! %s: %s\n", warn.Level, warn.Message)
	}
	if r.Valid {
		fmt.Fprintf(w, "✓ %s valid (%d sheet(s), %d cell(s))\n", r.Workbook, r.Sheets, r.Cells)
	} else {
		fmt.Fprintf(w, "\nValidation failed: %d error(s)\n", len(r.Errors))
	}
	return nil
}
