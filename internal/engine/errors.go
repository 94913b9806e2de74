package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/gridcalc/internal/ir"
)

// RuntimeError is a rejected engine call: bad addresses, bad names,
// unbalanced batches.
//
// Evaluation problems are never RuntimeErrors; they become ir.Error
// values inside cells.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Sheet is the sheet involved, when there is one.
	Sheet ir.SheetID

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors. The values double as the
// codes reported in batch errors.
type RuntimeErrorCode string

const (
	ErrCodeInvalidSheet   RuntimeErrorCode = "invalid_sheet"
	ErrCodeInvalidCell    RuntimeErrorCode = "invalid_cell"
	ErrCodeInvalidName    RuntimeErrorCode = "invalid_name"
	ErrCodeDuplicateSheet RuntimeErrorCode = "duplicate_sheet"
	ErrCodeBatchUnderflow RuntimeErrorCode = "batch_underflow"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Sheet != 0 {
		return fmt.Sprintf("%s: %s (sheet=%d)", e.Code, e.Message, e.Sheet)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidSheetError reports a sheet id or index that does not exist.
func NewInvalidSheetError(sheet ir.SheetID, message string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeInvalidSheet, Message: message, Sheet: sheet}
}

// NewInvalidCellError reports an address outside the grid.
func NewInvalidCellError(sheet ir.SheetID, row, col int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidCell,
		Message: fmt.Sprintf("cell (%d,%d) is outside the grid", row, col),
		Sheet:   sheet,
		Details: map[string]string{
			"row": fmt.Sprint(row),
			"col": fmt.Sprint(col),
		},
	}
}

// NewInvalidNameError wraps a rejected name or sheet name.
func NewInvalidNameError(name string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidName,
		Message: cause.Error(),
		Details: map[string]string{"name": name},
	}
}

// NewDuplicateSheetError reports a sheet name already in use.
func NewDuplicateSheetError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDuplicateSheet,
		Message: fmt.Sprintf("a sheet named %q already exists", name),
		Details: map[string]string{"name": name},
	}
}

// NewBatchUnderflowError reports EndBatch or Rollback outside a batch.
func NewBatchUnderflowError(call string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBatchUnderflow,
		Message: call + " called without a matching BeginBatch",
	}
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}

// IsRuntimeError reports whether err wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// IsInvalidSheet reports whether err is an invalid_sheet error.
func IsInvalidSheet(err error) bool { return hasCode(err, ErrCodeInvalidSheet) }

// IsInvalidCell reports whether err is an invalid_cell error.
func IsInvalidCell(err error) bool { return hasCode(err, ErrCodeInvalidCell) }

// IsInvalidName reports whether err is an invalid_name error.
func IsInvalidName(err error) bool { return hasCode(err, ErrCodeInvalidName) }

// IsDuplicateSheet reports whether err is a duplicate_sheet error.
func IsDuplicateSheet(err error) bool { return hasCode(err, ErrCodeDuplicateSheet) }

// IsBatchUnderflow reports whether err is a batch_underflow error.
func IsBatchUnderflow(err error) bool { return hasCode(err, ErrCodeBatchUnderflow) }

// ErrorCode extracts the code of a RuntimeError, or "" for other errors.
func ErrorCode(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
