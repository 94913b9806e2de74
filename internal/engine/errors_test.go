package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Format(t *testing.T) {
	assert.Equal(t, "invalid_sheet: no such sheet (sheet=3)", NewInvalidSheetError(3, "no such sheet").Error())
	assert.Equal(t, "batch_underflow: EndBatch called without a matching BeginBatch",
		NewBatchUnderflowError("EndBatch").Error())
}

func TestRuntimeError_PredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("apply op 2: %w", NewInvalidCellError(1, -1, 0))
	assert.True(t, IsRuntimeError(err))
	assert.True(t, IsInvalidCell(err))
	assert.False(t, IsInvalidSheet(err))
	assert.Equal(t, ErrCodeInvalidCell, ErrorCode(err))

	assert.False(t, IsRuntimeError(errors.New("plain")))
	assert.Equal(t, RuntimeErrorCode(""), ErrorCode(errors.New("plain")))
}

func TestRuntimeError_Details(t *testing.T) {
	err := NewInvalidNameError("1x", errors.New("name must start with a letter"))
	assert.Equal(t, "1x", err.Details["name"])
	assert.True(t, IsInvalidName(err))

	dup := NewDuplicateSheetError("Data")
	assert.True(t, IsDuplicateSheet(dup))
	assert.Contains(t, dup.Message, `"Data"`)
}
