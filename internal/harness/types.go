package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/recalc"
)

// OpKind names a batch operation.
type OpKind string

const (
	OpSetCellValue   OpKind = "set_cell_value"
	OpSetCellFormula OpKind = "set_cell_formula"
	OpClearCell      OpKind = "clear_cell"
	// OpSimulateError always fails. Tests use it to exercise failure paths.
	OpSimulateError OpKind = "simulate_error"
)

// Op is one operation of a batch. Sheet is a display index. The target
// cell is Cell in A1 form when set, otherwise Row and Col.
type Op struct {
	Kind    OpKind `json:"op" yaml:"op"`
	Sheet   int    `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Cell    string `json:"cell,omitempty" yaml:"cell,omitempty"`
	Row     int    `json:"row,omitempty" yaml:"row,omitempty"`
	Col     int    `json:"col,omitempty" yaml:"col,omitempty"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// SetValue builds a set_cell_value op for an A1 address.
func SetValue(sheet int, cell, text string) Op {
	return Op{Kind: OpSetCellValue, Sheet: sheet, Cell: cell, Text: text}
}

// SetFormula builds a set_cell_formula op for an A1 address.
func SetFormula(sheet int, cell, text string) Op {
	return Op{Kind: OpSetCellFormula, Sheet: sheet, Cell: cell, Text: text}
}

// Clear builds a clear_cell op for an A1 address.
func Clear(sheet int, cell string) Op {
	return Op{Kind: OpClearCell, Sheet: sheet, Cell: cell}
}

// SimulateError builds an op that fails with message.
func SimulateError(message string) Op {
	return Op{Kind: OpSimulateError, Message: message}
}

// Batch error codes beyond the engine's RuntimeError codes.
const (
	CodeSimulatedError = "simulated_error"
	CodeUnknownOp      = "unknown_op"
	CodeBatchOpen      = "batch_open"
)

// BatchError describes the op that stopped a batch.
type BatchError struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	OpIndex int    `json:"op_index" yaml:"op_index"`
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("op %d: %s: %s", e.OpIndex, e.Code, e.Message)
}

// ApplyResult is the outcome of Session.ApplyOps.
type ApplyResult struct {
	// BatchID identifies the batch in logs and the journal.
	BatchID  string      `json:"batch_id"`
	Applied  int         `json:"applied"`
	Total    int         `json:"total"`
	Revision int64       `json:"revision"`
	Error    *BatchError `json:"error,omitempty"`

	// Edited lists the cells the ops wrote. Changed adds the recomputed
	// cells whose value moved. Both are empty when nothing was committed.
	Edited  []ir.CellID    `json:"edited,omitempty"`
	Changed []ir.CellID    `json:"changed,omitempty"`
	Report  *recalc.Report `json:"-"`
}

// EventKind names a workbook event.
type EventKind string

const (
	EventRevisionChanged EventKind = "revision_changed"
	EventCellsChanged    EventKind = "cells_changed"
	EventBatchApplied    EventKind = "batch_applied"
)

// Event is one observable workbook change. Which fields are set depends
// on Kind:
//
//	revision_changed: Revision, Previous
//	cells_changed:    Revision, Cells
//	batch_applied:    Revision, Applied, Total, Error
type Event struct {
	Kind     EventKind   `json:"kind"`
	Revision int64       `json:"revision"`
	Previous int64       `json:"previous,omitempty"`
	Cells    []ir.CellID `json:"cells,omitempty"`
	Applied  int         `json:"applied,omitempty"`
	Total    int         `json:"total,omitempty"`
	Error    *BatchError `json:"error,omitempty"`
}

// String renders the event on one line, e.g.
//
//	cells_changed revision=2 cells=Sheet1!A1,Sheet1!B1
func (ev Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s revision=%d", ev.Kind, ev.Revision)
	switch ev.Kind {
	case EventRevisionChanged:
		fmt.Fprintf(&b, " previous=%d", ev.Previous)
	case EventCellsChanged:
		names := make([]string, len(ev.Cells))
		for i, c := range ev.Cells {
			names[i] = c.String()
		}
		fmt.Fprintf(&b, " cells=%s", strings.Join(names, ","))
	case EventBatchApplied:
		fmt.Fprintf(&b, " applied=%d total=%d", ev.Applied, ev.Total)
		if ev.Error != nil {
			fmt.Fprintf(&b, " error=%s@%d", ev.Error.Code, ev.Error.OpIndex)
		}
	}
	return b.String()
}
