package engine

import (
	"github.com/roach88/gridcalc/internal/ir"
	"github.com/roach88/gridcalc/internal/recalc"
)

// Commit is the outcome of an outermost EndBatch.
type Commit struct {
	// Revision is the revision after the batch. It equals Previous when
	// the batch changed nothing.
	Revision int64 `json:"revision"`
	Previous int64 `json:"previous"`

	// Edited lists the cells the batch wrote, sorted.
	Edited []ir.CellID `json:"edited,omitempty"`
	// Changed lists the edited cells and every recomputed cell whose value
	// moved, sorted.
	Changed []ir.CellID `json:"changed,omitempty"`

	// Report is the recalc pass, nil when nothing changed.
	Report *recalc.Report `json:"report,omitempty"`
}

// Bumped reports whether the batch produced a new revision.
func (c *Commit) Bumped() bool { return c.Revision != c.Previous }

// BeginBatch opens a batch. Batches nest; only the outermost EndBatch
// recomputes.
func (e *Engine) BeginBatch() {
	if e.batchDepth == 0 {
		e.resetBatch()
	}
	e.batchDepth++
}

// InBatch reports whether a batch is open.
func (e *Engine) InBatch() bool { return e.batchDepth > 0 }

// EndBatch closes a batch. Closing the outermost batch runs one recalc
// pass over everything the batch touched and returns the commit; inner
// batches return nil.
func (e *Engine) EndBatch() (*Commit, error) {
	if e.batchDepth == 0 {
		return nil, NewBatchUnderflowError("EndBatch")
	}
	e.batchDepth--
	if e.batchDepth > 0 {
		return nil, nil
	}
	return e.commit(), nil
}

// Rollback abandons the open batch at every nesting level. Each cell
// edited in the batch is restored exactly, value included, and nothing
// is recomputed. Sheet, name and structural edits are not undone.
func (e *Engine) Rollback() error {
	if e.batchDepth == 0 {
		return NewBatchUnderflowError("Rollback")
	}
	restored := 0
	for _, id := range ir.SortedCellIDs(keys(e.saved)) {
		if _, ok := e.SheetIndex(id.Sheet); !ok {
			continue
		}
		prev := e.saved[id]
		if prev == nil {
			e.drop(id)
			restored++
			continue
		}
		e.cells[id] = prev
		switch {
		case prev.expr != nil:
			e.wire(id, prev)
		case prev.isFormula():
			e.graph.ReplaceEdges(id, nil)
			delete(e.dynamic, id)
		default:
			e.graph.ClearCell(id)
			delete(e.dynamic, id)
		}
		restored++
	}
	e.batchDepth = 0
	e.resetBatch()
	e.logger.Debug("batch rolled back", "cells", restored, "revision", e.revisions.Current())
	return nil
}

func (e *Engine) resetBatch() {
	e.pending = make(map[ir.CellID]struct{})
	e.saved = make(map[ir.CellID]*cell)
	e.structural = false
}

// edit runs fn inside the open batch, or inside a batch of its own.
func (e *Engine) edit(fn func()) {
	if e.batchDepth > 0 {
		fn()
		return
	}
	e.BeginBatch()
	fn()
	_, _ = e.EndBatch()
}

// save remembers the state of id before its first edit in the batch.
func (e *Engine) save(id ir.CellID) {
	if _, done := e.saved[id]; done {
		return
	}
	c, ok := e.cells[id]
	if !ok {
		e.saved[id] = nil
		return
	}
	cp := *c
	e.saved[id] = &cp
}

func (e *Engine) commit() *Commit {
	prev := e.revisions.Current()
	commit := &Commit{Revision: prev, Previous: prev}
	if len(e.pending) == 0 && !e.structural {
		e.resetBatch()
		e.lastCommit = commit
		return commit
	}
	commit.Revision = e.revisions.Next()

	edited := ir.SortedCellIDs(e.pending)
	e.touched = make(map[ir.CellID]ir.Value)
	report := e.driver.Recalc(edited)
	changed := e.pending
	for id, before := range e.touched {
		if !ir.Equal(before, e.Value(id)) {
			changed[id] = struct{}{}
		}
	}
	e.touched = nil
	commit.Edited = edited
	commit.Changed = ir.SortedCellIDs(changed)
	commit.Report = report
	e.lastReport = report
	e.lastCommit = commit
	e.resetBatch()

	e.logger.Debug("batch committed",
		"revision", commit.Revision,
		"edited", len(edited),
		"changed", len(commit.Changed),
		"summary", report.Summary())
	return commit
}

func keys[V any](m map[ir.CellID]V) map[ir.CellID]struct{} {
	out := make(map[ir.CellID]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
