package harness

import "github.com/roach88/gridcalc/internal/ir"

// CellEdit is the raw text of a cell before and after an op.
type CellEdit struct {
	Cell   ir.CellID `json:"cell"`
	Before string    `json:"before"`
	After  string    `json:"after"`
}

// UndoGroup is the edits of one committed batch.
type UndoGroup struct {
	Revision int64      `json:"revision"`
	Edits    []CellEdit `json:"edits"`
}

// UndoTracker groups edits into undo entries. Groups nest: only the
// outermost EndGroup commits, and a group aborted at any level commits
// nothing.
type UndoTracker struct {
	depth   int
	aborted bool
	current []CellEdit
	groups  []UndoGroup
}

// NewUndoTracker creates an empty tracker.
func NewUndoTracker() *UndoTracker {
	return &UndoTracker{}
}

// BeginGroup opens a group, nested in any open one.
func (u *UndoTracker) BeginGroup() {
	if u.depth == 0 {
		u.current = nil
		u.aborted = false
	}
	u.depth++
}

// Record adds an edit to the open group. Edits outside a group are ignored.
func (u *UndoTracker) Record(edit CellEdit) {
	if u.depth == 0 {
		return
	}
	u.current = append(u.current, edit)
}

// EndGroup closes the innermost group. Closing the outermost group
// commits it at revision unless some level was aborted. It reports
// whether a group was committed.
func (u *UndoTracker) EndGroup(revision int64) bool {
	if u.depth == 0 {
		return false
	}
	u.depth--
	if u.depth > 0 {
		return false
	}
	committed := !u.aborted
	if committed {
		u.groups = append(u.groups, UndoGroup{Revision: revision, Edits: u.current})
	}
	u.current = nil
	u.aborted = false
	return committed
}

// AbortGroup closes the innermost group and marks the whole nest as
// rolled back.
func (u *UndoTracker) AbortGroup() {
	u.aborted = true
	if u.depth > 0 {
		u.depth--
	}
	if u.depth == 0 {
		u.current = nil
		u.aborted = false
	}
}

// GroupCount returns the number of committed groups still on the stack.
func (u *UndoTracker) GroupCount() int { return len(u.groups) }

// Depth returns the nesting depth.
func (u *UndoTracker) Depth() int { return u.depth }

// Pop removes and returns the most recent committed group.
func (u *UndoTracker) Pop() (UndoGroup, bool) {
	if len(u.groups) == 0 {
		return UndoGroup{}, false
	}
	g := u.groups[len(u.groups)-1]
	u.groups = u.groups[:len(u.groups)-1]
	return g, true
}
