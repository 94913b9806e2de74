package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/ir"
)

func edit(row int, before, after string) CellEdit {
	return CellEdit{Cell: ir.NewCellID(1, row, 0), Before: before, After: after}
}

func TestUndoTracker_CommitsOutermostGroup(t *testing.T) {
	u := NewUndoTracker()
	u.BeginGroup()
	u.Record(edit(0, "", "1"))
	u.BeginGroup()
	u.Record(edit(1, "", "2"))
	assert.False(t, u.EndGroup(5))
	assert.Equal(t, 1, u.Depth())
	assert.Equal(t, 0, u.GroupCount())

	assert.True(t, u.EndGroup(5))
	require.Equal(t, 1, u.GroupCount())

	g, ok := u.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(5), g.Revision)
	assert.Equal(t, []CellEdit{edit(0, "", "1"), edit(1, "", "2")}, g.Edits)
}

func TestUndoTracker_AbortDiscardsWholeNest(t *testing.T) {
	u := NewUndoTracker()
	u.BeginGroup()
	u.Record(edit(0, "", "1"))
	u.BeginGroup()
	u.AbortGroup()
	assert.False(t, u.EndGroup(2))
	assert.Equal(t, 0, u.GroupCount())
	assert.Equal(t, 0, u.Depth())

	// The next group starts clean.
	u.BeginGroup()
	u.Record(edit(3, "a", "b"))
	assert.True(t, u.EndGroup(3))
	g, _ := u.Pop()
	assert.Equal(t, []CellEdit{edit(3, "a", "b")}, g.Edits)
}

func TestUndoTracker_RecordOutsideGroupIgnored(t *testing.T) {
	u := NewUndoTracker()
	u.Record(edit(0, "", "1"))
	assert.False(t, u.EndGroup(1))
	assert.Equal(t, 0, u.GroupCount())
}

func TestUndoTracker_EmptyGroupCounts(t *testing.T) {
	u := NewUndoTracker()
	u.BeginGroup()
	assert.True(t, u.EndGroup(0))
	assert.Equal(t, 1, u.GroupCount())
}

func TestUndoTracker_PopOrder(t *testing.T) {
	u := NewUndoTracker()
	for rev := int64(1); rev <= 3; rev++ {
		u.BeginGroup()
		u.EndGroup(rev)
	}
	for want := int64(3); want >= 1; want-- {
		g, ok := u.Pop()
		require.True(t, ok)
		assert.Equal(t, want, g.Revision)
	}
	_, ok := u.Pop()
	assert.False(t, ok)
}
