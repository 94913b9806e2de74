package harness

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/gridcalc/internal/ir"
)

func TestEvent_String(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			"revision",
			Event{Kind: EventRevisionChanged, Revision: 3, Previous: 2},
			"revision_changed revision=3 previous=2",
		},
		{
			"cells",
			Event{Kind: EventCellsChanged, Revision: 3, Cells: []ir.CellID{ir.NewCellID(1, 0, 0), ir.NewCellID(2, 1, 27)}},
			"cells_changed revision=3 cells=Sheet1!A1,Sheet2!AB2",
		},
		{
			"batch ok",
			Event{Kind: EventBatchApplied, Revision: 3, Applied: 2, Total: 2},
			"batch_applied revision=3 applied=2 total=2",
		},
		{
			"batch failed",
			Event{Kind: EventBatchApplied, Revision: 2, Total: 4, Error: &BatchError{Code: "simulated_error", OpIndex: 3}},
			"batch_applied revision=2 applied=0 total=4 error=simulated_error@3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.String())
		})
	}
}

func TestBatchError_Error(t *testing.T) {
	err := &BatchError{Code: "invalid_sheet", Message: "Sheet index 4 not found", OpIndex: 1}
	assert.Equal(t, "op 1: invalid_sheet: Sheet index 4 not found", err.Error())
}

func TestEventCollector_EventsIsACopy(t *testing.T) {
	c := NewEventCollector()
	c.Emit(Event{Kind: EventBatchApplied})
	events := c.Events()
	events[0].Kind = EventCellsChanged

	assert.Equal(t, EventBatchApplied, c.Events()[0].Kind)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestEventCollector_ConcurrentReads(t *testing.T) {
	c := NewEventCollector()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Events()
			}
		}()
	}
	for i := 0; i < 50; i++ {
		c.Emit(Event{Kind: EventRevisionChanged, Revision: int64(i + 1)})
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}
