// Package harness drives an engine through batches of cell operations
// and records what a client would observe: results, events and undo
// groups.
//
// # Batches
//
// Session.ApplyOps runs a list of operations as one engine batch:
//
//   - atomic: any failing op rolls every cell back to its prior state
//     with no recompute, and the only event is BatchApplied with
//     Applied=0 at the unchanged revision.
//   - partial: ops before the failure stay applied, recompute runs once,
//     and BatchApplied carries the applied count and the error.
//
// When the revision moves, events arrive in the order RevisionChanged,
// CellsChanged, BatchApplied.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: partial_apply
//	description: "Ops before a failure stay applied"
//	workbook:
//	  sheets:
//	    - name: Sheet1
//	      cells: { A1: "1", B1: "=A1*2" }
//	steps:
//	  - atomic: false
//	    ops:
//	      - { op: set_cell_value, cell: A1, text: "5" }
//	      - { op: simulate_error, message: "boom" }
//	    expect: { applied: 1, revision: 1, error: simulated_error }
//	  - undo: true
//	assertions:
//	  - { type: cell_value, cell: B1, value: "2" }
//	  - { type: event_order, events: [revision_changed, cells_changed, batch_applied] }
//
// Run executes a scenario on a fresh engine with a deterministic clock,
// and Transcript renders the outcome for golden comparison.
package harness
