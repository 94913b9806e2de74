// Package engine owns a workbook: sheets, cells, named ranges and the
// dependency graph that links them.
//
// Every mutation runs inside a batch. Calls made outside BeginBatch and
// EndBatch open an implicit batch of one. Batches nest through a depth
// counter and only the outermost EndBatch recomputes:
//
//	BeginBatch()
//	  SetCellValue / SetCellFormula / ClearCell ...   edges updated, values deferred
//	EndBatch()                                        one recalc pass, one revision
//
// Rollback discards the cell edits of the open batch and restores each
// touched cell exactly as it was, with no recompute.
//
// Formulas are parsed once, bound to sheet ids, and rewritten (not
// re-parsed) when sheets are renamed or rows and columns are inserted.
// Evaluation goes through the recalc driver, which calls back into the
// engine for every formula cell it schedules.
//
// The engine has a single writer. It is not safe for concurrent use;
// callers serialize access.
package engine
