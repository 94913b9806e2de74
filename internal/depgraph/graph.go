// Package depgraph maintains the bidirectional dependency graph between
// cells and answers ordering and cycle questions over it.
//
// An edge P -> D means the formula in D reads P. Every edge is stored in
// both directions; ReplaceEdges is the only operation that adds edges, so
// the two indexes cannot drift apart.
package depgraph

import (
	"github.com/roach88/gridcalc/internal/ir"
)

type cellSet map[ir.CellID]struct{}

// Graph is the dependency index of a workbook.
//
// Graph is not safe for concurrent use.
type Graph struct {
	// formulas holds every cell that owns a formula, with or without
	// precedents.
	formulas   cellSet
	precedents map[ir.CellID]cellSet
	dependents map[ir.CellID]cellSet
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		formulas:   make(cellSet),
		precedents: make(map[ir.CellID]cellSet),
		dependents: make(map[ir.CellID]cellSet),
	}
}

// ReplaceEdges registers cell as a formula cell whose precedents are
// exactly preds. Any previous precedent set is discarded wholesale.
func (g *Graph) ReplaceEdges(cell ir.CellID, preds []ir.CellID) {
	g.dropPrecedents(cell)
	g.formulas[cell] = struct{}{}
	if len(preds) == 0 {
		return
	}
	set := make(cellSet, len(preds))
	for _, p := range preds {
		set[p] = struct{}{}
		deps := g.dependents[p]
		if deps == nil {
			deps = make(cellSet)
			g.dependents[p] = deps
		}
		deps[cell] = struct{}{}
	}
	g.precedents[cell] = set
}

// ClearCell removes cell's formula and its outgoing precedent edges.
// Cells that depend on cell keep their edges: they still read it.
func (g *Graph) ClearCell(cell ir.CellID) {
	g.dropPrecedents(cell)
	delete(g.formulas, cell)
}

func (g *Graph) dropPrecedents(cell ir.CellID) {
	for p := range g.precedents[cell] {
		deps := g.dependents[p]
		delete(deps, cell)
		if len(deps) == 0 {
			delete(g.dependents, p)
		}
	}
	delete(g.precedents, cell)
}

// IsFormula reports whether cell is registered as a formula cell.
func (g *Graph) IsFormula(cell ir.CellID) bool {
	_, ok := g.formulas[cell]
	return ok
}

// Formulas returns every formula cell in (sheet,row,col) order.
func (g *Graph) Formulas() []ir.CellID {
	return ir.SortedCellIDs(g.formulas)
}

// FormulaCount returns the number of formula cells.
func (g *Graph) FormulaCount() int { return len(g.formulas) }

// EdgeCount returns the number of precedent edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, set := range g.precedents {
		n += len(set)
	}
	return n
}

// Precedents returns the cells that cell reads, sorted.
func (g *Graph) Precedents(cell ir.CellID) []ir.CellID {
	return ir.SortedCellIDs(g.precedents[cell])
}

// Dependents returns the formula cells that read cell, sorted.
func (g *Graph) Dependents(cell ir.CellID) []ir.CellID {
	return ir.SortedCellIDs(g.dependents[cell])
}

// PrecedentCount returns the fan-in of cell.
func (g *Graph) PrecedentCount(cell ir.CellID) int { return len(g.precedents[cell]) }

// DependentCount returns the fan-out of cell.
func (g *Graph) DependentCount(cell ir.CellID) int { return len(g.dependents[cell]) }

// HasSelfLoop reports whether cell reads itself.
func (g *Graph) HasSelfLoop(cell ir.CellID) bool {
	_, ok := g.precedents[cell][cell]
	return ok
}

// TransitiveDependents returns every cell reachable from changed by
// following dependent edges. The changed cells themselves are included
// only when they are reachable from another changed cell.
func (g *Graph) TransitiveDependents(changed []ir.CellID) map[ir.CellID]struct{} {
	out := make(map[ir.CellID]struct{})
	queue := make([]ir.CellID, 0, len(changed))
	queue = append(queue, changed...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for d := range g.dependents[cur] {
			if _, seen := out[d]; seen {
				continue
			}
			out[d] = struct{}{}
			queue = append(queue, d)
		}
	}
	return out
}

// RemoveSheet drops every formula node on sheet together with its edges.
// It returns the formula cells on other sheets that read cells on sheet;
// their formulas must be rebound and re-extracted by the caller.
func (g *Graph) RemoveSheet(sheet ir.SheetID) []ir.CellID {
	affected := make(cellSet)
	for p, deps := range g.dependents {
		if p.Sheet != sheet {
			continue
		}
		for d := range deps {
			if d.Sheet != sheet {
				affected[d] = struct{}{}
			}
		}
	}
	for cell := range g.formulas {
		if cell.Sheet == sheet {
			g.ClearCell(cell)
		}
	}
	return ir.SortedCellIDs(affected)
}

// Mapping relocates a cell for a structural edit. ok=false means the
// cell was deleted.
type Mapping func(ir.CellID) (to ir.CellID, ok bool)

// ApplyMapping rewrites every node through m, dropping nodes that m
// deletes. Edges whose endpoints both survive are kept.
func (g *Graph) ApplyMapping(m Mapping) {
	old := g.precedents
	oldFormulas := g.formulas
	g.formulas = make(cellSet, len(oldFormulas))
	g.precedents = make(map[ir.CellID]cellSet, len(old))
	g.dependents = make(map[ir.CellID]cellSet)

	for cell := range oldFormulas {
		to, ok := m(cell)
		if !ok {
			continue
		}
		var preds []ir.CellID
		for p := range old[cell] {
			if np, keep := m(p); keep {
				preds = append(preds, np)
			}
		}
		g.ReplaceEdges(to, preds)
	}
}
