package depgraph

import (
	"fmt"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

// maxChainCells is the longest cycle spelled out in full.
const maxChainCells = 5

// CycleReport describes a circular reference.
type CycleReport struct {
	// Cells lists the members in reference order: each cell reads the
	// one after it, and the last reads the first.
	Cells   []ir.CellID `json:"cells"`
	Message string      `json:"message"`
}

func (r *CycleReport) String() string { return r.Message }

// SelfReference reports whether the cycle is a single cell reading itself.
func (r *CycleReport) SelfReference() bool { return len(r.Cells) == 1 }

// NewCycleReport builds the report for cells given in reference order.
func NewCycleReport(cells []ir.CellID) *CycleReport {
	labels := cellLabels(cells)
	var msg string
	switch {
	case len(cells) == 1:
		msg = fmt.Sprintf("Cell %s references itself", labels[0])
	case len(cells) <= maxChainCells:
		msg = "Circular reference: " + strings.Join(labels, " → ")
	default:
		msg = fmt.Sprintf("Circular reference involving %d cells: %s → ... → %s",
			len(cells), labels[0], labels[len(labels)-1])
	}
	return &CycleReport{Cells: cells, Message: msg}
}

// cellLabels uses bare A1 addresses when every cell is on the same sheet.
func cellLabels(cells []ir.CellID) []string {
	sameSheet := true
	for _, c := range cells {
		sameSheet = sameSheet && c.Sheet == cells[0].Sheet
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		if sameSheet {
			out[i] = c.A1()
		} else {
			out[i] = c.String()
		}
	}
	return out
}

// ReportSCC builds the report for a cyclic component found by
// FindCycleSCCs or Schedule.
func (g *Graph) ReportSCC(scc []ir.CellID) *CycleReport {
	return NewCycleReport(g.cyclePath(scc))
}

// cyclePath walks precedent edges inside the component starting from its
// first member until the walk closes or gets stuck. Members the walk did
// not reach are appended in sorted order so every member is listed.
func (g *Graph) cyclePath(scc []ir.CellID) []ir.CellID {
	if len(scc) <= 1 {
		return scc
	}
	member := make(cellSet, len(scc))
	for _, c := range scc {
		member[c] = struct{}{}
	}
	visited := make(cellSet, len(scc))
	path := []ir.CellID{scc[0]}
	visited[scc[0]] = struct{}{}
	for cur := scc[0]; ; {
		var next ir.CellID
		found := false
		for _, p := range g.Precedents(cur) {
			_, in := member[p]
			_, seen := visited[p]
			if in && !seen {
				next, found = p, true
				break
			}
		}
		if !found {
			break
		}
		path = append(path, next)
		visited[next] = struct{}{}
		cur = next
	}
	for _, c := range scc {
		if _, seen := visited[c]; !seen {
			path = append(path, c)
		}
	}
	return path
}

// WouldCreateCycle reports the cycle that giving cell the precedents
// newPreds would close, or nil when the edit is safe. The graph is not
// modified.
func (g *Graph) WouldCreateCycle(cell ir.CellID, newPreds []ir.CellID) *CycleReport {
	for _, p := range newPreds {
		if p == cell {
			return NewCycleReport([]ir.CellID{cell})
		}
	}
	for _, p := range ir.SortCellIDs(append([]ir.CellID(nil), newPreds...)) {
		// p already depends on cell when a dependent path cell → ... → p
		// exists; reading p from cell would close it.
		if path := g.FindPath(cell, p); path != nil {
			return NewCycleReport(reverse(path))
		}
	}
	return nil
}

// FindPath returns the shortest chain from → ... → to along dependent
// edges, that is a list where each cell is read by the next, or nil when
// to does not depend on from. Ties are broken by cell order.
func (g *Graph) FindPath(from, to ir.CellID) []ir.CellID {
	if from == to {
		return []ir.CellID{from}
	}
	parent := map[ir.CellID]ir.CellID{}
	seen := cellSet{from: {}}
	queue := []ir.CellID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.Dependents(cur) {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			parent[d] = cur
			if d == to {
				path := []ir.CellID{to}
				for c := to; c != from; {
					c = parent[c]
					path = append(path, c)
				}
				return reverse(path)
			}
			queue = append(queue, d)
		}
	}
	return nil
}

func reverse(ids []ir.CellID) []ir.CellID {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}
