package depgraph

import (
	"container/heap"
	"slices"

	"github.com/roach88/gridcalc/internal/ir"
)

// successors returns the dependents of v that satisfy in, sorted so that
// traversal order is deterministic.
func (g *Graph) successors(v ir.CellID, in func(ir.CellID) bool) []ir.CellID {
	deps := g.dependents[v]
	out := make([]ir.CellID, 0, len(deps))
	for d := range deps {
		if in(d) {
			out = append(out, d)
		}
	}
	return ir.SortCellIDs(out)
}

// tarjan finds the strongly connected components of the subgraph induced
// by nodes, following dependent edges. It keeps an explicit call stack so
// that long reference chains cannot exhaust the goroutine stack.
//
// Components are returned in reverse topological order: a component is
// emitted only after every component it feeds has been emitted. Members
// of each component are sorted.
func (g *Graph) tarjan(nodes []ir.CellID, in func(ir.CellID) bool) [][]ir.CellID {
	type frame struct {
		v    ir.CellID
		succ []ir.CellID
		next int
	}

	index := make(map[ir.CellID]int, len(nodes))
	low := make(map[ir.CellID]int, len(nodes))
	onStack := make(map[ir.CellID]bool, len(nodes))
	var stack []ir.CellID
	var out [][]ir.CellID
	counter := 0

	visit := func(v ir.CellID) frame {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		return frame{v: v, succ: g.successors(v, in)}
	}

	for _, root := range nodes {
		if _, seen := index[root]; seen {
			continue
		}
		calls := []frame{visit(root)}
		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			if top.next < len(top.succ) {
				w := top.succ[top.next]
				top.next++
				if _, seen := index[w]; !seen {
					calls = append(calls, visit(w))
				} else if onStack[w] {
					low[top.v] = min(low[top.v], index[w])
				}
				continue
			}

			v := top.v
			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].v
				low[parent] = min(low[parent], low[v])
			}
			if low[v] != index[v] {
				continue
			}
			var scc []ir.CellID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			out = append(out, ir.SortCellIDs(scc))
		}
	}
	return out
}

// isCycle reports whether an SCC describes a real cycle: more than one
// member, or a single member that reads itself.
func (g *Graph) isCycle(scc []ir.CellID) bool {
	return len(scc) > 1 || (len(scc) == 1 && g.HasSelfLoop(scc[0]))
}

// FindCycleSCCs returns every cyclic component among the formula cells,
// ordered by first member.
func (g *Graph) FindCycleSCCs() [][]ir.CellID {
	var cycles [][]ir.CellID
	for _, scc := range g.tarjan(g.Formulas(), g.IsFormula) {
		if g.isCycle(scc) {
			cycles = append(cycles, scc)
		}
	}
	slices.SortFunc(cycles, func(a, b []ir.CellID) int {
		return ir.CompareCellID(a[0], b[0])
	})
	return cycles
}

// Component is a group of cells that must be evaluated together.
type Component struct {
	Cells  []ir.CellID
	Cyclic bool
}

// Schedule orders the formula cells in nodes for evaluation.
//
// Kahn peeling yields the acyclic prefix, breaking ties by (sheet,row,col).
// Whatever cannot be peeled is split into strongly connected components,
// returned in topological order. Non-cyclic components in rest are cells
// downstream of a cycle.
func (g *Graph) Schedule(nodes []ir.CellID) (order []ir.CellID, rest []Component) {
	member := make(cellSet, len(nodes))
	for _, n := range nodes {
		member[n] = struct{}{}
	}
	in := func(c ir.CellID) bool {
		_, ok := member[c]
		return ok
	}

	indegree := make(map[ir.CellID]int, len(member))
	ready := &cellHeap{}
	for n := range member {
		d := 0
		for p := range g.precedents[n] {
			if in(p) {
				d++
			}
		}
		indegree[n] = d
		if d == 0 {
			*ready = append(*ready, n)
		}
	}
	heap.Init(ready)

	order = make([]ir.CellID, 0, len(member))
	for ready.Len() > 0 {
		cur := heap.Pop(ready).(ir.CellID)
		order = append(order, cur)
		for d := range g.dependents[cur] {
			if !in(d) {
				continue
			}
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}
	if len(order) == len(member) {
		return order, nil
	}

	var left []ir.CellID
	for n, d := range indegree {
		if d > 0 {
			left = append(left, n)
		}
	}
	ir.SortCellIDs(left)
	inLeft := make(cellSet, len(left))
	for _, n := range left {
		inLeft[n] = struct{}{}
	}
	sccs := g.tarjan(left, func(c ir.CellID) bool {
		_, ok := inLeft[c]
		return ok
	})
	for i := len(sccs) - 1; i >= 0; i-- {
		rest = append(rest, Component{Cells: sccs[i], Cyclic: g.isCycle(sccs[i])})
	}
	return order, rest
}

// TopoOrderAllFormulas orders every formula cell. Cells that take part in
// or sit downstream of a cycle are returned separately, sorted.
func (g *Graph) TopoOrderAllFormulas() (order []ir.CellID, cyclic []ir.CellID) {
	order, rest := g.Schedule(g.Formulas())
	for _, c := range rest {
		cyclic = append(cyclic, c.Cells...)
	}
	return order, ir.SortCellIDs(cyclic)
}

type cellHeap []ir.CellID

func (h cellHeap) Len() int           { return len(h) }
func (h cellHeap) Less(i, j int) bool { return ir.CompareCellID(h[i], h[j]) < 0 }
func (h cellHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cellHeap) Push(x any)        { *h = append(*h, x.(ir.CellID)) }
func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
