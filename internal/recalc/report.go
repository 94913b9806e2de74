// Package recalc drives recomputation over the dependency graph and
// reports what a pass did.
package recalc

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/gridcalc/internal/depgraph"
	"github.com/roach88/gridcalc/internal/ir"
)

// CellInfo is the per-cell record of one pass.
type CellInfo struct {
	// Depth is 1 for a formula with no formula precedents and
	// 1 + max(precedent depths) otherwise.
	Depth int `json:"depth"`
	// EvalOrder is the zero-based position in the pass.
	EvalOrder int `json:"eval_order"`
	// RecomputedAt is the offset from the start of the pass.
	RecomputedAt   time.Duration `json:"recomputed_at"`
	HasUnknownDeps bool          `json:"has_unknown_deps,omitempty"`
}

// RecalcError records a cell that evaluated to an error.
type RecalcError struct {
	Cell    ir.CellID `json:"cell"`
	Message string    `json:"message"`
}

// Phases holds the time spent in each stage of a pass.
type Phases struct {
	Invalidation time.Duration `json:"invalidation"`
	TopoSort     time.Duration `json:"topo_sort"`
	Eval         time.Duration `json:"eval"`
}

// Report describes one recalculation pass. A new Report is built for
// every pass.
type Report struct {
	// Kind is "full" or "incremental".
	Kind                  string                  `json:"kind"`
	Duration              time.Duration           `json:"duration"`
	CellsRecomputed       int                     `json:"cells_recomputed"`
	MaxDepth              int                     `json:"max_depth"`
	HadCycles             bool                    `json:"had_cycles"`
	UnknownDepsRecomputed int                     `json:"unknown_deps_recomputed"`
	Errors                []RecalcError           `json:"errors,omitempty"`
	CellInfo              map[ir.CellID]CellInfo  `json:"cell_info,omitempty"`
	SCCCount              int                     `json:"scc_count"`
	IterationsPerformed   int                     `json:"iterations_performed"`
	Converged             bool                    `json:"converged"`
	CycleCells            int                     `json:"cycle_cells"`
	Cycles                []*depgraph.CycleReport `json:"cycles,omitempty"`
	Phases                Phases                  `json:"phases"`

	// ErrorsTruncated counts errors dropped past the cap.
	ErrorsTruncated int `json:"errors_truncated,omitempty"`
}

func newReport(kind string) *Report {
	return &Report{Kind: kind, CellInfo: make(map[ir.CellID]CellInfo), Converged: true}
}

// Summary formats the report as a concise line for logs and status text.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%d cells in %dms, depth=%d, cycles=%t, unknown=%d",
		r.CellsRecomputed, r.Duration.Milliseconds(), r.MaxDepth, r.HadCycles, r.UnknownDepsRecomputed)
	if r.SCCCount > 0 {
		s += fmt.Sprintf(", sccs=%d, iters=%d, converged=%t", r.SCCCount, r.IterationsPerformed, r.Converged)
	}
	return s
}

// LogLine formats the report as a fixed-layout line, e.g.
//
//	[recalc/full]   14ms  628 cells  depth=7  unknown=3  cycles=0  errors=0
func (r *Report) LogLine() string {
	cycles := 0
	if r.HadCycles {
		cycles = 1
	}
	kind := r.Kind
	if kind == "" {
		kind = "full"
	}
	s := fmt.Sprintf("[recalc/%s] %4dms  %d cells  depth=%d  unknown=%d  cycles=%d  errors=%d",
		kind, r.Duration.Milliseconds(), r.CellsRecomputed, r.MaxDepth, r.UnknownDepsRecomputed, cycles, len(r.Errors))
	if r.SCCCount > 0 {
		s += fmt.Sprintf("  sccs=%d  iters=%d  converged=%t", r.SCCCount, r.IterationsPerformed, r.Converged)
	}
	return s
}

// Info returns the record for cell, if it was recomputed.
func (r *Report) Info(cell ir.CellID) (CellInfo, bool) {
	info, ok := r.CellInfo[cell]
	return info, ok
}

// CellsByEvalOrder lists the recomputed cells in the order they were
// evaluated.
func (r *Report) CellsByEvalOrder() []ir.CellID {
	out := make([]ir.CellID, 0, len(r.CellInfo))
	for c := range r.CellInfo {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b ir.CellID) int {
		return r.CellInfo[a].EvalOrder - r.CellInfo[b].EvalOrder
	})
	return out
}

// AdjacentCells returns the cells evaluated immediately before and after
// cell. Either result is absent at the ends of the pass or when cell was
// not recomputed.
func (r *Report) AdjacentCells(cell ir.CellID) (prev, next ir.CellID, hasPrev, hasNext bool) {
	info, ok := r.CellInfo[cell]
	if !ok {
		return prev, next, false, false
	}
	for c, i := range r.CellInfo {
		switch i.EvalOrder {
		case info.EvalOrder - 1:
			prev, hasPrev = c, true
		case info.EvalOrder + 1:
			next, hasNext = c, true
		}
	}
	return prev, next, hasPrev, hasNext
}

// Hotspot is a recomputed cell ranked by how much recalculation work it
// is likely to cause.
type Hotspot struct {
	Cell           ir.CellID `json:"cell"`
	FanIn          int       `json:"fan_in"`
	FanOut         int       `json:"fan_out"`
	Depth          int       `json:"depth"`
	HasUnknownDeps bool      `json:"has_unknown_deps,omitempty"`
	Score          float64   `json:"score"`
}

// Hotspots scores the recomputed cells only, never the whole workbook:
// fanOut*3 + fanIn*1.5 + depth, plus 10 for unknown dependencies. The
// top n are returned by descending score, ties by cell order.
func (r *Report) Hotspots(g *depgraph.Graph, n int) []Hotspot {
	out := make([]Hotspot, 0, len(r.CellInfo))
	for c, info := range r.CellInfo {
		h := Hotspot{
			Cell:           c,
			FanIn:          g.PrecedentCount(c),
			FanOut:         g.DependentCount(c),
			Depth:          info.Depth,
			HasUnknownDeps: info.HasUnknownDeps,
		}
		h.Score = float64(h.FanOut)*3 + float64(h.FanIn)*1.5 + float64(h.Depth)
		if h.HasUnknownDeps {
			h.Score += 10
		}
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b Hotspot) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return ir.CompareCellID(a.Cell, b.Cell)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ErrorText joins the recorded errors one per line.
func (r *Report) ErrorText() string {
	var b strings.Builder
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "%s: %s\n", e.Cell, e.Message)
	}
	return b.String()
}
