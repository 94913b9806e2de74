package compiler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/ir"
)

// Warning levels.
const (
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// CycleWarning represents a circular reference in a workbook.
//
// Cycles are warnings, not errors: the engine iterates circular
// components and only marks them #CYCLE! when they fail to converge.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Sheet1!A1", "Sheet1!B1", "Sheet1!A1"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" when unconverged, "info" otherwise
}

// AnalyzeCycles loads snap into a scratch engine and reports every
// circular component among its formulas, ordered by first member.
//
// A component whose cells ended as #CYCLE! is a warning. One that
// converged within the iteration cap is info. opts configure the scratch
// engine; a nil logger is replaced with a discarding one.
func AnalyzeCycles(snap *engine.Snapshot, opts ...engine.Option) ([]CycleWarning, error) {
	opts = append([]engine.Option{engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	eng, err := engine.FromSnapshot(snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("analyze cycles: %w", err)
	}

	g := eng.Graph()
	warnings := []CycleWarning{}
	for _, scc := range g.FindCycleSCCs() {
		report := g.ReportSCC(scc)
		w := CycleWarning{
			Path:    cyclePath(eng, report.Cells),
			Message: report.Message,
			Level:   LevelInfo,
		}
		for _, c := range scc {
			if eng.Value(c) == ir.ErrCycle {
				w.Level = LevelWarning
				break
			}
		}
		warnings = append(warnings, w)
	}
	return warnings, nil
}

// cyclePath labels cells with sheet names and closes the loop.
func cyclePath(eng *engine.Engine, cells []ir.CellID) []string {
	path := make([]string, 0, len(cells)+1)
	for _, c := range cells {
		path = append(path, CellLabel(eng, c))
	}
	if len(path) > 0 {
		path = append(path, path[0])
	}
	return path
}

// CellLabel renders c as SheetName!A1, falling back to the id form for
// sheets the engine no longer has.
func CellLabel(eng *engine.Engine, c ir.CellID) string {
	if name, ok := eng.SheetName(c.Sheet); ok {
		return name + "!" + c.A1()
	}
	return c.String()
}
