package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

// Snapshot is the entered content of a workbook: sheets, raw cell text
// and names. Values are not stored; they are recomputed on load.
//
// The same shape is used for workbook files and journal snapshots.
type Snapshot struct {
	Revision int64                `json:"revision,omitempty" yaml:"revision,omitempty"`
	Sheets   []SheetSnapshot      `json:"sheets" yaml:"sheets"`
	Names    []formula.NamedRange `json:"names,omitempty" yaml:"names,omitempty"`
}

// SheetSnapshot is one sheet of a Snapshot. Cells maps A1 addresses to
// raw text.
type SheetSnapshot struct {
	ID    ir.SheetID        `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string            `json:"name" yaml:"name"`
	Cells map[string]string `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// Snapshot captures the current content.
func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{Revision: e.revisions.Current(), Names: e.names.List()}
	for _, sh := range e.sheets {
		ss := SheetSnapshot{ID: sh.id, Name: sh.name}
		for _, id := range e.Cells(sh.id) {
			if ss.Cells == nil {
				ss.Cells = make(map[string]string)
			}
			ss.Cells[id.A1()] = e.cells[id].raw
		}
		s.Sheets = append(s.Sheets, ss)
	}
	return s
}

// FromSnapshot builds an engine holding the content of s, fully
// recomputed, at s's revision. Sheets without an id get fresh ones.
func FromSnapshot(s *Snapshot, opts ...Option) (*Engine, error) {
	if len(s.Sheets) == 0 {
		return nil, fmt.Errorf("snapshot has no sheets")
	}
	e := newEngine(opts...)

	used := make(map[ir.SheetID]bool)
	for _, ss := range s.Sheets {
		if ss.ID != 0 {
			if used[ss.ID] {
				return nil, fmt.Errorf("sheet id %d appears twice", ss.ID)
			}
			used[ss.ID] = true
			e.nextSheet = max(e.nextSheet, ss.ID+1)
		}
	}
	for _, ss := range s.Sheets {
		if err := validateSheetName(ss.Name); err != nil {
			return nil, err
		}
		if _, taken := e.SheetIDByName(ss.Name); taken {
			return nil, NewDuplicateSheetError(ss.Name)
		}
		if ss.ID == 0 {
			e.appendSheet(ss.Name)
			continue
		}
		e.sheets = append(e.sheets, sheet{id: ss.ID, name: ss.Name})
	}
	for _, nr := range s.Names {
		if err := e.checkTarget(nr.Target); err != nil {
			return nil, fmt.Errorf("name %q: %w", nr.Name, err)
		}
		if err := e.names.Set(nr); err != nil {
			return nil, NewInvalidNameError(nr.Name, err)
		}
	}

	e.BeginBatch()
	for i, ss := range s.Sheets {
		id := e.sheets[i].id
		addrs := make([]string, 0, len(ss.Cells))
		for a := range ss.Cells {
			addrs = append(addrs, a)
		}
		slices.Sort(addrs)
		for _, addr := range addrs {
			a, err := ir.ParseA1(addr)
			if err != nil {
				_ = e.Rollback()
				return nil, fmt.Errorf("sheet %q: %w", ss.Name, err)
			}
			e.write(ir.NewCellID(id, a.Row, a.Col), ss.Cells[addr])
		}
	}
	e.batchDepth = 0
	e.resetBatch()
	e.RecomputeFullOrdered()
	e.revisions = NewRevisionsAt(s.Revision)
	return e, nil
}
