package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

type sheet struct {
	id   ir.SheetID
	name string
}

// SheetInfo describes one sheet.
type SheetInfo struct {
	ID    ir.SheetID `json:"id"`
	Name  string     `json:"name"`
	Index int        `json:"index"`
}

// Sheets lists the sheets in display order.
func (e *Engine) Sheets() []SheetInfo {
	out := make([]SheetInfo, len(e.sheets))
	for i, s := range e.sheets {
		out[i] = SheetInfo{ID: s.id, Name: s.name, Index: i}
	}
	return out
}

// SheetIndex returns the display position of a sheet.
func (e *Engine) SheetIndex(id ir.SheetID) (int, bool) {
	for i, s := range e.sheets {
		if s.id == id {
			return i, true
		}
	}
	return 0, false
}

// SheetIDAt returns the id of the sheet at a display position.
func (e *Engine) SheetIDAt(index int) (ir.SheetID, bool) {
	if index < 0 || index >= len(e.sheets) {
		return 0, false
	}
	return e.sheets[index].id, true
}

// SheetIDByName looks a sheet up by name, ignoring case.
func (e *Engine) SheetIDByName(name string) (ir.SheetID, bool) {
	for _, s := range e.sheets {
		if ir.EqualFold(s.name, name) {
			return s.id, true
		}
	}
	return 0, false
}

// SheetName returns the current name of a sheet.
func (e *Engine) SheetName(id ir.SheetID) (string, bool) {
	if i, ok := e.SheetIndex(id); ok {
		return e.sheets[i].name, true
	}
	return "", false
}

func validateSheetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewInvalidNameError(name, fmt.Errorf("sheet name cannot be empty"))
	}
	if strings.ContainsAny(name, `[]:*?/\`) {
		return NewInvalidNameError(name, fmt.Errorf("sheet name %q contains one of [ ] : * ? / \\", name))
	}
	return nil
}

func (e *Engine) appendSheet(name string) ir.SheetID {
	id := e.nextSheet
	e.nextSheet++
	e.sheets = append(e.sheets, sheet{id: id, name: name})
	return id
}

// AddSheet appends a sheet. Formulas that named a missing sheet with the
// same name start reading it.
func (e *Engine) AddSheet(name string) (ir.SheetID, error) {
	name = strings.TrimSpace(name)
	if err := validateSheetName(name); err != nil {
		return 0, err
	}
	if _, taken := e.SheetIDByName(name); taken {
		return 0, NewDuplicateSheetError(name)
	}
	var id ir.SheetID
	e.edit(func() {
		id = e.appendSheet(name)
		e.structural = true
		e.revive(name)
	})
	e.logger.Debug("sheet added", "sheet", id, "name", name)
	return id, nil
}

// RenameSheet renames a sheet. Formulas reading it keep reading it under
// the new name.
func (e *Engine) RenameSheet(id ir.SheetID, name string) error {
	i, ok := e.SheetIndex(id)
	if !ok {
		return NewInvalidSheetError(id, "no such sheet")
	}
	name = strings.TrimSpace(name)
	if err := validateSheetName(name); err != nil {
		return err
	}
	if other, taken := e.SheetIDByName(name); taken && other != id {
		return NewDuplicateSheetError(name)
	}
	old := e.sheets[i].name
	e.edit(func() {
		e.sheets[i].name = name
		e.structural = true
		for _, fid := range e.formulaCells() {
			if c := e.cells[fid]; formula.ReferencesSheet(c.expr, id) {
				c.expr = formula.RenameSheetRefs(c.expr, id, name)
				e.reformat(c)
			}
		}
		e.revive(name)
	})
	e.logger.Debug("sheet renamed", "sheet", id, "from", old, "to", name)
	return nil
}

// RemoveSheet deletes a sheet with its cells. References to it become
// #REF!, names pointing into it are dropped, and the last sheet cannot
// be removed.
func (e *Engine) RemoveSheet(id ir.SheetID) error {
	index, ok := e.SheetIndex(id)
	if !ok {
		return NewInvalidSheetError(id, "no such sheet")
	}
	if len(e.sheets) == 1 {
		return NewInvalidSheetError(id, "cannot remove the last sheet")
	}
	e.edit(func() {
		e.structural = true
		affected := e.graph.RemoveSheet(id)
		for _, cid := range e.Cells(id) {
			e.drop(cid)
			delete(e.pending, cid)
			delete(e.saved, cid)
		}
		e.sheets = append(e.sheets[:index], e.sheets[index+1:]...)
		movedNames := e.dropSheetNames(index)

		refs := make(map[ir.CellID]struct{}, len(affected))
		for _, cid := range affected {
			refs[cid] = struct{}{}
		}
		for _, fid := range e.formulaCells() {
			c := e.cells[fid]
			out, changed := formula.MarkSheetRemoved(c.expr, id)
			if changed {
				c.expr = out
				refs[fid] = struct{}{}
			}
		}
		for _, fid := range ir.SortedCellIDs(refs) {
			if c, ok := e.cells[fid]; ok {
				e.wire(fid, c)
				e.pending[fid] = struct{}{}
			}
		}
		e.rewireNames(movedNames)
	})
	e.logger.Debug("sheet removed", "sheet", id)
	return nil
}

// dropSheetNames removes names that point into the sheet at index and
// renumbers names on later sheets. It returns the folded keys of every
// name it touched.
func (e *Engine) dropSheetNames(index int) map[string]bool {
	touched := make(map[string]bool)
	for _, nr := range e.names.List() {
		switch {
		case nr.Target.Sheet == index:
			e.names.Remove(nr.Name)
		case nr.Target.Sheet > index:
			nr.Target.Sheet--
			_ = e.names.Set(nr)
		default:
			continue
		}
		touched[ir.Fold(nr.Name)] = true
	}
	return touched
}

// revive re-binds formulas that name a missing sheet called name.
func (e *Engine) revive(name string) {
	for _, fid := range e.formulaCells() {
		c := e.cells[fid]
		if !namesMissingSheet(c.expr, name) {
			continue
		}
		e.bind(fid, c)
		e.pending[fid] = struct{}{}
	}
}

func namesMissingSheet(expr formula.Expr, name string) bool {
	found := false
	formula.Walk(expr, func(n formula.Expr) bool {
		var ref formula.SheetRef
		switch r := n.(type) {
		case formula.CellRef:
			ref = r.Sheet
		case formula.RangeRef:
			ref = r.Sheet
		default:
			return !found
		}
		if ref.Kind == formula.SheetRefError && ir.EqualFold(ref.Name, name) {
			found = true
		}
		return !found
	})
	return found
}
