package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

// DefineName creates or replaces a named range. Every formula that
// mentions the name is re-wired and recomputed.
func (e *Engine) DefineName(nr formula.NamedRange) error {
	if err := formula.ValidateName(nr.Name); err != nil {
		return NewInvalidNameError(nr.Name, err)
	}
	if err := e.checkTarget(nr.Target); err != nil {
		return err
	}
	var err error
	e.edit(func() {
		if err = e.names.Set(nr); err != nil {
			return
		}
		e.structural = true
		e.rewireNames(map[string]bool{ir.Fold(nr.Name): true})
	})
	if err != nil {
		return NewInvalidNameError(nr.Name, err)
	}
	e.logger.Debug("name defined", "name", nr.Name, "target", nr.Target.String())
	return nil
}

// RemoveName deletes a named range. Formulas that mention it evaluate to
// #NAME? from then on. It reports whether the name existed.
func (e *Engine) RemoveName(name string) bool {
	if _, ok := e.names.Get(name); !ok {
		return false
	}
	e.edit(func() {
		e.names.Remove(name)
		e.structural = true
		e.rewireNames(map[string]bool{ir.Fold(name): true})
	})
	return true
}

// Names lists the named ranges sorted by name.
func (e *Engine) Names() []formula.NamedRange {
	return e.names.List()
}

// ResolveName implements formula.NameResolver.
func (e *Engine) ResolveName(name string) (formula.NameTarget, bool) {
	return e.names.ResolveName(name)
}

func (e *Engine) checkTarget(t formula.NameTarget) error {
	id, ok := e.SheetIDAt(t.Sheet)
	if !ok {
		return NewInvalidSheetError(0, fmt.Sprintf("no sheet at index %d", t.Sheet))
	}
	for _, p := range [][2]int{{t.StartRow, t.StartCol}, {t.EndRow, t.EndCol}} {
		if p[0] < 0 || p[0] >= ir.MaxRows || p[1] < 0 || p[1] >= ir.MaxCols {
			return NewInvalidCellError(id, p[0], p[1])
		}
	}
	return nil
}

// rewireNames refreshes the edges of every formula that mentions one of
// the folded names and queues it for recalculation.
func (e *Engine) rewireNames(folded map[string]bool) {
	if len(folded) == 0 {
		return
	}
	for _, id := range e.formulaCells() {
		c := e.cells[id]
		if !slices.ContainsFunc(formula.ReferencedNames(c.expr), func(n string) bool { return folded[n] }) {
			continue
		}
		e.wire(id, c)
		e.pending[id] = struct{}{}
	}
}
