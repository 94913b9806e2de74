package depgraph

import (
	"errors"
	"fmt"

	"github.com/roach88/gridcalc/internal/ir"
)

// Validate checks that the precedent and dependent indexes mirror each
// other and that every node with precedents is a formula cell. It returns
// all violations joined, or nil.
func (g *Graph) Validate() error {
	var errs []error
	for _, cell := range ir.SortedCellIDs(keys(g.precedents)) {
		if !g.IsFormula(cell) {
			errs = append(errs, fmt.Errorf("%s has precedents but no formula", cell))
		}
		for _, p := range g.Precedents(cell) {
			if _, ok := g.dependents[p][cell]; !ok {
				errs = append(errs, fmt.Errorf("%s reads %s but is missing from its dependents", cell, p))
			}
		}
	}
	for _, p := range ir.SortedCellIDs(keys(g.dependents)) {
		for _, d := range g.Dependents(p) {
			if _, ok := g.precedents[d][p]; !ok {
				errs = append(errs, fmt.Errorf("%s lists dependent %s that does not read it", p, d))
			}
		}
	}
	return errors.Join(errs...)
}

func keys(m map[ir.CellID]cellSet) cellSet {
	out := make(cellSet, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
