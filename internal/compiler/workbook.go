// Package compiler turns CUE workbook sources into engine snapshots and
// checks snapshots before they are loaded.
package compiler

import (
	_ "embed"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/ir"
)

//go:embed workbook.cue
var schemaSource string

// Schema returns the #Workbook definition compiled in ctx.
func Schema(ctx *cue.Context) cue.Value {
	return ctx.CompileString(schemaSource, cue.Filename("workbook.cue")).
		LookupPath(cue.ParsePath("#Workbook"))
}

// CompileSource compiles CUE text holding a single workbook.
func CompileSource(filename string, src []byte) (*engine.Snapshot, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileWorkbook(v)
}

// CompileWorkbook unifies v with the workbook schema and converts it to a
// Snapshot. Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Cell values may be strings, numbers or booleans; numbers and booleans
// become their cell text (42, 1.5, TRUE):
//
//	sheets: [{
//		name: "Sheet1"
//		cells: {A1: 5, B1: "=A1*2"}
//	}]
func CompileWorkbook(v cue.Value) (*engine.Snapshot, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	w := Schema(v.Context()).Unify(v)
	if err := w.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	snap := &engine.Snapshot{}
	if rv := w.LookupPath(cue.ParsePath("revision")); rv.Exists() {
		rev, err := rv.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		snap.Revision = rev
	}

	sheets, err := w.LookupPath(cue.ParsePath("sheets")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; sheets.Next(); i++ {
		ss, err := parseSheet(sheets.Value(), i)
		if err != nil {
			return nil, err
		}
		snap.Sheets = append(snap.Sheets, ss)
	}

	if nv := w.LookupPath(cue.ParsePath("names")); nv.Exists() {
		names, err := nv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; names.Next(); i++ {
			var nr formula.NamedRange
			if err := names.Value().Decode(&nr); err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("names[%d]", i),
					Message: err.Error(),
					Pos:     names.Value().Pos(),
				}
			}
			snap.Names = append(snap.Names, nr)
		}
	}
	return snap, nil
}

func parseSheet(v cue.Value, index int) (engine.SheetSnapshot, error) {
	var ss engine.SheetSnapshot
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return ss, formatCUEError(err)
	}
	ss.Name = name

	if idv := v.LookupPath(cue.ParsePath("id")); idv.Exists() {
		id, err := idv.Uint64()
		if err != nil {
			return ss, formatCUEError(err)
		}
		ss.ID = ir.SheetID(id)
	}

	cells := v.LookupPath(cue.ParsePath("cells"))
	if !cells.Exists() {
		return ss, nil
	}
	iter, err := cells.Fields()
	if err != nil {
		return ss, formatCUEError(err)
	}
	for iter.Next() {
		text, err := cellText(iter.Value())
		if err != nil {
			return ss, &CompileError{
				Field:   fmt.Sprintf("sheets[%d].cells.%s", index, iter.Label()),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		if ss.Cells == nil {
			ss.Cells = make(map[string]string)
		}
		ss.Cells[iter.Label()] = text
	}
	return ss, nil
}

// cellText renders a concrete CUE scalar as raw cell text.
func cellText(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", err
		}
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", fmt.Errorf("unsupported cell kind: %v", v.Kind())
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
