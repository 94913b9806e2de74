package formula

import (
	"strconv"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

// SheetNameResolver maps sheet names (case-insensitive) to live sheet ids.
type SheetNameResolver interface {
	SheetIDByName(name string) (ir.SheetID, bool)
}

// SheetIndexResolver maps sheet positions to live sheet ids.
type SheetIndexResolver interface {
	SheetIDAt(index int) (ir.SheetID, bool)
}

// SheetNamer maps sheet ids back to their current display names.
type SheetNamer interface {
	SheetName(id ir.SheetID) (string, bool)
}

// Bind resolves every SheetNamed reference in e. Names that do not match
// a live sheet become SheetRefError, which evaluates to #REF! and is
// skipped by reference extraction.
func Bind(e Expr, sheets SheetNameResolver) Expr {
	return mapRefs(e, func(s SheetRef) SheetRef {
		if s.Kind != SheetNamed {
			return s
		}
		if id, ok := sheets.SheetIDByName(s.Name); ok {
			return SheetRef{Kind: SheetByID, ID: id, Name: s.Name}
		}
		return SheetRef{Kind: SheetRefError, Name: s.Name}
	})
}

// MarkSheetRemoved turns bound references to sheet id into RefError.
// changed reports whether e referenced the sheet at all.
func MarkSheetRemoved(e Expr, id ir.SheetID) (out Expr, changed bool) {
	out = mapRefs(e, func(s SheetRef) SheetRef {
		if s.Kind == SheetByID && s.ID == id {
			changed = true
			return SheetRef{Kind: SheetRefError, Name: s.Name}
		}
		return s
	})
	return out, changed
}

// RenameSheetRefs sets the recorded name of every bound reference to
// sheet id. The name is what a reference falls back to once the sheet is
// removed.
func RenameSheetRefs(e Expr, id ir.SheetID, name string) Expr {
	return mapRefs(e, func(s SheetRef) SheetRef {
		if s.Kind == SheetByID && s.ID == id {
			s.Name = name
		}
		return s
	})
}

// ReferencesSheet reports whether e has an explicit reference to sheet id.
func ReferencesSheet(e Expr, id ir.SheetID) bool {
	found := false
	Walk(e, func(n Expr) bool {
		switch r := n.(type) {
		case CellRef:
			found = found || (r.Sheet.Kind == SheetByID && r.Sheet.ID == id)
		case RangeRef:
			found = found || (r.Sheet.Kind == SheetByID && r.Sheet.ID == id)
		}
		return !found
	})
	return found
}

func mapRefs(e Expr, fn func(SheetRef) SheetRef) Expr {
	switch n := e.(type) {
	case CellRef:
		n.Sheet = fn(n.Sheet)
		return n
	case RangeRef:
		n.Sheet = fn(n.Sheet)
		n.Start.Sheet = n.Sheet
		n.End.Sheet = n.Sheet
		return n
	case Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = mapRefs(a, fn)
		}
		return Call{Name: n.Name, Args: args}
	case Binary:
		return Binary{Op: n.Op, Left: mapRefs(n.Left, fn), Right: mapRefs(n.Right, fn)}
	case Unary:
		return Unary{Op: n.Op, Operand: mapRefs(n.Operand, fn)}
	default:
		return e
	}
}

// Format renders e back to formula text without the leading '='.
// Bound sheet references print their current name from namer, so the
// output follows sheet renames.
func Format(e Expr, namer SheetNamer) string {
	var sb strings.Builder
	formatExpr(&sb, e, namer)
	return sb.String()
}

const (
	precComparison = iota + 1
	precConcat
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precPostfix
	precAtom
)

func precedence(e Expr) int {
	switch n := e.(type) {
	case Binary:
		switch n.Op {
		case OpConcat:
			return precConcat
		case OpAdd, OpSub:
			return precAdditive
		case OpMul, OpDiv:
			return precMultiplicative
		case OpPow:
			return precPower
		default:
			return precComparison
		}
	case Unary:
		if n.Op == OpPercent {
			return precPostfix
		}
		return precUnary
	default:
		return precAtom
	}
}

func formatExpr(sb *strings.Builder, e Expr, namer SheetNamer) {
	switch n := e.(type) {
	case NumberLit:
		sb.WriteString(ir.FormatNumber(n.Value))
	case TextLit:
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(n.Value, `"`, `""`))
		sb.WriteByte('"')
	case BoolLit:
		if n.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case ErrorLit:
		sb.WriteString(n.Value.Msg)
	case CellRef:
		formatSheet(sb, n.Sheet, namer)
		formatCell(sb, n)
	case RangeRef:
		formatSheet(sb, n.Sheet, namer)
		formatCell(sb, n.Start)
		sb.WriteByte(':')
		formatCell(sb, n.End)
	case NameRef:
		sb.WriteString(n.Name)
	case Call:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			formatExpr(sb, a, namer)
		}
		sb.WriteByte(')')
	case Binary:
		p := precedence(n)
		formatChild(sb, n.Left, namer, precedence(n.Left) < p)
		sb.WriteString(n.Op.String())
		formatChild(sb, n.Right, namer, precedence(n.Right) <= p)
	case Unary:
		switch n.Op {
		case OpNeg, OpPlus:
			if n.Op == OpNeg {
				sb.WriteByte('-')
			} else {
				sb.WriteByte('+')
			}
			formatChild(sb, n.Operand, namer, precedence(n.Operand) < precUnary)
		case OpPercent:
			formatChild(sb, n.Operand, namer, precedence(n.Operand) < precPostfix)
			sb.WriteByte('%')
		}
	}
}

func formatChild(sb *strings.Builder, e Expr, namer SheetNamer, paren bool) {
	if paren {
		sb.WriteByte('(')
	}
	formatExpr(sb, e, namer)
	if paren {
		sb.WriteByte(')')
	}
}

func formatSheet(sb *strings.Builder, s SheetRef, namer SheetNamer) {
	name := s.Name
	switch s.Kind {
	case SheetCurrent:
		return
	case SheetByID:
		if namer != nil {
			if current, ok := namer.SheetName(s.ID); ok {
				name = current
			}
		}
	}
	sb.WriteString(QuoteSheetName(name))
	sb.WriteByte('!')
}

func formatCell(sb *strings.Builder, c CellRef) {
	if c.AbsCol {
		sb.WriteByte('$')
	}
	sb.WriteString(ir.ColToLetters(c.Col))
	if c.AbsRow {
		sb.WriteByte('$')
	}
	sb.WriteString(strconv.Itoa(c.Row + 1))
}

// QuoteSheetName wraps a sheet name in single quotes when it would not
// lex as a bare identifier.
func QuoteSheetName(name string) string {
	bare := name != "" && !ir.LooksLikeA1(name)
	for i, r := range name {
		if i == 0 && !isIdentStart(r) || r == '$' || !isIdentPart(r) {
			bare = false
			break
		}
	}
	if bare {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
