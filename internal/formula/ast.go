package formula

import "github.com/roach88/gridcalc/internal/ir"

// Expr is a node of a formula syntax tree.
type Expr interface {
	expr() // Sealed
}

// SheetRefKind says how the sheet part of a reference is known.
type SheetRefKind int

const (
	// SheetCurrent means the sheet that owns the formula.
	SheetCurrent SheetRefKind = iota
	// SheetNamed is an unbound reference by name, as written in the text.
	SheetNamed
	// SheetByID is a bound reference to a live sheet.
	SheetByID
	// SheetRefError points at a sheet that no longer exists.
	SheetRefError
)

// SheetRef is the sheet component of a cell or range reference.
type SheetRef struct {
	Kind SheetRefKind
	ID   ir.SheetID
	Name string
}

// Resolve returns the concrete sheet for a reference evaluated on ctx.
// ok is false for RefError and unbound names.
func (s SheetRef) Resolve(ctx ir.SheetID) (ir.SheetID, bool) {
	switch s.Kind {
	case SheetCurrent:
		return ctx, true
	case SheetByID:
		return s.ID, true
	default:
		return 0, false
	}
}

// NumberLit is a numeric literal.
type NumberLit struct{ Value float64 }

// TextLit is a string literal.
type TextLit struct{ Value string }

// BoolLit is TRUE or FALSE.
type BoolLit struct{ Value bool }

// ErrorLit is an error literal written in the formula, e.g. #N/A.
type ErrorLit struct{ Value ir.Error }

// CellRef is a single-cell reference.
type CellRef struct {
	Sheet  SheetRef
	Row    int
	Col    int
	AbsRow bool
	AbsCol bool
}

// RangeRef is a rectangular reference. Start and End carry their own
// absolute flags; their Sheet fields are unused.
type RangeRef struct {
	Sheet SheetRef
	Start CellRef
	End   CellRef
}

// NameRef is a named range, resolved at evaluation time.
type NameRef struct{ Name string }

// Call is a function call. Name is upper-cased by the parser.
type Call struct {
	Name string
	Args []Expr
}

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpText = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpPow: "^", OpConcat: "&",
	OpEq: "=", OpNe: "<>", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// Binary is an infix operation.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp enumerates prefix and postfix operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPlus
	OpPercent
)

// Unary is a unary operation.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (NumberLit) expr() {}
func (TextLit) expr()   {}
func (BoolLit) expr()   {}
func (ErrorLit) expr()  {}
func (CellRef) expr()   {}
func (RangeRef) expr()  {}
func (NameRef) expr()   {}
func (Call) expr()      {}
func (Binary) expr()    {}
func (Unary) expr()     {}

// Walk visits e and its children depth-first. Returning false from fn
// stops descent into that node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Unary:
		Walk(n.Operand, fn)
	}
}
