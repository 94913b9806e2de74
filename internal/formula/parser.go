package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/gridcalc/internal/ir"
)

// IsFormula reports whether raw cell text is a formula (leading '=').
func IsFormula(raw string) bool {
	return len(raw) > 1 && raw[0] == '='
}

// Parse parses formula text into an unbound Expr. A leading '=' is
// stripped if present. Sheet-qualified references come back as
// SheetNamed; call Bind before extraction or evaluation.
func Parse(text string) (Expr, error) {
	body := strings.TrimPrefix(text, "=")
	toks, err := tokenize(body)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &ParseError{Pos: 0, Msg: "empty formula"}
	}
	e, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			return op, true
		}
	}
	return "", false
}

var comparisonOps = map[string]BinaryOp{
	"=": OpEq, "<>": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp("=", "<>", "<", "<=", ">", ">=")
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: comparisonOps[op], Left: left, Right: right}
	}
}

func (p *parser) parseConcat() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.isOp("&"); !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpConcat, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp("+", "-")
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		bop := OpAdd
		if op == "-" {
			bop = OpSub
		}
		left = Binary{Op: bop, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp("*", "/")
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		bop := OpMul
		if op == "/" {
			bop = OpDiv
		}
		left = Binary{Op: bop, Left: left, Right: right}
	}
}

func (p *parser) parsePower() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.isOp("^"); !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpPow, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if op, ok := p.isOp("-", "+"); ok {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			return Unary{Op: OpNeg, Operand: operand}, nil
		}
		return Unary{Op: OpPlus, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.isOp("%"); !ok {
			return e, nil
		}
		p.next()
		e = Unary{Op: OpPercent, Operand: e}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("invalid number %q", t.text)}
		}
		return NumberLit{Value: n}, nil
	case tokString:
		return TextLit{Value: t.text}, nil
	case tokError:
		if ev, ok := ir.ParseLiteral(t.text).(ir.Error); ok {
			return ErrorLit{Value: ev}, nil
		}
		return ErrorLit{Value: ir.Error{Msg: t.text}}, nil
	case tokLParen:
		e, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tokRParen {
			return nil, &ParseError{Pos: r.pos, Msg: "expected ')'"}
		}
		return e, nil
	case tokQuotedSheet:
		if b := p.next(); b.kind != tokBang {
			return nil, &ParseError{Pos: b.pos, Msg: "expected '!' after sheet name"}
		}
		return p.parseReference(SheetRef{Kind: SheetNamed, Name: t.text})
	case tokIdent:
		return p.parseIdent(t)
	case tokEOF:
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected end of formula"}
	default:
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}

func (p *parser) parseIdent(t token) (Expr, error) {
	switch p.peek().kind {
	case tokLParen:
		p.next()
		return p.parseCall(strings.ToUpper(t.text))
	case tokBang:
		p.next()
		return p.parseReference(SheetRef{Kind: SheetNamed, Name: t.text})
	}
	switch strings.ToUpper(t.text) {
	case "TRUE":
		return BoolLit{Value: true}, nil
	case "FALSE":
		return BoolLit{Value: false}, nil
	}
	if _, err := ir.ParseA1(t.text); err == nil {
		p.pos--
		return p.parseReference(SheetRef{Kind: SheetCurrent})
	}
	if strings.Contains(t.text, "$") {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("invalid reference %q", t.text)}
	}
	return NameRef{Name: t.text}, nil
}

// parseReference reads A1 or A1:B2 after an optional sheet prefix.
func (p *parser) parseReference(sheet SheetRef) (Expr, error) {
	t := p.next()
	if t.kind != tokIdent {
		return nil, &ParseError{Pos: t.pos, Msg: "expected cell reference"}
	}
	a, err := ir.ParseA1(t.text)
	if err != nil {
		return nil, &ParseError{Pos: t.pos, Msg: err.Error()}
	}
	start := CellRef{Sheet: sheet, Row: a.Row, Col: a.Col, AbsRow: a.AbsRow, AbsCol: a.AbsCol}
	if p.peek().kind != tokColon {
		return start, nil
	}
	p.next()
	et := p.next()
	if et.kind != tokIdent {
		return nil, &ParseError{Pos: et.pos, Msg: "expected range end"}
	}
	b, err := ir.ParseA1(et.text)
	if err != nil {
		return nil, &ParseError{Pos: et.pos, Msg: err.Error()}
	}
	end := CellRef{Sheet: sheet, Row: b.Row, Col: b.Col, AbsRow: b.AbsRow, AbsCol: b.AbsCol}
	return RangeRef{Sheet: sheet, Start: start, End: end}, nil
}

func (p *parser) parseCall(name string) (Expr, error) {
	call := Call{Name: name}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		t := p.next()
		switch t.kind {
		case tokComma:
			continue
		case tokRParen:
			return call, nil
		default:
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected ',' or ')' in call to %s", name)}
		}
	}
}
