package formula

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokQuotedSheet
	tokError
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokBang
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// ParseError reports a syntax error at a byte offset of the formula body.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
}

var errorSpellings = []string{"#DIV/0!", "#VALUE!", "#REF!", "#NAME?", "#NUM!", "#N/A", "#NULL!", "#CYCLE!", "#ERROR!"}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r >= '0' && r <= '9' || (r == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9'):
			start := i
			i = scanNumber(src, i)
			toks = append(toks, token{tokNumber, src[start:i], start})
		case r == '"':
			s, next, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, s, i})
			i = next
		case r == '\'':
			s, next, err := scanQuotedSheet(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokQuotedSheet, s, i})
			i = next
		case r == '#':
			lit := matchErrorSpelling(src[i:])
			if lit == "" {
				return nil, &ParseError{Pos: i, Msg: "unknown error literal"}
			}
			toks = append(toks, token{tokError, lit, i})
			i += len(lit)
		case isIdentStart(r):
			start := i
			for i < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[i:])
				if !isIdentPart(r2) {
					break
				}
				i += s2
			}
			toks = append(toks, token{tokIdent, src[start:i], start})
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == ',' || r == ';':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case r == ':':
			toks = append(toks, token{tokColon, ":", i})
			i++
		case r == '!':
			toks = append(toks, token{tokBang, "!", i})
			i++
		case r == '<' || r == '>':
			op := string(r)
			if i+1 < len(src) && (src[i+1] == '=' || (r == '<' && src[i+1] == '>')) {
				op += string(src[i+1])
			}
			toks = append(toks, token{tokOp, op, i})
			i += len(op)
		case strings.ContainsRune("+-*/^&=%", r):
			toks = append(toks, token{tokOp, string(r), i})
			i++
		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{tokEOF, "", len(src)})
	return toks, nil
}

func scanNumber(src string, i int) int {
	for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
		i++
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func scanString(src string, i int) (string, int, error) {
	var sb strings.Builder
	j := i + 1
	for j < len(src) {
		if src[j] == '"' {
			if j+1 < len(src) && src[j+1] == '"' {
				sb.WriteByte('"')
				j += 2
				continue
			}
			return sb.String(), j + 1, nil
		}
		sb.WriteByte(src[j])
		j++
	}
	return "", 0, &ParseError{Pos: i, Msg: "unterminated string"}
}

func scanQuotedSheet(src string, i int) (string, int, error) {
	var sb strings.Builder
	j := i + 1
	for j < len(src) {
		if src[j] == '\'' {
			if j+1 < len(src) && src[j+1] == '\'' {
				sb.WriteByte('\'')
				j += 2
				continue
			}
			return sb.String(), j + 1, nil
		}
		sb.WriteByte(src[j])
		j++
	}
	return "", 0, &ParseError{Pos: i, Msg: "unterminated sheet name"}
}

func matchErrorSpelling(s string) string {
	upper := strings.ToUpper(s)
	for _, lit := range errorSpellings {
		if strings.HasPrefix(upper, lit) {
			return lit
		}
	}
	return ""
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '$'
}
