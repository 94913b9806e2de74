package ir

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a sealed interface for evaluated cell contents.
// Only Number, Text, Boolean, Empty and Error implement it.
type Value interface {
	value() // Sealed
	Kind() Kind
}

// Kind tags the concrete Value type. The numeric order is the sort rank:
// Number < Text < Boolean < Empty < Error.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindBoolean
	KindEmpty
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindEmpty:
		return "empty"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Number is a 64-bit float value.
type Number float64

func (Number) value()     {}
func (Number) Kind() Kind { return KindNumber }

// Text is a string value. Text("") is not Empty.
type Text string

func (Text) value()     {}
func (Text) Kind() Kind { return KindText }

// Boolean is TRUE or FALSE.
type Boolean bool

func (Boolean) value()     {}
func (Boolean) Kind() Kind { return KindBoolean }

// Empty is the value of a cell that holds nothing.
type Empty struct{}

func (Empty) value()     {}
func (Empty) Kind() Kind { return KindEmpty }

// Error is an error-valued result such as "#DIV/0!" or a descriptive
// message like "AVERAGE requires at least one value".
//
// Error also implements the error interface so coercion helpers can
// return it directly.
type Error struct {
	Msg string
}

func (Error) value()     {}
func (Error) Kind() Kind { return KindError }

func (e Error) Error() string { return e.Msg }

// Standard error kinds.
var (
	ErrDiv0  = Error{"#DIV/0!"}
	ErrValue = Error{"#VALUE!"}
	ErrRef   = Error{"#REF!"}
	ErrName  = Error{"#NAME?"}
	ErrNum   = Error{"#NUM!"}
	ErrNA    = Error{"#N/A"}
	ErrNull  = Error{"#NULL!"}
	ErrCycle = Error{"#CYCLE!"}
	ErrParse = Error{"#ERROR!"}
)

// errorLiterals are the spellings recognised when a cell's raw text is an
// error literal.
var errorLiterals = map[string]Error{
	"#DIV/0!": ErrDiv0,
	"#VALUE!": ErrValue,
	"#REF!":   ErrRef,
	"#NAME?":  ErrName,
	"#NUM!":   ErrNum,
	"#N/A":    ErrNA,
	"#NULL!":  ErrNull,
	"#CYCLE!": ErrCycle,
}

// Errorf builds an Error value with a formatted message.
func Errorf(format string, args ...any) Error {
	return Error{Msg: fmt.Sprintf(format, args...)}
}

// AsError converts any Go error into an Error value.
func AsError(err error) Error {
	var ev Error
	if errors.As(err, &ev) {
		return ev
	}
	return Error{Msg: err.Error()}
}

// IsError reports whether v is an Error value.
func IsError(v Value) bool {
	_, ok := v.(Error)
	return ok
}

// IsErrorLiteral reports whether s is one of the standard error spellings.
func IsErrorLiteral(s string) bool {
	_, ok := errorLiterals[strings.ToUpper(s)]
	return ok
}

// ToNumber coerces v to a float.
//
// Empty and Text("") are 0, booleans are 1/0, text must parse as a number
// or the result is #VALUE!. An Error value is returned as the error.
func ToNumber(v Value) (float64, error) {
	switch val := v.(type) {
	case Number:
		return float64(val), nil
	case Boolean:
		if val {
			return 1, nil
		}
		return 0, nil
	case Empty:
		return 0, nil
	case Text:
		s := strings.TrimSpace(string(val))
		if s == "" {
			return 0, nil
		}
		n, ok := ParseNumber(s)
		if !ok {
			return 0, ErrValue
		}
		return n, nil
	case Error:
		return 0, val
	default:
		return 0, ErrValue
	}
}

// ToText renders v for concatenation and display.
func ToText(v Value) string {
	switch val := v.(type) {
	case Number:
		return FormatNumber(float64(val))
	case Text:
		return string(val)
	case Boolean:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case Empty:
		return ""
	case Error:
		return val.Msg
	default:
		return ""
	}
}

// ToBool coerces v to a boolean.
func ToBool(v Value) (bool, error) {
	switch val := v.(type) {
	case Boolean:
		return bool(val), nil
	case Number:
		return val != 0, nil
	case Empty:
		return false, nil
	case Text:
		switch strings.ToUpper(strings.TrimSpace(string(val))) {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
		return false, ErrValue
	case Error:
		return false, val
	default:
		return false, ErrValue
	}
}

// FormatNumber prints integral values below 1e15 without a decimal point
// and everything else in shortest round-trip form.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ParseNumber parses s as a finite float. Leading/trailing space is ignored.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// ParseLiteral classifies raw non-formula cell text.
// "" is Empty, numbers become Number, TRUE/FALSE become Boolean,
// error spellings become Error, anything else is Text.
func ParseLiteral(raw string) Value {
	if raw == "" {
		return Empty{}
	}
	if n, ok := ParseNumber(raw); ok {
		return Number(n)
	}
	trimmed := strings.TrimSpace(raw)
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Boolean(true)
	case "FALSE":
		return Boolean(false)
	}
	if ev, ok := errorLiterals[strings.ToUpper(trimmed)]; ok {
		return ev
	}
	return Text(raw)
}
