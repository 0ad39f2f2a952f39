package sunspec

import (
	"fmt"
	"strconv"
)

// Kind discriminates the payload of a Value.
type Kind uint8

const (
	KindUnavailable Kind = iota
	KindNumber
	KindText
)

// Value is one decoded field: a number, a string, or "unavailable" when the
// device reported a not-implemented sentinel. The zero Value is unavailable.
type Value struct {
	kind Kind
	num  float64
	text string
}

// NotAvailable is the decode result for sentinel register patterns.
var NotAvailable = Value{}

// Num wraps a numeric reading.
func Num(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string reading.
func Text(s string) Value { return Value{kind: KindText, text: s} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) Available() bool { return v.kind != KindUnavailable }

// Float returns the numeric payload, or 0 for non-numeric values.
func (v Value) Float() float64 { return v.num }

// Str returns the string payload, or "" for non-string values.
func (v Value) Str() string { return v.text }

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	default:
		return "n/a"
	}
}

// DecodeError reports a register block that cannot be interpreted against a
// model layout. It counts as a poll failure; the previous snapshot stands.
type DecodeError struct {
	Model  string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("sunspec: decode %s: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("sunspec: decode %s.%s: %s", e.Model, e.Field, e.Reason)
}

// ValidationError rejects a write value before any register I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sunspec: invalid value for %s: %s", e.Field, e.Reason)
}

// UnsupportedModelError marks a model ID discovery cannot map to a layout.
// The affected sub-device is excluded from polling until the next rescan.
type UnsupportedModelError struct {
	ID uint16
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("sunspec: unsupported model id %d", e.ID)
}
