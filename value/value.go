// Package value implements Diannex's runtime Value model: a small
// tagged union over {undefined, int, double, string, array-of-Value}.
// It is a flat struct rather than an interface-based sum type — every
// dialogue-VM example in this corpus that needs a hot-path tagged union
// (go-flux's internal/vm.Value, ngaro's Cell) avoids boxing through
// `any`, and dxvm's operand stack is exactly the hot path that matters.
package value

import (
	"fmt"
	"strconv"
)

// Kind discriminates the tagged union.
type Kind uint8

const (
	Undefined Kind = iota
	Int
	Double
	Str
	Array
)

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Int:
		return "int"
	case Double:
		return "double"
	case Str:
		return "string"
	case Array:
		return "array"
	default:
		return "invalid"
	}
}

// Value is a Diannex runtime value. The zero Value is Undefined.
type Value struct {
	kind Kind
	i    int32
	d    float64
	s    string
	a    []Value
}

// NewUndefined returns the Undefined value — the initial state of unset
// variables and the implicit result of a frame exit with no return.
func NewUndefined() Value { return Value{kind: Undefined} }

// NewInt wraps an int32.
func NewInt(i int32) Value { return Value{kind: Int, i: i} }

// NewDouble wraps a float64.
func NewDouble(d float64) Value { return Value{kind: Double, d: d} }

// NewString wraps a string.
func NewString(s string) Value { return Value{kind: Str, s: s} }

// NewArray wraps a slice of Values. The slice is taken by reference —
// arrays have reference semantics in Diannex, so set_array_index must be
// observable through every Value holding the same array.
func NewArray(elems []Value) Value { return Value{kind: Array, a: elems} }

// Kind reports the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Int returns the wrapped int32 and whether v is an Int.
func (v Value) Int() (int32, bool) {
	if v.kind != Int {
		return 0, false
	}
	return v.i, true
}

// Double returns the wrapped float64 and whether v is a Double.
func (v Value) Double() (float64, bool) {
	if v.kind != Double {
		return 0, false
	}
	return v.d, true
}

// Str returns the wrapped string and whether v is a Str.
func (v Value) Str() (string, bool) {
	if v.kind != Str {
		return "", false
	}
	return v.s, true
}

// Array returns the wrapped slice and whether v is an Array. The slice
// is the live backing array, not a copy.
func (v Value) Array() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return v.a, true
}

// IsNumeric reports whether v is Int or Double — the two kinds
// arithmetic and comparison opcodes accept.
func (v Value) IsNumeric() bool {
	return v.kind == Int || v.kind == Double
}

// AsFloat64 returns v's numeric value promoted to float64. Only valid
// when IsNumeric is true.
func (v Value) AsFloat64() float64 {
	if v.kind == Double {
		return v.d
	}
	return float64(v.i)
}

// IsTruthy implements §4.2's truthiness table: Undefined, Int(0),
// Double(0.0), empty Str, and empty Array are falsy; everything else is
// truthy.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case Undefined:
		return false
	case Int:
		return v.i != 0
	case Double:
		return v.d != 0
	case Str:
		return v.s != ""
	case Array:
		return len(v.a) != 0
	default:
		return false
	}
}

// ToDisplayString renders v the way string-interpolation placeholders
// do: ints and doubles format as plain decimal, strings pass through
// unchanged, arrays render as a bracketed, comma-joined list of their
// elements' own display strings, and Undefined renders as "undefined".
func (v Value) ToDisplayString() string {
	switch v.kind {
	case Undefined:
		return "undefined"
	case Int:
		return strconv.FormatInt(int64(v.i), 10)
	case Double:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case Str:
		return v.s
	case Array:
		out := "["
		for i, e := range v.a {
			if i > 0 {
				out += ", "
			}
			out += e.ToDisplayString()
		}
		return out + "]"
	default:
		return ""
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.ToDisplayString())
}

// Equal implements cmp_eq/cmp_neq's equality test. Values of different
// kinds are never equal, except that Int and Double compare by numeric
// value (mixed-kind arithmetic already promotes to Double elsewhere in
// the VM, and comparisons follow the same promotion rule).
func Equal(a, b Value) bool {
	if a.kind == b.kind {
		switch a.kind {
		case Undefined:
			return true
		case Int:
			return a.i == b.i
		case Double:
			return a.d == b.d
		case Str:
			return a.s == b.s
		case Array:
			if len(a.a) != len(b.a) {
				return false
			}
			for i := range a.a {
				if !Equal(a.a[i], b.a[i]) {
					return false
				}
			}
			return true
		}
	}
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsFloat64() == b.AsFloat64()
	}
	return false
}
