package knot

import (
	"bytes"
	"fmt"
	"strconv"
)

// Value is the value of a data point. Exactly one variant exists per
// ValueKind: Bool, Int, Float and Raw.
type Value interface {
	// Kind returns the kind the variant belongs to.
	Kind() ValueKind
	// Size returns the number of bytes this value occupies on output.
	Size() int

	isValue()
}

// Bool is a boolean value.
type Bool bool

// Int is a signed 32-bit value.
type Int int32

// Float is a 32-bit floating point value.
type Float float32

// Raw is a free-form byte payload.
type Raw []byte

// Kind implements Value.
func (Bool) Kind() ValueKind { return KindBool }

// Kind implements Value.
func (Int) Kind() ValueKind { return KindInt }

// Kind implements Value.
func (Float) Kind() ValueKind { return KindFloat }

// Kind implements Value.
func (Raw) Kind() ValueKind { return KindRaw }

// Size implements Value.
func (Bool) Size() int { return 1 }

// Size implements Value.
func (Int) Size() int { return 4 }

// Size implements Value.
func (Float) Size() int { return 4 }

// Size implements Value.
func (v Raw) Size() int { return len(v) }

func (Bool) isValue()  {}
func (Int) isValue()   {}
func (Float) isValue() {}
func (Raw) isValue()   {}

// ZeroValue returns the zero value of a kind, nil for unknown kinds.
func ZeroValue(kind ValueKind) Value {
	switch kind {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindRaw:
		return Raw(nil)
	}
	return nil
}

// Equal reports whether two values are of the same kind and hold the same
// content.
func Equal(a, b Value) bool {
	switch va := a.(type) {
	case Bool:
		vb, ok := b.(Bool)
		return ok && va == vb
	case Int:
		vb, ok := b.(Int)
		return ok && va == vb
	case Float:
		vb, ok := b.(Float)
		return ok && va == vb
	case Raw:
		vb, ok := b.(Raw)
		return ok && bytes.Equal(va, vb)
	}
	return false
}

// Less reports a < b for ordered kinds. Values of different or unordered
// kinds are never less than each other.
func Less(a, b Value) bool {
	switch va := a.(type) {
	case Int:
		vb, ok := b.(Int)
		return ok && va < vb
	case Float:
		vb, ok := b.(Float)
		return ok && va < vb
	}
	return false
}

// ParseValue parses the textual form of a value of the given kind.
// Raw values are taken verbatim.
func ParseValue(kind ValueKind, s string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return Bool(b), nil
	case KindInt:
		n, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return nil, err
		}
		return Int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case KindRaw:
		return Raw(s), nil
	}
	return nil, fmt.Errorf("cannot parse value of %v", kind)
}

// FormatValue formats a value for display.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case Raw:
		return strconv.Quote(string(val))
	}
	return "<nil>"
}
