package row

import (
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindNull is the null (or missing) value.
	KindNull Kind = iota
	// KindBool is a boolean value.
	KindBool
	// KindInt is a 64-bit signed integer.
	KindInt
	// KindFloat is a 64-bit float.
	KindFloat
	// KindString is a UTF-8 string.
	KindString
	// KindTimestamp is an instant in time, compared by UTC instant.
	KindTimestamp
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as its lowercase name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, k.String()), nil
}

// Value is an immutable tagged scalar. The zero value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// Kind returns the value's kind tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload. Valid only for KindInt.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the float payload. Valid only for KindFloat.
func (v Value) Float64() float64 { return v.f }

// Text returns the string payload. Valid only for KindString.
func (v Value) Text() string { return v.s }

// Boolean returns the bool payload. Valid only for KindBool.
func (v Value) Boolean() bool { return v.b }

// Time returns the timestamp payload. Valid only for KindTimestamp.
func (v Value) Time() time.Time { return v.t }

// Numeric returns the value as a float64 when the value is an integer or a
// float. The second return is false otherwise.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// EqualKey reports exact per-component equality, the semantics used for key
// tuples. Null equals null. An integer never equals a float, even when the
// numeric values coincide, so that key identity matches key hashing.
func (v Value) EqualKey(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindTimestamp:
		return v.t.Equal(o.t)
	default:
		return false
	}
}

// Equal reports value-based equality for non-key column comparison.
// Numeric kinds compare by value, so Int(1) equals Float(1.0). A non-zero
// epsilon makes numeric comparison tolerant: |a-b| <= epsilon.
// Null equals only null.
func (v Value) Equal(o Value, epsilon float64) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind
	}
	if a, ok := v.Numeric(); ok {
		if b, ok := o.Numeric(); ok {
			if epsilon > 0 {
				return math.Abs(a-b) <= epsilon
			}
			return a == b
		}
		return false
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindTimestamp:
		return v.t.Equal(o.t)
	default:
		return false
	}
}

// String renders the value for display and reports.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTimestamp:
		return v.t.UTC().Format(time.RFC3339Nano)
	default:
		return "?"
	}
}

// MarshalJSON renders the value as its natural JSON type. Timestamps become
// RFC 3339 strings; non-finite floats become strings since JSON has no
// representation for them.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return strconv.AppendQuote(nil, strconv.FormatFloat(v.f, 'g', -1, 64)), nil
		}
		return strconv.AppendFloat(nil, v.f, 'g', -1, 64), nil
	case KindString:
		return json.Marshal(v.s)
	case KindTimestamp:
		return strconv.AppendQuote(nil, v.t.UTC().Format(time.RFC3339Nano)), nil
	default:
		return []byte("null"), nil
	}
}

// MemSize returns an estimate of the value's resident size in bytes, used
// for memory budget accounting.
func (v Value) MemSize() int64 {
	// struct overhead plus string backing array
	return 56 + int64(len(v.s))
}
