package codec

import (
	"fmt"
	"math"
)

// Kind is the type tag of a replicated Value.
type Kind uint8

// NOTE: changes in order is a breaking change of the wire format.
const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindVec2

	kindCount
)

var kindNames = [...]string{"nil", "bool", "int", "float", "string", "bytes", "vec2"}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a typed property value that can be replicated.
// The zero Value is nil.
type Value struct {
	kind Kind
	num  int64
	x, y float64
	str  string
	raw  []byte
}

func Nil() Value { return Value{} }
func Int(i int64) Value { return Value{kind: KindInt, num: i} }
func Float(f float64) Value { return Value{kind: KindFloat, x: f} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Vec2(x, y float64) Value { return Value{kind: KindVec2, x: x, y: y} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Bytes wraps b without copying. An empty slice is stored as nil.
func Bytes(b []byte) Value {
	if len(b) == 0 {
		b = nil
	}
	return Value{kind: KindBytes, raw: b}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the value as a bool, false for other kinds.
func (v Value) AsBool() bool { return v.kind == KindBool && v.num != 0 }

// AsInt returns the value as an int64. Floats are truncated.
func (v Value) AsInt() int64 {
	switch v.kind {
	case KindInt, KindBool:
		return v.num
	case KindFloat:
		return int64(v.x)
	}
	return 0
}

// AsFloat returns the value as a float64. Ints are converted.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.x
	case KindInt:
		return float64(v.num)
	}
	return 0
}

func (v Value) AsString() string { return v.str }
func (v Value) AsBytes() []byte { return v.raw }

// AsVec2 returns both components of a vec2 value.
func (v Value) AsVec2() (float64, float64) { return v.x, v.y }

// Equal compares two values. NaN floats are equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool, KindInt:
		return v.num == o.num
	case KindFloat:
		return floatEqual(v.x, o.x)
	case KindVec2:
		return floatEqual(v.x, o.x) && floatEqual(v.y, o.y)
	case KindString:
		return v.str == o.str
	case KindBytes:
		return string(v.raw) == string(o.raw)
	}
	return false
}

func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindFloat:
		return fmt.Sprintf("%g", v.x)
	case KindVec2:
		return fmt.Sprintf("(%g, %g)", v.x, v.y)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindBytes:
		return fmt.Sprintf("bytes[%d]", len(v.raw))
	}
	return "nil"
}
