package doc

import (
	"fmt"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindArray
	KindMap
)

// Pair is one key/value entry of an ordered Map value.
type Pair struct {
	Key   string
	Value Value
}

// Value is a MsgPack-shaped variant: exactly the set of shapes that
// can appear in an incoming document, a persisted schema node, or a
// cast object.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	f     float64
	s     string
	bytes []byte
	arr   []Value
	m     []Pair
}

func Nil() Value                { return Value{kind: KindNil} }
func Bool(v bool) Value         { return Value{kind: KindBool, b: v} }
func Int(v int64) Value         { return Value{kind: KindInt, i: v} }
func Uint(v uint64) Value       { return Value{kind: KindUint, u: v} }
func Float(v float64) Value     { return Value{kind: KindFloat, f: v} }
func String(v string) Value     { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value      { return Value{kind: KindBytes, bytes: v} }
func Array(v []Value) Value     { return Value{kind: KindArray, arr: v} }
func Map(pairs []Pair) Value    { return Value{kind: KindMap, m: pairs} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNil() bool     { return v.kind == KindNil }
func (v Value) Bool() bool      { return v.b }
func (v Value) Int() int64      { return v.i }
func (v Value) Uint() uint64    { return v.u }
func (v Value) Float() float64  { return v.f }
func (v Value) Str() string     { return v.s }
func (v Value) ByteSlice() []byte { return v.bytes }
func (v Value) Items() []Value  { return v.arr }
func (v Value) Pairs() []Pair   { return v.m }

// Get returns the first entry with the given key and whether it was
// found. A document level that contains the same key twice is a
// duplicate-key error the caller (the schema engine) must raise
// itself while walking Pairs in order — Get only looks at the first
// occurrence.
func (v Value) Get(key string) (Value, bool) {
	for _, p := range v.m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// AsNumber returns a float64 view of Int/Uint/Float kinds, for code
// that only cares about magnitude (accuracy bucketing, comparisons).
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) String_() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindUint:
		return fmt.Sprintf("%d", v.u)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.bytes)
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return "?"
	}
}
