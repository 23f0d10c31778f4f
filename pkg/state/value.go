// Package state implements the engine's typed variable store (spec §3,
// §4.7, component I): a dynamically typed Value sum type plus a State
// map with snapshot/restore and per-name change observation.
package state

import "fmt"

// Kind closes the set of shapes a Value can hold.
type Kind string

const (
	KindNil    Kind = "nil"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindString Kind = "string"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// Value is the engine's dynamically typed variable value: nil, bool,
// number, string, list, or map of Value. The zero Value is Nil.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    map[string]Value
}

func Nil() Value                { return Value{kind: KindNil} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Number(n float64) Value    { return Value{kind: KindNumber, n: n} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func List(vs []Value) Value     { return Value{kind: KindList, list: cloneList(vs)} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: cloneMap(m)} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool)               { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool)          { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool)           { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool)            { return cloneList(v.list), v.kind == KindList }
func (v Value) AsMap() (map[string]Value, bool)    { return cloneMap(v.m), v.kind == KindMap }

// Truthy reports the value's boolean role in conditions: nil and false
// are falsy, zero and the empty string/list/map are falsy, everything
// else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	default:
		return false
	}
}

// Equal reports structural equality. Values of different kinds are
// never equal (callers implementing comparisons should treat a kind
// mismatch as "incompatible types", per the evaluator's contract, not
// necessarily as Equal returning false being the whole story).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, mv := range v.m {
			ov, ok := other.m[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

func cloneList(vs []Value) []Value {
	if vs == nil {
		return nil
	}
	out := make([]Value, len(vs))
	copy(out, vs)
	return out
}

func cloneMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
