// Package dynamap provides a small JSON-round-trippable sum type for the
// heterogeneous key/value bags the pipeline passes around: Event.Data and
// Analysis.PriorityBreakdown. Using a typed sum instead of bare
// map[string]any keeps call sites from reaching for reflection or type
// assertions scattered across the domain packages.
package dynamap

import (
	"encoding/json"
	"fmt"
)

// Map is an ordered-by-caller bag of string keys to Value. It marshals to a
// plain JSON object and unmarshals back into typed Values.
type Map map[string]Value

// Value holds exactly one of string, float64, bool, []Value, or Map. The
// zero Value is untyped and marshals to JSON null.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	list []Value
	m    Map
}

// Kind discriminates which field of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func String(s string) Value { return Value{kind: KindString, s: s} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }
func Nested(m Map) Value     { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v Value) AsMap() (Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.list)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("dynamap: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Value{kind: KindNull}
	case string:
		return String(t)
	case float64:
		return Number(t)
	case bool:
		return Bool(t)
	case []interface{}:
		list := make([]Value, len(t))
		for i, item := range t {
			list[i] = fromAny(item)
		}
		return Value{kind: KindList, list: list}
	case map[string]interface{}:
		m := make(Map, len(t))
		for k, item := range t {
			m[k] = fromAny(item)
		}
		return Value{kind: KindMap, m: m}
	default:
		return Value{kind: KindNull}
	}
}

// FromString, FromNumber etc. are convenience constructors mirroring common
// call-site shapes (building a Map literal from already-typed Go values).
func FromStrings(kv map[string]string) Map {
	m := make(Map, len(kv))
	for k, v := range kv {
		m[k] = String(v)
	}
	return m
}
