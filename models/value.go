package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tells which field of a Value is set
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindObject
)

var kindNames = [...]string{"invalid", "string", "int", "float", "bool", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a JSON compatible attribute value. The zero Value is invalid and
// encodes as null; it never appears inside Attributes.
type Value struct {
	kind Kind
	str  string
	num  int64
	real float64
	flag bool
	list []Value
	obj  map[string]Value
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(i int64) Value { return Value{kind: KindInt, num: i} }
func Float(f float64) Value { return Value{kind: KindFloat, real: f} }
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }
func Array(items ...Value) Value { return Value{kind: KindArray, list: items} }
func Object(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.real, v.kind == KindFloat }
func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }
func (v Value) AsArray() ([]Value, bool) { return v.list, v.kind == KindArray }
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Interface converts to plain Go values (string, int64, float64, bool, []any, map[string]any)
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.real
	case KindBool:
		return v.flag
	case KindArray:
		result := make([]any, len(v.list))
		for i, item := range v.list {
			result[i] = item.Interface()
		}
		return result
	case KindObject:
		result := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			result[k] = item.Interface()
		}
		return result
	}
	return nil
}

// Equal compares kinds and contents deeply
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.real == o.real
	case KindBool:
		return v.flag == o.flag
	case KindArray:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, item := range v.obj {
			other, ok := o.obj[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return true
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "!" + err.Error()
	}
	return string(b)
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindInvalid:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.num, 10))
	case KindFloat:
		if math.IsNaN(v.real) || math.IsInf(v.real, 0) {
			return fmt.Errorf("unsupported float value %v", v.real)
		}
		s := strconv.FormatFloat(v.real, 'g', -1, 64)
		// Keep integral floats distinguishable from ints after a round trip
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.flag))
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.obj[k].appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// FromInterface converts decoded JSON (or plain Go values) into a Value.
// nil and unsupported types give the invalid Value; they are dropped from
// arrays and objects.
func FromInterface(in any) Value {
	switch t := in.(type) {
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case json.Number:
		return numberValue(string(t))
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			if v := FromInterface(item); v.IsValid() {
				items = append(items, v)
			}
		}
		return Array(items...)
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			if v := FromInterface(item); v.IsValid() {
				obj[k] = v
			}
		}
		return Object(obj)
	}
	return Value{}
}

func numberValue(s string) Value {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}
	}
	return Float(f)
}
