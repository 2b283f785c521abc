package composition

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a single prop value: null, bool, number, string, list or map.
//
// Values are immutable once built. Constructors and accessors copy nested
// lists and maps, so a Value never shares storage with its caller.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    Props
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(n int) Value { return Number(float64(n)) }

// List builds a list value from copies of items.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return Value{kind: KindList, list: out}
}

// Map wraps a copy of p as a nested map value.
func Map(p Props) Value {
	c := p.Clone()
	if c == nil {
		c = Props{}
	}
	return Value{kind: KindMap, m: c}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns a copy of the list items.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]Value, len(v.list))
	for i, item := range v.list {
		out[i] = item.Clone()
	}
	return out, true
}

// AsMap returns a copy of the nested map.
func (v Value) AsMap() (Props, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m.Clone(), true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	default:
		return v
	}
}

// Equal reports deep equality. Map key order never matters.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// Interface converts v to plain Go data: nil, bool, float64, string,
// []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		return v.m.Interface()
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return fmt.Sprintf("%g", v.n)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.m.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, v.m[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}

// checkEncodable walks v and rejects numbers no wire format can carry.
func (v Value) checkEncodable(path string) error {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return &SerializationError{Path: path, Reason: fmt.Sprintf("non-finite number %v", v.n)}
		}
	case KindList:
		for i, item := range v.list {
			if err := item.checkEncodable(fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case KindMap:
		return v.m.checkEncodable(path)
	}
	return nil
}

// ValueOf converts loosely typed Go data into a Value. It accepts nil,
// Value, Props, booleans, strings, every integer and float type, slices
// and arrays, and maps keyed by strings. Anything else yields a
// *SerializationError.
func ValueOf(x any) (Value, error) {
	return valueOf(x, "")
}

func valueOf(x any, path string) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case Props:
		return Map(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Int(t), nil
	case map[string]any:
		p, err := propsOf(t, path)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: p}, nil
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			val, err := valueOf(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			out[i] = val
		}
		return Value{kind: KindList, list: out}, nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return valueOf(rv.Elem().Interface(), path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		out := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			val, err := valueOf(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			out[i] = val
		}
		return Value{kind: KindList, list: out}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("map key type %s is not a string", rv.Type().Key())}
		}
		if rv.IsNil() {
			return Null(), nil
		}
		p := make(Props, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			val, err := valueOf(iter.Value().Interface(), joinPath(path, key))
			if err != nil {
				return Value{}, err
			}
			p[key] = val
		}
		return Value{kind: KindMap, m: p}, nil
	}

	return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("unsupported type %T", x)}
}

// Props maps prop names to values.
type Props map[string]Value

// PropsOf converts a decoded object into Props.
func PropsOf(m map[string]any) (Props, error) {
	return propsOf(m, "")
}

func propsOf(m map[string]any, path string) (Props, error) {
	if m == nil {
		return nil, nil
	}
	p := make(Props, len(m))
	for k, x := range m {
		val, err := valueOf(x, joinPath(path, k))
		if err != nil {
			return nil, err
		}
		p[k] = val
	}
	return p, nil
}

// Clone returns a deep copy. A nil Props stays nil.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v.Clone()
	}
	return out
}

// Equal compares two prop bags deeply. Nil and empty are equal.
func (p Props) Equal(o Props) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the prop names in sorted order.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts p to a map[string]any tree.
func (p Props) Interface() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

func (p Props) checkEncodable(path string) error {
	for _, k := range p.Keys() {
		if err := p[k].checkEncodable(joinPath(path, k)); err != nil {
			return err
		}
	}
	return nil
}

// Merge overlays overrides on defaults. Keys present in overrides win,
// keys only in defaults are kept. The overlay is shallow: a nested map in
// overrides replaces the default map as a whole. Neither input is modified.
func Merge(defaults, overrides Props) Props {
	out := make(Props, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v.Clone()
	}
	for k, v := range overrides {
		out[k] = v.Clone()
	}
	return out
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
