package response

import (
	"fmt"
	"sort"
)

// Type identifies the kind of a Value
type Type uint8

const (
	TypeNull Type = iota
	TypeMap
	TypeList
	TypeString
	TypeBoolean
	TypeInt
	TypeFloat
)

// String returns the type name for diagnostics
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeMap:
		return "map"
	case TypeList:
		return "list"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Field is a single named member of a map value. Field order is preserved
// through encoding, so payloads like {"data":...,"errors":...} keep the
// order they were built in.
type Field struct {
	Name  string
	Value Value
}

// Value is a structured tree of {map, list, string, boolean, int, float, null}
// values. It is the only shape that crosses the delivery boundary; JSON
// round-trips through it are lossless (ints never degrade to floats).
type Value struct {
	typ    Type
	str    string
	b      bool
	i      int64
	f      float64
	list   []Value
	fields []Field
}

// Null returns the null value
func Null() Value {
	return Value{typ: TypeNull}
}

// String returns a string value
func String(s string) Value {
	return Value{typ: TypeString, str: s}
}

// Boolean returns a boolean value
func Boolean(b bool) Value {
	return Value{typ: TypeBoolean, b: b}
}

// Int returns an integer value
func Int(n int64) Value {
	return Value{typ: TypeInt, i: n}
}

// Float returns a float value
func Float(f float64) Value {
	return Value{typ: TypeFloat, f: f}
}

// List returns a list value holding the given items
func List(items ...Value) Value {
	return Value{typ: TypeList, list: items}
}

// Map returns a map value holding the given fields, in order
func Map(fields ...Field) Value {
	return Value{typ: TypeMap, fields: fields}
}

// Type returns the kind of this value
func (v Value) Type() Type {
	return v.typ
}

// IsNull reports whether this is the null value
func (v Value) IsNull() bool {
	return v.typ == TypeNull
}

// Str returns the string payload (zero value unless TypeString)
func (v Value) Str() string {
	return v.str
}

// Bool returns the boolean payload (zero value unless TypeBoolean)
func (v Value) Bool() bool {
	return v.b
}

// Int64 returns the integer payload (zero value unless TypeInt)
func (v Value) Int64() int64 {
	return v.i
}

// Float64 returns the float payload (zero value unless TypeFloat)
func (v Value) Float64() float64 {
	return v.f
}

// Items returns the elements of a list value
func (v Value) Items() []Value {
	return v.list
}

// Fields returns the members of a map value, in insertion order
func (v Value) Fields() []Field {
	return v.fields
}

// Get looks up a map member by name
func (v Value) Get(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Null(), false
}

// Equal reports deep equality. Int and float values never compare equal to
// each other, even when numerically identical.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeString:
		return v.str == o.str
	case TypeBoolean:
		return v.b == o.b
	case TypeInt:
		return v.i == o.i
	case TypeFloat:
		return v.f == o.f
	case TypeList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != o.fields[i].Name || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// FromGo converts a dynamically-typed tree (as produced by script runtime
// exports or json.Unmarshal) into a Value. Map keys are sorted so the result
// is deterministic regardless of Go map iteration order.
func FromGo(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Boolean(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			converted, err := FromGo(item)
			if err != nil {
				return Null(), err
			}
			items = append(items, converted)
		}
		return List(items...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			converted, err := FromGo(t[k])
			if err != nil {
				return Null(), err
			}
			fields = append(fields, Field{Name: k, Value: converted})
		}
		return Map(fields...), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", v)
	}
}

// ToGo converts a Value back into a dynamically-typed tree, suitable for
// handing to a script runtime.
func (v Value) ToGo() interface{} {
	switch v.typ {
	case TypeNull:
		return nil
	case TypeString:
		return v.str
	case TypeBoolean:
		return v.b
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	case TypeList:
		items := make([]interface{}, len(v.list))
		for i, item := range v.list {
			items[i] = item.ToGo()
		}
		return items
	case TypeMap:
		m := make(map[string]interface{}, len(v.fields))
		for _, f := range v.fields {
			m[f.Name] = f.Value.ToGo()
		}
		return m
	}
	return nil
}
