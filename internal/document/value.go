// Package document models a JSON document as an ordered tree of values.
//
// Unlike decoding into map[string]any, a Value keeps the member order of
// objects and the literal text of numbers, so a document that is parsed and
// encoded again differs from its source only in layout.
package document

import "encoding/json"

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Member is a single key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Value is a decoded JSON value. Only the fields matching Kind are
// meaningful.
type Value struct {
	Kind Kind

	Bool   bool
	Number json.Number
	String string

	// Values holds array elements.
	Values []*Value
	// Members holds object members in source order. Duplicate keys are kept.
	Members []Member
}

// NullValue returns a JSON null.
func NullValue() *Value {
	return &Value{Kind: Null}
}

// FromBool returns a JSON boolean.
func FromBool(b bool) *Value {
	return &Value{Kind: Bool, Bool: b}
}

// FromNumber returns a JSON number with the given literal text.
func FromNumber(n json.Number) *Value {
	return &Value{Kind: Number, Number: n}
}

// FromString returns a JSON string.
func FromString(s string) *Value {
	return &Value{Kind: String, String: s}
}

// FromSlice returns a JSON array holding vs.
func FromSlice(vs ...*Value) *Value {
	if vs == nil {
		vs = []*Value{}
	}
	return &Value{Kind: Array, Values: vs}
}

// FromMembers returns a JSON object holding ms in the given order.
func FromMembers(ms ...Member) *Value {
	if ms == nil {
		ms = []Member{}
	}
	return &Value{Kind: Object, Members: ms}
}

// IsArray reports whether v is a JSON array.
func (v *Value) IsArray() bool {
	return v != nil && v.Kind == Array
}

// IsObject reports whether v is a JSON object.
func (v *Value) IsObject() bool {
	return v != nil && v.Kind == Object
}

// Has reports whether the object v has a member named key, whatever its
// value. It is false for non-objects.
func (v *Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Get returns the first member value named key.
func (v *Value) Get(key string) (*Value, bool) {
	if !v.IsObject() {
		return nil, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of the first member named key, or appends a new
// member when there is none. It is a no-op on non-objects.
func (v *Value) Set(key string, val *Value) {
	if !v.IsObject() {
		return
	}
	for i := range v.Members {
		if v.Members[i].Key == key {
			v.Members[i].Value = val
			return
		}
	}
	v.Members = append(v.Members, Member{Key: key, Value: val})
}
