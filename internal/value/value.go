// Package value is the dynamically typed value tree shared by coercion,
// resolution and response encoding.
//
// A Value is one of Null, Scalar, List or Object. Objects keep their keys in
// insertion order, which the executor uses to reproduce selection order in
// responses.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the four shapes a Value can take.
type Kind uint8

const (
	NullKind Kind = iota
	ScalarKind
	ListKind
	ObjectKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case ScalarKind:
		return "scalar"
	case ListKind:
		return "list"
	case ObjectKind:
		return "object"
	}
	return "unknown"
}

// PrimitiveKind discriminates the closed set of primitive scalars.
type PrimitiveKind uint8

const (
	IntScalar PrimitiveKind = iota + 1
	FloatScalar
	StringScalar
	BooleanScalar
)

func (k PrimitiveKind) String() string {
	switch k {
	case IntScalar:
		return "Int"
	case FloatScalar:
		return "Float"
	case StringScalar:
		return "String"
	case BooleanScalar:
		return "Boolean"
	}
	return "unknown"
}

// Scalar is a primitive leaf value.
type Scalar struct {
	kind PrimitiveKind
	i    int32
	f    float64
	s    string
	b    bool
}

// Kind reports which primitive the scalar holds.
func (s Scalar) Kind() PrimitiveKind { return s.kind }

// Value is an immutable node of the value tree. The zero Value is Null.
type Value struct {
	kind   Kind
	scalar Scalar
	list   []Value
	object *Object
}

// Null is the absent value.
func Null() Value { return Value{} }

// Int builds an Int scalar.
func Int(i int32) Value { return Value{kind: ScalarKind, scalar: Scalar{kind: IntScalar, i: i}} }

// Float builds a Float scalar.
func Float(f float64) Value { return Value{kind: ScalarKind, scalar: Scalar{kind: FloatScalar, f: f}} }

// String builds a String scalar.
func String(s string) Value { return Value{kind: ScalarKind, scalar: Scalar{kind: StringScalar, s: s}} }

// Boolean builds a Boolean scalar.
func Boolean(b bool) Value { return Value{kind: ScalarKind, scalar: Scalar{kind: BooleanScalar, b: b}} }

// List builds a list value from items. The slice is retained.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: ListKind, list: items}
}

// FromObject wraps an ordered object. A nil object is Null.
func FromObject(o *Object) Value {
	if o == nil {
		return Null()
	}
	return Value{kind: ObjectKind, object: o}
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == NullKind }

func (v Value) IsList() bool { return v.kind == ListKind }

func (v Value) IsObject() bool { return v.kind == ObjectKind }

// Scalar returns the scalar payload when v is a scalar.
func (v Value) Scalar() (Scalar, bool) { return v.scalar, v.kind == ScalarKind }

// Items returns the list elements when v is a list.
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == ListKind }

// Object returns the ordered object when v is an object.
func (v Value) Object() (*Object, bool) { return v.object, v.kind == ObjectKind }

// AsString returns the string payload of a String scalar.
func (v Value) AsString() (string, bool) {
	if v.kind != ScalarKind {
		return "", false
	}
	return v.scalar.s, v.scalar.kind == StringScalar
}

// AsInt returns the payload of an Int scalar.
func (v Value) AsInt() (int32, bool) {
	if v.kind != ScalarKind {
		return 0, false
	}
	return v.scalar.i, v.scalar.kind == IntScalar
}

// AsFloat returns the payload of a Float or Int scalar.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != ScalarKind {
		return 0, false
	}
	switch v.scalar.kind {
	case FloatScalar:
		return v.scalar.f, true
	case IntScalar:
		return float64(v.scalar.i), true
	}
	return 0, false
}

// AsBoolean returns the payload of a Boolean scalar.
func (v Value) AsBoolean() (bool, bool) {
	if v.kind != ScalarKind {
		return false, false
	}
	return v.scalar.b, v.scalar.kind == BooleanScalar
}

// Equal reports deep equality. Object key order is significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case ScalarKind:
		if v.scalar.kind != o.scalar.kind {
			return false
		}
		switch v.scalar.kind {
		case IntScalar:
			return v.scalar.i == o.scalar.i
		case FloatScalar:
			return v.scalar.f == o.scalar.f || (math.IsNaN(v.scalar.f) && math.IsNaN(o.scalar.f))
		case StringScalar:
			return v.scalar.s == o.scalar.s
		case BooleanScalar:
			return v.scalar.b == o.scalar.b
		}
		return true
	case ListKind:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case ObjectKind:
		return v.object.Equal(o.object)
	}
	return false
}

// String renders v in a compact GraphQL-literal-like notation for messages.
func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.kind {
	case NullKind:
		b.WriteString("null")
	case ScalarKind:
		switch v.scalar.kind {
		case IntScalar:
			b.WriteString(strconv.FormatInt(int64(v.scalar.i), 10))
		case FloatScalar:
			b.WriteString(strconv.FormatFloat(v.scalar.f, 'g', -1, 64))
		case StringScalar:
			b.WriteString(strconv.Quote(v.scalar.s))
		case BooleanScalar:
			b.WriteString(strconv.FormatBool(v.scalar.b))
		}
	case ListKind:
		b.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			it.write(b)
		}
		b.WriteByte(']')
	case ObjectKind:
		b.WriteByte('{')
		for i, k := range v.object.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			v.object.vals[i].write(b)
		}
		b.WriteByte('}')
	}
}

// GoString makes %#v output readable in test failures.
func (v Value) GoString() string { return fmt.Sprintf("value(%s)", v.String()) }
