package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// MarshalJSON encodes v, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case NullKind:
		buf.WriteString("null")
	case ScalarKind:
		switch v.scalar.kind {
		case IntScalar:
			buf.WriteString(strconv.FormatInt(int64(v.scalar.i), 10))
		case FloatScalar:
			if math.IsNaN(v.scalar.f) || math.IsInf(v.scalar.f, 0) {
				return fmt.Errorf("value: cannot encode non-finite float %v", v.scalar.f)
			}
			b, _ := json.Marshal(v.scalar.f)
			buf.Write(b)
		case StringScalar:
			b, err := json.Marshal(v.scalar.s)
			if err != nil {
				return err
			}
			buf.Write(b)
		case BooleanScalar:
			buf.WriteString(strconv.FormatBool(v.scalar.b))
		}
	case ListKind:
		buf.WriteByte('[')
		for i, it := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectKind:
		buf.WriteByte('{')
		for i, k := range v.object.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.object.vals[i].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON decodes arbitrary JSON into v. Object keys keep document
// order; whole numbers in int32 range become Int.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out, err := decode(dec)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Boolean(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return fromNumber(t)
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				it, err := decode(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, it)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return List(items...), nil
		case '{':
			obj := NewObject(4)
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, _ := kt.(string)
				it, err := decode(dec)
				if err != nil {
					return Null(), err
				}
				obj.Set(key, it)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return FromObject(obj), nil
		}
	}
	return Null(), fmt.Errorf("value: unexpected JSON token %v", tok)
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := strconv.ParseInt(string(n), 10, 32); err == nil {
		return Int(int32(i)), nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return Null(), fmt.Errorf("value: invalid number %q", n)
	}
	return Float(f), nil
}

// FromGo converts decoded Go data (as produced by encoding/json or YAML
// decoders) into a Value. Map keys are sorted to make the result
// deterministic.
func FromGo(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Boolean(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return fromNumber(x)
	case int:
		return fromInt64(int64(x)), nil
	case int32:
		return Int(x), nil
	case int64:
		return fromInt64(x), nil
	case float32:
		return fromFloat(float64(x)), nil
	case float64:
		return fromFloat(x), nil
	case []any:
		items := make([]Value, len(x))
		for i, it := range x {
			v, err := FromGo(it)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject(len(keys))
		for _, k := range keys {
			v, err := FromGo(x[k])
			if err != nil {
				return Null(), err
			}
			obj.Set(k, v)
		}
		return FromObject(obj), nil
	}
	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			v, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return List(items...), nil
	}
	return Null(), fmt.Errorf("value: unsupported Go type %T", in)
}

func fromInt64(i int64) Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int(int32(i))
	}
	return Float(float64(i))
}

func fromFloat(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return Int(int32(f))
	}
	return Float(f)
}

// ToGo converts v into plain Go data. Objects become map[string]any.
func (v Value) ToGo() any {
	switch v.kind {
	case ScalarKind:
		switch v.scalar.kind {
		case IntScalar:
			return v.scalar.i
		case FloatScalar:
			return v.scalar.f
		case StringScalar:
			return v.scalar.s
		case BooleanScalar:
			return v.scalar.b
		}
	case ListKind:
		out := make([]any, len(v.list))
		for i, it := range v.list {
			out[i] = it.ToGo()
		}
		return out
	case ObjectKind:
		out := make(map[string]any, len(v.object.keys))
		for i, k := range v.object.keys {
			out[k] = v.object.vals[i].ToGo()
		}
		return out
	}
	return nil
}
