// Package scalar defines leaf types: how external input values are parsed
// into Go values and how resolved Go values are serialized back.
package scalar

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/hanpama/typegraph/internal/value"
)

// ErrInvalid is wrapped by every parse and serialize failure.
var ErrInvalid = errors.New("invalid scalar value")

// Type is a scalar's contract. For every valid external value x,
// Serialize(ParseValue(x)) equals x.
type Type interface {
	Name() string
	Description() string
	SpecifiedByURL() string
	// ParseValue converts an external input value into its Go form.
	ParseValue(v value.Value) (any, error)
	// Serialize converts a resolved Go value into its external form.
	Serialize(v any) (value.Value, error)
	// ParseText converts a stored textual form into the Go form.
	ParseText(s string) (any, error)
}

func invalid(name string, v any) error {
	return fmt.Errorf("%w: %s cannot represent %v", ErrInvalid, name, v)
}

var (
	Int     Type = intScalar{}
	Float   Type = floatScalar{}
	String  Type = stringScalar{}
	Boolean Type = booleanScalar{}
	ID      Type = idScalar{}
)

// Builtins returns the five scalars every schema carries.
func Builtins() []Type { return []Type{String, Int, Float, Boolean, ID} }

// IsBuiltin reports whether name is one of the five standard scalars.
func IsBuiltin(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}

// ByName looks up a builtin or custom scalar shipped with this package.
func ByName(name string) (Type, bool) {
	for _, t := range []Type{String, Int, Float, Boolean, ID, DateTime, UUID} {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

type intScalar struct{}

func (intScalar) Name() string { return "Int" }
func (intScalar) Description() string {
	return "The `Int` scalar type represents non-fractional signed whole numeric values."
}
func (intScalar) SpecifiedByURL() string { return "" }

func (intScalar) ParseValue(v value.Value) (any, error) {
	if i, ok := v.AsInt(); ok {
		return i, nil
	}
	return nil, invalid("Int", v)
}

func (intScalar) Serialize(v any) (value.Value, error) {
	var n int64
	switch x := v.(type) {
	case value.Value:
		if i, ok := x.AsInt(); ok {
			return value.Int(i), nil
		}
		return value.Null(), invalid("Int", x)
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case float64:
		if x != math.Trunc(x) {
			return value.Null(), invalid("Int", v)
		}
		n = int64(x)
	default:
		return value.Null(), invalid("Int", v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return value.Null(), invalid("Int", v)
	}
	return value.Int(int32(n)), nil
}

func (intScalar) ParseText(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, invalid("Int", s)
	}
	return int32(n), nil
}

type floatScalar struct{}

func (floatScalar) Name() string { return "Float" }
func (floatScalar) Description() string {
	return "The `Float` scalar type represents signed double-precision fractional values."
}
func (floatScalar) SpecifiedByURL() string { return "" }

func (floatScalar) ParseValue(v value.Value) (any, error) {
	if f, ok := v.AsFloat(); ok {
		return f, nil
	}
	return nil, invalid("Float", v)
}

func (floatScalar) Serialize(v any) (value.Value, error) {
	var f float64
	switch x := v.(type) {
	case value.Value:
		ff, ok := x.AsFloat()
		if !ok {
			return value.Null(), invalid("Float", x)
		}
		f = ff
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return value.Null(), invalid("Float", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return value.Null(), invalid("Float", v)
	}
	return value.Float(f), nil
}

func (floatScalar) ParseText(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, invalid("Float", s)
	}
	return f, nil
}

type stringScalar struct{}

func (stringScalar) Name() string { return "String" }
func (stringScalar) Description() string {
	return "The `String` scalar type represents textual data, represented as UTF-8 character sequences."
}
func (stringScalar) SpecifiedByURL() string { return "" }

func (stringScalar) ParseValue(v value.Value) (any, error) {
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	return nil, invalid("String", v)
}

func (stringScalar) Serialize(v any) (value.Value, error) {
	switch x := v.(type) {
	case value.Value:
		if s, ok := x.AsString(); ok {
			return value.String(s), nil
		}
	case string:
		return value.String(x), nil
	case []byte:
		return value.String(string(x)), nil
	case fmt.Stringer:
		return value.String(x.String()), nil
	}
	return value.Null(), invalid("String", v)
}

func (stringScalar) ParseText(s string) (any, error) { return s, nil }

type booleanScalar struct{}

func (booleanScalar) Name() string           { return "Boolean" }
func (booleanScalar) Description() string    { return "The `Boolean` scalar type represents `true` or `false`." }
func (booleanScalar) SpecifiedByURL() string { return "" }

func (booleanScalar) ParseValue(v value.Value) (any, error) {
	if b, ok := v.AsBoolean(); ok {
		return b, nil
	}
	return nil, invalid("Boolean", v)
}

func (booleanScalar) Serialize(v any) (value.Value, error) {
	switch x := v.(type) {
	case value.Value:
		if b, ok := x.AsBoolean(); ok {
			return value.Boolean(b), nil
		}
	case bool:
		return value.Boolean(x), nil
	}
	return value.Null(), invalid("Boolean", v)
}

func (booleanScalar) ParseText(s string) (any, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, invalid("Boolean", s)
	}
	return b, nil
}

type idScalar struct{}

func (idScalar) Name() string { return "ID" }
func (idScalar) Description() string {
	return "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching."
}
func (idScalar) SpecifiedByURL() string { return "" }

// ParseValue accepts strings and integers; integers are normalized to
// their decimal text.
func (idScalar) ParseValue(v value.Value) (any, error) {
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	if i, ok := v.AsInt(); ok {
		return strconv.FormatInt(int64(i), 10), nil
	}
	return nil, invalid("ID", v)
}

func (idScalar) Serialize(v any) (value.Value, error) {
	switch x := v.(type) {
	case value.Value:
		if s, ok := x.AsString(); ok {
			return value.String(s), nil
		}
		if i, ok := x.AsInt(); ok {
			return value.String(strconv.FormatInt(int64(i), 10)), nil
		}
	case string:
		return value.String(x), nil
	case int:
		return value.String(strconv.Itoa(x)), nil
	case int32:
		return value.String(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return value.String(strconv.FormatInt(x, 10)), nil
	case fmt.Stringer:
		return value.String(x.String()), nil
	}
	return value.Null(), invalid("ID", v)
}

func (idScalar) ParseText(s string) (any, error) { return s, nil }
