package executor

import (
	"errors"
	"fmt"
	"strconv"

	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

// ErrInvalidVariables is wrapped by request-level variable coercion failures.
var ErrInvalidVariables = errors.New("invalid variables")

// Variables are the coerced variable values of one request, keyed by name
// without the leading '$'. They are not modified during execution.
type Variables map[string]value.Value

// Get returns a variable's value.
func (v Variables) Get(name string) (value.Value, bool) {
	val, ok := v[name]
	return val, ok
}

// Arguments are the coerced argument values of one field.
type Arguments struct {
	values map[string]value.Value
	reg    *Registry
	def    *meta.Field
}

// NewArguments builds an argument set directly, for resolvers invoked
// outside a request.
func NewArguments(values map[string]value.Value) Arguments {
	return Arguments{values: values}
}

// Get returns the coerced value of an argument. Absent arguments without a
// default report false.
func (a Arguments) Get(name string) (value.Value, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether the argument was provided or defaulted.
func (a Arguments) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a Arguments) String(name string) (string, bool) {
	v, ok := a.values[name]
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (a Arguments) Int(name string) (int32, bool) {
	v, ok := a.values[name]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func (a Arguments) Float(name string) (float64, bool) {
	v, ok := a.values[name]
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

func (a Arguments) Bool(name string) (bool, bool) {
	v, ok := a.values[name]
	if !ok {
		return false, false
	}
	return v.AsBoolean()
}

// Strings returns a list-of-strings argument.
func (a Arguments) Strings(name string) ([]string, bool) {
	v, ok := a.values[name]
	if !ok {
		return nil, false
	}
	items, ok := v.Items()
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Parsed returns the Go form of a scalar argument, as produced by the
// scalar's ParseValue.
func (a Arguments) Parsed(name string) (any, error) {
	v, ok := a.values[name]
	if !ok || v.IsNull() {
		return nil, nil
	}
	if a.def == nil || a.reg == nil {
		return v.ToGo(), nil
	}
	arg := a.def.Argument(name)
	if arg == nil {
		return v.ToGo(), nil
	}
	s, ok := a.reg.Scalar(arg.Type.GetNamedType())
	if !ok {
		return v.ToGo(), nil
	}
	return s.ParseValue(v)
}

// Len returns the number of present arguments.
func (a Arguments) Len() int { return len(a.values) }

// CoerceVariables coerces raw variable values against the operation's
// variable definitions. Failures are request-level.
func CoerceVariables(reg *Registry, op *language.OperationDefinition, raw map[string]value.Value) (Variables, error) {
	coerced := make(Variables, len(op.VariableDefinitions))
	var errs []error
	for _, def := range op.VariableDefinitions {
		name := def.Variable
		ref := typeRefFromAST(def.Type)
		val, ok := raw[name]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				lit, present := valueFromAST(def.DefaultValue, nil)
				if !present {
					continue
				}
				val = lit
			case ref.IsNonNull():
				errs = append(errs, fmt.Errorf("variable \"$%s\" of required type %s was not provided", name, ref))
				continue
			default:
				continue
			}
		}
		cv, err := coerceInput(reg, ref, val)
		if err != nil {
			errs = append(errs, fmt.Errorf("variable \"$%s\" got invalid value %s; %w", name, val, err))
			continue
		}
		coerced[name] = cv
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVariables, errors.Join(errs...))
	}
	return coerced, nil
}

// coerceArgumentValues coerces the literal and variable arguments of a
// field against its declaration.
func coerceArgumentValues(reg *Registry, def *meta.Field, field *language.Field, vars Variables) (Arguments, error) {
	coerced := make(map[string]value.Value, len(def.Arguments))
	for _, argDef := range def.Arguments {
		var (
			raw     value.Value
			present bool
		)
		if arg := field.Arguments.ForName(argDef.Name); arg != nil {
			raw, present = valueFromAST(arg.Value, vars)
		}
		if !present {
			if argDef.DefaultValue != nil {
				coerced[argDef.Name] = *argDef.DefaultValue
				continue
			}
			if argDef.Type.IsNonNull() {
				return Arguments{}, fmt.Errorf("argument %q of required type %s was not provided", argDef.Name, argDef.Type)
			}
			continue
		}
		cv, err := coerceInput(reg, argDef.Type, raw)
		if err != nil {
			return Arguments{}, fmt.Errorf("argument %q has invalid value %s: %w", argDef.Name, raw, err)
		}
		coerced[argDef.Name] = cv
	}
	return Arguments{values: coerced, reg: reg, def: def}, nil
}

// coerceInput coerces an input value into the declared input type,
// normalizing scalars to their serialized form.
func coerceInput(reg *Registry, ref *meta.TypeRef, v value.Value) (value.Value, error) {
	if ref.IsNonNull() {
		if v.IsNull() {
			return value.Null(), fmt.Errorf("expected non-nullable type %s not to be null", ref)
		}
		return coerceInput(reg, ref.OfType, v)
	}
	if v.IsNull() {
		return value.Null(), nil
	}
	if ref.Kind == meta.TypeRefKindList {
		items, ok := v.Items()
		if !ok {
			// A single value becomes a list of one.
			item, err := coerceInput(reg, ref.OfType, v)
			if err != nil {
				return value.Null(), err
			}
			return value.List(item), nil
		}
		out := make([]value.Value, len(items))
		for i, it := range items {
			cv, err := coerceInput(reg, ref.OfType, it)
			if err != nil {
				return value.Null(), fmt.Errorf("in element #%d: %w", i, err)
			}
			out[i] = cv
		}
		return value.List(out...), nil
	}

	named, ok := reg.meta.Lookup(ref.Named)
	if !ok {
		return value.Null(), fmt.Errorf("unknown input type %s", ref.Named)
	}
	switch named.Kind {
	case meta.TypeKindScalar:
		s, ok := reg.Scalar(named.Name)
		if !ok {
			return value.Null(), fmt.Errorf("scalar %s has no implementation", named.Name)
		}
		parsed, err := s.ParseValue(v)
		if err != nil {
			return value.Null(), err
		}
		return s.Serialize(parsed)
	case meta.TypeKindEnum:
		name, ok := v.AsString()
		if !ok || named.EnumValue(name) == nil {
			return value.Null(), fmt.Errorf("value %s does not exist in %q enum", v, named.Name)
		}
		return value.String(name), nil
	case meta.TypeKindInputObject:
		obj, ok := v.Object()
		if !ok {
			return value.Null(), fmt.Errorf("expected type %s to be an object", named.Name)
		}
		for _, k := range obj.Keys() {
			if named.InputField(k) == nil {
				return value.Null(), fmt.Errorf("field %q is not defined by type %s", k, named.Name)
			}
		}
		out := value.NewObject(len(named.InputFields))
		for _, f := range named.InputFields {
			fv, present := obj.Get(f.Name)
			if !present {
				if f.DefaultValue != nil {
					out.Set(f.Name, *f.DefaultValue)
				} else if f.Type.IsNonNull() {
					return value.Null(), fmt.Errorf("field %s.%s of required type %s was not provided", named.Name, f.Name, f.Type)
				}
				continue
			}
			cv, err := coerceInput(reg, f.Type, fv)
			if err != nil {
				return value.Null(), fmt.Errorf("in field %q: %w", f.Name, err)
			}
			out.Set(f.Name, cv)
		}
		return value.FromObject(out), nil
	}
	return value.Null(), fmt.Errorf("type %s is not an input type", named.Name)
}

// valueFromAST converts a literal into a value, substituting variables.
// present is false when the literal is a variable that was not provided.
func valueFromAST(lit *language.Value, vars Variables) (value.Value, bool) {
	if lit == nil {
		return value.Null(), false
	}
	switch lit.Kind {
	case language.Variable:
		v, ok := vars[lit.Raw]
		return v, ok
	case language.IntValue:
		if i, err := strconv.ParseInt(lit.Raw, 10, 32); err == nil {
			return value.Int(int32(i)), true
		}
		f, _ := strconv.ParseFloat(lit.Raw, 64)
		return value.Float(f), true
	case language.FloatValue:
		f, _ := strconv.ParseFloat(lit.Raw, 64)
		return value.Float(f), true
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.String(lit.Raw), true
	case language.BooleanValue:
		return value.Boolean(lit.Raw == "true"), true
	case language.NullValue:
		return value.Null(), true
	case language.ListValue:
		items := make([]value.Value, 0, len(lit.Children))
		for _, c := range lit.Children {
			v, ok := valueFromAST(c.Value, vars)
			if !ok {
				v = value.Null()
			}
			items = append(items, v)
		}
		return value.List(items...), true
	case language.ObjectValue:
		obj := value.NewObject(len(lit.Children))
		for _, c := range lit.Children {
			if v, ok := valueFromAST(c.Value, vars); ok {
				obj.Set(c.Name, v)
			}
		}
		return value.FromObject(obj), true
	}
	return value.Null(), false
}

func typeRefFromAST(t *language.Type) *meta.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return meta.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return meta.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return meta.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

// parseLeaf checks that a resolved leaf conforms to its scalar or enum type.
func parseLeaf(reg *Registry, named *meta.Type, v value.Value) error {
	switch named.Kind {
	case meta.TypeKindScalar:
		s, ok := reg.Scalar(named.Name)
		if !ok {
			return fmt.Errorf("scalar %s has no implementation", named.Name)
		}
		if _, err := s.ParseValue(v); err != nil {
			return err
		}
		return nil
	case meta.TypeKindEnum:
		name, ok := v.AsString()
		if !ok || named.EnumValue(name) == nil {
			return fmt.Errorf("enum %q cannot represent value: %s", named.Name, v)
		}
		return nil
	}
	return fmt.Errorf("%s is not a leaf type", named.Name)
}
