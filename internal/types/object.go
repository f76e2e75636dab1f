package types

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

// ResolveFunc produces the capability for one field of source. A nil
// capability resolves to null.
type ResolveFunc func(ctx context.Context, source any, args executor.Arguments, fc *executor.FieldContext) (executor.Type, error)

// FieldDef declares one field. Info is the TypeInfo of the field's type.
type FieldDef struct {
	Name              string
	Description       string
	Type              executor.Type
	Info              any
	Args              []*ArgDef
	Async             bool
	DeprecationReason string
	Resolve           ResolveFunc
}

// ArgDef declares an argument or input field.
type ArgDef struct {
	Name        string
	Description string
	Type        executor.Type
	Info        any
	Default     *value.Value
}

func (f *FieldDef) declare(reg *executor.Registry) *meta.Field {
	mf := reg.Field(f.Name, f.Type, f.Info).SetDescription(f.Description)
	if f.Async {
		mf.SetAsync()
	}
	if f.DeprecationReason != "" {
		mf.Deprecate(f.DeprecationReason)
	}
	for _, a := range f.Args {
		mf.AddArgument(a.declare(reg))
	}
	return mf
}

func (a *ArgDef) declare(reg *executor.Registry) *meta.InputValue {
	iv := reg.Arg(a.Name, a.Type, a.Info).SetDescription(a.Description)
	if a.Default != nil {
		iv.SetDefault(*a.Default)
	}
	return iv
}

func fieldByName(fields []*FieldDef, name string) *FieldDef {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ObjectDef is the TypeInfo of Object.
type ObjectDef struct {
	Name        string
	Description string
	Interfaces  []*AbstractDef
	Fields      []*FieldDef
}

// Field returns the named field definition, or nil.
func (d *ObjectDef) Field(name string) *FieldDef { return fieldByName(d.Fields, name) }

// Object is an object capability shaped by its *ObjectDef. Field resolvers
// receive Source.
type Object struct {
	Source any
}

func (Object) TypeName(info any) string { return objectDef(info).Name }

func (Object) Meta(info any, reg *executor.Registry) *meta.Type {
	def := objectDef(info)
	mt := meta.NewType(def.Name, meta.TypeKindObject).SetDescription(def.Description)
	for _, iface := range def.Interfaces {
		mt.AddInterface(reg.Ref(Abstract{}, iface).Named)
	}
	for _, f := range def.Fields {
		mt.AddField(f.declare(reg))
	}
	return mt
}

func (o Object) ResolveField(ctx context.Context, info any, field string, args executor.Arguments, fc *executor.FieldContext) (value.Value, error) {
	def := objectDef(info)
	f := def.Field(field)
	if f == nil || f.Resolve == nil {
		return value.Null(), fmt.Errorf("%s.%s has no resolver", def.Name, field)
	}
	t, err := f.Resolve(ctx, o.Source, args, fc)
	if err != nil {
		return value.Null(), err
	}
	return fc.Resolve(ctx, f.Info, t)
}

func objectDef(info any) *ObjectDef {
	if d, ok := info.(*ObjectDef); ok && d != nil {
		return d
	}
	return &ObjectDef{}
}

// AbstractDef is the TypeInfo of Abstract. Kind is meta.TypeKindInterface
// or meta.TypeKindUnion. Members are registered with the abstract type;
// interface members must also list it in their Interfaces.
type AbstractDef struct {
	Name        string
	Description string
	Kind        meta.TypeKind
	Fields      []*FieldDef
	Members     []*ObjectDef
}

// ErrNoConcreteType is returned when an abstract value holds no object.
var ErrNoConcreteType = errors.New("abstract value has no concrete type")

// Abstract is an interface or union capability holding a concrete object:
// its definition and source.
type Abstract struct {
	Def    *ObjectDef
	Source any
}

// As wraps source as the object type def at an abstract position.
func As(def *ObjectDef, source any) Abstract { return Abstract{Def: def, Source: source} }

func (Abstract) TypeName(info any) string { return abstractDef(info).Name }

func (Abstract) Meta(info any, reg *executor.Registry) *meta.Type {
	def := abstractDef(info)
	kind := def.Kind
	if kind == "" {
		kind = meta.TypeKindInterface
	}
	mt := meta.NewType(def.Name, kind).SetDescription(def.Description)
	for _, f := range def.Fields {
		mt.AddField(f.declare(reg))
	}
	for _, m := range def.Members {
		name := reg.Ref(Object{}, m).Named
		if kind == meta.TypeKindUnion {
			mt.AddPossibleType(name)
		}
	}
	return mt
}

func (a Abstract) ConcreteTypeName(context.Context, any) (string, error) {
	if a.Def == nil {
		return "", ErrNoConcreteType
	}
	return a.Def.Name, nil
}

func (a Abstract) ResolveIntoType(ctx context.Context, _ any, typeName string, fc *executor.FieldContext) (value.Value, error) {
	if a.Def == nil || a.Def.Name != typeName {
		return value.Null(), fmt.Errorf("%w: %s", ErrNoConcreteType, typeName)
	}
	return fc.Resolve(ctx, a.Def, Object{Source: a.Source})
}

func abstractDef(info any) *AbstractDef {
	if d, ok := info.(*AbstractDef); ok && d != nil {
		return d
	}
	return &AbstractDef{}
}

// InputDef is the TypeInfo of Input.
type InputDef struct {
	Name        string
	Description string
	Fields      []*ArgDef
}

// Input declares an input object type. It is never resolved.
type Input struct{}

func (Input) TypeName(info any) string { return inputDef(info).Name }

func (Input) Meta(info any, reg *executor.Registry) *meta.Type {
	def := inputDef(info)
	mt := meta.NewType(def.Name, meta.TypeKindInputObject).SetDescription(def.Description)
	for _, f := range def.Fields {
		mt.AddInputField(f.declare(reg))
	}
	return mt
}

func inputDef(info any) *InputDef {
	if d, ok := info.(*InputDef); ok && d != nil {
		return d
	}
	return &InputDef{}
}
