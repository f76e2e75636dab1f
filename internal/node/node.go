// Package node provides runtime-shaped object types: a node's fields are
// the attributes listed in its TypeInfo and its values are a
// kvstore.Record.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
	"github.com/hanpama/typegraph/internal/types"
	"github.com/hanpama/typegraph/internal/value"
)

// Attribute is one field of a node.
type Attribute struct {
	Name        string
	Type        string // scalar name; String when empty
	Required    bool
	Description string
}

// Info is the TypeInfo of Node.
type Info struct {
	Name        string
	Description string
	// KeyField names the field exposing the node's key, without KeyPrefix.
	// No such field is declared when empty.
	KeyField   string
	KeyPrefix  string
	Attributes []Attribute
	Interfaces []*InterfaceInfo
}

// Attribute returns the named attribute, or nil.
func (in *Info) Attribute(name string) *Attribute {
	for i := range in.Attributes {
		if in.Attributes[i].Name == name {
			return &in.Attributes[i]
		}
	}
	return nil
}

// Key returns the store key of id.
func (in *Info) Key(id string) string { return in.KeyPrefix + id }

func infoOf(info any) *Info {
	if in, ok := info.(*Info); ok && in != nil {
		return in
	}
	return &Info{}
}

func scalarOf(a *Attribute) scalar.Type {
	if a.Type == "" {
		return scalar.String
	}
	s, _ := scalar.ByName(a.Type)
	return s
}

func (a *Attribute) leafType() (executor.Type, error) {
	s := scalarOf(a)
	if s == nil {
		return nil, fmt.Errorf("attribute %q has unknown type %q", a.Name, a.Type)
	}
	var t executor.Type = types.Leaf{Scalar: s}
	if a.Required {
		t = types.NonNullOf(t)
	}
	return t, nil
}

// Node is a record shaped by its *Info.
type Node struct {
	Key    string
	Record kvstore.Record
}

func (Node) TypeName(info any) string { return infoOf(info).Name }

func (Node) Meta(info any, reg *executor.Registry) *meta.Type {
	in := infoOf(info)
	mt := meta.NewType(in.Name, meta.TypeKindObject).SetDescription(in.Description)
	for _, iface := range in.Interfaces {
		mt.AddInterface(reg.Ref(Interface{}, iface).Named)
	}
	if in.KeyField != "" {
		mt.AddField(reg.Field(in.KeyField, types.NonNullOf(types.IDType), nil))
	}
	for i := range in.Attributes {
		a := &in.Attributes[i]
		t, err := a.leafType()
		if err != nil {
			reg.Fail(fmt.Errorf("%s: %w", in.Name, err))
			continue
		}
		mt.AddField(reg.Field(a.Name, t, nil).SetDescription(a.Description))
	}
	return mt
}

func (n Node) ResolveField(ctx context.Context, info any, field string, _ executor.Arguments, fc *executor.FieldContext) (value.Value, error) {
	in := infoOf(info)
	if in.KeyField != "" && field == in.KeyField {
		return fc.Resolve(ctx, nil, types.ID(n.Key[min(len(in.KeyPrefix), len(n.Key)):]))
	}
	a := in.Attribute(field)
	if a == nil {
		return value.Null(), fmt.Errorf("%s has no attribute %q", in.Name, field)
	}
	return fc.Resolve(ctx, nil, types.Leaf{Scalar: scalarOf(a), Value: n.Record[field]})
}

// Input declares the input object "<Name>Input" carrying a node's
// attributes.
type Input struct{}

func (Input) TypeName(info any) string { return infoOf(info).Name + "Input" }

func (Input) Meta(info any, reg *executor.Registry) *meta.Type {
	in := infoOf(info)
	mt := meta.NewType(in.Name+"Input", meta.TypeKindInputObject).
		SetDescription(fmt.Sprintf("The attributes of a %s.", in.Name))
	for i := range in.Attributes {
		a := &in.Attributes[i]
		t, err := a.leafType()
		if err != nil {
			continue
		}
		mt.AddInputField(reg.Arg(a.Name, t, nil).SetDescription(a.Description))
	}
	return mt
}

// RecordFromInput converts a coerced input object into a record. Values
// are parsed with the attribute's scalar and stored as string, int64,
// float64 or bool.
func RecordFromInput(in *Info, v value.Value) (kvstore.Record, error) {
	obj, ok := v.Object()
	if !ok {
		return nil, fmt.Errorf("%sInput must be an object", in.Name)
	}
	rec := make(kvstore.Record, obj.Len())
	var err error
	obj.Range(func(name string, fv value.Value) bool {
		a := in.Attribute(name)
		if a == nil {
			err = fmt.Errorf("%s has no attribute %q", in.Name, name)
			return false
		}
		if fv.IsNull() {
			return true
		}
		var parsed any
		parsed, err = scalarOf(a).ParseValue(fv)
		if err != nil {
			err = fmt.Errorf("%s.%s: %w", in.Name, name, err)
			return false
		}
		rec[name] = storable(parsed)
		return true
	})
	if err != nil {
		return nil, err
	}
	for _, a := range in.Attributes {
		if _, ok := rec[a.Name]; a.Required && !ok {
			return nil, fmt.Errorf("%s.%s is required", in.Name, a.Name)
		}
	}
	return rec, nil
}

func storable(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case uuid.UUID:
		return x.String()
	}
	return v
}
