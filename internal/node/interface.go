package node

import (
	"context"
	"errors"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/types"
	"github.com/hanpama/typegraph/internal/value"
)

// InterfaceInfo is the TypeInfo of Interface: an interface implemented by
// every node type listed in Members. KeyField is declared as its only
// field.
type InterfaceInfo struct {
	Name        string
	Description string
	KeyField    string
	Members     []*Info
}

var ErrNoNode = errors.New("node: interface value holds no node")

// Interface is a node at an interface position.
type Interface struct {
	Info *Info
	Node Node
}

func interfaceInfo(info any) *InterfaceInfo {
	if in, ok := info.(*InterfaceInfo); ok && in != nil {
		return in
	}
	return &InterfaceInfo{}
}

func (Interface) TypeName(info any) string { return interfaceInfo(info).Name }

func (Interface) Meta(info any, reg *executor.Registry) *meta.Type {
	in := interfaceInfo(info)
	mt := meta.NewType(in.Name, meta.TypeKindInterface).SetDescription(in.Description)
	if in.KeyField != "" {
		mt.AddField(reg.Field(in.KeyField, types.NonNullOf(types.IDType), nil))
	}
	for _, m := range in.Members {
		reg.Ref(Node{}, m)
	}
	return mt
}

func (i Interface) ConcreteTypeName(context.Context, any) (string, error) {
	if i.Info == nil {
		return "", ErrNoNode
	}
	return i.Info.Name, nil
}

func (i Interface) ResolveIntoType(ctx context.Context, _ any, _ string, fc *executor.FieldContext) (value.Value, error) {
	return fc.Resolve(ctx, i.Info, i.Node)
}
