package types

import (
	"context"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

// List declares a list of Of and, at resolution, holds its items. The
// list's info is passed on to its elements. A nil Items resolves to null.
type List struct {
	Of    executor.Type
	Items []executor.Type
}

// ListOf declares a list type.
func ListOf(of executor.Type) List { return List{Of: of} }

// Items builds a resolvable list. An empty call yields an empty list, not
// null.
func Items(items ...executor.Type) List {
	if items == nil {
		items = []executor.Type{}
	}
	return List{Items: items}
}

func (List) TypeName(any) string { return "" }

func (List) Meta(any, *executor.Registry) *meta.Type { return nil }

func (l List) Ref(info any, reg *executor.Registry) *meta.TypeRef {
	return meta.ListType(reg.Ref(l.Of, info))
}

func (l List) Resolve(ctx context.Context, info any, fc *executor.FieldContext) (value.Value, error) {
	if l.Items == nil {
		return value.Null(), nil
	}
	return fc.ResolveList(ctx, info, l.Items)
}

// NonNull declares a non-null position. At resolution it wraps the value to
// complete; the executor enforces non-nullness.
type NonNull struct {
	Of executor.Type
}

func NonNullOf(of executor.Type) NonNull { return NonNull{Of: of} }

func (NonNull) TypeName(any) string { return "" }

func (NonNull) Meta(any, *executor.Registry) *meta.Type { return nil }

func (n NonNull) Ref(info any, reg *executor.Registry) *meta.TypeRef {
	return meta.NonNullType(reg.Ref(n.Of, info))
}

func (n NonNull) Unwrap() executor.Type { return n.Of }
