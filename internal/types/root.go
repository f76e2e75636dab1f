package types

import (
	"context"
	"fmt"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

// EmptyRoot is implemented by root capabilities that declare no operation
// type. A schema built with one does not support that operation.
type EmptyRoot interface {
	IsEmptyRoot() bool
}

// EmptyMutation is the mutation root of a read-only schema.
type EmptyMutation struct{}

func (EmptyMutation) IsEmptyRoot() bool { return true }

func (EmptyMutation) TypeName(any) string { return "_EmptyMutation" }

func (EmptyMutation) Meta(any, *executor.Registry) *meta.Type {
	return meta.NewType("_EmptyMutation", meta.TypeKindObject)
}

func (EmptyMutation) ResolveField(_ context.Context, _ any, field string, _ executor.Arguments, _ *executor.FieldContext) (value.Value, error) {
	return value.Null(), fmt.Errorf("mutation field %q is not supported", field)
}

// EmptySubscription is the subscription root of a schema without
// subscriptions.
type EmptySubscription struct{}

func (EmptySubscription) IsEmptyRoot() bool { return true }

func (EmptySubscription) TypeName(any) string { return "_EmptySubscription" }

func (EmptySubscription) Meta(any, *executor.Registry) *meta.Type {
	return meta.NewType("_EmptySubscription", meta.TypeKindObject)
}

func (EmptySubscription) ResolveField(_ context.Context, _ any, field string, _ executor.Arguments, _ *executor.FieldContext) (value.Value, error) {
	return value.Null(), fmt.Errorf("subscription field %q is not supported", field)
}
