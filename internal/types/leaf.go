// Package types provides ready-made capabilities: scalar leaves, list and
// non-null wrappers, enums, objects and abstract types described by plain
// definitions passed as their TypeInfo, input objects, and empty roots.
package types

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
	"github.com/hanpama/typegraph/internal/value"
)

// Leaf is a scalar capability. Value is serialized with Scalar at
// resolution; a nil Value resolves to null.
type Leaf struct {
	Scalar scalar.Type
	Value  any
}

func (l Leaf) TypeName(any) string { return l.Scalar.Name() }

func (l Leaf) Meta(_ any, reg *executor.Registry) *meta.Type { return reg.ScalarMeta(l.Scalar) }

func (l Leaf) LeafScalar() scalar.Type { return l.Scalar }

func (l Leaf) Resolve(context.Context, any, *executor.FieldContext) (value.Value, error) {
	if l.Value == nil {
		return value.Null(), nil
	}
	return l.Scalar.Serialize(l.Value)
}

// Declarations of the shipped scalars, for use as field and argument types.
var (
	StringType   executor.Type = Leaf{Scalar: scalar.String}
	IntType      executor.Type = Leaf{Scalar: scalar.Int}
	FloatType    executor.Type = Leaf{Scalar: scalar.Float}
	BooleanType  executor.Type = Leaf{Scalar: scalar.Boolean}
	IDType       executor.Type = Leaf{Scalar: scalar.ID}
	DateTimeType executor.Type = Leaf{Scalar: scalar.DateTime}
	UUIDType     executor.Type = Leaf{Scalar: scalar.UUID}
)

func String(s string) Leaf { return Leaf{Scalar: scalar.String, Value: s} }

func Int(i int) Leaf { return Leaf{Scalar: scalar.Int, Value: i} }

func Float(f float64) Leaf { return Leaf{Scalar: scalar.Float, Value: f} }

func Boolean(b bool) Leaf { return Leaf{Scalar: scalar.Boolean, Value: b} }

func ID(id string) Leaf { return Leaf{Scalar: scalar.ID, Value: id} }

func DateTime(t time.Time) Leaf { return Leaf{Scalar: scalar.DateTime, Value: t} }

func UUID(id uuid.UUID) Leaf { return Leaf{Scalar: scalar.UUID, Value: id} }

// Optional returns leaf when ok is set and a null leaf of the same scalar
// otherwise.
func Optional(leaf Leaf, ok bool) Leaf {
	if !ok {
		return Leaf{Scalar: leaf.Scalar}
	}
	return leaf
}
