package executor

import (
	"context"
	"fmt"

	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
	"github.com/hanpama/typegraph/internal/value"
)

// Type is the contract every resolvable domain type implements. info is the
// type's runtime parameter: it is supplied by the schema owner, threaded
// through every call unchanged, and may decide the type's name and shape.
type Type interface {
	// TypeName returns the concrete type name, or "" for anonymous wrappers.
	TypeName(info any) string
	// Meta declares the type's shape. Referenced types are declared through
	// reg so cycles and duplicates are handled by the registry.
	Meta(info any, reg *Registry) *meta.Type
}

// WrapperType is implemented by anonymous list and non-null wrappers, which
// contribute a wrapped reference instead of a named type.
type WrapperType interface {
	Ref(info any, reg *Registry) *meta.TypeRef
}

// ScalarLeaf is implemented by leaf capabilities. Leaves of different
// scalar implementations get different builder keys.
type ScalarLeaf interface {
	LeafScalar() scalar.Type
}

// Unwrapper is implemented by non-null wrappers. The executor enforces
// non-nullness from the declared type and resolves the wrapped type.
type Unwrapper interface {
	Unwrap() Type
}

// FieldResolver is implemented by object types.
type FieldResolver interface {
	// ResolveField resolves one field of the receiver. Composite results
	// are produced by calling fc.Resolve or fc.ResolveList, which execute the
	// field's sub-selection. Returning an error nulls the field according to
	// its declared nullability.
	ResolveField(ctx context.Context, info any, field string, args Arguments, fc *FieldContext) (value.Value, error)
}

// AbstractResolver is implemented by interface and union types. An object
// capability may stand at an abstract position without it only when its
// TypeName does not depend on info, since info there belongs to the
// abstract position.
type AbstractResolver interface {
	// ConcreteTypeName names the object type the receiver currently holds.
	ConcreteTypeName(ctx context.Context, info any) (string, error)
	// ResolveIntoType resolves the receiver as the named object type,
	// usually by calling fc.Resolve with the concrete capability.
	ResolveIntoType(ctx context.Context, info any, typeName string, fc *FieldContext) (value.Value, error)
}

// ValueResolver is implemented by leaves (scalars, enums) and lists.
type ValueResolver interface {
	Resolve(ctx context.Context, info any, fc *FieldContext) (value.Value, error)
}

// ContractViolation reports a disagreement between the executed document and
// the registry, such as a field the type does not declare. It is raised as a
// panic and never converted into a field error.
type ContractViolation struct {
	TypeName  string
	FieldName string
	Path      Path
}

func (v *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation: type %q has no field %q (at %s)", v.TypeName, v.FieldName, v.Path)
}
