// Package executor executes GraphQL-style operations against domain types
// that describe and resolve themselves.
//
// # Types and TypeInfo
//
// Every resolvable domain type implements Type. A Type is paired with a
// runtime parameter, its TypeInfo, which is supplied by the schema owner and
// passed unchanged to every call: TypeName, Meta and the resolution hooks.
// The same Go type with different TypeInfo values may therefore produce
// different schema types, for example one object type per database table.
//
// What a type can do is expressed by capability interfaces:
//   - FieldResolver: object types resolve their fields.
//   - AbstractResolver: interfaces and unions name their concrete type and
//     resolve into it.
//   - ValueResolver: scalars, enums and lists produce values directly.
//   - WrapperType and Unwrapper: anonymous list and non-null wrappers.
//
// # Registry
//
// Types declare themselves into a Registry through Meta. Registry.Ref builds
// each named type at most once per (Go type, TypeInfo) owner; a type that
// references itself while being built receives a placeholder reference. A
// second owner declaring the same name with a different shape is reported as
// a conflict. Registry.Finalize validates every reference and seals the
// registry; an Executor only works on a sealed registry.
//
// # Execution
//
// ExecuteRequest selects the operation, coerces variables and walks the
// selection set of the root type:
//   - Fields marked async run concurrently with their async siblings. Other
//     fields run inline in selection order. Mutation root fields run one
//     after another.
//   - Composite list items fan out, bounded by WithListConcurrency.
//   - Response keys always follow selection order, and errors follow
//     traversal order, independent of completion order.
//
// # Completion and null propagation
//
// The declared type of a position, not the resolved value, drives
// completion. A resolver that fails, or returns null for a non-null
// position, records one error at that position. The null then propagates
// to the nearest nullable ancestor: a nullable field or list item absorbs
// it, a non-null one passes it on. When it reaches the root, data is null.
// FieldContext.Resolve reports a propagated null with an error satisfying
// IsNulled so resolvers can return it as is.
//
// # Failure classes
//
//   - Field errors (resolver errors, invalid arguments, recovered panics) are
//     returned with the partial data.
//   - Request errors (unknown operation, invalid variables, cancellation)
//     are returned as the error result without data.
//   - A field that the executed type does not declare is a ContractViolation.
//     It is raised as a panic on the caller's goroutine once every resolver
//     that already started has returned.
package executor
