// Package schema ties root operation capabilities, a sealed registry and an
// executor into a RootNode that can be shared by concurrent requests.
package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hanpama/typegraph/internal/executor"
	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
	"github.com/hanpama/typegraph/internal/types"
)

var (
	ErrInvalidRoot = errors.New("invalid root type")
	ErrNoSchema    = errors.New("schema is not available for validation")
)

// RootNode is an immutable schema: the root capabilities with their infos,
// the sealed registry they declared, and an executor over it.
type RootNode struct {
	registry  *executor.Registry
	exec      *executor.Executor
	roots     executor.Roots
	newShared func(context.Context) any

	validation struct {
		once   sync.Once
		schema *language.Schema
		err    error
	}
}

type options struct {
	scalars    []scalar.Type
	directives []*meta.Directive
	execOpts   []executor.Option
	newShared  func(context.Context) any
}

type Option func(*options)

// WithScalars registers extra scalars even when no field refers to them.
func WithScalars(s ...scalar.Type) Option {
	return func(o *options) { o.scalars = append(o.scalars, s...) }
}

// WithDirectives declares custom directives.
func WithDirectives(d ...*meta.Directive) Option {
	return func(o *options) { o.directives = append(o.directives, d...) }
}

// WithExecutorOptions configures the executor (tracer, logger, list
// concurrency).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(o *options) { o.execOpts = append(o.execOpts, opts...) }
}

// WithContextFactory sets the function building the shared per-request
// context object handed to resolvers through FieldContext.Shared.
func WithContextFactory(fn func(context.Context) any) Option {
	return func(o *options) { o.newShared = fn }
}

// New builds a RootNode from root capabilities that take no info.
func New(query, mutation, subscription executor.Type, opts ...Option) (*RootNode, error) {
	return NewWithInfo(query, mutation, subscription, nil, nil, nil, opts...)
}

// NewWithInfo builds a RootNode, declaring each root with its info. A nil
// or empty (types.EmptyMutation, types.EmptySubscription) mutation or
// subscription root leaves that operation unsupported. Every construction
// problem is reported in the returned error.
func NewWithInfo(query, mutation, subscription executor.Type, queryInfo, mutationInfo, subscriptionInfo any, opts ...Option) (*RootNode, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg := executor.NewRegistry()
	for _, s := range scalar.Builtins() {
		if err := reg.RegisterScalar(s); err != nil {
			return nil, err
		}
	}
	for _, s := range o.scalars {
		if err := reg.RegisterScalar(s); err != nil {
			return nil, err
		}
	}
	for _, d := range o.directives {
		reg.Meta().AddDirective(d)
	}

	if query == nil {
		return nil, fmt.Errorf("%w: a query root is required", ErrInvalidRoot)
	}
	var roots executor.Roots
	var errs []error
	declare := func(kind string, t executor.Type, info any) (executor.Root, string) {
		if t == nil {
			return executor.Root{}, ""
		}
		if e, ok := t.(types.EmptyRoot); ok && e.IsEmptyRoot() {
			return executor.Root{}, ""
		}
		fr, ok := t.(executor.FieldResolver)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s root %T does not resolve fields", ErrInvalidRoot, kind, t))
			return executor.Root{}, ""
		}
		return executor.Root{Type: fr, Info: info}, reg.Ref(t, info).Named
	}
	var queryName, mutationName, subscriptionName string
	roots.Query, queryName = declare("query", query, queryInfo)
	roots.Mutation, mutationName = declare("mutation", mutation, mutationInfo)
	roots.Subscription, subscriptionName = declare("subscription", subscription, subscriptionInfo)
	reg.Meta().SetRootTypes(queryName, mutationName, subscriptionName)

	if err := reg.Finalize(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &RootNode{
		registry:  reg,
		exec:      executor.NewExecutor(reg, roots, o.execOpts...),
		roots:     roots,
		newShared: o.newShared,
	}, nil
}

// Registry returns the sealed registry.
func (r *RootNode) Registry() *executor.Registry { return r.registry }

// Executor returns the executor bound to this schema.
func (r *RootNode) Executor() *executor.Executor { return r.exec }

// SDL renders the schema in the schema definition language.
func (r *RootNode) SDL() string { return meta.Render(r.registry.Meta()) }

// NewShared builds the shared context object for one request, or nil when
// no factory was configured.
func (r *RootNode) NewShared(ctx context.Context) any {
	if r.newShared == nil {
		return nil
	}
	return r.newShared(ctx)
}

// Validate checks doc against the standard validation rules. The SDL is
// loaded into the validator on first use.
func (r *RootNode) Validate(doc *language.QueryDocument) error {
	r.validation.once.Do(func() {
		r.validation.schema, r.validation.err = language.LoadSchema("schema.graphql", r.SDL())
	})
	if r.validation.err != nil {
		return fmt.Errorf("%w: %w", ErrNoSchema, r.validation.err)
	}
	return language.Validate(r.validation.schema, doc)
}
