package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

var (
	ErrOperationNotFound    = errors.New("operation not found")
	ErrUnsupportedOperation = errors.New("operation not supported by schema")
)

// Root binds a root operation type capability to its TypeInfo.
type Root struct {
	Type FieldResolver
	Info any
}

// Roots are the root operation types of a schema. Mutation and
// Subscription may be left empty.
type Roots struct {
	Query        Root
	Mutation     Root
	Subscription Root
}

// Executor runs operations against a sealed registry. It holds no
// per-request state and is safe for concurrent use.
type Executor struct {
	registry *Registry
	roots    Roots
	tracer   Tracer
	logger   Logger
	// listConcurrency bounds goroutines per list of composite items.
	listConcurrency int
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracer installs a tracer for operations and fields.
func WithTracer(t Tracer) Option { return func(e *Executor) { e.tracer = t } }

// WithLogger installs the logger used for recovered resolver panics.
func WithLogger(l Logger) Option { return func(e *Executor) { e.logger = l } }

// WithListConcurrency bounds concurrent item resolution per list. Values
// below one resolve items sequentially.
func WithListConcurrency(n int) Option { return func(e *Executor) { e.listConcurrency = n } }

func NewExecutor(registry *Registry, roots Roots, opts ...Option) *Executor {
	e := &Executor{
		registry:        registry,
		roots:           roots,
		tracer:          NoopTracer{},
		logger:          nopLogger{},
		listConcurrency: 16,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor was built with.
func (e *Executor) Registry() *Registry { return e.registry }

// executionState holds the state of one request.
type executionState struct {
	registry        *Registry
	document        *language.QueryDocument
	variables       Variables
	shared          any
	tracer          Tracer
	logger          Logger
	listConcurrency int
	violation       atomic.Pointer[ContractViolation]
}

// ExecuteRequest executes one operation of a parsed and validated document.
// It returns the data value and field errors in traversal order. The data is
// Null only when a non-null root field failed. A non-nil error is a
// request-level failure (unknown operation, invalid variables, cancellation)
// and comes without data.
//
// A ContractViolation raised by any resolver is re-panicked on the calling
// goroutine.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]value.Value,
	shared any,
) (value.Value, []*ExecutionError, error) {
	operation, err := getOperation(document, operationName)
	if err != nil {
		return value.Null(), nil, err
	}

	var root Root
	switch operation.Operation {
	case language.Query, "":
		root = e.roots.Query
	case language.Mutation:
		root = e.roots.Mutation
	case language.Subscription:
		root = e.roots.Subscription
	}
	rootType, ok := e.registry.meta.RootType(string(operation.Operation))
	if !ok || root.Type == nil {
		return value.Null(), nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, operation.Operation)
	}

	variables, err := CoerceVariables(e.registry, operation, variableValues)
	if err != nil {
		return value.Null(), nil, err
	}

	state := &executionState{
		registry:        e.registry,
		document:        document,
		variables:       variables,
		shared:          shared,
		tracer:          e.tracer,
		logger:          e.logger,
		listConcurrency: e.listConcurrency,
	}

	ctx, finish := e.tracer.TraceOperation(ctx, operation.Name, string(operation.Operation))
	buf := &errorBuffer{}
	sequential := operation.Operation == language.Mutation
	data, nulled := state.executeSelectionSet(ctx, buf, rootType, root.Type, root.Info, operation.SelectionSet, Path{}, sequential)
	errs := buf.list()
	finish(errs)

	if v := state.violation.Load(); v != nil {
		panic(v)
	}
	if err := ctx.Err(); err != nil {
		return value.Null(), nil, fmt.Errorf("request cancelled: %w", err)
	}
	if nulled {
		data = value.Null()
	}
	return data, errs, nil
}

// getOperation selects the operation by name, or the only operation when
// no name is given.
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0], nil
		}
		if len(document.Operations) == 0 {
			return nil, fmt.Errorf("%w: document contains no operations", ErrOperationNotFound)
		}
		return nil, fmt.Errorf("%w: operation name is required when the document contains multiple operations", ErrOperationNotFound)
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, operationName)
}

// fieldOutcome is the completed contribution of one response key.
type fieldOutcome struct {
	value  value.Value
	bubble bool
	errs   *errorBuffer
}

// executeSelectionSet resolves a selection set against a concrete object.
// Async fields run concurrently with each other; the rest run inline in
// selection order. With sequential set every field fully completes before
// the next starts. It reports nulled when a non-null field failed, in which
// case the object's value is discarded.
func (s *executionState) executeSelectionSet(
	ctx context.Context,
	buf *errorBuffer,
	objectType *meta.Type,
	source FieldResolver,
	info any,
	selectionSet language.SelectionSet,
	path Path,
	sequential bool,
) (value.Value, bool) {
	groupedFields := collectFields(s, objectType.Name, selectionSet).orderedFields()
	outcomes := make([]fieldOutcome, len(groupedFields))

	var g errgroup.Group
	executed := 0
	bubbled := false
	for i, cf := range groupedFields {
		executed = i + 1
		fieldPath := appendPath(path, cf.ResponseName)

		switch cf.Name() {
		case "__typename":
			outcomes[i] = fieldOutcome{value: value.String(objectType.Name)}
			continue
		case "__schema", "__type":
			errs := &errorBuffer{}
			errs.add(&ExecutionError{
				Message:   "introspection is not supported",
				Path:      fieldPath,
				Locations: locationsOf(cf.Fields),
			})
			outcomes[i] = fieldOutcome{value: value.Null(), errs: errs}
			continue
		}

		fieldDef := objectType.Field(cf.Name())
		if fieldDef == nil {
			s.violation.CompareAndSwap(nil, &ContractViolation{TypeName: objectType.Name, FieldName: cf.Name(), Path: fieldPath})
			outcomes[i] = fieldOutcome{value: value.Null()}
			continue
		}

		if fieldDef.Async && !sequential {
			g.Go(func() error {
				outcomes[i] = s.executeField(ctx, objectType, fieldDef, source, info, cf, fieldPath)
				return nil
			})
			continue
		}
		outcomes[i] = s.executeField(ctx, objectType, fieldDef, source, info, cf, fieldPath)
		if outcomes[i].bubble {
			bubbled = true
			break
		}
	}
	_ = g.Wait()

	for _, o := range outcomes[:executed] {
		buf.merge(o.errs)
		if o.bubble {
			bubbled = true
		}
	}
	if bubbled {
		return value.Null(), true
	}

	result := value.NewObject(len(groupedFields))
	for i, cf := range groupedFields {
		result.Set(cf.ResponseName, outcomes[i].value)
	}
	return value.FromObject(result), false
}

// executeField coerces arguments, calls the resolver and completes its result
// against the field's declared type.
func (s *executionState) executeField(
	ctx context.Context,
	objectType *meta.Type,
	fieldDef *meta.Field,
	source FieldResolver,
	info any,
	cf collectedField,
	path Path,
) (out fieldOutcome) {
	fc := &FieldContext{
		state:      s,
		path:       path,
		ref:        fieldDef.Type,
		fields:     cf.Fields,
		parentType: objectType.Name,
		fieldName:  fieldDef.Name,
		errs:       &errorBuffer{},
	}
	out.errs = fc.errs
	out.value = value.Null()

	if ctx.Err() != nil {
		return out
	}
	defer s.recoverField(ctx, fc, &out)

	args, err := coerceArgumentValues(s.registry, fieldDef, cf.Fields[0], s.variables)
	if err != nil {
		out.value, out.bubble = fc.complete(value.Null(), err)
		return out
	}

	fieldCtx, finish := s.tracer.TraceField(ctx, objectType.Name, fieldDef.Name, !fieldDef.Async, args)
	v, err := source.ResolveField(fieldCtx, info, fieldDef.Name, args, fc)
	finish(err)
	out.value, out.bubble = fc.complete(v, err)
	return out
}

// recoverField turns a resolver panic into a field error. Contract
// violations are kept for the request to re-raise.
func (s *executionState) recoverField(ctx context.Context, fc *FieldContext, out *fieldOutcome) {
	r := recover()
	if r == nil {
		return
	}
	if cv, ok := r.(*ContractViolation); ok {
		s.violation.CompareAndSwap(nil, cv)
		out.value, out.bubble = value.Null(), false
		return
	}
	s.logger.LogPanic(ctx, r)
	out.value, out.bubble = fc.complete(value.Null(), &PanicError{Value: r})
}

// PanicError wraps a value recovered from a resolver panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic occurred: %v", e.Value) }

// executeGroup runs fn for n items, concurrently when limit allows.
func executeGroup(n, limit int, fn func(i int)) {
	if limit <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
