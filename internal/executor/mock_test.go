package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
	"github.com/hanpama/typegraph/internal/value"
)

// testLeaf is a scalar capability holding a Go value to serialize.
type testLeaf struct {
	s scalar.Type
	v any
}

func (l testLeaf) TypeName(any) string { return l.s.Name() }

func (l testLeaf) Meta(_ any, reg *Registry) *meta.Type { return reg.ScalarMeta(l.s) }

func (l testLeaf) LeafScalar() scalar.Type { return l.s }

func (l testLeaf) Resolve(context.Context, any, *FieldContext) (value.Value, error) {
	if l.v == nil {
		return value.Null(), nil
	}
	return l.s.Serialize(l.v)
}

var (
	stringType Type = testLeaf{s: scalar.String}
	intType    Type = testLeaf{s: scalar.Int}
)

func str(s string) Type { return testLeaf{s: scalar.String, v: s} }

func num(i int) Type { return testLeaf{s: scalar.Int, v: i} }

func null() Type { return testLeaf{s: scalar.String} }

// testEnum resolves to one of its declared values.
type testEnum struct {
	name   string
	values []string
	v      string
}

func (e testEnum) TypeName(any) string { return e.name }

func (e testEnum) Meta(any, *Registry) *meta.Type {
	mt := meta.NewType(e.name, meta.TypeKindEnum)
	for _, v := range e.values {
		mt.AddEnumValue(&meta.EnumValue{Name: v})
	}
	return mt
}

func (e testEnum) Resolve(context.Context, any, *FieldContext) (value.Value, error) {
	return value.String(e.v), nil
}

type testNonNull struct{ of Type }

func nonNull(of Type) Type { return testNonNull{of: of} }

func (testNonNull) TypeName(any) string { return "" }

func (testNonNull) Meta(any, *Registry) *meta.Type { return nil }

func (n testNonNull) Ref(info any, reg *Registry) *meta.TypeRef {
	return meta.NonNullType(reg.Ref(n.of, info))
}

func (n testNonNull) Unwrap() Type { return n.of }

// testList resolves its items through FieldContext.ResolveList. A nil items
// slice resolves to null.
type testList struct {
	of    Type
	items []Type
}

func listOf(of Type, items ...Type) Type {
	if items == nil {
		items = []Type{}
	}
	return testList{of: of, items: items}
}

func (testList) TypeName(any) string { return "" }

func (testList) Meta(any, *Registry) *meta.Type { return nil }

func (l testList) Ref(info any, reg *Registry) *meta.TypeRef {
	return meta.ListType(reg.Ref(l.of, info))
}

func (l testList) Resolve(ctx context.Context, info any, fc *FieldContext) (value.Value, error) {
	if l.items == nil {
		return value.Null(), nil
	}
	return fc.ResolveList(ctx, info, l.items)
}

// rawList returns a prebuilt value without resolving its items.
type rawList struct{ v value.Value }

func (rawList) TypeName(any) string { return "" }

func (rawList) Meta(any, *Registry) *meta.Type { return nil }

func (rawList) Ref(any, *Registry) *meta.TypeRef { return nil }

func (l rawList) Resolve(context.Context, any, *FieldContext) (value.Value, error) { return l.v, nil }

type testArg struct {
	name string
	typ  Type
	def  *value.Value
}

type testField struct {
	name    string
	typ     Type
	async   bool
	args    []testArg
	resolve func(ctx context.Context, args Arguments) (Type, error)
}

func declareField(reg *Registry, info any, f testField) *meta.Field {
	field := reg.Field(f.name, f.typ, info)
	if f.async {
		field.SetAsync()
	}
	for _, a := range f.args {
		iv := reg.Arg(a.name, a.typ, info)
		if a.def != nil {
			iv.SetDefault(*a.def)
		}
		field.AddArgument(iv)
	}
	return field
}

// testObject is an object capability whose fields are resolved by closures.
type testObject struct {
	name       string
	interfaces []*testAbstract
	fields     []testField
}

func (o *testObject) TypeName(any) string { return o.name }

func (o *testObject) Meta(info any, reg *Registry) *meta.Type {
	mt := meta.NewType(o.name, meta.TypeKindObject)
	for _, iface := range o.interfaces {
		reg.Ref(iface, info)
		mt.AddInterface(iface.name)
	}
	for _, f := range o.fields {
		mt.AddField(declareField(reg, info, f))
	}
	return mt
}

func (o *testObject) ResolveField(ctx context.Context, info any, field string, args Arguments, fc *FieldContext) (value.Value, error) {
	for _, f := range o.fields {
		if f.name != field {
			continue
		}
		if f.resolve == nil {
			return value.Null(), fmt.Errorf("no resolver for %s.%s", o.name, field)
		}
		t, err := f.resolve(ctx, args)
		if err != nil {
			return value.Null(), err
		}
		return fc.Resolve(ctx, info, t)
	}
	return value.Null(), fmt.Errorf("no field %s.%s", o.name, field)
}

// testAbstract is an interface or union capability holding one concrete
// object. typeName overrides the reported concrete type.
type testAbstract struct {
	name     string
	kind     meta.TypeKind
	fields   []testField
	members  []*testObject
	concrete *testObject
	typeName string
}

func (a *testAbstract) TypeName(any) string { return a.name }

func (a *testAbstract) Meta(info any, reg *Registry) *meta.Type {
	mt := meta.NewType(a.name, a.kind)
	for _, f := range a.fields {
		mt.AddField(declareField(reg, info, f))
	}
	for _, m := range a.members {
		reg.Ref(m, info)
		if a.kind == meta.TypeKindUnion {
			mt.AddPossibleType(m.name)
		}
	}
	return mt
}

func (a *testAbstract) ConcreteTypeName(context.Context, any) (string, error) {
	if a.typeName != "" {
		return a.typeName, nil
	}
	return a.concrete.name, nil
}

func (a *testAbstract) ResolveIntoType(ctx context.Context, info any, _ string, fc *FieldContext) (value.Value, error) {
	return fc.Resolve(ctx, info, a.concrete)
}

func constant(t Type) func(context.Context, Arguments) (Type, error) {
	return func(context.Context, Arguments) (Type, error) { return t, nil }
}

func failing(msg string) func(context.Context, Arguments) (Type, error) {
	return func(context.Context, Arguments) (Type, error) { return nil, fmt.Errorf("%s", msg) }
}

// newTestExecutor registers the roots with builtin scalars and seals the
// registry.
func newTestExecutor(t *testing.T, roots Roots, opts ...Option) *Executor {
	t.Helper()
	reg := NewRegistry()
	for _, s := range scalar.Builtins() {
		require.NoError(t, reg.RegisterScalar(s))
	}
	name := func(root Root) string {
		if root.Type == nil {
			return ""
		}
		return reg.Ref(root.Type.(Type), root.Info).Named
	}
	reg.Meta().SetRootTypes(name(roots.Query), name(roots.Mutation), name(roots.Subscription))
	require.NoError(t, reg.Finalize())
	return NewExecutor(reg, roots, opts...)
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func execute(t *testing.T, e *Executor, query string, vars map[string]value.Value) (value.Value, []*ExecutionError, error) {
	t.Helper()
	return e.ExecuteRequest(context.Background(), mustParseQuery(t, query), "", vars, nil)
}

// obj builds an ordered object value from alternating keys and values.
func obj(kv ...any) value.Value {
	o := value.NewObject(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		v, ok := kv[i+1].(value.Value)
		if !ok {
			var err error
			v, err = value.FromGo(kv[i+1])
			if err != nil {
				panic(err)
			}
		}
		o.Set(kv[i].(string), v)
	}
	return value.FromObject(o)
}

type errorSummary struct {
	Path    string
	Message string
}

func summarize(errs []*ExecutionError) []errorSummary {
	out := make([]errorSummary, 0, len(errs))
	for _, e := range errs {
		out = append(out, errorSummary{Path: e.Path.String(), Message: e.Message})
	}
	return out
}

// recordingTracer logs traced fields.
type recordingTracer struct {
	mu     sync.Mutex
	fields []string
	ops    []string
}

func (r *recordingTracer) TraceOperation(ctx context.Context, name, kind string) (context.Context, func([]*ExecutionError)) {
	r.mu.Lock()
	r.ops = append(r.ops, kind+" "+name)
	r.mu.Unlock()
	return ctx, func([]*ExecutionError) {}
}

func (r *recordingTracer) TraceField(ctx context.Context, typeName, fieldName string, trivial bool, _ Arguments) (context.Context, func(error)) {
	return ctx, func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		entry := fmt.Sprintf("%s.%s trivial=%t", typeName, fieldName, trivial)
		if err != nil {
			entry += " err=" + err.Error()
		}
		r.fields = append(r.fields, entry)
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	panics []any
}

func (l *recordingLogger) LogPanic(_ context.Context, v any) {
	l.mu.Lock()
	l.panics = append(l.panics, v)
	l.mu.Unlock()
}

func mustObject(t *testing.T, v value.Value) *value.Object {
	t.Helper()
	o, ok := v.Object()
	require.True(t, ok, "expected an object, got %s", v)
	return o
}

var cmpEmptyAsNil = cmpopts.EquateEmpty()
