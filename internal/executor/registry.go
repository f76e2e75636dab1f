package executor

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
)

// Registry is the construction-time view of the type registry given to
// Type.Meta. It resolves capabilities to references and keeps the scalar
// implementations the executor needs for coercion and serialization checks.
type Registry struct {
	meta *meta.Registry

	mu      sync.RWMutex
	scalars map[string]scalar.Type
}

func NewRegistry() *Registry {
	return &Registry{meta: meta.NewRegistry(), scalars: make(map[string]scalar.Type)}
}

// Meta returns the underlying meta registry.
func (r *Registry) Meta() *meta.Registry { return r.meta }

// Ref declares t (with its info) and returns a reference to it. Builder
// failures are recorded and reported by Finalize.
func (r *Registry) Ref(t Type, info any) *meta.TypeRef {
	if w, ok := t.(WrapperType); ok {
		return w.Ref(info, r)
	}
	name := t.TypeName(info)
	if name == "" {
		r.meta.Fail(fmt.Errorf("%T declares no type name and is not a wrapper", t))
		return meta.NamedType(name)
	}
	ref, err := r.meta.GetOrBuild(name, ownerKey(t, info), func() (*meta.Type, error) {
		mt := t.Meta(info, r)
		if mt == nil {
			return nil, fmt.Errorf("%T returned no meta type", t)
		}
		return mt, nil
	})
	if err != nil {
		if !errors.Is(err, meta.ErrConflictingType) {
			r.meta.Fail(err)
		}
		return meta.NamedType(name)
	}
	return ref
}

// Field declares a field whose type is t.
func (r *Registry) Field(name string, t Type, info any) *meta.Field {
	return meta.NewField(name, r.Ref(t, info))
}

// Arg declares an argument whose type is t.
func (r *Registry) Arg(name string, t Type, info any) *meta.InputValue {
	return meta.NewInputValue(name, r.Ref(t, info))
}

// ScalarMeta records s as the implementation of its name and returns its
// meta type. Used by leaf capabilities from Type.Meta. A different
// implementation already recorded under the same name is a construction
// error; the first one is kept.
func (r *Registry) ScalarMeta(s scalar.Type) *meta.Type {
	r.mu.Lock()
	prev, ok := r.scalars[s.Name()]
	if !ok {
		r.scalars[s.Name()] = s
	}
	r.mu.Unlock()
	if ok && identity(prev) != identity(s) {
		r.Fail(fmt.Errorf("%w: scalar %q is implemented by both %T and %T", meta.ErrConflictingType, s.Name(), prev, s))
	}
	mt := meta.NewType(s.Name(), meta.TypeKindScalar).SetDescription(s.Description())
	mt.SpecifiedByURL = s.SpecifiedByURL()
	return mt
}

// RegisterScalar registers s directly, without a capability.
func (r *Registry) RegisterScalar(s scalar.Type) error {
	return r.meta.Register(r.ScalarMeta(s))
}

// Scalar returns the implementation registered for a scalar name.
func (r *Registry) Scalar(name string) (scalar.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scalars[name]
	return s, ok
}

// Fail records a construction error.
func (r *Registry) Fail(err error) { r.meta.Fail(err) }

// Finalize seals the registry.
func (r *Registry) Finalize() error { return r.meta.Finalize() }

// ownerKey identifies the builder of a type: the Go type of the capability
// (and its address for pointer capabilities), the scalar of a leaf and the
// identity of its info.
func ownerKey(t Type, info any) string {
	key := reflect.TypeOf(t).String()
	if reflect.ValueOf(t).Kind() == reflect.Pointer {
		key = identity(t)
	}
	if l, ok := t.(ScalarLeaf); ok {
		key += "|" + identity(l.LeafScalar())
	}
	if info == nil {
		return key
	}
	return key + "|" + identity(info)
}

func identity(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return fmt.Sprintf("%T@%x", v, rv.Pointer())
	}
	return fmt.Sprintf("%T:%#v", v, v)
}
