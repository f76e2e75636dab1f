package meta

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	ErrConflictingType       = errors.New("conflicting type definitions")
	ErrUnknownType           = errors.New("unknown type")
	ErrInvalidTypePosition   = errors.New("invalid type position")
	ErrInvalidInterface      = errors.New("invalid interface implementation")
	ErrMissingQueryType      = errors.New("missing query root type")
	ErrSealed                = errors.New("registry is sealed")
)

type entry struct {
	typ      *Type
	key      string
	building bool
	// verifying is set while a second builder re-derives the shape for
	// conflict detection; re-entrant requests during that pass resolve to
	// a reference.
	verifying bool
	// pending holds other builders that asked for the name while its first
	// build was running. They are checked once the first build is stored.
	pending []pendingBuild
}

type pendingBuild struct {
	key   string
	build func() (*Type, error)
}

// Registry collects named types. Construction is a two-phase protocol: a
// type requested while its own builder is running gets a placeholder, which
// the finished build replaces. After Finalize the registry is read-only and
// safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string
	directives []*Directive
	errs       []error
	sealed     atomic.Bool

	QueryType        string
	MutationType     string
	SubscriptionType string
}

// NewRegistry returns an empty registry carrying the skip and include
// directives.
func NewRegistry() *Registry {
	return &Registry{
		entries:    make(map[string]*entry),
		directives: []*Directive{includeDirective, skipDirective},
	}
}

// SetRootTypes names the root operation types. Empty names are omitted.
func (r *Registry) SetRootTypes(query, mutation, subscription string) {
	r.QueryType, r.MutationType, r.SubscriptionType = query, mutation, subscription
}

// Fail records a construction error reported by Finalize.
func (r *Registry) Fail(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// GetOrBuild returns a reference to the named type, running build on first
// request. key identifies the builder: a request for the same name with a
// different key re-runs build and records ErrConflictingType when the shapes
// differ. Requests made while the first build is still running are checked
// once it completes.
func (r *Registry) GetOrBuild(name, key string, build func() (*Type, error)) (*TypeRef, error) {
	r.mu.Lock()
	if r.sealed.Load() {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot build %q", ErrSealed, name)
	}
	e, ok := r.entries[name]
	switch {
	case !ok:
		e = &entry{key: key, building: true}
		r.entries[name] = e
		r.order = append(r.order, name)
		r.mu.Unlock()
		t, err := build()
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			delete(r.entries, name)
			r.removeOrder(name)
			return nil, fmt.Errorf("building %q: %w", name, err)
		}
		if t == nil || t.Name != name {
			delete(r.entries, name)
			r.removeOrder(name)
			return nil, fmt.Errorf("building %q: builder produced a different type name", name)
		}
		e.typ = t
		e.building = false
		pending := e.pending
		e.pending = nil
		r.mu.Unlock()
		checked := map[string]bool{key: true}
		for _, p := range pending {
			if checked[p.key] {
				continue
			}
			checked[p.key] = true
			if err := r.verify(name, e, p.build); err != nil && !errors.Is(err, ErrConflictingType) {
				r.Fail(err)
			}
		}
		r.mu.Lock()
		return NamedType(name), nil

	case e.building:
		if e.typ == nil {
			e.typ = &Type{Name: name, Kind: TypeKindPlaceholder}
		}
		if e.key != "" && key != e.key {
			e.pending = append(e.pending, pendingBuild{key: key, build: build})
		}
		r.mu.Unlock()
		return NamedType(name), nil

	case e.key == key || e.verifying:
		r.mu.Unlock()
		return NamedType(name), nil
	}
	r.mu.Unlock()
	if err := r.verify(name, e, build); err != nil {
		return nil, err
	}
	return NamedType(name), nil
}

// verify re-runs a second builder of name and records ErrConflictingType
// when its shape differs from the stored one. Builder failures are returned
// unrecorded.
func (r *Registry) verify(name string, e *entry, build func() (*Type, error)) error {
	r.mu.Lock()
	e.verifying = true
	r.mu.Unlock()
	t, err := build()
	r.mu.Lock()
	defer r.mu.Unlock()
	e.verifying = false
	if err != nil {
		return fmt.Errorf("building %q: %w", name, err)
	}
	if !sameShape(e.typ, t) {
		err := fmt.Errorf("%w: %q has shapes %s and %s", ErrConflictingType, name, shapeOf(e.typ), shapeOf(t))
		r.errs = append(r.errs, err)
		return err
	}
	return nil
}

func (r *Registry) removeOrder(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Reserve inserts a placeholder for name so other types can reference it
// before it is registered. Finalize fails if it is never registered.
func (r *Registry) Reserve(name string) *TypeRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		r.entries[name] = &entry{typ: &Type{Name: name, Kind: TypeKindPlaceholder}, building: true}
		r.order = append(r.order, name)
	}
	return NamedType(name)
}

// Register adds a fully built type. Registering the same shape twice is a
// no-op; a different shape records ErrConflictingType.
func (r *Registry) Register(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrSealed, t.Name)
	}
	if e, ok := r.entries[t.Name]; ok {
		if e.building || sameShape(e.typ, t) {
			if e.building {
				e.typ, e.building = t, false
			}
			return nil
		}
		err := fmt.Errorf("%w: %q has shapes %s and %s", ErrConflictingType, t.Name, shapeOf(e.typ), shapeOf(t))
		r.errs = append(r.errs, err)
		return err
	}
	r.entries[t.Name] = &entry{typ: t}
	r.order = append(r.order, t.Name)
	return nil
}

// AddDirective registers a custom directive definition.
func (r *Registry) AddDirective(d *Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives = append(r.directives, d)
}

// Finalize verifies the registry and seals it. All problems are reported
// together.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return nil
	}
	errs := append([]error(nil), r.errs...)

	if r.QueryType == "" {
		errs = append(errs, ErrMissingQueryType)
	}
	for _, root := range []string{r.QueryType, r.MutationType, r.SubscriptionType} {
		if root == "" {
			continue
		}
		e, ok := r.entries[root]
		if !ok || e.typ == nil {
			errs = append(errs, fmt.Errorf("%w: root type %q", ErrUnknownType, root))
		} else if e.typ.Kind != TypeKindObject && e.typ.Kind != TypeKindPlaceholder {
			errs = append(errs, fmt.Errorf("%w: root type %q must be an object, got %s", ErrInvalidTypePosition, root, e.typ.Kind))
		}
	}

	for _, name := range r.order {
		e := r.entries[name]
		if e.typ == nil || e.typ.Kind == TypeKindPlaceholder {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnresolvedPlaceholder, name))
			continue
		}
		errs = append(errs, r.checkType(e.typ)...)
	}
	for _, d := range r.directives {
		for _, a := range d.Arguments {
			errs = append(errs, r.checkInput(fmt.Sprintf("@%s(%s)", d.Name, a.Name), a.Type)...)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, name := range r.order {
		if t := r.entries[name].typ; t.Kind == TypeKindInterface {
			t.PossibleTypes = nil
		}
	}
	for _, name := range r.order {
		t := r.entries[name].typ
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			it := r.entries[iface].typ
			it.PossibleTypes = append(it.PossibleTypes, t.Name)
		}
	}
	r.sealed.Store(true)
	return nil
}

func (r *Registry) lookupLocked(name string) (*Type, bool) {
	e, ok := r.entries[name]
	if !ok || e.typ == nil {
		return nil, false
	}
	return e.typ, true
}

func (r *Registry) checkOutput(where string, ref *TypeRef) []error {
	name := ref.GetNamedType()
	t, ok := r.lookupLocked(name)
	if !ok {
		return []error{fmt.Errorf("%w: %q referenced by %s", ErrUnknownType, name, where)}
	}
	if !t.Kind.IsOutput() && t.Kind != TypeKindPlaceholder {
		return []error{fmt.Errorf("%w: %s is %s, an input type used as output", ErrInvalidTypePosition, where, name)}
	}
	return nil
}

func (r *Registry) checkInput(where string, ref *TypeRef) []error {
	name := ref.GetNamedType()
	t, ok := r.lookupLocked(name)
	if !ok {
		return []error{fmt.Errorf("%w: %q referenced by %s", ErrUnknownType, name, where)}
	}
	if !t.Kind.IsInput() && t.Kind != TypeKindPlaceholder {
		return []error{fmt.Errorf("%w: %s is %s, an output type used as input", ErrInvalidTypePosition, where, name)}
	}
	return nil
}

func (r *Registry) checkType(t *Type) []error {
	var errs []error
	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		for _, f := range t.Fields {
			where := t.Name + "." + f.Name
			errs = append(errs, r.checkOutput(where, f.Type)...)
			for _, a := range f.Arguments {
				errs = append(errs, r.checkInput(where+"("+a.Name+")", a.Type)...)
			}
		}
		for _, iname := range t.Interfaces {
			it, ok := r.lookupLocked(iname)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: interface %q of %q", ErrUnknownType, iname, t.Name))
				continue
			}
			if it.Kind != TypeKindInterface {
				errs = append(errs, fmt.Errorf("%w: %q implements %q, which is %s", ErrInvalidInterface, t.Name, iname, it.Kind))
				continue
			}
			for _, want := range it.Fields {
				got := t.Field(want.Name)
				if got == nil {
					errs = append(errs, fmt.Errorf("%w: %q lacks field %q of %q", ErrInvalidInterface, t.Name, want.Name, iname))
				} else if got.Type.GetNamedType() != want.Type.GetNamedType() && !r.isPossibleLocked(want.Type.GetNamedType(), got.Type.GetNamedType()) {
					errs = append(errs, fmt.Errorf("%w: %s.%s has type %s, %s requires %s", ErrInvalidInterface, t.Name, want.Name, got.Type, iname, want.Type))
				}
			}
		}
	case TypeKindUnion:
		for _, member := range t.PossibleTypes {
			mt, ok := r.lookupLocked(member)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: member %q of union %q", ErrUnknownType, member, t.Name))
			} else if mt.Kind != TypeKindObject {
				errs = append(errs, fmt.Errorf("%w: union %q member %q is %s", ErrInvalidTypePosition, t.Name, member, mt.Kind))
			}
		}
	case TypeKindInputObject:
		for _, f := range t.InputFields {
			errs = append(errs, r.checkInput(t.Name+"."+f.Name, f.Type)...)
		}
	}
	return errs
}

// isPossibleLocked reports whether object may stand in for abstract, before
// interface possible types are computed.
func (r *Registry) isPossibleLocked(abstract, object string) bool {
	at, ok := r.lookupLocked(abstract)
	if !ok {
		return false
	}
	ot, ok := r.lookupLocked(object)
	if !ok {
		return false
	}
	switch at.Kind {
	case TypeKindUnion:
		for _, m := range at.PossibleTypes {
			if m == object {
				return true
			}
		}
	case TypeKindInterface:
		for _, i := range ot.Interfaces {
			if i == abstract {
				return true
			}
		}
	}
	return false
}

// IsSealed reports whether Finalize completed.
func (r *Registry) IsSealed() bool {
	return r.sealed.Load()
}

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (*Type, bool) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return r.lookupLocked(name)
}

// Types returns all types in registration order.
func (r *Registry) Types() []*Type {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]*Type, 0, len(r.order))
	for _, name := range r.order {
		if t := r.entries[name].typ; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Directives returns the directive definitions.
func (r *Registry) Directives() []*Directive { return r.directives }

// Directive returns the named directive definition.
func (r *Registry) Directive(name string) *Directive {
	for _, d := range r.directives {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// FieldOf returns the field definition on the named object or interface.
func (r *Registry) FieldOf(typeName, fieldName string) *Field {
	t, ok := r.Lookup(typeName)
	if !ok {
		return nil
	}
	return t.Field(fieldName)
}

// PossibleTypes returns the object types an abstract type may resolve to.
// For an object type it is the type itself.
func (r *Registry) PossibleTypes(name string) []string {
	t, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	switch t.Kind {
	case TypeKindObject:
		return []string{t.Name}
	case TypeKindInterface, TypeKindUnion:
		return t.PossibleTypes
	}
	return nil
}

// IsPossibleType reports whether the object type satisfies the named type
// condition: the same type, an interface it implements, or a union
// containing it.
func (r *Registry) IsPossibleType(condition, object string) bool {
	if condition == object {
		return true
	}
	for _, p := range r.PossibleTypes(condition) {
		if p == object {
			return true
		}
	}
	return false
}

// RootType returns the root object type for an operation keyword.
func (r *Registry) RootType(operation string) (*Type, bool) {
	var name string
	switch operation {
	case "query", "":
		name = r.QueryType
	case "mutation":
		name = r.MutationType
	case "subscription":
		name = r.SubscriptionType
	}
	if name == "" {
		return nil, false
	}
	return r.Lookup(name)
}

func sameShape(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == TypeKindPlaceholder || b.Kind == TypeKindPlaceholder {
		return true
	}
	return shapeOf(a) == shapeOf(b)
}

// shapeOf renders the structural signature of a type. Descriptions are not
// part of the shape.
func shapeOf(t *Type) string {
	var b strings.Builder
	b.WriteString(string(t.Kind))
	b.WriteString(" ")
	b.WriteString(t.Name)
	if len(t.Interfaces) > 0 {
		b.WriteString(" implements ")
		b.WriteString(strings.Join(t.Interfaces, "&"))
	}
	b.WriteString("{")
	for _, f := range t.Fields {
		b.WriteString(f.Name)
		if len(f.Arguments) > 0 {
			b.WriteString("(")
			for i, a := range f.Arguments {
				if i > 0 {
					b.WriteString(",")
				}
				b.WriteString(a.Name + ":" + a.Type.String())
			}
			b.WriteString(")")
		}
		b.WriteString(":" + f.Type.String() + ";")
	}
	if t.Kind == TypeKindUnion {
		b.WriteString(strings.Join(t.PossibleTypes, "|"))
	}
	for _, v := range t.EnumValues {
		b.WriteString(v.Name + ";")
	}
	for _, f := range t.InputFields {
		b.WriteString(f.Name + ":" + f.Type.String() + ";")
	}
	b.WriteString("}")
	return b.String()
}
