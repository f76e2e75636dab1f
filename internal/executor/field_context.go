package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/value"
)

// errNulled is returned by FieldContext.Resolve when the resolved position
// had to be nulled and the reason is already recorded. Resolvers return it
// unchanged; the executor does not record it again.
var errNulled = errors.New("value nulled by a non-null failure below")

// IsNulled reports whether err signals a null already accounted for by an
// error deeper in the response.
func IsNulled(err error) bool { return errors.Is(err, errNulled) }

// FieldContext is a resolver's handle on its position in the response: the
// response path, the declared type at that position and the selection to
// execute beneath it.
type FieldContext struct {
	state      *executionState
	path       Path
	ref        *meta.TypeRef
	fields     []*language.Field
	parentType string
	fieldName  string
	errs       *errorBuffer
	resolved   bool
	// nonNull marks an inner context that completes a non-null position.
	nonNull bool
}

// Path returns the response path of this position.
func (fc *FieldContext) Path() Path { return append(Path(nil), fc.path...) }

// Type returns the declared type at this position.
func (fc *FieldContext) Type() *meta.TypeRef { return fc.ref }

// FieldName returns the name of the field being resolved.
func (fc *FieldContext) FieldName() string { return fc.fieldName }

// Variables returns the coerced variables of the request.
func (fc *FieldContext) Variables() Variables { return fc.state.variables }

// Shared returns the per-request context object.
func (fc *FieldContext) Shared() any { return fc.state.shared }

// Registry returns the sealed registry.
func (fc *FieldContext) Registry() *Registry { return fc.state.registry }

// Locations returns the document positions of the field.
func (fc *FieldContext) Locations() []Location { return locationsOf(fc.fields) }

// Selection returns the response names selected beneath this position for
// the given concrete type; an empty typeName includes every fragment.
func (fc *FieldContext) Selection(typeName string) []string {
	groups := collectFields(fc.state, typeName, mergeSelectionSets(fc.fields)).orderedFields()
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name()
	}
	return names
}

// at returns a context for a nested position sharing this field's
// selection.
func (fc *FieldContext) at(ref *meta.TypeRef, path Path, errs *errorBuffer) *FieldContext {
	return &FieldContext{
		state:      fc.state,
		path:       path,
		ref:        ref,
		fields:     fc.fields,
		parentType: fc.parentType,
		fieldName:  fc.fieldName,
		errs:       errs,
	}
}

// Resolve completes t at this position: objects execute the sub-selection,
// abstract types resolve their concrete type, leaves serialize. When the
// position must be nulled because of a failure below, the returned error
// satisfies IsNulled.
func (fc *FieldContext) Resolve(ctx context.Context, info any, t Type) (value.Value, error) {
	fc.resolved = true
	v, nulled := fc.state.completeType(ctx, fc, t, info)
	if nulled {
		return value.Null(), errNulled
	}
	return v, nil
}

// ResolveList completes each item against the list's element type. Items
// fail independently; an item that must be nulled but sits at a non-null
// element type nulls the whole list.
func (fc *FieldContext) ResolveList(ctx context.Context, info any, items []Type) (value.Value, error) {
	fc.resolved = true
	ref := fc.ref.Nullable()
	if ref.Kind != meta.TypeRefKindList {
		return value.Null(), fmt.Errorf("%s.%s is declared as %s, not a list", fc.parentType, fc.fieldName, fc.ref)
	}
	elem := ref.OfType

	// Leaves and nested lists resolve inline; composite items fan out.
	limit := 1
	if inner := elem.Nullable(); inner.Kind == meta.TypeRefKindNamed {
		if named, ok := fc.state.registry.meta.Lookup(inner.Named); ok && (named.Kind == meta.TypeKindObject || named.Kind.IsAbstract()) {
			limit = fc.state.listConcurrency
		}
	}

	out := make([]value.Value, len(items))
	bufs := make([]*errorBuffer, len(items))
	nulled := make([]bool, len(items))
	executeGroup(len(items), limit, func(i int) {
		bufs[i] = &errorBuffer{}
		item := fc.at(elem, appendPath(fc.path, i), bufs[i])
		out[i], nulled[i] = fc.state.completeItem(ctx, item, items[i], info)
	})

	failed := false
	for i := range items {
		fc.errs.merge(bufs[i])
		if nulled[i] {
			if elem.IsNonNull() {
				failed = true
			}
			out[i] = value.Null()
		}
	}
	if failed {
		return value.Null(), errNulled
	}
	return value.List(out...), nil
}

// completeItem completes one list item, recovering resolver panics at the
// item's position.
func (s *executionState) completeItem(ctx context.Context, fc *FieldContext, t Type, info any) (v value.Value, nulled bool) {
	if ctx.Err() != nil {
		return value.Null(), false
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cv, ok := r.(*ContractViolation); ok {
			s.violation.CompareAndSwap(nil, cv)
			v, nulled = value.Null(), false
			return
		}
		s.logger.LogPanic(ctx, r)
		fc.addError(&PanicError{Value: r})
		v, nulled = value.Null(), true
	}()
	return s.completeType(ctx, fc, t, info)
}

// complete settles a resolver's result at the field's position. It reports
// whether the failure must bubble to the parent.
func (fc *FieldContext) complete(v value.Value, err error) (value.Value, bool) {
	var nulled bool
	switch {
	case err != nil:
		if !errors.Is(err, errNulled) {
			fc.addError(err)
		}
		nulled = true
	case fc.resolved:
		v, nulled = fc.checkNull(v)
	default:
		v, nulled = fc.state.conform(fc, fc.ref, v)
	}
	if nulled {
		return value.Null(), fc.ref.IsNonNull()
	}
	return v, false
}

// checkNull records a null at a non-null position.
func (fc *FieldContext) checkNull(v value.Value) (value.Value, bool) {
	if v.IsNull() && fc.ref.IsNonNull() {
		fc.nullViolation()
		return value.Null(), true
	}
	return v, false
}

func (fc *FieldContext) nullViolation() {
	if fc.errs.hasErrorAtPath(fc.path) {
		return
	}
	fc.addError(fmt.Errorf("Cannot return null for non-nullable field %s.%s.", fc.parentType, fc.fieldName))
}

func (fc *FieldContext) addError(err error) {
	fc.errs.add(newExecutionError(err, fc.Path(), fc.Locations(), fc.nonNull || fc.ref.IsNonNull()))
}

// completeType completes capability t against the declared type at fc. It
// reports nulled when the value is Null because of a recorded failure.
func (s *executionState) completeType(ctx context.Context, fc *FieldContext, t Type, info any) (value.Value, bool) {
	for {
		u, ok := t.(Unwrapper)
		if !ok {
			break
		}
		t = u.Unwrap()
	}
	if isNullish(t) {
		t = nil
	}
	ref := fc.ref

	if ref.IsNonNull() {
		inner := fc.at(ref.OfType, fc.path, fc.errs)
		inner.nonNull = true
		v, nulled := s.completeType(ctx, inner, t, info)
		if nulled {
			return value.Null(), true
		}
		if v.IsNull() {
			fc.nullViolation()
			return value.Null(), true
		}
		return v, false
	}
	if t == nil {
		return value.Null(), false
	}

	if ref.Kind == meta.TypeRefKindList {
		vr, ok := t.(ValueResolver)
		if !ok {
			fc.addError(fmt.Errorf("%T cannot be resolved as %s", t, ref))
			return value.Null(), true
		}
		lfc := fc.at(ref, fc.path, fc.errs)
		lfc.nonNull = fc.nonNull
		v, err := vr.Resolve(ctx, info, lfc)
		if err != nil {
			return fc.settle(v, err)
		}
		if !lfc.resolved {
			return s.conform(fc, ref, v)
		}
		return v, false
	}

	named, ok := s.registry.meta.Lookup(ref.Named)
	if !ok {
		fc.addError(fmt.Errorf("unknown type %s", ref.Named))
		return value.Null(), true
	}

	switch named.Kind {
	case meta.TypeKindScalar, meta.TypeKindEnum:
		vr, ok := t.(ValueResolver)
		if !ok {
			fc.addError(fmt.Errorf("%T cannot be resolved as %s", t, named.Name))
			return value.Null(), true
		}
		v, err := vr.Resolve(ctx, info, fc)
		if err != nil {
			return fc.settle(v, err)
		}
		return s.conform(fc, ref, v)

	case meta.TypeKindObject:
		fr, ok := t.(FieldResolver)
		if !ok {
			fc.addError(fmt.Errorf("%T cannot be resolved as object %s", t, named.Name))
			return value.Null(), true
		}
		sub := mergeSelectionSets(fc.fields)
		return s.executeSelectionSet(ctx, fc.errs, named, fr, info, sub, fc.path, false)

	case meta.TypeKindInterface, meta.TypeKindUnion:
		ar, ok := t.(AbstractResolver)
		if !ok {
			// An object capability at an abstract position is its own
			// concrete type. Its name must not depend on info, which
			// belongs to the abstract position.
			if _, isObject := t.(FieldResolver); isObject {
				typeName := t.TypeName(info)
				if typeName == "" {
					fc.addError(fmt.Errorf("%T at abstract type %s must implement AbstractResolver", t, named.Name))
					return value.Null(), true
				}
				return s.completeConcrete(ctx, fc, named, typeName, func(cfc *FieldContext) (value.Value, error) {
					return cfc.Resolve(ctx, info, t)
				})
			}
			fc.addError(fmt.Errorf("%T cannot be resolved as abstract type %s", t, named.Name))
			return value.Null(), true
		}
		typeName, err := ar.ConcreteTypeName(ctx, info)
		if err != nil {
			return fc.settle(value.Null(), err)
		}
		return s.completeConcrete(ctx, fc, named, typeName, func(cfc *FieldContext) (value.Value, error) {
			return ar.ResolveIntoType(ctx, info, typeName, cfc)
		})
	}

	fc.addError(fmt.Errorf("cannot complete value of unexpected type %s", named.Kind))
	return value.Null(), true
}

func (s *executionState) completeConcrete(ctx context.Context, fc *FieldContext, abstract *meta.Type, typeName string, resolve func(*FieldContext) (value.Value, error)) (value.Value, bool) {
	concrete, ok := s.registry.meta.Lookup(typeName)
	if !ok || concrete.Kind != meta.TypeKindObject || !s.registry.meta.IsPossibleType(abstract.Name, typeName) {
		fc.addError(fmt.Errorf("Abstract type %s must resolve to an Object type at runtime for field %s.%s. Got: %q.",
			abstract.Name, fc.parentType, fc.fieldName, typeName))
		return value.Null(), true
	}
	cfc := fc.at(meta.NamedType(typeName), fc.path, fc.errs)
	cfc.nonNull = fc.nonNull
	v, err := resolve(cfc)
	if err != nil {
		return fc.settle(v, err)
	}
	if !cfc.resolved && !v.IsNull() {
		fc.addError(fmt.Errorf("%s.%s returned an unresolved %s value", fc.parentType, fc.fieldName, typeName))
		return value.Null(), true
	}
	return v, false
}

// settle turns a nested resolver's (value, error) into a completion result.
func (fc *FieldContext) settle(v value.Value, err error) (value.Value, bool) {
	if err != nil {
		if !errors.Is(err, errNulled) {
			fc.addError(err)
		}
		return value.Null(), true
	}
	return v, false
}

// conform checks a value a resolver produced without resolving through the
// executor against the declared type, recursing into lists.
func (s *executionState) conform(fc *FieldContext, ref *meta.TypeRef, v value.Value) (value.Value, bool) {
	if ref.IsNonNull() {
		if v.IsNull() {
			fc.nullViolation()
			return value.Null(), true
		}
		return s.conform(fc, ref.OfType, v)
	}
	if v.IsNull() {
		return v, false
	}
	if ref.Kind == meta.TypeRefKindList {
		items, ok := v.Items()
		if !ok {
			fc.addError(fmt.Errorf("expected a list for %s.%s, got %s", fc.parentType, fc.fieldName, v.Kind()))
			return value.Null(), true
		}
		elem := ref.OfType
		out := make([]value.Value, len(items))
		for i, it := range items {
			item := fc.at(elem, appendPath(fc.path, i), fc.errs)
			cv, nulled := s.conform(item, elem, it)
			if nulled {
				if elem.IsNonNull() {
					return value.Null(), true
				}
				cv = value.Null()
			}
			out[i] = cv
		}
		return value.List(out...), false
	}
	named, ok := s.registry.meta.Lookup(ref.Named)
	if !ok {
		fc.addError(fmt.Errorf("unknown type %s", ref.Named))
		return value.Null(), true
	}
	if named.Kind != meta.TypeKindScalar && named.Kind != meta.TypeKindEnum {
		fc.addError(fmt.Errorf("%s.%s returned an unresolved %s value", fc.parentType, fc.fieldName, named.Name))
		return value.Null(), true
	}
	if err := parseLeaf(s.registry, named, v); err != nil {
		fc.addError(err)
		return value.Null(), true
	}
	return v, false
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
