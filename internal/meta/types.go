// Package meta holds the schema-level description of types and the registry
// that collects them while domain types declare their shape.
package meta

import (
	"github.com/hanpama/typegraph/internal/value"
)

// TypeKind represents the kind of a named type.
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
	// TypeKindPlaceholder marks a type whose construction is still in
	// progress. None may remain after Finalize.
	TypeKindPlaceholder TypeKind = "PLACEHOLDER"
)

// IsOutput reports whether values of this kind may be returned by fields.
func (k TypeKind) IsOutput() bool {
	switch k {
	case TypeKindScalar, TypeKindObject, TypeKindInterface, TypeKindUnion, TypeKindEnum:
		return true
	}
	return false
}

// IsInput reports whether values of this kind may be passed as arguments.
func (k TypeKind) IsInput() bool {
	switch k {
	case TypeKindScalar, TypeKindEnum, TypeKindInputObject:
		return true
	}
	return false
}

// IsAbstract reports whether the kind is an interface or a union.
func (k TypeKind) IsAbstract() bool {
	return k == TypeKindInterface || k == TypeKindUnion
}

// Type is a named type (object, interface, union, scalar, enum, input).
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE
	PossibleTypes  []string      // For UNION; computed for INTERFACE on Finalize
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL string
}

// NewType starts a named type of the given kind.
func NewType(name string, kind TypeKind) *Type {
	return &Type{Name: name, Kind: kind}
}

func (t *Type) SetDescription(desc string) *Type {
	t.Description = desc
	return t
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(iv *InputValue) *Type {
	t.InputFields = append(t.InputFields, iv)
	return t
}

// Field returns the output field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field with the given name, or nil.
func (t *Type) InputField(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// EnumValue returns the enum value with the given name, or nil.
func (t *Type) EnumValue(name string) *EnumValue {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Field represents a field on an object or interface.
type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Arguments   []*InputValue
	// Async marks fields whose resolvers perform I/O. Async siblings are
	// resolved concurrently; the rest run inline in selection order.
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
}

func NewField(name string, typ *TypeRef) *Field {
	return &Field{Name: name, Type: typ}
}

func (f *Field) SetDescription(desc string) *Field {
	f.Description = desc
	return f
}

func (f *Field) SetAsync() *Field {
	f.Async = true
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func (f *Field) AddArgument(iv *InputValue) *Field {
	f.Arguments = append(f.Arguments, iv)
	return f
}

// Argument returns the argument with the given name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

// InputValue is an argument or input object field.
type InputValue struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue *value.Value // nil when no default is declared
}

func NewInputValue(name string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Type: typ}
}

func (iv *InputValue) SetDescription(desc string) *InputValue {
	iv.Description = desc
	return iv
}

func (iv *InputValue) SetDefault(v value.Value) *InputValue {
	iv.DefaultValue = &v
	return iv
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

// TypeRef represents a reference to a type (can be wrapped). Named types are
// referenced by name; the registry resolves them.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func NonNullType(t *TypeRef) *TypeRef {
	if t.IsNonNull() {
		return t
	}
	return &TypeRef{Kind: TypeRefKindNonNull, OfType: t}
}
func ListType(t *TypeRef) *TypeRef   { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

// IsList reports whether the type is a list, possibly wrapped in Non-Null.
func (t *TypeRef) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeRefKindList {
		return true
	}
	return t.Kind == TypeRefKindNonNull && t.OfType != nil && t.OfType.Kind == TypeRefKindList
}

// Unwrap removes one layer of Non-Null or List wrapping.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// Nullable strips a Non-Null wrapper if present.
func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

// GetNamedType returns the innermost named type.
func (t *TypeRef) GetNamedType() string {
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Named != "" {
			return cur.Named
		}
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[Node!]!".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return ""
}
