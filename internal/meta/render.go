package meta

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/typegraph/internal/value"
)

var builtinScalars = map[string]bool{"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true}

// Render produces SDL from the registry.
// Deterministic ordering: type/directive names sorted lexicographically.
func Render(r *Registry) string {
	if r == nil {
		return ""
	}
	var b strings.Builder

	if r.MutationType != "" || r.SubscriptionType != "" || r.QueryType != "Query" {
		b.WriteString("schema {\n")
		if r.QueryType != "" {
			b.WriteString("  query: " + r.QueryType + "\n")
		}
		if r.MutationType != "" {
			b.WriteString("  mutation: " + r.MutationType + "\n")
		}
		if r.SubscriptionType != "" {
			b.WriteString("  subscription: " + r.SubscriptionType + "\n")
		}
		b.WriteString("}\n\n")
	}

	types := r.Types()
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	for _, typ := range types {
		if typ.Kind == TypeKindScalar && builtinScalars[typ.Name] {
			continue
		}
		switch typ.Kind {
		case TypeKindScalar:
			renderScalar(&b, typ)
		case TypeKindEnum:
			renderEnum(&b, typ)
		case TypeKindInputObject:
			renderInputObject(&b, r, typ)
		case TypeKindObject:
			renderObject(&b, r, "type", typ)
		case TypeKindInterface:
			renderObject(&b, r, "interface", typ)
		case TypeKindUnion:
			renderUnion(&b, typ)
		}
	}

	directives := append([]*Directive(nil), r.Directives()...)
	sort.Slice(directives, func(i, j int) bool { return directives[i].Name < directives[j].Name })
	for _, d := range directives {
		if isBuiltinDirective(d) {
			continue
		}
		renderDirective(&b, r, d)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ----- render helpers -----

func renderDescription(b *strings.Builder, indent, desc string) {
	if desc == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
}

func renderDeprecated(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		b.WriteString("(reason: ")
		b.WriteString(strconv.Quote(reason))
		b.WriteString(")")
	}
}

func renderScalar(b *strings.Builder, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString("scalar ")
	b.WriteString(typ.Name)
	if typ.SpecifiedByURL != "" {
		b.WriteString(" @specifiedBy(url: ")
		b.WriteString(strconv.Quote(typ.SpecifiedByURL))
		b.WriteString(")")
	}
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString("enum ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, val := range typ.EnumValues {
		renderDescription(b, "  ", val.Description)
		b.WriteString("  ")
		b.WriteString(val.Name)
		renderDeprecated(b, val.IsDeprecated, val.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, r *Registry, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString("input ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, field := range typ.InputFields {
		renderDescription(b, "  ", field.Description)
		b.WriteString("  ")
		renderInputValue(b, r, field)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderObject(b *strings.Builder, r *Registry, keyword string, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString(keyword)
	b.WriteString(" ")
	b.WriteString(typ.Name)
	if len(typ.Interfaces) > 0 {
		b.WriteString(" implements ")
		b.WriteString(strings.Join(typ.Interfaces, " & "))
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderField(b, r, field)
	}
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, typ *Type) {
	renderDescription(b, "", typ.Description)
	b.WriteString("union ")
	b.WriteString(typ.Name)
	b.WriteString(" = ")
	b.WriteString(strings.Join(typ.PossibleTypes, " | "))
	b.WriteString("\n\n")
}

func renderField(b *strings.Builder, r *Registry, field *Field) {
	renderDescription(b, "  ", field.Description)
	b.WriteString("  ")
	b.WriteString(field.Name)
	renderArguments(b, r, field.Arguments)
	b.WriteString(": ")
	b.WriteString(field.Type.String())
	renderDeprecated(b, field.IsDeprecated, field.DeprecationReason)
	b.WriteString("\n")
}

func renderArguments(b *strings.Builder, r *Registry, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		renderInputValue(b, r, arg)
	}
	b.WriteString(")")
}

func renderInputValue(b *strings.Builder, r *Registry, iv *InputValue) {
	b.WriteString(iv.Name)
	b.WriteString(": ")
	b.WriteString(iv.Type.String())
	if iv.DefaultValue != nil {
		b.WriteString(" = ")
		b.WriteString(RenderValue(r, iv.Type, *iv.DefaultValue))
	}
}

func renderDirective(b *strings.Builder, r *Registry, directive *Directive) {
	renderDescription(b, "", directive.Description)
	b.WriteString("directive @")
	b.WriteString(directive.Name)
	renderArguments(b, r, directive.Arguments)
	if directive.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on ")
	b.WriteString(strings.Join(directive.Locations, " | "))
	b.WriteString("\n\n")
}

// RenderValue renders v as a literal of the given input type. Enum values
// are written unquoted.
func RenderValue(r *Registry, ref *TypeRef, v value.Value) string {
	if v.IsNull() {
		return "null"
	}
	if ref != nil && ref.IsNonNull() {
		ref = ref.OfType
	}
	if items, ok := v.Items(); ok {
		var inner *TypeRef
		if ref != nil && ref.Kind == TypeRefKindList {
			inner = ref.OfType
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = RenderValue(r, inner, it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	var named *Type
	if ref != nil && r != nil {
		named, _ = r.Lookup(ref.GetNamedType())
	}
	if obj, ok := v.Object(); ok {
		parts := make([]string, 0, obj.Len())
		obj.Range(func(k string, fv value.Value) bool {
			var fref *TypeRef
			if named != nil {
				if f := named.InputField(k); f != nil {
					fref = f.Type
				}
			}
			parts = append(parts, k+": "+RenderValue(r, fref, fv))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if s, ok := v.AsString(); ok && named != nil && named.Kind == TypeKindEnum {
		return s
	}
	return v.String()
}
