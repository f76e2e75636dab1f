package meta

var includeDirective = &Directive{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

func isBuiltinDirective(d *Directive) bool {
	return d == includeDirective || d == skipDirective
}
