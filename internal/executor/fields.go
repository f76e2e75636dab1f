package executor

import (
	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/value"
)

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

// Name returns the field name shared by the merged AST nodes.
func (cf collectedField) Name() string { return cf.Fields[0].Name }

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{
		fields: make([]collectedField, 0),
		index:  make(map[string]int),
	}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields collects the fields of a selection set that apply to the
// given object type, merging fields with the same response name.
func collectFields(state *executionState, objectTypeName string, selectionSet language.SelectionSet) *collectedFieldMap {
	groupedFields := newCollectedFieldMap()
	visitedFragments := make(map[string]bool)

	collectFieldsImpl(state, objectTypeName, selectionSet, groupedFields, visitedFragments)

	return groupedFields
}

func collectFieldsImpl(state *executionState, objectTypeName string, selectionSet language.SelectionSet, groupedFields *collectedFieldMap, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			groupedFields.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if !doesFragmentConditionMatch(state, sel.TypeCondition, objectTypeName) {
				continue
			}
			collectFieldsImpl(state, objectTypeName, sel.SelectionSet, groupedFields, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragmentDef := getFragmentDefinition(state.document, sel.Name)
			if fragmentDef == nil {
				continue
			}
			if !doesFragmentConditionMatch(state, fragmentDef.TypeCondition, objectTypeName) {
				continue
			}
			if !shouldIncludeNode(state, fragmentDef.Directives) {
				continue
			}
			collectFieldsImpl(state, objectTypeName, fragmentDef.SelectionSet, groupedFields, visitedFragments)
		}
	}
}

// doesFragmentConditionMatch accepts the object type itself, an interface it
// implements, or a union containing it. An empty objectTypeName (look-ahead
// on an abstract position) accepts every fragment.
func doesFragmentConditionMatch(state *executionState, condition, objectTypeName string) bool {
	if condition == "" || objectTypeName == "" {
		return true
	}
	return state.registry.meta.IsPossibleType(condition, objectTypeName)
}

// shouldIncludeNode checks if a node should be included based on directives
func shouldIncludeNode(state *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := getDirectiveArgumentValue(state, skip, "if"); ok {
			if b, ok := v.AsBoolean(); ok && b {
				return false
			}
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := getDirectiveArgumentValue(state, include, "if"); ok {
			if b, ok := v.AsBoolean(); ok && !b {
				return false
			}
		}
	}
	return true
}

func getDirectiveArgumentValue(state *executionState, directive *language.Directive, argName string) (value.Value, bool) {
	arg := directive.Arguments.ForName(argName)
	if arg == nil {
		return value.Null(), false
	}
	return valueFromAST(arg.Value, state.variables)
}

// getFragmentDefinition finds a fragment definition by name in the document
func getFragmentDefinition(document *language.QueryDocument, name string) *language.FragmentDefinition {
	if fd := document.Fragments.ForName(name); fd != nil {
		return fd
	}
	for _, f := range document.Fragments {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

func locationsOf(fields []*language.Field) []Location {
	locs := make([]Location, 0, len(fields))
	for _, f := range fields {
		if f.Position != nil {
			locs = append(locs, Location{Line: f.Position.Line, Column: f.Position.Column})
		}
	}
	if len(locs) == 0 {
		return nil
	}
	return locs
}
