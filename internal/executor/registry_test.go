package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/meta"
	"github.com/hanpama/typegraph/internal/scalar"
	"github.com/hanpama/typegraph/internal/value"
)

func newScalarRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, s := range scalar.Builtins() {
		require.NoError(t, reg.RegisterScalar(s))
	}
	return reg
}

// Pattern: the same Go type with equal info is built once
func TestRegistryRef_SameOwnerBuildsOnce(t *testing.T) {
	reg := newScalarRegistry(t)
	root := attributeRoot{}
	info := []string{"foo"}

	require.Equal(t, "Query", reg.Ref(root, info).Named)
	require.Equal(t, "Query", reg.Ref(root, info).Named)
	reg.Meta().SetRootTypes("Query", "", "")
	require.NoError(t, reg.Finalize())
	require.True(t, reg.Meta().IsSealed())
}

// Pattern: two infos giving one name different shapes is a construction error
func TestRegistryRef_ConflictingInfo(t *testing.T) {
	reg := newScalarRegistry(t)
	root := attributeRoot{}

	reg.Ref(root, []string{"foo"})
	reg.Ref(root, []string{"bar"})
	reg.Meta().SetRootTypes("Query", "", "")

	err := reg.Finalize()
	require.ErrorIs(t, err, meta.ErrConflictingType)
	require.False(t, reg.Meta().IsSealed())
}

// Pattern: a type referring to itself resolves through a placeholder
func TestRegistryRef_Cycle(t *testing.T) {
	reg := newScalarRegistry(t)
	node := &testObject{name: "Node"}
	node.fields = []testField{
		{name: "id", typ: nonNull(stringType)},
		{name: "parent", typ: node},
		{name: "children", typ: nonNull(listOf(nonNull(node)))},
	}
	query := &testObject{name: "Query", fields: []testField{{name: "root", typ: node}}}

	reg.Meta().SetRootTypes(reg.Ref(query, nil).Named, "", "")
	require.NoError(t, reg.Finalize())

	children := reg.Meta().FieldOf("Node", "children")
	require.NotNil(t, children)
	require.Equal(t, "[Node!]!", children.Type.String())
}

func TestRegistryRef_WrapperWithoutName(t *testing.T) {
	reg := newScalarRegistry(t)
	query := &testObject{name: "Query", fields: []testField{{name: "bad", typ: testEnum{}}}}

	reg.Meta().SetRootTypes(reg.Ref(query, nil).Named, "", "")
	require.ErrorContains(t, reg.Finalize(), "declares no type name")
}

func TestRegistryScalar(t *testing.T) {
	reg := newScalarRegistry(t)
	reg.Ref(testLeaf{s: scalar.DateTime}, nil)

	s, ok := reg.Scalar("DateTime")
	require.True(t, ok)
	require.Equal(t, scalar.DateTime.Name(), s.Name())
	_, ok = reg.Scalar("Missing")
	require.False(t, ok)
}

// Pattern: a name requested by another owner while its first build is
// running is still checked for a conflicting shape
func TestRegistryRef_ConflictDuringOwnBuild(t *testing.T) {
	reg := newScalarRegistry(t)
	other := &testObject{name: "A", fields: []testField{{name: "y", typ: stringType}}}
	a := &testObject{name: "A", fields: []testField{
		{name: "x", typ: stringType},
		{name: "self", typ: other},
	}}
	query := &testObject{name: "Query", fields: []testField{{name: "a", typ: a}}}

	reg.Meta().SetRootTypes(reg.Ref(query, nil).Named, "", "")
	err := reg.Finalize()
	require.ErrorIs(t, err, meta.ErrConflictingType)
	require.ErrorContains(t, err, `"A"`)
}

// otherDateTime is a second implementation named DateTime.
type otherDateTime struct{}

func (otherDateTime) Name() string           { return "DateTime" }
func (otherDateTime) Description() string    { return "" }
func (otherDateTime) SpecifiedByURL() string { return "" }
func (otherDateTime) ParseValue(v value.Value) (any, error) {
	return scalar.DateTime.ParseValue(v)
}
func (otherDateTime) Serialize(v any) (value.Value, error) { return scalar.DateTime.Serialize(v) }
func (otherDateTime) ParseText(s string) (any, error)      { return scalar.DateTime.ParseText(s) }

// Pattern: two scalar implementations sharing a name is a construction error
func TestRegistryScalar_ConflictingImplementations(t *testing.T) {
	reg := newScalarRegistry(t)
	query := &testObject{name: "Query", fields: []testField{
		{name: "created", typ: testLeaf{s: scalar.DateTime}},
		{name: "updated", typ: testLeaf{s: otherDateTime{}}},
		{name: "again", typ: testLeaf{s: scalar.DateTime}},
	}}

	reg.Meta().SetRootTypes(reg.Ref(query, nil).Named, "", "")
	err := reg.Finalize()
	require.ErrorIs(t, err, meta.ErrConflictingType)
	require.ErrorContains(t, err, `scalar "DateTime"`)

	s, ok := reg.Scalar("DateTime")
	require.True(t, ok)
	require.Equal(t, scalar.DateTime, s)
}
