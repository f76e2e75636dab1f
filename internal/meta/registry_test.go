package meta

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/value"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range []string{"String", "Int", "Boolean"} {
		require.NoError(t, r.Register(NewType(name, TypeKindScalar)))
	}
	r.SetRootTypes("Query", "", "")
	return r
}

// Pattern: a type that refers to itself gets a placeholder that the outer build replaces
func TestGetOrBuildCycle(t *testing.T) {
	r := newTestRegistry(t)

	var buildNode func() (*Type, error)
	buildNode = func() (*Type, error) {
		self, err := r.GetOrBuild("Node", "node", buildNode)
		if err != nil {
			return nil, err
		}
		placeholder, ok := r.Lookup("Node")
		require.True(t, ok)
		require.Equal(t, TypeKindPlaceholder, placeholder.Kind)
		return NewType("Node", TypeKindObject).
			AddField(NewField("parent", self)).
			AddField(NewField("children", NonNullType(ListType(NonNullType(self))))), nil
	}

	ref, err := r.GetOrBuild("Node", "node", buildNode)
	require.NoError(t, err)
	require.Equal(t, "Node", ref.Named)

	_, err = r.GetOrBuild("Query", "query", func() (*Type, error) {
		return NewType("Query", TypeKindObject).AddField(NewField("root", ref)), nil
	})
	require.NoError(t, err)
	require.NoError(t, r.Finalize())

	node, ok := r.Lookup("Node")
	require.True(t, ok)
	require.Equal(t, TypeKindObject, node.Kind)
	require.Equal(t, "[Node!]!", node.Field("children").Type.String())
}

func TestConflictingBuilders(t *testing.T) {
	r := newTestRegistry(t)
	build := func(fields ...string) func() (*Type, error) {
		return func() (*Type, error) {
			typ := NewType("Row", TypeKindObject)
			for _, f := range fields {
				typ.AddField(NewField(f, NamedType("String")))
			}
			return typ, nil
		}
	}

	_, err := r.GetOrBuild("Row", "a", build("x", "y"))
	require.NoError(t, err)

	t.Run("same shape from another builder is accepted", func(t *testing.T) {
		_, err := r.GetOrBuild("Row", "b", build("x", "y"))
		require.NoError(t, err)
	})

	t.Run("different shape is rejected", func(t *testing.T) {
		_, err := r.GetOrBuild("Row", "c", build("x"))
		require.ErrorIs(t, err, ErrConflictingType)
	})

	_, err = r.GetOrBuild("Query", "query", func() (*Type, error) {
		return NewType("Query", TypeKindObject).AddField(NewField("row", NamedType("Row"))), nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, r.Finalize(), ErrConflictingType)
	require.False(t, r.IsSealed())
}

// Pattern: a second builder asking for a name during its first build is
// still compared once that build completes
func TestConflictingBuilderDuringBuild(t *testing.T) {
	build := func(r *Registry, other []string) func() (*Type, error) {
		return func() (*Type, error) {
			typ := NewType("A", TypeKindObject).AddField(NewField("x", NamedType("String")))
			self, err := r.GetOrBuild("A", "other", func() (*Type, error) {
				t := NewType("A", TypeKindObject)
				for _, f := range other {
					t.AddField(NewField(f, NamedType("String")))
				}
				return t, nil
			})
			if err != nil {
				return nil, err
			}
			return typ.AddField(NewField("self", self)), nil
		}
	}

	t.Run("different shape", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.GetOrBuild("A", "first", build(r, []string{"y"}))
		require.NoError(t, err)
		r.SetRootTypes("A", "", "")
		err = r.Finalize()
		require.ErrorIs(t, err, ErrConflictingType)
		require.Contains(t, err.Error(), `"A"`)
	})

	t.Run("same shape", func(t *testing.T) {
		r := newTestRegistry(t)
		build := func() (*Type, error) {
			typ := NewType("A", TypeKindObject).AddField(NewField("x", NamedType("String")))
			self, err := r.GetOrBuild("A", "other", func() (*Type, error) {
				return NewType("A", TypeKindObject).
					AddField(NewField("x", NamedType("String"))).
					AddField(NewField("self", NamedType("A"))), nil
			})
			if err != nil {
				return nil, err
			}
			return typ.AddField(NewField("self", self)), nil
		}
		_, err := r.GetOrBuild("A", "first", build)
		require.NoError(t, err)
		r.SetRootTypes("A", "", "")
		require.NoError(t, r.Finalize())
	})
}

func TestFinalizeReportsAllProblems(t *testing.T) {
	r := newTestRegistry(t)
	r.Reserve("Pending")
	require.NoError(t, r.Register(NewType("In", TypeKindInputObject).
		AddInputField(NewInputValue("v", NamedType("String")))))
	require.NoError(t, r.Register(NewType("Query", TypeKindObject).
		AddField(NewField("missing", NamedType("Nope"))).
		AddField(NewField("wrong", NamedType("In"))).
		AddField(NewField("pending", NamedType("Pending")))))

	err := r.Finalize()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownType))
	require.True(t, errors.Is(err, ErrInvalidTypePosition))
	require.True(t, errors.Is(err, ErrUnresolvedPlaceholder))
}

func TestFinalizeSealsAndComputesPossibleTypes(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(NewType("Record", TypeKindInterface).
		AddField(NewField("id", NonNullType(NamedType("String"))))))
	for _, name := range []string{"User", "Post"} {
		require.NoError(t, r.Register(NewType(name, TypeKindObject).
			AddInterface("Record").
			AddField(NewField("id", NonNullType(NamedType("String"))))))
	}
	require.NoError(t, r.Register(NewType("Any", TypeKindUnion).AddPossibleType("Post")))
	require.NoError(t, r.Register(NewType("Query", TypeKindObject).
		AddField(NewField("record", NamedType("Record"))).
		AddField(NewField("any", NamedType("Any")))))
	require.NoError(t, r.Finalize())

	if diff := cmp.Diff([]string{"User", "Post"}, r.PossibleTypes("Record")); diff != "" {
		t.Errorf("possible types mismatch (-want +got):\n%s", diff)
	}
	require.True(t, r.IsPossibleType("Record", "User"))
	require.True(t, r.IsPossibleType("Any", "Post"))
	require.False(t, r.IsPossibleType("Any", "User"))
	require.True(t, r.IsPossibleType("User", "User"))

	err := r.Register(NewType("Late", TypeKindScalar))
	require.ErrorIs(t, err, ErrSealed)
	_, err = r.GetOrBuild("Late", "k", func() (*Type, error) { return nil, nil })
	require.ErrorIs(t, err, ErrSealed)
}

func TestInterfaceImplementationChecked(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(NewType("Record", TypeKindInterface).
		AddField(NewField("id", NamedType("String")))))
	require.NoError(t, r.Register(NewType("Query", TypeKindObject).
		AddInterface("Record").
		AddField(NewField("other", NamedType("String")))))
	require.ErrorIs(t, r.Finalize(), ErrInvalidInterface)
}

func TestRender(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(NewType("Color", TypeKindEnum).
		AddEnumValue(&EnumValue{Name: "RED"}).
		AddEnumValue(&EnumValue{Name: "BLUE", IsDeprecated: true, DeprecationReason: "gone"})))
	require.NoError(t, r.Register(NewType("Query", TypeKindObject).
		SetDescription("Entry point.").
		AddField(NewField("paint", NamedType("String")).
			AddArgument(NewInputValue("color", NamedType("Color")).SetDefault(value.String("RED"))).
			AddArgument(NewInputValue("times", NonNullType(NamedType("Int"))))).
		AddField(NewField("old", NamedType("String")).Deprecate(""))))
	require.NoError(t, r.Finalize())

	want := `enum Color {
  RED
  BLUE @deprecated(reason: "gone")
}

"""
Entry point.
"""
type Query {
  paint(color: Color = RED, times: Int!): String
  old: String @deprecated
}
`
	if diff := cmp.Diff(want, Render(r)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}
