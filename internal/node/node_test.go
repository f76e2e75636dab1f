package node_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/node"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/types"
	"github.com/hanpama/typegraph/internal/value"
)

func query(t *testing.T, root *schema.RootNode, q string) (string, []string) {
	t.Helper()
	res := root.ExecuteRequest(context.Background(), schema.Request{Query: q})
	data, err := res.Data.MarshalJSON()
	require.NoError(t, err)
	var errs []string
	for _, e := range res.Errors {
		errs = append(errs, e.Path.String()+": "+e.Message)
	}
	return string(data), errs
}

// Pattern: the schema's shape comes from TypeInfo alone
func TestNodeAsRoot(t *testing.T) {
	info := &node.Info{
		Name:       "MyNode",
		Attributes: []node.Attribute{{Name: "foo"}, {Name: "bar"}, {Name: "baz"}},
	}
	root, err := schema.NewWithInfo(
		node.Node{Record: kvstore.Record{"foo": "1", "bar": "2", "baz": "3"}},
		types.EmptyMutation{},
		types.EmptySubscription{},
		info, nil, nil,
	)
	require.NoError(t, err)

	got, errs := query(t, root, `{ foo, bar, baz }`)
	require.Empty(t, errs)
	require.Equal(t, `{"foo":"1","bar":"2","baz":"3"}`, got)

	mt, ok := root.Registry().Meta().Lookup("MyNode")
	require.True(t, ok)
	var names []string
	for _, f := range mt.Fields {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"foo", "bar", "baz"}, names)
}

func TestTypedAttributes(t *testing.T) {
	info := &node.Info{
		Name:      "Person",
		KeyField:  "id",
		KeyPrefix: "person:",
		Attributes: []node.Attribute{
			{Name: "name", Required: true},
			{Name: "age", Type: "Int"},
			{Name: "height", Type: "Float"},
			{Name: "active", Type: "Boolean"},
			{Name: "born", Type: "DateTime"},
		},
	}
	tests := []struct {
		name   string
		record kvstore.Record
		want   string
		errs   []string
	}{
		{
			name:   "complete",
			record: kvstore.Record{"name": "Ann", "age": int64(41), "height": 1.7, "active": true, "born": "1984-03-01T00:00:00Z"},
			want:   `{"id":"7","name":"Ann","age":41,"height":1.7,"active":true,"born":"1984-03-01T00:00:00Z"}`,
		},
		{
			name:   "absent optional attributes",
			record: kvstore.Record{"name": "Bo"},
			want:   `{"id":"7","name":"Bo","age":null,"height":null,"active":null,"born":null}`,
		},
		{
			name:   "missing required attribute",
			record: kvstore.Record{"age": int64(3)},
			want:   `null`,
			errs:   []string{"name: Cannot return null for non-nullable field Person.name."},
		},
		{
			name:   "stored value of the wrong type",
			record: kvstore.Record{"name": "Cy", "age": "old"},
			want:   `{"id":"7","name":"Cy","age":null,"height":null,"active":null,"born":null}`,
			errs:   []string{`age: invalid scalar value: Int cannot represent old`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := schema.NewWithInfo(node.Node{Key: "person:7", Record: tt.record}, nil, nil, info, nil, nil)
			require.NoError(t, err)
			got, errs := query(t, root, `{ id name age height active born }`)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("data mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.errs, errs); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnknownAttributeType(t *testing.T) {
	info := &node.Info{Name: "Bad", Attributes: []node.Attribute{{Name: "x", Type: "Decimal"}}}
	_, err := schema.NewWithInfo(node.Node{}, nil, nil, info, nil, nil)
	require.ErrorContains(t, err, `attribute "x" has unknown type "Decimal"`)
}

func TestRecordFromInput(t *testing.T) {
	info := &node.Info{
		Name: "Person",
		Attributes: []node.Attribute{
			{Name: "name", Required: true},
			{Name: "age", Type: "Int"},
			{Name: "tag", Type: "UUID"},
		},
	}
	obj := func(kv ...any) value.Value {
		o := value.NewObject(len(kv) / 2)
		for i := 0; i < len(kv); i += 2 {
			o.Set(kv[i].(string), kv[i+1].(value.Value))
		}
		return value.FromObject(o)
	}

	rec, err := node.RecordFromInput(info, obj(
		"name", value.String("Ann"),
		"age", value.Int(41),
		"tag", value.String("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
	))
	require.NoError(t, err)
	want := kvstore.Record{"name": "Ann", "age": int64(41), "tag": "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	rec, err = node.RecordFromInput(info, obj("name", value.String("Bo"), "age", value.Null()))
	require.NoError(t, err)
	require.Equal(t, kvstore.Record{"name": "Bo"}, rec)

	_, err = node.RecordFromInput(info, obj("age", value.Int(1)))
	require.ErrorContains(t, err, "Person.name is required")
	_, err = node.RecordFromInput(info, obj("name", value.String("x"), "nick", value.String("y")))
	require.ErrorContains(t, err, `no attribute "nick"`)
	_, err = node.RecordFromInput(info, obj("name", value.String("x"), "tag", value.String("nope")))
	require.ErrorContains(t, err, "Person.tag")
	_, err = node.RecordFromInput(info, value.String("x"))
	require.Error(t, err)
}
