package catalog

import (
	"context"
	"fmt"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/node"
	"github.com/hanpama/typegraph/internal/types"
)

var (
	idArg = &types.ArgDef{Name: "id", Type: types.NonNullOf(types.IDType)}
	nodeT = node.Node{}
)

func (c *Catalog) singleField(t *table) *types.FieldDef {
	return &types.FieldDef{
		Name:        t.single,
		Description: fmt.Sprintf("Looks up one %s by id.", t.info.Name),
		Type:        nodeT,
		Info:        t.info,
		Args:        []*types.ArgDef{idArg},
		Async:       true,
		Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
			id, _ := args.String("id")
			return c.load(ctx, t, id)
		},
	}
}

func (c *Catalog) pluralField(t *table) *types.FieldDef {
	return &types.FieldDef{
		Name:        t.plural,
		Description: fmt.Sprintf("Looks up %s records by id, in order; null where absent.", t.info.Name),
		Type:        types.NonNullOf(types.ListOf(nodeT)),
		Info:        t.info,
		Args:        []*types.ArgDef{{Name: "ids", Type: types.NonNullOf(types.ListOf(types.NonNullOf(types.IDType)))}},
		Async:       true,
		Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
			ids, _ := args.Strings("ids")
			keys := make([]string, len(ids))
			for i, id := range ids {
				keys[i] = t.info.Key(id)
			}
			recs, err := c.store.GetMany(ctx, keys)
			if err != nil {
				return nil, err
			}
			items := make([]executor.Type, len(recs))
			for i, rec := range recs {
				if rec != nil {
					items[i] = node.Node{Key: keys[i], Record: rec}
				}
			}
			return types.Items(items...), nil
		},
	}
}

func (c *Catalog) recordField() *types.FieldDef {
	return &types.FieldDef{
		Name:        "record",
		Description: "Looks up a record of any table.",
		Type:        node.Interface{},
		Info:        c.record,
		Args:        []*types.ArgDef{{Name: "table", Type: types.NonNullOf(types.StringType)}, idArg},
		Async:       true,
		Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
			name, _ := args.String("table")
			id, _ := args.String("id")
			t, ok := c.byName[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
			}
			loaded, err := c.load(ctx, t, id)
			if loaded == nil || err != nil {
				return nil, err
			}
			return node.Interface{Info: t.info, Node: loaded.(node.Node)}, nil
		},
	}
}

func (c *Catalog) keysField() *types.FieldDef {
	return &types.FieldDef{
		Name:        "keys",
		Description: "Lists stored keys starting with prefix.",
		Type:        types.NonNullOf(types.ListOf(types.NonNullOf(types.StringType))),
		Args:        []*types.ArgDef{{Name: "prefix", Type: types.StringType}},
		Async:       true,
		Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
			prefix, _ := args.String("prefix")
			keys, err := c.store.Keys(ctx, prefix)
			if err != nil {
				return nil, err
			}
			items := make([]executor.Type, len(keys))
			for i, k := range keys {
				items[i] = types.String(k)
			}
			return types.Items(items...), nil
		},
	}
}

func (c *Catalog) tablesField() *types.FieldDef {
	return &types.FieldDef{
		Name:        "tables",
		Description: "Names of the tables.",
		Type:        types.NonNullOf(types.ListOf(types.NonNullOf(types.StringType))),
		Resolve: func(context.Context, any, executor.Arguments, *executor.FieldContext) (executor.Type, error) {
			names := c.TableNames()
			items := make([]executor.Type, len(names))
			for i, n := range names {
				items[i] = types.String(n)
			}
			return types.Items(items...), nil
		},
	}
}

func (c *Catalog) putField(t *table) *types.FieldDef {
	return &types.FieldDef{
		Name:        t.putField,
		Description: fmt.Sprintf("Creates or replaces a %s.", t.info.Name),
		Type:        types.NonNullOf(nodeT),
		Info:        t.info,
		Args: []*types.ArgDef{
			idArg,
			{Name: "input", Type: types.NonNullOf(node.Input{}), Info: t.info},
		},
		Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
			id, _ := args.String("id")
			input, _ := args.Get("input")
			rec, err := node.RecordFromInput(t.info, input)
			if err != nil {
				return nil, err
			}
			key := t.info.Key(id)
			if err := c.store.Put(ctx, key, rec); err != nil {
				return nil, err
			}
			return node.Node{Key: key, Record: rec}, nil
		},
	}
}

func (c *Catalog) deleteField(t *table) *types.FieldDef {
	return &types.FieldDef{
		Name:        t.deleteName,
		Description: fmt.Sprintf("Deletes a %s and reports whether it existed.", t.info.Name),
		Type:        types.NonNullOf(types.BooleanType),
		Args:        []*types.ArgDef{idArg},
		Resolve: func(ctx context.Context, _ any, args executor.Arguments, _ *executor.FieldContext) (executor.Type, error) {
			id, _ := args.String("id")
			found, err := c.store.Delete(ctx, t.info.Key(id))
			if err != nil {
				return nil, err
			}
			return types.Boolean(found), nil
		},
	}
}
