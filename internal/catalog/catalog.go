// Package catalog builds a complete schema over tables of nodes kept in a
// key-value store. Each table gets a node type, lookups by id, a
// put and a delete mutation; every node implements the Record interface.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-openapi/inflect"

	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/node"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/types"
)

var (
	ErrUnknownTable = errors.New("catalog: unknown table")
	ErrInvalidTable = errors.New("catalog: invalid table")
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Table describes one table: its name (lower snake case, usually plural)
// and the attributes of its records.
type Table struct {
	Name        string
	Description string
	Attributes  []node.Attribute
}

type table struct {
	Table
	info       *node.Info
	single     string // field of the lookup by id
	plural     string // field of the lookup by ids
	putField   string
	deleteName string
}

// Catalog is the set of tables served from one store.
type Catalog struct {
	store  kvstore.Store
	tables []*table
	byName map[string]*table
	record *node.InterfaceInfo
}

// New validates tables and derives their type and field names.
func New(store kvstore.Store, tables []Table) (*Catalog, error) {
	c := &Catalog{
		store:  store,
		byName: make(map[string]*table, len(tables)),
		record: &node.InterfaceInfo{
			Name:        "Record",
			Description: "A record stored in one of the tables.",
			KeyField:    "id",
		},
	}
	var errs []error
	fields := map[string]string{"record": "", "keys": "", "tables": ""}
	for _, tdef := range tables {
		if !validName.MatchString(tdef.Name) {
			errs = append(errs, fmt.Errorf("%w: name %q must be lower snake case", ErrInvalidTable, tdef.Name))
			continue
		}
		if _, dup := c.byName[tdef.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %q is declared twice", ErrInvalidTable, tdef.Name))
			continue
		}
		singular := inflect.Singularize(tdef.Name)
		typeName := inflect.Camelize(singular)
		t := &table{
			Table:      tdef,
			single:     inflect.CamelizeDownFirst(singular),
			plural:     inflect.CamelizeDownFirst(inflect.Pluralize(singular)),
			putField:   "put" + typeName,
			deleteName: "delete" + typeName,
			info: &node.Info{
				Name:        typeName,
				Description: tdef.Description,
				KeyField:    "id",
				KeyPrefix:   tdef.Name + ":",
				Attributes:  tdef.Attributes,
				Interfaces:  []*node.InterfaceInfo{c.record},
			},
		}
		if t.plural == t.single {
			t.plural += "List"
		}
		if len(tdef.Attributes) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s declares no attributes", ErrInvalidTable, tdef.Name))
		}
		for _, a := range tdef.Attributes {
			if a.Name == "id" {
				errs = append(errs, fmt.Errorf("%w: %s declares the reserved attribute \"id\"", ErrInvalidTable, tdef.Name))
			}
		}
		for _, f := range []string{t.single, t.plural} {
			if owner, taken := fields[f]; taken {
				errs = append(errs, fmt.Errorf("%w: field %q of %s collides with %q", ErrInvalidTable, f, tdef.Name, owner))
			}
			fields[f] = tdef.Name
		}
		c.tables = append(c.tables, t)
		c.byName[tdef.Name] = t
		c.record.Members = append(c.record.Members, t.info)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// TableNames lists the tables in declaration order.
func (c *Catalog) TableNames() []string {
	out := make([]string, len(c.tables))
	for i, t := range c.tables {
		out[i] = t.Name
	}
	return out
}

// Schema builds the RootNode serving the catalog.
func (c *Catalog) Schema(opts ...schema.Option) (*schema.RootNode, error) {
	query := &types.ObjectDef{Name: "Query", Description: "Lookups across all tables."}
	mutation := &types.ObjectDef{Name: "Mutation", Description: "Writes to the tables."}

	for _, t := range c.tables {
		query.Fields = append(query.Fields, c.singleField(t), c.pluralField(t))
		mutation.Fields = append(mutation.Fields, c.putField(t), c.deleteField(t))
	}
	query.Fields = append(query.Fields, c.recordField(), c.keysField(), c.tablesField())

	var mutationRoot executor.Type = types.Object{}
	var mutationInfo any = mutation
	if len(mutation.Fields) == 0 {
		mutationRoot, mutationInfo = types.EmptyMutation{}, nil
	}
	return schema.NewWithInfo(types.Object{}, mutationRoot, types.EmptySubscription{}, query, mutationInfo, nil, opts...)
}

func (c *Catalog) load(ctx context.Context, t *table, id string) (executor.Type, error) {
	key := t.info.Key(id)
	rec, err := c.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return node.Node{Key: key, Record: rec}, nil
}
