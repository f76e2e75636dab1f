package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/catalog"
	"github.com/hanpama/typegraph/internal/node"
)

const sample = `
server:
  addr: ":9090"
  timeout: 5s
  cors_origins: ["*"]
  metadata_headers: [authorization]
store:
  driver: sqlite
  dsn: file:test.db
tables:
  - name: people
    description: Borrowers.
    attributes:
      - name: name
        required: true
      - name: age
        type: Int
log:
  format: json
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	want := Default()
	want.Server.Addr = ":9090"
	want.Server.Timeout = 5 * time.Second
	want.Server.CORSOrigins = []string{"*"}
	want.Server.MetadataHeaders = []string{"authorization"}
	want.Store.Driver = "sqlite"
	want.Store.DSN = "file:test.db"
	want.Log.Format = "json"
	want.Tables = []TableConfig{{
		Name:        "people",
		Description: "Borrowers.",
		Attributes:  []AttributeConfig{{Name: "name", Required: true}, {Name: "age", Type: "Int"}},
	}}
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	tables := cfg.CatalogTables()
	if diff := cmp.Diff([]catalog.Table{{
		Name:        "people",
		Description: "Borrowers.",
		Attributes:  []node.Attribute{{Name: "name", Required: true}, {Name: "age", Type: "Int"}},
	}}, tables); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), *cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "driver", yaml: "store: {driver: redis}", want: `store.driver: failed "oneof"`},
		{name: "sql without dsn", yaml: "store: {driver: postgres}", want: `store.dsn: failed "required_for_sql" (postgres)`},
		{name: "grpc without endpoints", yaml: "store: {driver: grpc}", want: `store.endpoints: failed "required_for_grpc"`},
		{name: "endpoint", yaml: "store: {driver: grpc, endpoints: [nope]}", want: `store.endpoints[0]: failed "hostname_port"`},
		{name: "attribute type", yaml: "tables: [{name: a, attributes: [{name: x, type: Long}]}]", want: `tables[0].attributes[0].type: failed "oneof"`},
		{name: "log level", yaml: "log: {level: loud}", want: `log.level: failed "oneof"`},
		{name: "unknown key", yaml: "servr: {}", want: "field servr not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalid)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "typegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: {level: debug}"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

// Pattern: a rewrite of the watched file delivers the reloaded config
func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: {level: info}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type result struct {
		cfg *Config
		err error
	}
	changes := make(chan result, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config, err error) { changes <- result{c, err} })
	}()

	// The watcher may not be registered yet; keep writing until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case r := <-changes:
			require.NoError(t, r.err)
			require.Equal(t, "warn", r.cfg.Log.Level)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("log: {level: warn}"), 0o644))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
