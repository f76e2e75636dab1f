package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/config"
)

func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "typegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const libraryConfig = `
store:
  driver: memory
  snapshot_file: %s
tables:
  - name: books
    attributes:
      - name: title
        required: true
      - name: pages
        type: Int
`

func TestHelp(t *testing.T) {
	out, _, err := runCLI(t, "", "help", "serve")
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")

	out, _, err = runCLI(t, "", "help")
	require.NoError(t, err)
	require.Contains(t, out, "COMMANDS")

	_, _, err = runCLI(t, "", "help", "nope")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := runCLI(t, "")
	require.EqualError(t, err, "missing command")
	require.Contains(t, stderr, "USAGE")

	_, _, err = runCLI(t, "", "compile")
	require.EqualError(t, err, `unknown command "compile"`)
}

func TestPrintSchema(t *testing.T) {
	cfg := writeConfig(t, strings.ReplaceAll(libraryConfig, "%s", "''"))
	out, _, err := runCLI(t, "", "print-schema", "-config", cfg)
	require.NoError(t, err)
	require.Contains(t, out, "type Book implements Record")
	require.Contains(t, out, "putBook(id: ID!, input: BookInput!): Book!")

	file := filepath.Join(t.TempDir(), "schema.graphql")
	_, _, err = runCLI(t, "", "print-schema", "-config", cfg, "-out", file)
	require.NoError(t, err)
	written, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}

// Pattern: the memory snapshot carries writes across invocations
func TestExec(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "kv.snapshot")
	cfg := writeConfig(t, strings.ReplaceAll(libraryConfig, "%s", snapshot))

	out, _, err := runCLI(t, "", "exec", "-config", cfg,
		"-query", `mutation($t: String!) { putBook(id: "1", input: {title: $t, pages: 412}) { id } }`,
		"-variables", `{"t":"Dune"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"putBook":{"id":"1"}}}`, out)

	out, _, err = runCLI(t, `{ book(id: "1") { title pages } keys }`, "exec", "-config", cfg, "-query", "-")
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"book":{"title":"Dune","pages":412},"keys":["books:1"]}}`, out)

	_, _, err = runCLI(t, "", "exec", "-config", cfg, "-query", "{ nope }")
	require.ErrorContains(t, err, "request failed")

	_, _, err = runCLI(t, "", "exec", "-config", cfg)
	require.EqualError(t, err, "-query is required")
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := writeConfig(t, "store: {driver: memory}")
	_, _, err := runCLI(t, "", "exec", "-config", cfg, "-store.driver", "postgres", "-query", "{ tables }")
	require.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = runCLI(t, "", "serve", "-watch")
	require.EqualError(t, err, "-watch requires -config")

	_, _, err = runCLI(t, "", "kv-serve", "-store.driver", "grpc", "-store.dsn", "x")
	require.Error(t, err)
}

func TestKVProto(t *testing.T) {
	out, _, err := runCLI(t, "", "kv-proto")
	require.NoError(t, err)
	require.Contains(t, out, "package typegraph.kv.v1;")
	require.Contains(t, out, "service KVService")

	file := filepath.Join(t.TempDir(), "kv.proto")
	_, _, err = runCLI(t, "", "kv-proto", "-out", file)
	require.NoError(t, err)
	written, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}
