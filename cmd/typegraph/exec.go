package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hanpama/typegraph/internal/schema"
)

func (c *cli) exec(args []string) error {
	var f configFlags
	var query, variables, operation string
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	f.bind(fs)
	fs.StringVar(&query, "query", "", "GraphQL document")
	fs.StringVar(&variables, "variables", "", "Variables as JSON")
	fs.StringVar(&operation, "operation", "", "Operation name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(c.stderr, execUsage)
		return err
	}
	if query == "" {
		fmt.Fprint(c.stderr, execUsage)
		return fmt.Errorf("-query is required")
	}
	if query == "-" {
		b, err := io.ReadAll(c.stdin)
		if err != nil {
			return err
		}
		query = string(b)
	}
	req := schema.Request{Query: query, OperationName: operation}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &req.Variables); err != nil {
			return fmt.Errorf("-variables: %w", err)
		}
	}

	cfg, err := f.load(fs)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	logger := slog.New(slog.NewTextHandler(c.stderr, nil))
	root, err := buildRoot(cfg, store, logger, nil)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	res := root.ExecuteRequest(ctx, req)
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if len(res.Errors) > 0 && res.Data.IsNull() {
		return fmt.Errorf("request failed: %s", res.Errors[0].Message)
	}
	return nil
}

func (c *cli) printSchema(args []string) error {
	var f configFlags
	var outFile string
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	f.bind(fs)
	fs.StringVar(&outFile, "out", "", "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(c.stderr, printSchemaUsage)
		return err
	}
	cfg, err := f.load(fs)
	if err != nil {
		return err
	}
	// The schema depends only on the tables.
	cfg.Store.Driver = "memory"
	store, closeStore, err := openStore(context.Background(), cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()
	root, err := buildRoot(cfg, store, slog.New(slog.NewTextHandler(c.stderr, nil)), nil)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sdl := root.SDL()
	if outFile == "" {
		fmt.Fprint(c.stdout, sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0o644)
}
