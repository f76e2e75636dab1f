package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/hanpama/typegraph/internal/catalog"
	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/kvstore/grpckv"
	"github.com/hanpama/typegraph/internal/kvstore/sqlkv"
	"github.com/hanpama/typegraph/internal/logging"
	"github.com/hanpama/typegraph/internal/schema"
)

// openStore opens the configured store. The returned close function
// persists the memory snapshot, if any, before closing.
func openStore(ctx context.Context, cfg config.StoreConfig) (kvstore.Store, func() error, error) {
	var s kvstore.Store
	closeFn := func() error { return s.Close() }
	switch cfg.Driver {
	case "memory":
		m := kvstore.NewMemory()
		if cfg.SnapshotFile != "" {
			if err := m.LoadFile(cfg.SnapshotFile); err != nil {
				return nil, nil, fmt.Errorf("load snapshot: %w", err)
			}
			closeFn = func() error {
				return errors.Join(m.SaveFile(cfg.SnapshotFile), m.Close())
			}
		}
		s = m
	case "sqlite", "postgres", "mysql":
		var opts []sqlkv.Option
		if cfg.Table != "" {
			opts = append(opts, sqlkv.WithTable(cfg.Table))
		}
		db, err := sqlkv.Open(ctx, cfg.Driver, cfg.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		s = db
	case "grpc":
		client, err := grpckv.NewClient(
			grpckv.WithEndpoints(cfg.Endpoints...),
			grpckv.WithMaxConnsPerEndpoint(cfg.MaxConnsPerEndpoint),
			grpckv.WithRPCTimeout(cfg.RPCTimeout),
		)
		if err != nil {
			return nil, nil, err
		}
		s = client
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return kvstore.Observed(cfg.Driver, s), closeFn, nil
}

// buildRoot builds the catalog schema over store.
func buildRoot(cfg *config.Config, store kvstore.Store, logger *slog.Logger, tracer executor.Tracer) (*schema.RootNode, error) {
	cat, err := catalog.New(store, cfg.CatalogTables())
	if err != nil {
		return nil, err
	}
	execOpts := []executor.Option{executor.WithLogger(logging.PanicLogger{Logger: logger})}
	if tracer != nil {
		execOpts = append(execOpts, executor.WithTracer(tracer))
	}
	if cfg.Server.ListConcurrency > 0 {
		execOpts = append(execOpts, executor.WithListConcurrency(cfg.Server.ListConcurrency))
	}
	return cat.Schema(schema.WithExecutorOptions(execOpts...))
}
