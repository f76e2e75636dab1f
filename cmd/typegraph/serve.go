package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/kvstore"
	"github.com/hanpama/typegraph/internal/logging"
	"github.com/hanpama/typegraph/internal/otel"
	"github.com/hanpama/typegraph/internal/server"
)

func (c *cli) serve(args []string) error {
	f := configFlags{serverOnly: true}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	f.bind(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(c.stderr, serveUsage)
		return err
	}
	if f.watch && f.path == "" {
		fmt.Fprint(c.stderr, serveUsage)
		return fmt.Errorf("-watch requires -config")
	}
	cfg, err := f.load(fs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(cfg.Log, c.stderr)
	if err != nil {
		return err
	}
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	defer logging.Subscribe(logger)()

	tel, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	root, err := buildRoot(cfg, store, logger, tel.Tracer())
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	var sopts []server.Option
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	sopts = append(sopts,
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	h, err := server.New(root, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	if f.watch {
		r := &reloader{h: h, current: cfg, source: f.path, store: store, logger: logger, tel: tel}
		go func() {
			err := config.Watch(ctx, f.path, func(next *config.Config, err error) { r.apply(ctx, next, err) })
			if err != nil {
				logger.Error("config watch stopped", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("GraphQL server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver, "tables", len(cfg.Tables))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// reloader rebuilds the schema from a changed config and swaps it in.
// The store and the server settings stay as they were at startup.
type reloader struct {
	h       *server.Handler
	current *config.Config
	source  string
	store   kvstore.Store
	logger  *slog.Logger
	tel     *otel.Telemetry
}

func (r *reloader) apply(ctx context.Context, next *config.Config, err error) {
	ev := events.SchemaReload{Source: r.source, Err: err}
	defer func() { eventbus.Publish(ctx, ev) }()
	if err != nil {
		return
	}
	if next.Store.Driver != r.current.Store.Driver || next.Store.DSN != r.current.Store.DSN {
		r.logger.Warn("store settings changed; restart to apply", "source", r.source)
	}
	next.Server = r.current.Server
	root, err := buildRoot(next, r.store, r.logger, r.tel.Tracer())
	if err != nil {
		ev.Err = err
		return
	}
	r.h.Swap(root)
	ev.Types = len(root.Registry().Meta().Types())
}
