package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/kvstore/grpckv"
	"github.com/hanpama/typegraph/internal/logging"
)

func (c *cli) kvServe(args []string) error {
	var f configFlags
	addr := ":9090"
	fs := flag.NewFlagSet("kv-serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	f.bind(fs)
	fs.StringVar(&addr, "addr", addr, "gRPC listen address")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(c.stderr, kvServeUsage)
		return err
	}
	cfg, err := f.load(fs)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == "grpc" {
		return fmt.Errorf("kv-serve needs a local store, not %q", cfg.Store.Driver)
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

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	srv, err := grpckv.NewServer(store)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	srv.Register(gs)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() { errc <- gs.Serve(lis) }()
	logger.Info("key-value service listening", "addr", lis.Addr().String(), "service", grpckv.ServiceName, "store", cfg.Store.Driver)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		gs.GracefulStop()
		return nil
	}
}

func (c *cli) kvProto(args []string) error {
	var outFile string
	fs := flag.NewFlagSet("kv-proto", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", "", "Write the .proto file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(c.stderr, kvProtoUsage)
		return err
	}
	if outFile == "" {
		return grpckv.RenderProto(c.stdout)
	}
	var buf bytes.Buffer
	if err := grpckv.RenderProto(&buf); err != nil {
		return err
	}
	return os.WriteFile(outFile, buf.Bytes(), 0o644)
}
