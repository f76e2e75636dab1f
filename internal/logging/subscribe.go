package logging

import (
	"context"
	"log/slog"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
)

// Subscribe logs events published on the global bus until the returned
// function is called.
func Subscribe(logger *slog.Logger) (unsubscribe func()) {
	offs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			logger.LogAttrs(ctx, slog.LevelInfo, "http request",
				requestID(ctx),
				slog.String("method", e.Request.Method),
				slog.String("path", e.Request.URL.Path),
				slog.Int("status", e.Status),
				slog.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			attrs := []slog.Attr{
				requestID(ctx),
				slog.String("operation", e.OperationName),
				slog.String("type", e.OperationType),
				slog.Int("errors", len(e.Errors)),
				slog.Duration("duration", e.Duration),
			}
			switch {
			case e.Err != nil:
				logger.LogAttrs(ctx, slog.LevelWarn, "graphql request failed", append(attrs, slog.Any("error", e.Err))...)
			case len(e.Errors) > 0:
				logger.LogAttrs(ctx, slog.LevelInfo, "graphql request", append(attrs, slog.Any("first_error", e.Errors[0]))...)
			default:
				logger.LogAttrs(ctx, slog.LevelDebug, "graphql request", attrs...)
			}
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.StoreCall) {
			level := slog.LevelDebug
			attrs := []slog.Attr{
				requestID(ctx),
				slog.String("store", e.Store),
				slog.String("op", e.Op),
				slog.Int("keys", e.Keys),
				slog.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.Any("error", e.Err))
			}
			logger.LogAttrs(ctx, level, "store call", attrs...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			level := slog.LevelDebug
			if e.Err != nil {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "grpc call",
				requestID(ctx),
				slog.String("service", e.Service),
				slog.String("method", e.Method),
				slog.String("target", e.Target),
				slog.String("code", e.Code.String()),
				slog.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			level := slog.LevelInfo
			if e.Err != nil {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "grpc served",
				requestID(ctx),
				slog.String("service", e.Service),
				slog.String("method", e.Method),
				slog.String("code", e.Code.String()),
				slog.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SchemaReload) {
			if e.Err != nil {
				logger.LogAttrs(ctx, slog.LevelError, "schema reload failed",
					slog.String("source", e.Source), slog.Any("error", e.Err))
				return
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "schema reloaded",
				slog.String("source", e.Source), slog.Int("types", e.Types))
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
