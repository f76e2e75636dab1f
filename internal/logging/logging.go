// Package logging builds the process logger and turns bus events into log
// records.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/reqid"
)

// New returns a logger writing to w at the configured level and format.
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// PanicLogger logs values recovered from resolver panics.
type PanicLogger struct {
	Logger *slog.Logger
}

func (p PanicLogger) LogPanic(ctx context.Context, value any) {
	p.Logger.ErrorContext(ctx, "resolver panic",
		requestID(ctx),
		slog.Any("panic", value),
		slog.String("stack", string(debug.Stack())),
	)
}

func requestID(ctx context.Context) slog.Attr {
	id, _ := reqid.FromContext(ctx)
	return slog.String("request_id", id)
}
