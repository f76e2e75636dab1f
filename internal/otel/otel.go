// Package otel exports traces over OTLP: spans for HTTP requests from bus
// events, for operations and async fields through the executor tracer, and
// for store and gRPC calls reported on the bus.
package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/executor"
	"github.com/hanpama/typegraph/internal/reqid"
)

const instrumentation = "github.com/hanpama/typegraph"

// Telemetry owns the tracer provider and the bus subscriptions.
type Telemetry struct {
	tracer    trace.Tracer
	httpSpans sync.Map // request id -> trace.Span
	offs      []func()
	shutdown  func(context.Context) error
}

// Setup configures OpenTelemetry and attaches bus subscribers. With no
// endpoint configured it returns a disabled Telemetry.
func Setup(ctx context.Context, cfg config.OTelConfig) (*Telemetry, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.Service),
		)),
	)
	otel.SetTracerProvider(tp)
	return newTelemetry(tp, tp.Shutdown), nil
}

func newTelemetry(tp trace.TracerProvider, shutdown func(context.Context) error) *Telemetry {
	t := &Telemetry{tracer: tp.Tracer(instrumentation), shutdown: shutdown}
	t.register()
	return t
}

// Shutdown detaches the subscribers and flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	for _, off := range t.offs {
		off()
	}
	return t.shutdown(ctx)
}

// Tracer returns the executor tracer, or a no-op one when t is disabled.
func (t *Telemetry) Tracer() executor.Tracer {
	if t == nil {
		return executor.NoopTracer{}
	}
	return fieldTracer{t}
}

func (t *Telemetry) register() {
	t.offs = append(t.offs,
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := t.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
			t.httpSpans.Store(rid, span)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := t.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.StoreCall) {
			t.after(ctx, "kv."+e.Op, trace.SpanKindInternal, e.Duration, e.Err,
				attribute.String("kv.store", e.Store),
				attribute.Int("kv.keys", e.Keys),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			t.after(ctx, "grpc.client", trace.SpanKindClient, e.Duration, e.Err,
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("net.peer.name", e.Target),
				attribute.String("grpc.code", e.Code.String()),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			t.after(ctx, "grpc.server", trace.SpanKindServer, e.Duration, e.Err,
				semconv.RPCServiceKey.String(e.Service),
				semconv.RPCMethodKey.String(e.Method),
				attribute.String("grpc.code", e.Code.String()),
			)
		}),
	)
}

// parent returns ctx when it already carries a span, else ctx with the
// HTTP span of its request.
func (t *Telemetry) parent(ctx context.Context) context.Context {
	if trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx
	}
	rid, _ := reqid.FromContext(ctx)
	if v, ok := t.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

// after records a span for a call reported once it finished.
func (t *Telemetry) after(ctx context.Context, name string, kind trace.SpanKind, d time.Duration, err error, attrs ...attribute.KeyValue) {
	end := time.Now()
	_, span := t.tracer.Start(t.parent(ctx), name,
		trace.WithSpanKind(kind),
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attrs...),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}
