package executor

import "context"

// Tracer observes operations and individual field resolutions.
type Tracer interface {
	TraceOperation(ctx context.Context, operationName, operationType string) (context.Context, func([]*ExecutionError))
	// TraceField is called around every resolver call. trivial is set for
	// fields not marked async.
	TraceField(ctx context.Context, typeName, fieldName string, trivial bool, args Arguments) (context.Context, func(error))
}

// NoopTracer traces nothing.
type NoopTracer struct{}

func (NoopTracer) TraceOperation(ctx context.Context, _, _ string) (context.Context, func([]*ExecutionError)) {
	return ctx, func([]*ExecutionError) {}
}

func (NoopTracer) TraceField(ctx context.Context, _, _ string, _ bool, _ Arguments) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// Logger receives values recovered from resolver panics.
type Logger interface {
	LogPanic(ctx context.Context, value any)
}

type nopLogger struct{}

func (nopLogger) LogPanic(context.Context, any) {}
