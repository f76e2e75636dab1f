package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hanpama/typegraph/internal/executor"
)

// fieldTracer opens a span per operation and per async field.
type fieldTracer struct{ t *Telemetry }

func (f fieldTracer) TraceOperation(ctx context.Context, operationName, operationType string) (context.Context, func([]*executor.ExecutionError)) {
	ctx, span := f.t.tracer.Start(f.t.parent(ctx), "graphql.operation",
		trace.WithAttributes(
			attribute.String("graphql.operation.name", operationName),
			attribute.String("graphql.operation.type", operationType),
		))
	return ctx, func(errs []*executor.ExecutionError) {
		span.SetAttributes(attribute.Int("graphql.error_count", len(errs)))
		if len(errs) > 0 {
			span.SetStatus(codes.Error, errs[0].Message)
		}
		span.End()
	}
}

func (f fieldTracer) TraceField(ctx context.Context, typeName, fieldName string, trivial bool, _ executor.Arguments) (context.Context, func(error)) {
	if trivial {
		return ctx, func(error) {}
	}
	ctx, span := f.t.tracer.Start(ctx, "graphql.field "+typeName+"."+fieldName,
		trace.WithAttributes(
			attribute.String("graphql.field.type", typeName),
			attribute.String("graphql.field.name", fieldName),
		))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
