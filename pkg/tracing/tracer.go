// Package tracing starts spans on the global OTel tracer provider. Without
// a registered provider every call is a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "typegraph"

// Start opens a span as a child of the span in ctx. The caller must End it.
//
//	ctx, span := tracing.Start(ctx, "graphstore.get_entity",
//	    attribute.String("typegraph.entity_id", id.String()),
//	)
//	defer span.End()
func Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records err on span and marks the span failed. A nil err is
// ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
