package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/orcidhub/orcidhub"

// Span attribute keys.
const (
	AttrUserID     = "orcidhub.user.id"
	AttrSection    = "orcidhub.record.section"
	AttrPutCode    = "orcidhub.record.put_code"
	AttrRecords    = "orcidhub.record.count"
	AttrCacheHit   = "orcidhub.cache.hit"
	AttrRequestID  = "http.request_id"
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
)

// Span name prefixes.
const (
	SpanPrefixHTTP  = "http."
	SpanPrefixStore = "store."
)

// StartStoreSpan starts a child span for a record store operation using
// the globally installed provider.
func StartStoreSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartStoreSpanWith(ctx, otel.Tracer(instrumentationName), op, attrs...)
}

// StartStoreSpanWith is StartStoreSpan on an explicit tracer.
func StartStoreSpanWith(ctx context.Context, tracer trace.Tracer, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanPrefixStore+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err (if any) and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
