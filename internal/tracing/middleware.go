package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request id in and out of the server.
const RequestIDHeader = "X-Request-ID"

// StatusRecorder remembers the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// WriteHeader records the status before delegating.
func (w *StatusRecorder) WriteHeader(code int) {
	w.Status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write defaults the status to 200 like net/http does.
func (w *StatusRecorder) Write(b []byte) (int, error) {
	if w.Status == 0 {
		w.Status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *StatusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Middleware assigns a request id and, when tracer is non-nil, wraps the
// request in a server span named after the matched route pattern.
func Middleware(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = NewRequestID()
			}
			w.Header().Set(RequestIDHeader, reqID)
			ctx := ContextWithRequestID(r.Context(), reqID)

			if tracer == nil {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx, span := tracer.Start(ctx, SpanPrefixHTTP+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(AttrHTTPMethod, r.Method),
					attribute.String(AttrRequestID, reqID),
				),
			)
			defer span.End()

			rec := &StatusRecorder{ResponseWriter: w}
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			// Pattern is only known after the mux has matched
			if r.Pattern != "" {
				span.SetName(SpanPrefixHTTP + r.Pattern)
				span.SetAttributes(attribute.String(AttrHTTPRoute, r.Pattern))
			}
			status := rec.Status
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}
