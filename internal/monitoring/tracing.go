package monitoring

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts OpenTelemetry spans for request handling and pipeline stages. Without an
// installed SDK provider the spans are no-ops.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer scoped to the service name
func NewTracer(serviceName string) *Tracer {
	return &Tracer{tracer: otel.Tracer(serviceName)}
}

// StartSpan opens a span as a child of whatever span ctx carries
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TraceFunction runs fn inside a span named operation
func (t *Tracer) TraceFunction(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, operation)
	err := fn(ctx)
	EndSpan(span, err)
	return err
}

// TracingMiddleware opens a server span per request and exposes the trace id when one is sampled
func TracingMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		operation := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())

		ctx, span := tracer.tracer.Start(c.Request.Context(), operation,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.String("client.ip", c.ClientIP()),
			))

		if sc := span.SpanContext(); sc.IsValid() {
			c.Header("X-Trace-ID", sc.TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))

		var spanErr error
		if len(c.Errors) > 0 {
			spanErr = fmt.Errorf("request errors: %v", c.Errors.String())
		} else if c.Writer.Status() >= 500 {
			spanErr = fmt.Errorf("status %d", c.Writer.Status())
		}
		EndSpan(span, spanErr)
	}
}
