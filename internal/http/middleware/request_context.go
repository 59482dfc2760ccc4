package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// AttachRequestContext puts trace and request ids on the request context so every
// log line and generation run for the request carries them. An active span (from
// otelgin) owns the trace id and is tagged with the request id.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{
			TraceID:   traceIDFor(span, c.GetHeader(HeaderTraceID)),
			RequestID: firstNonEmpty(c.GetHeader(HeaderRequestID), uuid.NewString()),
		}
		if span.SpanContext().IsValid() {
			span.SetAttributes(attribute.String("request.id", td.RequestID))
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Header(HeaderTraceID, td.TraceID)
		c.Header(HeaderRequestID, td.RequestID)
		c.Next()
	}
}

func traceIDFor(span trace.Span, header string) string {
	if sc := span.SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return firstNonEmpty(header, uuid.NewString())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
