package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
)

func serveWithContext(t *testing.T, pre gin.HandlerFunc, req *http.Request) (*ctxutil.TraceData, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(AttachRequestContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen == nil {
		t.Fatalf("trace data not attached")
	}
	return seen, rec
}

func TestAttachRequestContextKeepsCallerIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, " req-1 ")
	req.Header.Set(HeaderTraceID, "trace-1")

	seen, rec := serveWithContext(t, nil, req)
	if seen.RequestID != "req-1" {
		t.Fatalf("request id: got=%q want=%q", seen.RequestID, "req-1")
	}
	if seen.TraceID != "trace-1" {
		t.Fatalf("trace id: got=%q want=%q", seen.TraceID, "trace-1")
	}
	if rec.Header().Get(HeaderRequestID) != "req-1" || rec.Header().Get(HeaderTraceID) != "trace-1" {
		t.Fatalf("ids not echoed: %v", rec.Header())
	}

	// Run-scoped logging keeps the request ids.
	fields := ctxutil.LogFields(ctxutil.WithRunID(ctxutil.WithTraceData(context.Background(), seen), "run-9"))
	want := []interface{}{"trace_id", "trace-1", "request_id", "req-1", "run_id", "run-9"}
	if len(fields) != len(want) {
		t.Fatalf("log fields: got=%v want=%v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("log fields: got=%v want=%v", fields, want)
		}
	}
}

func TestAttachRequestContextGeneratesIDs(t *testing.T) {
	seen, rec := serveWithContext(t, nil, httptest.NewRequest(http.MethodGet, "/x", nil))
	if seen.RequestID == "" || seen.TraceID == "" {
		t.Fatalf("ids not generated: %+v", seen)
	}
	if rec.Header().Get(HeaderTraceID) != seen.TraceID {
		t.Fatalf("trace id not echoed: ctx=%q header=%q", seen.TraceID, rec.Header().Get(HeaderTraceID))
	}
}

func TestAttachRequestContextPrefersSpanTraceID(t *testing.T) {
	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	withSpan := func(c *gin.Context) {
		c.Request = c.Request.WithContext(trace.ContextWithSpanContext(c.Request.Context(), sc))
		c.Next()
	}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderTraceID, "ignored")

	seen, _ := serveWithContext(t, withSpan, req)
	if seen.TraceID != traceID.String() {
		t.Fatalf("trace id: got=%q want=%q", seen.TraceID, traceID.String())
	}
}
