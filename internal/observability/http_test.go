package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Header().Get(traceHeader) == "" {
		t.Fatal("expected X-Trace-ID header")
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestMetricsMiddlewarePassesStatusThrough(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestTraceMiddlewareReplacesMalformedTraceID(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
	req.Header.Set(traceHeader, "abc\" level=ERROR msg=\"forged")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(seen, "forged") || len(seen) != 32 {
		t.Fatalf("trace id = %q, want generated id", seen)
	}
}

func reportingMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestMetricsMiddlewareLabelsByMatchedRoute(t *testing.T) {
	h := MetricsMiddleware(reportingMux())

	askBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/v1/ask", "200"))
	unmatchedBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/ask", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/reports/2025-03", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/reports/2025-04", nil))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/v1/ask", "200")) - askBefore; got != 1 {
		t.Fatalf("/v1/ask delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")) - unmatchedBefore; got != 2 {
		t.Fatalf("unmatched delta = %v, want 2", got)
	}
}

func TestLoggingMiddlewareLevelsByRouteAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := LoggingMiddleware(logger)(reportingMux())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if buf.Len() != 0 {
		t.Fatalf("health access line logged at info: %q", buf.String())
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/ask", nil))
	if !strings.Contains(buf.String(), "level=INFO") || !strings.Contains(buf.String(), "route=/v1/ask") {
		t.Fatalf("ask access line = %q", buf.String())
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/missing", nil))
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "route="+unmatchedRoute) {
		t.Fatalf("missing route access line = %q", buf.String())
	}
}

func TestAccessLevel(t *testing.T) {
	cases := []struct {
		route  string
		status int
		want   slog.Level
	}{
		{route: "/v1/metrics", status: http.StatusOK, want: slog.LevelDebug},
		{route: "/v1/ready", status: http.StatusServiceUnavailable, want: slog.LevelError},
		{route: "/v1/sql/validate", status: http.StatusBadRequest, want: slog.LevelWarn},
		{route: "/v1/ask", status: http.StatusOK, want: slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := accessLevel(tc.route, tc.status); got != tc.want {
			t.Fatalf("accessLevel(%q, %d) = %v, want %v", tc.route, tc.status, got, tc.want)
		}
	}
}
