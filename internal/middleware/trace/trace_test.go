package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ledgerreport/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)

	var seen string
	var logger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		logger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/financial", nil))

	if seen == "" {
		t.Fatal("request id should be in the context")
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("response header %q, context %q", got, seen)
	}
	if logger == nil || logger.Component() != log.ComponentHTTP {
		t.Fatalf("expected http logger in context, got %+v", logger)
	}
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareRequestIDHeader(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid id is kept", "client-123", true},
		{"empty id is replaced", "", false},
		{"unsafe id is replaced", "bad id\nwith newline", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(nil, nil)
			var seen string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(HeaderRequestID, tt.incoming)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.incoming) != tt.keep {
				t.Fatalf("request id = %q, incoming %q", seen, tt.incoming)
			}
			if seen == "" {
				t.Fatal("request id should never be empty")
			}
		})
	}
}

func TestMiddlewareMetrics(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	for _, p := range []string{"/ok", "/fail", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.FailedRequests != 1 {
		t.Fatalf("metrics = %+v", got)
	}
}
