// Package http serves the report engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledgerreport/internal/core"
	"ledgerreport/internal/log"
	"ledgerreport/internal/middleware/ratelimit"
	"ledgerreport/internal/middleware/security"
	"ledgerreport/internal/middleware/trace"
	"ledgerreport/internal/report"
)

// ReportService is the report engine as seen by the handlers.
type ReportService interface {
	FinancialReport(ctx context.Context, f core.ReportFilter, opts report.Options) (*core.Report, error)
	AccountReport(ctx context.Context, f core.ReportFilter) (*core.AccountReport, error)
	Compare(ctx context.Context, f core.ReportFilter, option core.CompareOption) (*core.Comparison, error)
}

// Options tunes the API server.
type Options struct {
	// RateLimitPerMinute caps report requests per client IP; 0 disables it.
	RateLimitPerMinute int
	// RequestTimeout bounds a single report computation.
	RequestTimeout time.Duration
	// TrustedProxies are extra CIDRs whose forwarding headers are honoured.
	TrustedProxies []string
}

type Server struct {
	http.Server
	reports ReportService
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	timeout time.Duration

	shutdownOnce sync.Once
}

// NewServer wires the report routes behind the security, tracing and rate
// limiting middleware.
func NewServer(addr string, reports ReportService, logger *log.Logger, opts Options) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ips, err := security.NewIPExtractor(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		reports: reports,
		logger:  logger,
		tracer:  trace.NewMiddleware(logger, ips.ExtractClientIP),
		timeout: opts.RequestTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/reports/financial", s.handleFinancialReport)
	api.HandleFunc("GET /api/reports/accounts", s.handleAccountReport)
	api.HandleFunc("GET /api/reports/compare", s.handleCompare)

	var apiHandler http.Handler = api
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		apiHandler = s.limiter.Middleware(ips.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:     "rate limit exceeded, please try again later",
				Type:      "rate_limited",
				RequestID: trace.GetRequestID(r.Context()),
			})
		})(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("/api/", apiHandler)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(s.tracer.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
