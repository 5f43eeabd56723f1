package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger/memory"
	"ledgerreport/internal/log"
	"ledgerreport/internal/report"
)

func newTestServer(t *testing.T, svc ReportService, opts Options) *Server {
	t.Helper()
	if svc == nil {
		store := memory.New("VND",
			[]core.Account{
				{ID: "A", Name: "Checking", Type: "bank", CurrencyCode: "VND"},
				{ID: "B", Name: "Wallet", Type: "cash", CurrencyCode: "VND"},
			},
			[]core.Transaction{
				{ID: "t1", Date: core.NewDate(2024, 1, 5), Type: core.Income, Amount: decimal.NewFromInt(1000000), DestinationAccountID: "A", CategoryID: "salary"},
				{ID: "t2", Date: core.NewDate(2024, 1, 20), Type: core.Expense, Amount: decimal.NewFromInt(400000), SourceAccountID: "A", CategoryID: "rent"},
				{ID: "t3", Date: core.NewDate(2024, 2, 1), Type: core.Transfer, Amount: decimal.NewFromInt(200000), SourceAccountID: "A", DestinationAccountID: "B"},
			})
		svc = report.NewEngine(store, log.Discard(), report.Config{HomeCurrency: "VND"})
	}
	srv, err := NewServer(":0", svc, log.Discard(), opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	for path, body := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := get(srv, path)
		if rr.Code != http.StatusOK || rr.Body.String() != body {
			t.Fatalf("%s: status=%d body=%q", path, rr.Code, rr.Body.String())
		}
	}
}

func TestFinancialReportEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rr := get(srv, "/api/reports/financial?from=2024-01-01&to=2024-01-31&granularity=month")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}

	var rep core.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.Summary.TotalIncome.Equal(decimal.NewFromInt(1000000)) || !rep.Summary.NetBalance.Equal(decimal.NewFromInt(600000)) {
		t.Fatalf("summary = %+v", rep.Summary)
	}
	if len(rep.ByPeriod) != 1 || rep.ByPeriod[0].Key != "2024-01" {
		t.Fatalf("periods = %+v", rep.ByPeriod)
	}
}

func TestAccountReportEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rr := get(srv, "/api/reports/accounts?from=2024-02-01&to=2024-02-29")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var rep core.AccountReport
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.OpeningBalance.Equal(decimal.NewFromInt(600000)) || !rep.ClosingBalance.Equal(decimal.NewFromInt(600000)) {
		t.Fatalf("opening=%s closing=%s", rep.OpeningBalance, rep.ClosingBalance)
	}
	if len(rep.Accounts) != 2 {
		t.Fatalf("accounts = %+v", rep.Accounts)
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rr := get(srv, "/api/reports/compare?from=2024-02-01&to=2024-02-29&compare=previous_month")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var cmp core.Comparison
	if err := json.Unmarshal(rr.Body.Bytes(), &cmp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmp.PreviousFrom.String() != "2024-01-01" || !cmp.Previous.TotalIncome.Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("comparison = %+v", cmp)
	}
}

func TestValidationErrorsAre400(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	for _, path := range []string{
		"/api/reports/accounts",
		"/api/reports/accounts?from=2024-01-01",
		"/api/reports/compare?from=2024-01-01&to=2024-01-31",
		"/api/reports/financial?from=yesterday",
		"/api/reports/financial?granularity=hour",
		"/api/reports/financial?type=refund",
	} {
		rr := get(srv, path)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		var body errorBody
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body.Type != log.ErrorTypeValidation || body.Error == "" || body.RequestID == "" {
			t.Fatalf("%s: body = %+v", path, body)
		}
	}
}

type brokenService struct{ err error }

func (b brokenService) FinancialReport(context.Context, core.ReportFilter, report.Options) (*core.Report, error) {
	return nil, b.err
}

func (b brokenService) AccountReport(context.Context, core.ReportFilter) (*core.AccountReport, error) {
	return nil, b.err
}

func (b brokenService) Compare(context.Context, core.ReportFilter, core.CompareOption) (*core.Comparison, error) {
	return nil, b.err
}

func TestStoreErrorsAre500(t *testing.T) {
	srv := newTestServer(t, brokenService{err: errors.New("disk I/O error")}, Options{})
	rr := get(srv, "/api/reports/financial")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk I/O") {
		t.Fatalf("internal error details leaked: %s", rr.Body.String())
	}
	if srv.Metrics().FailedRequests != 1 {
		t.Fatalf("metrics = %+v", srv.Metrics())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reports/financial", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestRateLimitedAPI(t *testing.T) {
	srv := newTestServer(t, nil, Options{RateLimitPerMinute: 1})
	if rr := get(srv, "/api/reports/financial"); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := get(srv, "/api/reports/financial")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if got := get(srv, "/healthz"); got.Code != http.StatusOK {
		t.Fatalf("health checks must not be limited, status=%d", got.Code)
	}
}
