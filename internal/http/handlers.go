package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledgerreport/internal/core"
	"ledgerreport/internal/log"
	"ledgerreport/internal/middleware/trace"
	"ledgerreport/internal/report"
)

type errorBody struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleFinancialReport(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	rep, err := s.reports.FinancialReport(ctx, params.Filter, report.Options{
		Granularity: params.Granularity,
		Compare:     params.Compare,
	})
	if err != nil {
		s.writeError(w, r, log.OpFinancialReport, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAccountReport(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	rep, err := s.reports.AccountReport(ctx, params.Filter)
	if err != nil {
		s.writeError(w, r, log.OpAccountReport, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r)
	if !ok {
		return
	}
	if params.Compare == "" {
		s.writeError(w, r, log.OpCompare, &core.ValidationError{Op: "compare", Field: "compare"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	cmp, err := s.reports.Compare(ctx, params.Filter, params.Compare)
	if err != nil {
		s.writeError(w, r, log.OpCompare, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) parseParams(w http.ResponseWriter, r *http.Request) (ReportParams, bool) {
	params, err := ParseReportParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, "parse_query", err)
		return params, false
	}
	return params, true
}

// writeError answers 400 for validation failures and 500 for everything
// else. Internal error details are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	body := errorBody{RequestID: trace.GetRequestID(ctx)}

	if errors.Is(err, core.ErrValidation) {
		logger.WarnContext(ctx, "Rejected report request",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation)
		body.Error = err.Error()
		body.Type = log.ErrorTypeValidation
		writeJSON(w, http.StatusBadRequest, body)
		return
	}

	errType := log.ErrorTypeInternal
	if errors.Is(err, context.DeadlineExceeded) {
		errType = log.ErrorTypeTimeout
	}
	log.NewStructuredLogger(logger).LogError(ctx, "Report request failed", err, log.ComponentHTTP, op,
		log.NewFields().WithErrorType(errType))
	body.Error = "internal error while building the report"
	body.Type = errType
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
