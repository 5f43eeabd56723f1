package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerreport/internal/amqp"
	"ledgerreport/internal/core"
	"ledgerreport/internal/log"
	"ledgerreport/internal/report"
)

// ReportBuilder is the part of report.Engine the worker drives.
type ReportBuilder interface {
	FinancialReport(ctx context.Context, f core.ReportFilter, opts report.Options) (*core.Report, error)
	AccountReport(ctx context.Context, f core.ReportFilter) (*core.AccountReport, error)
	Compare(ctx context.Context, f core.ReportFilter, option core.CompareOption) (*core.Comparison, error)
}

// ResultPublisher sends finished results back over the broker.
type ResultPublisher interface {
	PublishReportResult(ctx context.Context, replyTo string, msg *amqp.ReportResultMessage) error
}

// ReportWorker builds the reports requested over AMQP.
type ReportWorker struct {
	reports   ReportBuilder
	publisher ResultPublisher
	logger    *log.Logger
}

func NewReportWorker(reports ReportBuilder, publisher ResultPublisher, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		reports:   reports,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleReportRequest processes a single report request. Requests that fail
// validation are answered with an error result and acknowledged; store
// failures are returned so the delivery is requeued.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	start := time.Now()
	logger := w.logger.With(log.FieldRequestID, msg.RequestID)
	logger.InfoContext(ctx, "Processing report request",
		"kind", msg.Kind,
		log.FieldFrom, dateString(msg.Filter.From),
		log.FieldTo, dateString(msg.Filter.To),
		log.FieldGranularity, msg.Granularity,
		log.FieldCompare, msg.Compare)

	res, err := w.build(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrValidation):
		logger.WarnContext(ctx, "Rejected report request",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation)
		res = amqp.NewErrorResult(msg, log.ErrorTypeValidation, err)
	default:
		logger.ErrorContext(ctx, "Failed to build report",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase)
		return fmt.Errorf("build %s report: %w", msg.Kind, err)
	}

	if err := w.publisher.PublishReportResult(ctx, msg.ReplyTo, res); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}

	logger.InfoContext(ctx, "Report request completed",
		"status", res.Status,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *ReportWorker) build(ctx context.Context, msg *amqp.ReportRequestMessage) (*amqp.ReportResultMessage, error) {
	res := amqp.NewResultMessage(msg)
	switch msg.Kind {
	case amqp.KindFinancial:
		g, err := core.ParseGranularity(string(msg.Granularity))
		if err != nil {
			return nil, err
		}
		var option core.CompareOption
		if msg.Compare != "" {
			if option, err = core.ParseCompareOption(string(msg.Compare)); err != nil {
				return nil, err
			}
		}
		rep, err := w.reports.FinancialReport(ctx, msg.Filter, report.Options{Granularity: g, Compare: option})
		if err != nil {
			return nil, err
		}
		res.Report = rep
	case amqp.KindAccounts:
		rep, err := w.reports.AccountReport(ctx, msg.Filter)
		if err != nil {
			return nil, err
		}
		res.AccountReport = rep
	case amqp.KindCompare:
		option, err := core.ParseCompareOption(string(msg.Compare))
		if err != nil {
			return nil, err
		}
		cmp, err := w.reports.Compare(ctx, msg.Filter, option)
		if err != nil {
			return nil, err
		}
		res.Comparison = cmp
	default:
		return nil, &core.ValidationError{Field: "kind", Msg: fmt.Sprintf("must be one of financial, accounts, compare (got %q)", msg.Kind)}
	}
	return res, nil
}

func dateString(d *core.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
