package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/amqp"
	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger/memory"
	"ledgerreport/internal/log"
	"ledgerreport/internal/report"
)

type publishedResult struct {
	replyTo string
	msg     *amqp.ReportResultMessage
}

type fakePublisher struct {
	results []publishedResult
	err     error
}

func (p *fakePublisher) PublishReportResult(_ context.Context, replyTo string, msg *amqp.ReportResultMessage) error {
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, publishedResult{replyTo: replyTo, msg: msg})
	return nil
}

type failingStore struct {
	*memory.Store
}

func (failingStore) FetchTransactions(context.Context, core.ReportFilter) ([]core.Transaction, error) {
	return nil, errors.New("database is locked")
}

func newStore() *memory.Store {
	return memory.New("VND",
		[]core.Account{
			{ID: "A", Name: "Checking", Type: "bank", CurrencyCode: "VND"},
			{ID: "B", Name: "Wallet", Type: "cash", CurrencyCode: "VND"},
		},
		[]core.Transaction{
			{ID: "t1", Date: core.NewDate(2024, 1, 5), Type: core.Income, Amount: decimal.NewFromInt(1000000), DestinationAccountID: "A"},
			{ID: "t2", Date: core.NewDate(2024, 1, 20), Type: core.Expense, Amount: decimal.NewFromInt(400000), SourceAccountID: "A"},
			{ID: "t3", Date: core.NewDate(2024, 2, 1), Type: core.Transfer, Amount: decimal.NewFromInt(200000), SourceAccountID: "A", DestinationAccountID: "B"},
		})
}

func newWorker(store *memory.Store, pub ResultPublisher) *ReportWorker {
	engine := report.NewEngine(store, log.Discard(), report.Config{HomeCurrency: "VND"})
	return NewReportWorker(engine, pub, log.Discard())
}

func request(kind amqp.ReportKind, from, to core.Date) *amqp.ReportRequestMessage {
	return amqp.NewReportRequestMessage(kind, core.ReportFilter{From: &from, To: &to})
}

func TestHandleReportRequestKinds(t *testing.T) {
	jan1, jan31 := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)
	feb1, feb29 := core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)

	tests := []struct {
		name  string
		msg   *amqp.ReportRequestMessage
		check func(t *testing.T, res *amqp.ReportResultMessage)
	}{
		{
			name: "financial",
			msg:  request(amqp.KindFinancial, jan1, jan31),
			check: func(t *testing.T, res *amqp.ReportResultMessage) {
				if res.Report == nil {
					t.Fatal("missing report")
				}
				if !res.Report.Summary.NetBalance.Equal(decimal.NewFromInt(600000)) {
					t.Fatalf("net = %s", res.Report.Summary.NetBalance)
				}
				if res.Report.Granularity != core.Month {
					t.Fatalf("granularity = %s", res.Report.Granularity)
				}
			},
		},
		{
			name: "accounts",
			msg:  request(amqp.KindAccounts, feb1, feb29),
			check: func(t *testing.T, res *amqp.ReportResultMessage) {
				if res.AccountReport == nil {
					t.Fatal("missing account report")
				}
				if !res.AccountReport.OpeningBalance.Equal(decimal.NewFromInt(600000)) {
					t.Fatalf("opening = %s", res.AccountReport.OpeningBalance)
				}
				if !res.AccountReport.ClosingBalance.Equal(decimal.NewFromInt(600000)) {
					t.Fatalf("closing = %s", res.AccountReport.ClosingBalance)
				}
			},
		},
		{
			name: "compare",
			msg: func() *amqp.ReportRequestMessage {
				m := request(amqp.KindCompare, feb1, feb29)
				m.Compare = core.PreviousMonth
				return m
			}(),
			check: func(t *testing.T, res *amqp.ReportResultMessage) {
				if res.Comparison == nil {
					t.Fatal("missing comparison")
				}
				if res.Comparison.PreviousFrom.String() != "2024-01-01" || res.Comparison.PreviousTo.String() != "2024-01-29" {
					t.Fatalf("previous window = %s..%s", res.Comparison.PreviousFrom, res.Comparison.PreviousTo)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			if err := newWorker(newStore(), pub).HandleReportRequest(context.Background(), tt.msg); err != nil {
				t.Fatalf("HandleReportRequest: %v", err)
			}
			if len(pub.results) != 1 {
				t.Fatalf("published %d results", len(pub.results))
			}
			res := pub.results[0].msg
			if res.Status != amqp.StatusOK || res.RequestID != tt.msg.RequestID || res.Kind != tt.msg.Kind {
				t.Fatalf("unexpected result header: %+v", res)
			}
			tt.check(t, res)
		})
	}
}

func TestHandleReportRequestValidationBecomesErrorResult(t *testing.T) {
	tests := []struct {
		name string
		msg  *amqp.ReportRequestMessage
	}{
		{"accounts without range", &amqp.ReportRequestMessage{RequestID: "r1", Kind: amqp.KindAccounts}},
		{"compare without option", request(amqp.KindCompare, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))},
		{"bad granularity", &amqp.ReportRequestMessage{RequestID: "r3", Kind: amqp.KindFinancial, Granularity: "fortnight"}},
		{"unknown kind", &amqp.ReportRequestMessage{RequestID: "r4", Kind: "ledger"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			if err := newWorker(newStore(), pub).HandleReportRequest(context.Background(), tt.msg); err != nil {
				t.Fatalf("validation failures must not be retried: %v", err)
			}
			if len(pub.results) != 1 {
				t.Fatalf("published %d results", len(pub.results))
			}
			res := pub.results[0].msg
			if res.Status != amqp.StatusError || res.ErrorType != log.ErrorTypeValidation || res.Error == "" {
				t.Fatalf("unexpected result: %+v", res)
			}
		})
	}
}

func TestHandleReportRequestReplyTo(t *testing.T) {
	pub := &fakePublisher{}
	msg := request(amqp.KindFinancial, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	msg.ReplyTo = "client-42"
	if err := newWorker(newStore(), pub).HandleReportRequest(context.Background(), msg); err != nil {
		t.Fatalf("HandleReportRequest: %v", err)
	}
	if pub.results[0].replyTo != "client-42" {
		t.Fatalf("replyTo = %q", pub.results[0].replyTo)
	}
}

func TestHandleReportRequestStoreFailureIsRetried(t *testing.T) {
	pub := &fakePublisher{}
	engine := report.NewEngine(failingStore{newStore()}, log.Discard(), report.Config{HomeCurrency: "VND"})
	w := NewReportWorker(engine, pub, log.Discard())

	err := w.HandleReportRequest(context.Background(), request(amqp.KindFinancial, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)))
	if err == nil {
		t.Fatal("expected store failure to be returned")
	}
	if len(pub.results) != 0 {
		t.Fatalf("no result should be published on retryable failure, got %d", len(pub.results))
	}
}

func TestHandleReportRequestPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	err := newWorker(newStore(), pub).HandleReportRequest(context.Background(), request(amqp.KindFinancial, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)))
	if err == nil {
		t.Fatal("expected publish failure to be returned")
	}
}
