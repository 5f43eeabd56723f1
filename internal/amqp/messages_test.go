package amqp

import (
	"errors"
	"testing"
	"time"

	"ledgerreport/internal/core"
)

func TestNewReportRequestMessage(t *testing.T) {
	from, to := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)
	msg := NewReportRequestMessage(KindFinancial, core.ReportFilter{From: &from, To: &to})

	if msg.RequestID == "" {
		t.Fatal("request id should be set")
	}
	if msg.Kind != KindFinancial {
		t.Fatalf("kind = %s", msg.Kind)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Fatal("timestamp should be recent")
	}
	if other := NewReportRequestMessage(KindFinancial, core.ReportFilter{}); other.RequestID == msg.RequestID {
		t.Fatal("request ids must be unique")
	}
}

func TestReportRequestMessageFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		check   func(t *testing.T, m *ReportRequestMessage)
	}{
		{
			name: "full request",
			body: `{"requestId":"r-1","kind":"compare","filter":{"from":"2024-02-01","to":"2024-02-29","accountIds":["A"]},"compare":"previous_month","replyTo":"client-7"}`,
			check: func(t *testing.T, m *ReportRequestMessage) {
				if m.RequestID != "r-1" || m.Kind != KindCompare || m.Compare != core.PreviousMonth || m.ReplyTo != "client-7" {
					t.Fatalf("unexpected message: %+v", m)
				}
				if m.Filter.From == nil || m.Filter.From.String() != "2024-02-01" || len(m.Filter.AccountIDs) != 1 {
					t.Fatalf("unexpected filter: %+v", m.Filter)
				}
			},
		},
		{
			name: "missing id is generated",
			body: `{"kind":"financial"}`,
			check: func(t *testing.T, m *ReportRequestMessage) {
				if m.RequestID == "" {
					t.Fatal("expected generated request id")
				}
			},
		},
		{name: "missing kind", body: `{"requestId":"x"}`, wantErr: true},
		{name: "bad date", body: `{"kind":"financial","filter":{"from":"01/02/2024"}}`, wantErr: true},
		{name: "not json", body: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ReportRequestMessageFromJSON([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestNewErrorResult(t *testing.T) {
	req := &ReportRequestMessage{RequestID: "r-9", Kind: KindAccounts}
	res := NewErrorResult(req, "validation_error", errors.New("from is required"))

	if res.RequestID != "r-9" || res.Kind != KindAccounts || res.Status != StatusError {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Error != "from is required" || res.ErrorType != "validation_error" {
		t.Fatalf("unexpected error fields: %+v", res)
	}

	body, err := res.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := ReportResultMessageFromJSON(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Status != StatusError || back.Report != nil || back.AccountReport != nil {
		t.Fatalf("unexpected decoded result: %+v", back)
	}
}

func TestReportKindIsValid(t *testing.T) {
	for _, k := range []ReportKind{KindFinancial, KindAccounts, KindCompare} {
		if !k.IsValid() {
			t.Fatalf("%s should be valid", k)
		}
	}
	if ReportKind("ledger").IsValid() {
		t.Fatal("unknown kind should be invalid")
	}
}
