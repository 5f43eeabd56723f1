package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgerreport/internal/core"
)

// ReportKind names the report a request asks for.
type ReportKind string

const (
	KindFinancial ReportKind = "financial"
	KindAccounts  ReportKind = "accounts"
	KindCompare   ReportKind = "compare"
)

func (k ReportKind) IsValid() bool {
	switch k {
	case KindFinancial, KindAccounts, KindCompare:
		return true
	default:
		return false
	}
}

// ResultStatus tells whether a result carries a report or an error.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// ReportRequestMessage asks the worker to build one report.
type ReportRequestMessage struct {
	RequestID   string             `json:"requestId"`
	Kind        ReportKind         `json:"kind"`
	Filter      core.ReportFilter  `json:"filter"`
	Granularity core.Granularity   `json:"granularity,omitempty"`
	Compare     core.CompareOption `json:"compare,omitempty"`
	// ReplyTo overrides the result routing key.
	ReplyTo   string    `json:"replyTo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportRequestMessage creates a request with a fresh id.
func NewReportRequestMessage(kind ReportKind, filter core.ReportFilter) *ReportRequestMessage {
	return &ReportRequestMessage{
		RequestID: uuid.NewString(),
		Kind:      kind,
		Filter:    filter,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes a request. Requests without an id get
// one so results can still be correlated in logs.
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, errors.New("missing report kind")
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}
	return &msg, nil
}

// ReportResultMessage carries exactly one of Report, AccountReport or
// Comparison when Status is ok, and Error otherwise.
type ReportResultMessage struct {
	RequestID     string              `json:"requestId"`
	Kind          ReportKind          `json:"kind"`
	Status        ResultStatus        `json:"status"`
	Error         string              `json:"error,omitempty"`
	ErrorType     string              `json:"errorType,omitempty"`
	Report        *core.Report        `json:"report,omitempty"`
	AccountReport *core.AccountReport `json:"accountReport,omitempty"`
	Comparison    *core.Comparison    `json:"comparison,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// NewResultMessage starts an ok result for req.
func NewResultMessage(req *ReportRequestMessage) *ReportResultMessage {
	return &ReportResultMessage{
		RequestID: req.RequestID,
		Kind:      req.Kind,
		Status:    StatusOK,
		Timestamp: time.Now(),
	}
}

// NewErrorResult reports a failed request.
func NewErrorResult(req *ReportRequestMessage, errorType string, err error) *ReportResultMessage {
	res := NewResultMessage(req)
	res.Status = StatusError
	res.ErrorType = errorType
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// ToJSON converts the message to JSON bytes
func (m *ReportResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportResultMessageFromJSON decodes a result.
func ReportResultMessageFromJSON(data []byte) (*ReportResultMessage, error) {
	var msg ReportResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &msg, nil
}
