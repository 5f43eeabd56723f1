package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks errors caused by a report request missing fields an
	// operation needs. Callers surface these, they are never retried.
	ErrValidation = errors.New("validation error")

	// ErrLookup marks a ledger store sub-query that could not be answered.
	ErrLookup = errors.New("lookup failure")

	// ErrInvalidState marks a ledger record that cannot be aggregated.
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError names the operation and the missing or malformed field.
type ValidationError struct {
	Op    string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "is required"
	}
	if e.Op == "" {
		return fmt.Sprintf("%s %s", e.Field, msg)
	}
	return fmt.Sprintf("%s: %s %s", e.Op, e.Field, msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LookupFailure records a failed per-account store query.
type LookupFailure struct {
	AccountID string
	Err       error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("lookup account %s: %v", e.AccountID, e.Err)
}

func (e *LookupFailure) Unwrap() error {
	return e.Err
}

func (e *LookupFailure) Is(target error) bool {
	return target == ErrLookup
}

// InvalidStateError identifies a rejected transaction.
type InvalidStateError struct {
	TransactionID string
	Reason        string
	Err           error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("transaction %s: %v (%s)", e.TransactionID, e.Err, e.Reason)
}

func (e *InvalidStateError) Unwrap() error {
	return e.Err
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
