package backend

import (
	"context"

	"ledgerreport/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready ledger store plus its cleanup hook.
type BackendResult struct {
	Backend ledger.Store
	Cleanup CleanupFunc
}

// Close runs the cleanup hook if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger stores
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Currency reported when a transaction carries a home-currency amount
	HomeCurrency string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleAccountsSheet      string
	GoogleTransactionsSheet  string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	MemorySeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
