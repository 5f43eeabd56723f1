// Package ledger declares the ports the report engine reads ledger data
// through. Adapters live in internal/storage (SQLite), internal/sheets/google
// and internal/ledger/memory.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionFetcher answers range queries. Implementations must honour
	// the date bounds of the filter and may ignore the other fields; the
	// engine re-applies the full filter in memory.
	TransactionFetcher interface {
		FetchTransactions(ctx context.Context, filter core.ReportFilter) ([]core.Transaction, error)
	}

	// AccountReader returns account master data. Unknown ids are omitted
	// from the result rather than reported as errors.
	AccountReader interface {
		FetchAccounts(ctx context.Context, ids []string) ([]core.Account, error)
	}

	// OpeningBalanceReader returns an account's balance before asOf: its
	// opening balance plus every movement dated strictly earlier.
	OpeningBalanceReader interface {
		FetchAccountOpeningBalance(ctx context.Context, accountID string, asOf core.Date) (decimal.Decimal, error)
	}

	// OpeningBalanceBatcher is implemented by stores that can answer all
	// opening balances with a single query.
	OpeningBalanceBatcher interface {
		FetchOpeningBalances(ctx context.Context, accountIDs []string, asOf core.Date) (map[string]decimal.Decimal, error)
	}

	// Versioned is implemented by stores that can report a token which
	// changes whenever their accounts or transactions change. Opening
	// balances are only cached for versioned stores.
	Versioned interface {
		LedgerVersion(ctx context.Context) (string, error)
	}

	// Store is everything the engine needs.
	Store interface {
		TransactionFetcher
		AccountReader
		OpeningBalanceReader
	}
)

// InRange reports whether d satisfies the filter's inclusive date bounds.
func InRange(d core.Date, f core.ReportFilter) bool {
	if f.From != nil && !f.From.IsZero() && d.Before(*f.From) {
		return false
	}
	if f.To != nil && !f.To.IsZero() && d.After(*f.To) {
		return false
	}
	return true
}
