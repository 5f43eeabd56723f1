package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger"
	"ledgerreport/internal/log"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ ledger.Store                 = (*SQLiteRepository)(nil)
	_ ledger.OpeningBalanceBatcher = (*SQLiteRepository)(nil)
	_ ledger.Versioned             = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveAccount inserts or replaces account master data.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, a core.Account) error {
	if a.ID == "" {
		return core.ErrEmptyAccountID
	}
	err := r.queries.UpsertAccount(ctx, AccountRow{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		CurrencyCode:   a.CurrencyCode,
		OpeningBalance: a.OpeningBalance.String(),
	})
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

// Append stores a transaction, assigning a UUID when it has no id.
func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Check(); err != nil {
		return "", err
	}
	if err := t.Date.Validate(); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := r.queries.InsertTransaction(ctx, toRow(t)); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, t.ID,
		"type", t.Type,
		"date", t.Date.String())
	return t.ID, nil
}

// Import stores accounts and transactions in one database transaction.
func (r *SQLiteRepository) Import(ctx context.Context, accounts []core.Account, txs []core.Transaction) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := r.queries.WithTx(tx)
	for _, a := range accounts {
		if a.ID == "" {
			return core.ErrEmptyAccountID
		}
		if err = q.UpsertAccount(ctx, AccountRow{ID: a.ID, Name: a.Name, Type: a.Type, CurrencyCode: a.CurrencyCode, OpeningBalance: a.OpeningBalance.String()}); err != nil {
			return fmt.Errorf("upsert account %s: %w", a.ID, err)
		}
	}
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if err = q.InsertTransaction(ctx, toRow(t)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	r.logger.InfoContext(ctx, "Ledger imported", "accounts", len(accounts), log.FieldCount, len(txs))
	return nil
}

// FetchTransactions pushes the date bounds down to SQL; the other filter
// fields are applied by the report engine.
func (r *SQLiteRepository) FetchTransactions(ctx context.Context, f core.ReportFilter) ([]core.Transaction, error) {
	var from, to string
	if f.From != nil && !f.From.IsZero() {
		from = f.From.String()
	}
	if f.To != nil && !f.To.IsZero() {
		to = f.To.String()
	}
	rows, err := r.queries.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return fromRows(rows)
}

func (r *SQLiteRepository) FetchAccounts(ctx context.Context, ids []string) ([]core.Account, error) {
	rows, err := r.queries.GetAccounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		bal, err := decimal.NewFromString(row.OpeningBalance)
		if err != nil {
			return nil, fmt.Errorf("account %s opening balance %q: %w", row.ID, row.OpeningBalance, core.ErrInvalidAmount)
		}
		out = append(out, core.Account{
			ID:             row.ID,
			Name:           row.Name,
			Type:           row.Type,
			CurrencyCode:   row.CurrencyCode,
			OpeningBalance: bal,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) FetchAccountOpeningBalance(ctx context.Context, accountID string, asOf core.Date) (decimal.Decimal, error) {
	m, err := r.FetchOpeningBalances(ctx, []string{accountID}, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return m[accountID], nil
}

// FetchOpeningBalances reads the pre-window history of every account in one
// query and folds it in memory. Amounts are stored as decimal text, so the
// sum is not done in SQL.
func (r *SQLiteRepository) FetchOpeningBalances(ctx context.Context, accountIDs []string, asOf core.Date) (map[string]decimal.Decimal, error) {
	accts, err := r.FetchAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListTransactionsBefore(ctx, asOf.String(), accountIDs)
	if err != nil {
		return nil, fmt.Errorf("list history before %s: %w", asOf, err)
	}
	history, err := fromRows(rows)
	if err != nil {
		return nil, err
	}
	return core.FoldOpeningBalances(history, core.IndexAccounts(accts), accountIDs, asOf, ""), nil
}

// LedgerVersion returns the trigger-maintained write counter. It changes on
// every account or transaction write, including writes by other processes
// sharing the database file.
func (r *SQLiteRepository) LedgerVersion(ctx context.Context) (string, error) {
	v, err := r.queries.GetLedgerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("read ledger version: %w", err)
	}
	return strconv.FormatInt(v, 10), nil
}

func toRow(t core.Transaction) TransactionRow {
	row := TransactionRow{
		ID:                   t.ID,
		Date:                 t.Date.String(),
		Type:                 string(t.Type),
		Amount:               t.Amount.String(),
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		CategoryID:           t.CategoryID,
		CategoryName:         t.CategoryName,
		PartnerID:            t.PartnerID,
		PartnerName:          t.PartnerName,
		CreatorID:            t.CreatorID,
		CreatorName:          t.CreatorName,
		Description:          t.Description,
		DocumentNumber:       t.DocumentNumber,
		Note:                 t.Note,
	}
	if t.HomeAmount != nil {
		row.HomeAmount = sql.NullString{String: t.HomeAmount.String(), Valid: true}
	}
	return row
}

func fromRows(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func fromRow(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount %q: %w", row.ID, row.Amount, core.ErrInvalidAmount)
	}
	t := core.Transaction{
		ID:                   row.ID,
		Date:                 date,
		Type:                 core.TransactionType(row.Type),
		Amount:               amount,
		SourceAccountID:      row.SourceAccountID,
		DestinationAccountID: row.DestinationAccountID,
		CategoryID:           row.CategoryID,
		CategoryName:         row.CategoryName,
		PartnerID:            row.PartnerID,
		PartnerName:          row.PartnerName,
		CreatorID:            row.CreatorID,
		CreatorName:          row.CreatorName,
		Description:          row.Description,
		DocumentNumber:       row.DocumentNumber,
		Note:                 row.Note,
	}
	if row.HomeAmount.Valid {
		home, err := decimal.NewFromString(row.HomeAmount.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s home amount %q: %w", row.ID, row.HomeAmount.String, core.ErrInvalidAmount)
		}
		t.HomeAmount = &home
	}
	return t, nil
}
