package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type AccountRow struct {
	ID             string
	Name           string
	Type           string
	CurrencyCode   string
	OpeningBalance string
}

type TransactionRow struct {
	ID                   string
	Date                 string
	Type                 string
	Amount               string
	HomeAmount           sql.NullString
	SourceAccountID      string
	DestinationAccountID string
	CategoryID           string
	CategoryName         string
	PartnerID            string
	PartnerName          string
	CreatorID            string
	CreatorName          string
	Description          string
	DocumentNumber       string
	Note                 string
}

const transactionColumns = `id, date, type, amount, home_amount, source_account_id, destination_account_id,
    category_id, category_name, partner_id, partner_name, creator_id, creator_name,
    description, document_number, note`

const upsertAccount = `INSERT INTO accounts (id, name, type, currency_code, opening_balance)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    type = excluded.type,
    currency_code = excluded.currency_code,
    opening_balance = excluded.opening_balance`

func (q *Queries) UpsertAccount(ctx context.Context, a AccountRow) error {
	_, err := q.db.ExecContext(ctx, upsertAccount, a.ID, a.Name, a.Type, a.CurrencyCode, a.OpeningBalance)
	return err
}

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.Date, t.Type, t.Amount, t.HomeAmount,
		t.SourceAccountID, t.DestinationAccountID,
		t.CategoryID, t.CategoryName, t.PartnerID, t.PartnerName, t.CreatorID, t.CreatorName,
		t.Description, t.DocumentNumber, t.Note,
	)
	return err
}

// An empty bound is open.
const listTransactionsInRange = `SELECT ` + transactionColumns + `
FROM transactions
WHERE (?1 = '' OR date >= ?1) AND (?2 = '' OR date <= ?2)
ORDER BY date, rowid`

func (q *Queries) ListTransactionsInRange(ctx context.Context, from, to string) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listTransactionsInRange, from, to)
}

// ListTransactionsBefore returns every movement dated strictly before asOf
// that touches one of accountIDs.
func (q *Queries) ListTransactionsBefore(ctx context.Context, asOf string, accountIDs []string) ([]TransactionRow, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	in := placeholders(len(accountIDs))
	query := `SELECT ` + transactionColumns + `
FROM transactions
WHERE date < ? AND (source_account_id IN (` + in + `) OR destination_account_id IN (` + in + `))
ORDER BY date, rowid`
	args := make([]interface{}, 0, 1+2*len(accountIDs))
	args = append(args, asOf)
	for i := 0; i < 2; i++ {
		for _, id := range accountIDs {
			args = append(args, id)
		}
	}
	return q.queryTransactions(ctx, query, args...)
}

func (q *Queries) GetAccounts(ctx context.Context, ids []string) ([]AccountRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, name, type, currency_code, opening_balance FROM accounts WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		var a AccountRow
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.CurrencyCode, &a.OpeningBalance); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(
			&t.ID, &t.Date, &t.Type, &t.Amount, &t.HomeAmount,
			&t.SourceAccountID, &t.DestinationAccountID,
			&t.CategoryID, &t.CategoryName, &t.PartnerID, &t.PartnerName, &t.CreatorID, &t.CreatorName,
			&t.Description, &t.DocumentNumber, &t.Note,
		); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLedgerVersion = `SELECT version FROM ledger_version WHERE id = 1`

// GetLedgerVersion reads the write counter maintained by the ledger triggers.
func (q *Queries) GetLedgerVersion(ctx context.Context) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, getLedgerVersion).Scan(&v)
	return v, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
