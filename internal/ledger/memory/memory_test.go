package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

func seedStore() *Store {
	return New("VND",
		[]core.Account{
			{ID: "A", CurrencyCode: "VND", OpeningBalance: decimal.NewFromInt(10)},
			{ID: "B", CurrencyCode: "VND"},
		},
		[]core.Transaction{
			{ID: "1", Date: core.NewDate(2024, 1, 5), Type: core.Income, Amount: decimal.NewFromInt(100), DestinationAccountID: "A"},
			{ID: "2", Date: core.NewDate(2024, 2, 1), Type: core.Transfer, Amount: decimal.NewFromInt(40), SourceAccountID: "A", DestinationAccountID: "B"},
			{ID: "3", Date: core.NewDate(2024, 3, 1), Type: core.Expense, Amount: decimal.NewFromInt(5), SourceAccountID: "B"},
		})
}

func TestMemoryStoreFetchTransactionsRange(t *testing.T) {
	s := seedStore()
	from, to := core.NewDate(2024, 2, 1), core.NewDate(2024, 3, 1)
	txs, err := s.FetchTransactions(context.Background(), core.ReportFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(txs) != 2 || txs[0].ID != "2" || txs[1].ID != "3" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestMemoryStoreOpeningBalances(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	got, err := s.FetchOpeningBalances(ctx, []string{"A", "B"}, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !got["A"].Equal(decimal.NewFromInt(70)) || !got["B"].Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected balances: %v", got)
	}

	one, err := s.FetchAccountOpeningBalance(ctx, "A", core.NewDate(2024, 1, 5))
	if err != nil || !one.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("single = %s, %v", one, err)
	}

	if _, err := s.FetchAccountOpeningBalance(ctx, "Z", core.NewDate(2024, 1, 5)); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestMemoryStoreAppendRejectsInvalid(t *testing.T) {
	s := seedStore()
	ref, err := s.Append(context.Background(), core.Transaction{ID: "4", Type: core.Income, DestinationAccountID: "A"})
	if err != nil || ref != "mem:4" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	_, err = s.Append(context.Background(), core.Transaction{ID: "5", Type: core.Transfer, SourceAccountID: "A", DestinationAccountID: "A"})
	if !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"), "VND")
	if err != nil {
		t.Fatalf("missing file should yield empty store: %v", err)
	}
	accts, _ := s.FetchAccounts(context.Background(), []string{"A"})
	if len(accts) != 0 {
		t.Fatalf("expected empty store, got %v", accts)
	}

	seed := `{
  "accounts": [{"id": "A", "name": "Cash", "type": "cash", "currency": "VND", "openingBalance": "0"}],
  "transactions": [
    {"id": "t1", "date": "2024-01-05", "type": "income", "amount": "1000000", "destinationAccountId": "A", "categoryId": "salary"},
    {"id": "t2", "date": "2024-01-20", "type": "expense", "amount": 400000, "homeAmount": "400000", "sourceAccountId": "A"}
  ]
}`
	path := filepath.Join(dir, "ledger.json")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path, "VND")
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	txs, _ := s.FetchTransactions(context.Background(), core.ReportFilter{})
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Type != core.Income || txs[0].CategoryID != "salary" || !txs[0].Amount.Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("unexpected first transaction: %+v", txs[0])
	}
	if txs[1].HomeAmount == nil || !txs[1].HomeAmount.Equal(decimal.NewFromInt(400000)) {
		t.Fatalf("home amount not decoded: %+v", txs[1])
	}
	if !txs[0].Date.Equal(core.NewDate(2024, 1, 5)) {
		t.Fatalf("date = %s", txs[0].Date)
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFromFile(path, "VND"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMemoryStoreSnapshotIsCopy(t *testing.T) {
	s := seedStore()
	accounts, txs := s.Snapshot()
	if len(accounts) != 2 || len(txs) != 3 {
		t.Fatalf("snapshot sizes: %d accounts, %d transactions", len(accounts), len(txs))
	}
	txs[0].ID = "changed"
	if _, again := s.Snapshot(); again[0].ID != "1" {
		t.Fatal("snapshot must not alias the store")
	}
}

func TestNewFromFileNormalisesTypeCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{"transactions": [
		{"id": "t1", "date": "2024-01-05", "type": "Income", "amount": "5", "destinationAccountId": "A"},
		{"id": "t2", "date": "2024-01-06", "type": " EXPENSE ", "amount": "2", "sourceAccountId": "A"},
		{"id": "t3", "date": "2024-01-07", "type": "Refund", "amount": "1", "sourceAccountId": "A"}
	]}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err := NewFromFile(path, "VND")
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	_, txs := s.Snapshot()
	tests := []struct {
		id      string
		want    core.TransactionType
		wantErr bool
	}{
		{id: "t1", want: core.Income},
		{id: "t2", want: core.Expense},
		{id: "t3", want: "Refund", wantErr: true},
	}
	for i, tt := range tests {
		got := txs[i]
		if got.ID != tt.id || got.Type != tt.want {
			t.Fatalf("tx %d = %s/%q, want %s/%q", i, got.ID, got.Type, tt.id, tt.want)
		}
		if err := got.Check(); (err != nil) != tt.wantErr {
			t.Fatalf("%s Check() = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestMemoryStoreLedgerVersion(t *testing.T) {
	ctx := context.Background()
	s := seedStore()
	v0, _ := s.LedgerVersion(ctx)
	if _, err := s.Append(ctx, core.Transaction{ID: "n", Date: core.NewDate(2024, 3, 1), Type: core.Income, Amount: decimal.NewFromInt(1), DestinationAccountID: "A"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	v1, _ := s.LedgerVersion(ctx)
	if v0 == v1 {
		t.Fatalf("version unchanged after append: %s", v1)
	}
	if _, err := s.Append(ctx, core.Transaction{ID: "bad", Date: core.NewDate(2024, 3, 1), Type: "refund", Amount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected invalid transaction to be rejected")
	}
	if v2, _ := s.LedgerVersion(ctx); v2 != v1 {
		t.Fatalf("rejected append moved version: %s -> %s", v1, v2)
	}
}
