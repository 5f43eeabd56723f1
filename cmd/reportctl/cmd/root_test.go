package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
	"ledgerreport/internal/storage"
)

const testSeed = `{
	"accounts": [{"id": "A", "name": "Checking", "type": "bank", "currency": "VND"}],
	"transactions": [
		{"id": "t1", "date": "2024-01-05", "type": "Income", "amount": "1000", "destinationAccountId": "A"},
		{"id": "t2", "date": "2024-01-20", "type": "expense", "amount": "400", "sourceAccountId": "A"}
	]
}`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(testSeed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

// resetFlags restores the package-level flag targets between runs.
func resetFlags() {
	financialFlags = filterFlags{granularity: "month"}
	accountsFlags = filterFlags{}
	compareFlags = filterFlags{compare: "previous_period"}
	importFile, importDB = "", ""
	envFile, logLevel, backend, compact = "", "warn", "", false
}

// run executes reportctl with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFinancialCommandPrintsReport(t *testing.T) {
	t.Setenv("MEMORY_SEED_FILE", writeSeed(t))

	out, err := run(t, "financial", "--from", "2024-01-01", "--to", "2024-01-31", "--compact")
	if err != nil {
		t.Fatalf("financial: %v", err)
	}
	var rep core.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if rep.Summary.Count != 2 || !rep.Summary.NetBalance.Equal(decimal.RequireFromString("600")) {
		t.Fatalf("summary = %+v", rep.Summary)
	}
}

func TestReportCommandErrorsAreReturned(t *testing.T) {
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{name: "account report without end date", args: []string{"accounts", "--from", "2024-02-01", "--to", ""}, is: core.ErrValidation},
		{name: "malformed date", args: []string{"accounts", "--from", "2024-13-01", "--to", "2024-02-01"}, is: core.ErrValidation},
		{name: "unknown type", args: []string{"financial", "--from", "2024-01-01", "--to", "2024-01-31", "--type", "refund"}, is: core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestImportCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, "import", "--file", writeSeed(t), "--db", db)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 1 accounts and 2 transactions") {
		t.Fatalf("output = %q", out)
	}

	repo, err := storage.NewSQLiteRepository(db, nil)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer repo.Close()
	txs, err := repo.FetchTransactions(context.Background(), core.ReportFilter{})
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	if len(txs) != 2 || txs[0].Type != core.Income {
		t.Fatalf("imported %+v", txs)
	}
}

func TestImportCommandRejectsEmptyFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	if _, err := run(t, "import", "--file", missing, "--db", filepath.Join(t.TempDir(), "ledger.db")); err == nil {
		t.Fatal("expected an error for a missing ledger file")
	}
}
