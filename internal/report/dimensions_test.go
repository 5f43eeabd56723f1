package report

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

func TestPeriodKey(t *testing.T) {
	cases := []struct {
		date string
		g    core.Granularity
		want string
	}{
		{"2024-03-09", core.Day, "2024-03-09"},
		{"2024-01-01", core.Week, "2024-W01"},
		{"2024-01-06", core.Week, "2024-W01"},
		{"2024-01-07", core.Week, "2024-W02"},
		{"2023-01-01", core.Week, "2023-W01"},
		{"2024-12-31", core.Week, "2024-W53"},
		{"2024-03-09", core.Month, "2024-03"},
		{"2024-05-10", core.Quarter, "2024-Q2"},
		{"2024-12-31", core.Quarter, "2024-Q4"},
		{"2024-05-10", core.Year, "2024"},
	}
	for _, tc := range cases {
		if got := PeriodKey(d(tc.date), tc.g); got != tc.want {
			t.Errorf("PeriodKey(%s, %s) = %s, want %s", tc.date, tc.g, got, tc.want)
		}
	}
}

func TestByPeriodAscending(t *testing.T) {
	txs := []core.Transaction{
		{ID: "3", Date: d("2024-03-02"), Type: core.Expense, Amount: amt("5")},
		{ID: "1", Date: d("2024-01-15"), Type: core.Income, Amount: amt("10")},
		{ID: "2", Date: d("2024-01-20"), Type: core.Expense, Amount: amt("4")},
	}
	rows := ByPeriod(txs, core.Month, "EUR")
	if len(rows) != 2 || rows[0].Key != "2024-01" || rows[1].Key != "2024-03" {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[0].NetBalance.Equal(amt("6")) || rows[0].Count != 2 {
		t.Fatalf("january = %+v", rows[0])
	}
}

func TestByCategoryOrderingAndTies(t *testing.T) {
	txs := []core.Transaction{
		{ID: "1", Type: core.Expense, Amount: amt("10"), CategoryID: "food", CategoryName: "Food"},
		{ID: "2", Type: core.Expense, Amount: amt("30"), CategoryID: "rent"},
		{ID: "3", Type: core.Income, Amount: amt("10"), CategoryID: "gifts"},
		{ID: "4", Type: core.Expense, Amount: amt("1"), CategoryID: ""},
	}
	rows := ByCategory(txs, "EUR")
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	got := []string{rows[0].Key, rows[1].Key, rows[2].Key}
	want := []string{"rent", "food", "gifts"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if rows[1].Name != "Food" {
		t.Fatalf("name = %q", rows[1].Name)
	}
}

func TestMixedUnitsAreFlagged(t *testing.T) {
	home := amt("25")
	txs := []core.Transaction{
		{ID: "1", Type: core.Expense, Amount: amt("100"), HomeAmount: &home, CurrencyCode: "USD", CategoryID: "travel"},
		{ID: "2", Type: core.Expense, Amount: amt("7"), CurrencyCode: "USD", CategoryID: "travel"},
		{ID: "3", Type: core.Expense, Amount: amt("3"), HomeAmount: &home, CurrencyCode: "USD", CategoryID: "food"},
	}
	rows := ByCategory(txs, "EUR")
	if !rows[0].MixedUnits || rows[0].Currency != "" {
		t.Fatalf("travel = %+v", rows[0])
	}
	if !rows[0].ExpenseTotal.Equal(amt("32")) {
		t.Fatalf("travel expense = %s, want 32", rows[0].ExpenseTotal)
	}
	if rows[1].MixedUnits || rows[1].Currency != "EUR" {
		t.Fatalf("food = %+v", rows[1])
	}
	if s := Summarize(txs, "EUR"); !s.MixedUnits {
		t.Fatalf("summary should be mixed")
	}
}

func TestByCurrencyUsesResolvedCode(t *testing.T) {
	accounts := core.IndexAccounts([]core.Account{{ID: "usd", CurrencyCode: "USD"}, {ID: "eur", CurrencyCode: "EUR"}})
	txs := core.ResolveCurrencies([]core.Transaction{
		{ID: "1", Type: core.Expense, Amount: amt("1"), SourceAccountID: "usd"},
		{ID: "2", Type: core.Income, Amount: amt("2"), DestinationAccountID: "eur"},
		{ID: "3", Type: core.Expense, Amount: amt("5")},
	}, accounts)
	rows := ByCurrency(txs, "EUR")
	keys := map[string]bool{}
	for _, r := range rows {
		keys[r.Key] = true
	}
	if len(rows) != 3 || !keys["USD"] || !keys["EUR"] || !keys[core.DefaultCurrency] {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestByTypeOrder(t *testing.T) {
	txs := []core.Transaction{
		{ID: "1", Type: core.Transfer, Amount: amt("3"), SourceAccountID: "a", DestinationAccountID: "b"},
		{ID: "2", Type: core.Expense, Amount: amt("2")},
		{ID: "3", Type: core.Expense, Amount: amt("4")},
	}
	rows := ByType(txs, "EUR")
	if len(rows) != 2 || rows[0].Type != core.Expense || rows[1].Type != core.Transfer {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[0].AmountTotal.Equal(amt("6")) || rows[0].Count != 2 {
		t.Fatalf("expense row = %+v", rows[0])
	}
}

func TestTopTransactions(t *testing.T) {
	txs := []core.Transaction{
		{ID: "a", Type: core.Expense, Amount: amt("5")},
		{ID: "b", Type: core.Income, Amount: amt("50")},
		{ID: "c", Type: core.Expense, Amount: amt("5")},
		{ID: "d", Type: core.Expense, Amount: amt("1")},
	}
	top := TopTransactions(txs, 3, "EUR")
	if len(top) != 3 || top[0].ID != "b" || top[1].ID != "a" || top[2].ID != "c" {
		t.Fatalf("top = %+v", top)
	}
	if len(TopTransactions(txs, 0, "EUR")) != 0 {
		t.Fatalf("n=0 should be empty")
	}
	if len(TopTransactions(txs, 10, "EUR")) != 4 {
		t.Fatalf("n larger than input should return everything")
	}
}

func TestTopRowsDoesNotReorderInput(t *testing.T) {
	rows := []core.AggregateRow{
		{Key: "small", IncomeTotal: decimal.NewFromInt(1), ExpenseTotal: decimal.Zero},
		{Key: "big", IncomeTotal: decimal.NewFromInt(9), ExpenseTotal: decimal.Zero},
	}
	top := TopRows(rows, 1)
	if len(top) != 1 || top[0].Key != "big" {
		t.Fatalf("top = %+v", top)
	}
	if rows[0].Key != "small" {
		t.Fatalf("input was reordered")
	}
}
