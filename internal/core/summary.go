package core

import "github.com/shopspring/decimal"

// AggregateRow is one group of a dimension breakdown.
type AggregateRow struct {
	Key           string          `json:"key"`
	Name          string          `json:"name,omitempty"`
	IncomeTotal   decimal.Decimal `json:"incomeTotal"`
	ExpenseTotal  decimal.Decimal `json:"expenseTotal"`
	NetBalance    decimal.Decimal `json:"netBalance"`
	TransferTotal decimal.Decimal `json:"transferTotal"`
	Count         int             `json:"transactionCount"`
	Currency      string          `json:"currency,omitempty"`
	MixedUnits    bool            `json:"mixedUnits,omitempty"`
}

// Flow is the ranking measure for dimension rows.
func (r AggregateRow) Flow() decimal.Decimal {
	return r.IncomeTotal.Add(r.ExpenseTotal)
}

// TypeRow totals one transaction type.
type TypeRow struct {
	Type        TransactionType `json:"type"`
	AmountTotal decimal.Decimal `json:"amountTotal"`
	Count       int             `json:"transactionCount"`
	Currency    string          `json:"currency,omitempty"`
	MixedUnits  bool            `json:"mixedUnits,omitempty"`
}

// RankedTransaction is a top-N entry.
type RankedTransaction struct {
	ID          string          `json:"id"`
	Date        Date            `json:"date"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description,omitempty"`
	AmountTotal Money           `json:"amountTotal"`
}

// Summary is the type-independent headline of a report.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetBalance   decimal.Decimal `json:"netBalance"`
	Count        int             `json:"transactionCount"`
	Currency     string          `json:"currency,omitempty"`
	MixedUnits   bool            `json:"mixedUnits,omitempty"`
}

// BalanceRow carries the opening/closing shape of the account report.
type BalanceRow struct {
	Key            string          `json:"key"`
	Name           string          `json:"name,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	IncomeTotal    decimal.Decimal `json:"incomeTotal"`
	ExpenseTotal   decimal.Decimal `json:"expenseTotal"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	Count          int             `json:"transactionCount"`
	// OpeningUnavailable is set when the opening balance could not be
	// looked up and zero was used in its place.
	OpeningUnavailable bool `json:"openingUnavailable,omitempty"`
}

// Close recomputes ClosingBalance from the other fields.
func (r *BalanceRow) Close() {
	r.ClosingBalance = r.OpeningBalance.Add(r.IncomeTotal).Sub(r.ExpenseTotal)
}

// AccountReport is the running-balance view of a date window.
type AccountReport struct {
	From           Date            `json:"from"`
	To             Date            `json:"to"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	TotalExpense   decimal.Decimal `json:"totalExpense"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`

	Periods      []BalanceRow `json:"periods"`
	Accounts     []BalanceRow `json:"accounts"`
	AccountTypes []BalanceRow `json:"accountTypes"`
	Currencies   []BalanceRow `json:"currencies"`
	MixedUnits   bool         `json:"mixedUnits,omitempty"`

	Incomplete          bool      `json:"incomplete"`
	UnavailableAccounts []string  `json:"unavailableAccounts,omitempty"`
	Warnings            []Warning `json:"warnings,omitempty"`
}

// Delta is a percentage change between two windows.
type Delta struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Percent  decimal.Decimal `json:"percent"`
}

// Comparison sets the current window against a derived previous one.
type Comparison struct {
	Option       CompareOption `json:"option"`
	PreviousFrom Date          `json:"previousFrom"`
	PreviousTo   Date          `json:"previousTo"`
	Current      Summary       `json:"current"`
	Previous     Summary       `json:"previous"`
	Income       Delta         `json:"income"`
	Expense      Delta         `json:"expense"`
	NetBalance   Delta         `json:"netBalance"`
	Count        Delta         `json:"transactionCount"`
}

// Warning reports a transaction skipped by the engine.
type Warning struct {
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason"`
}

// Report is the financial report payload.
type Report struct {
	From        *Date       `json:"from,omitempty"`
	To          *Date       `json:"to,omitempty"`
	Granularity Granularity `json:"granularity"`

	Summary         Summary             `json:"summary"`
	ByPeriod        []AggregateRow      `json:"byPeriod"`
	ByCategory      []AggregateRow      `json:"byCategory"`
	ByPartner       []AggregateRow      `json:"byPartner"`
	ByCreator       []AggregateRow      `json:"byCreator"`
	ByAccount       []AggregateRow      `json:"byAccount"`
	ByCurrency      []AggregateRow      `json:"byCurrency"`
	ByType          []TypeRow           `json:"byType"`
	TopTransactions []RankedTransaction `json:"topTransactions"`
	TopCategories   []AggregateRow      `json:"topCategories"`
	TopPartners     []AggregateRow      `json:"topPartners"`
	Comparison      *Comparison         `json:"comparison,omitempty"`
	Warnings        []Warning           `json:"warnings,omitempty"`
}
