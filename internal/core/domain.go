package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

// DefaultCurrency is the currency code of a transaction with no account legs.
const DefaultCurrency = "default"

const dateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is one ledger entry. It is never mutated by the engine
	// apart from the derived CurrencyCode.
	Transaction struct {
		ID         string
		Date       Date
		Type       TransactionType
		Amount     decimal.Decimal
		HomeAmount *decimal.Decimal // already converted to the home currency

		SourceAccountID      string
		DestinationAccountID string

		CategoryID   string
		CategoryName string
		PartnerID    string
		PartnerName  string
		CreatorID    string
		CreatorName  string

		Description    string
		DocumentNumber string
		Note           string

		// CurrencyCode is derived from the account legs, see ResolveCurrency.
		CurrencyCode string
	}

	Account struct {
		ID             string
		Name           string
		Type           string
		CurrencyCode   string
		OpeningBalance decimal.Decimal
	}
)

var (
	ErrInvalidType     = errors.New("unrecognized transaction type")
	ErrSameAccountLegs = errors.New("source and destination account are the same")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyAccountID  = errors.New("empty account id")
)

// IsValid reports whether t is one of the three ledger movement types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts the lower, upper or title-case type name.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonthsClamped shifts by n calendar months, clamping the day to the end
// of the target month (Mar 31 minus one month is Feb 28/29, not Mar 3).
func (d Date) AddMonthsClamped(n int) Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// DaysUntil returns the whole number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte(""), nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	b, _ := d.MarshalText()
	return json.Marshal(string(b))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}

// Check rejects records that would corrupt aggregate invariants.
func (t Transaction) Check() error {
	if !t.Type.IsValid() {
		return &InvalidStateError{TransactionID: t.ID, Reason: fmt.Sprintf("transaction type %q", t.Type), Err: ErrInvalidType}
	}
	if t.SourceAccountID != "" && t.SourceAccountID == t.DestinationAccountID {
		return &InvalidStateError{TransactionID: t.ID, Reason: "account " + t.SourceAccountID, Err: ErrSameAccountLegs}
	}
	return nil
}

// Preferred applies the home-currency fallback rule: the converted amount
// when present, the native amount otherwise. Every aggregate goes through it.
func (t Transaction) Preferred(home string) Money {
	if t.HomeAmount != nil {
		return Money{Amount: *t.HomeAmount, Currency: home, Converted: true}
	}
	cur := t.CurrencyCode
	if cur == "" {
		cur = DefaultCurrency
	}
	return Money{Amount: t.Amount, Currency: cur}
}

// Touches reports whether accountID is either leg of the transaction.
func (t Transaction) Touches(accountID string) bool {
	return accountID != "" && (t.SourceAccountID == accountID || t.DestinationAccountID == accountID)
}

// DeltaFor is the balance effect of the transaction on accountID.
func (t Transaction) DeltaFor(accountID string, amount decimal.Decimal) decimal.Decimal {
	delta := decimal.Zero
	if accountID == "" {
		return delta
	}
	if t.SourceAccountID == accountID && (t.Type == Expense || t.Type == Transfer) {
		delta = delta.Sub(amount)
	}
	if t.DestinationAccountID == accountID && (t.Type == Income || t.Type == Transfer) {
		delta = delta.Add(amount)
	}
	return delta
}

// ResolveCurrency derives the transaction currency from its account legs.
func (t Transaction) ResolveCurrency(accounts map[string]Account) string {
	if a, ok := accounts[t.SourceAccountID]; ok && t.SourceAccountID != "" && a.CurrencyCode != "" {
		return a.CurrencyCode
	}
	if a, ok := accounts[t.DestinationAccountID]; ok && t.DestinationAccountID != "" && a.CurrencyCode != "" {
		return a.CurrencyCode
	}
	return DefaultCurrency
}

// ResolveCurrencies returns a copy of txs with CurrencyCode filled in.
func ResolveCurrencies(txs []Transaction, accounts map[string]Account) []Transaction {
	out := make([]Transaction, len(txs))
	for i, t := range txs {
		t.CurrencyCode = t.ResolveCurrency(accounts)
		out[i] = t
	}
	return out
}

// AccountIDs lists the distinct account ids referenced by txs, in first-seen order.
func AccountIDs(txs []Transaction) []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, t := range txs {
		add(t.SourceAccountID)
		add(t.DestinationAccountID)
	}
	return ids
}

// IndexAccounts keys accounts by id.
func IndexAccounts(accounts []Account) map[string]Account {
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return m
}

// FoldOpeningBalances computes, for each account in ids, its opening balance
// plus the effect of every history entry dated strictly before asOf.
func FoldOpeningBalances(history []Transaction, accounts map[string]Account, ids []string, asOf Date, home string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		out[id] = accounts[id].OpeningBalance
	}
	for _, t := range history {
		if !t.Date.Before(asOf) || t.Check() != nil {
			continue
		}
		amount := t.Preferred(home).Amount
		for _, id := range []string{t.SourceAccountID, t.DestinationAccountID} {
			bal, ok := out[id]
			if !ok {
				continue
			}
			out[id] = bal.Add(t.DeltaFor(id, amount))
		}
	}
	return out
}
