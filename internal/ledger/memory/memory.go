package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger"
)

// Ensure interface conformance
var (
	_ ledger.Store                 = (*Store)(nil)
	_ ledger.OpeningBalanceBatcher = (*Store)(nil)
	_ ledger.Versioned             = (*Store)(nil)
)

var ErrUnknownAccount = errors.New("unknown account")

type Store struct {
	mu       sync.Mutex
	home     string
	accounts []core.Account
	items    []core.Transaction
	version  uint64
}

func New(home string, accounts []core.Account, txs []core.Transaction) *Store {
	return &Store{
		home:     home,
		accounts: append([]core.Account(nil), accounts...),
		items:    append([]core.Transaction(nil), txs...),
	}
}

// Seed is the on-disk shape read by NewFromFile.
type Seed struct {
	Accounts []struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		Type           string          `json:"type"`
		Currency       string          `json:"currency"`
		OpeningBalance decimal.Decimal `json:"openingBalance"`
	} `json:"accounts"`
	Transactions []struct {
		ID             string           `json:"id"`
		Date           core.Date        `json:"date"`
		Type           string           `json:"type"`
		Amount         decimal.Decimal  `json:"amount"`
		HomeAmount     *decimal.Decimal `json:"homeAmount"`
		Source         string           `json:"sourceAccountId"`
		Destination    string           `json:"destinationAccountId"`
		CategoryID     string           `json:"categoryId"`
		CategoryName   string           `json:"categoryName"`
		PartnerID      string           `json:"partnerId"`
		PartnerName    string           `json:"partnerName"`
		CreatorID      string           `json:"creatorId"`
		CreatorName    string           `json:"creatorName"`
		Description    string           `json:"description"`
		DocumentNumber string           `json:"documentNumber"`
		Note           string           `json:"note"`
	} `json:"transactions"`
}

// NewFromFile loads a JSON seed. A missing file yields an empty store.
func NewFromFile(path, home string) (*Store, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(home, nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	s := New(home, nil, nil)
	for _, a := range seed.Accounts {
		s.accounts = append(s.accounts, core.Account{
			ID:             a.ID,
			Name:           a.Name,
			Type:           a.Type,
			CurrencyCode:   a.Currency,
			OpeningBalance: a.OpeningBalance,
		})
	}
	for _, t := range seed.Transactions {
		typ, err := core.ParseTransactionType(t.Type)
		if err != nil {
			// kept verbatim; the engine skips it with a warning
			typ = core.TransactionType(t.Type)
		}
		s.items = append(s.items, core.Transaction{
			ID:                   t.ID,
			Date:                 t.Date,
			Type:                 typ,
			Amount:               t.Amount,
			HomeAmount:           t.HomeAmount,
			SourceAccountID:      t.Source,
			DestinationAccountID: t.Destination,
			CategoryID:           t.CategoryID,
			CategoryName:         t.CategoryName,
			PartnerID:            t.PartnerID,
			PartnerName:          t.PartnerName,
			CreatorID:            t.CreatorID,
			CreatorName:          t.CreatorName,
			Description:          t.Description,
			DocumentNumber:       t.DocumentNumber,
			Note:                 t.Note,
		})
	}
	return s, nil
}

// Snapshot returns copies of the stored accounts and transactions.
func (s *Store) Snapshot() ([]core.Account, []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), append([]core.Transaction(nil), s.items...)
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Check(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	s.version++
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// LedgerVersion counts the writes made through Append.
func (s *Store) LedgerVersion(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.FormatUint(s.version, 10), nil
}

// FetchTransactions returns the transactions inside the filter's date range
// in insertion order.
func (s *Store) FetchTransactions(_ context.Context, f core.ReportFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.items {
		if ledger.InRange(t.Date, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) FetchAccounts(_ context.Context, ids []string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []core.Account
	for _, a := range s.accounts {
		if _, ok := want[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) FetchAccountOpeningBalance(ctx context.Context, accountID string, asOf core.Date) (decimal.Decimal, error) {
	m, err := s.FetchOpeningBalances(ctx, []string{accountID}, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return m[accountID], nil
}

// FetchOpeningBalances folds the whole pre-window history once for all ids.
func (s *Store) FetchOpeningBalances(_ context.Context, accountIDs []string, asOf core.Date) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := core.IndexAccounts(s.accounts)
	for _, id := range accountIDs {
		if _, ok := accounts[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
		}
	}
	return core.FoldOpeningBalances(s.items, accounts, accountIDs, asOf, s.home), nil
}
