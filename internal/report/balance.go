package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

// UnspecifiedAccountType is the rollup key for accounts without a type.
const UnspecifiedAccountType = "unspecified"

// Openings is the result of the opening-balance lookups for one report.
type Openings struct {
	Balances map[string]decimal.Decimal
	// Unavailable lists accounts whose lookup failed, in lookup order.
	Unavailable []string
}

func (o Openings) unavailable(id string) bool {
	for _, u := range o.Unavailable {
		if u == id {
			return true
		}
	}
	return false
}

// ReportAccounts returns the accounts an account report covers: every
// account referenced by txs, restricted to f.AccountIDs when that is set.
func ReportAccounts(txs []core.Transaction, f core.ReportFilter) []string {
	ids := core.AccountIDs(txs)
	if len(f.AccountIDs) == 0 {
		return ids
	}
	allowed := newSet(f.AccountIDs)
	out := ids[:0:0]
	for _, id := range ids {
		if allowed.has(id) {
			out = append(out, id)
		}
	}
	return out
}

type rollupDim int

const (
	rollupAccountType rollupDim = iota
	rollupCurrency
)

// rollupKey keeps account types and currency codes apart even when they
// share a spelling.
type rollupKey struct {
	dim   rollupDim
	value string
}

// ComputeAccountReport builds the running-balance report over the filtered
// transactions txs. openings must hold the balance of every report account
// as of f.From. Closing balances always equal opening + income - expense.
func ComputeAccountReport(txs []core.Transaction, accounts map[string]core.Account, openings Openings, f core.ReportFilter, home string) (core.AccountReport, error) {
	if err := f.RequireRange("account report"); err != nil {
		return core.AccountReport{}, err
	}
	ids := ReportAccounts(txs, f)
	inReport := newSet(ids)
	if len(ids) == 0 {
		inReport = set{}
	}

	rep := core.AccountReport{
		From:           *f.From,
		To:             *f.To,
		OpeningBalance: decimal.Zero,
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
	}

	rows := make(map[string]*core.BalanceRow, len(ids))
	for _, id := range ids {
		row := &core.BalanceRow{
			Key:            id,
			Name:           accounts[id].Name,
			OpeningBalance: decimal.Zero,
			IncomeTotal:    decimal.Zero,
			ExpenseTotal:   decimal.Zero,
		}
		if openings.unavailable(id) {
			row.OpeningUnavailable = true
			rep.Incomplete = true
			rep.UnavailableAccounts = append(rep.UnavailableAccounts, id)
		} else if bal, ok := openings.Balances[id]; ok {
			row.OpeningBalance = bal
		}
		rows[id] = row
	}

	var units core.UnitTracker
	periods := newBalanceSeries()
	for _, t := range txs {
		m := t.Preferred(home)
		touched := false
		for _, l := range legs(t, m) {
			if !inReport.has(l.account) {
				continue
			}
			row := rows[l.account]
			p := periods.get(PeriodKey(t.Date, core.Month))
			if l.incoming {
				row.IncomeTotal = row.IncomeTotal.Add(l.money.Amount)
				p.IncomeTotal = p.IncomeTotal.Add(l.money.Amount)
			} else {
				row.ExpenseTotal = row.ExpenseTotal.Add(l.money.Amount)
				p.ExpenseTotal = p.ExpenseTotal.Add(l.money.Amount)
			}
			row.Count++
			units.Add(l.money)
			touched = true
		}
		if touched {
			periods.get(PeriodKey(t.Date, core.Month)).Count++
		}
	}

	rollups := map[rollupKey]*core.BalanceRow{}
	var typeOrder, currencyOrder []rollupKey
	rollup := func(k rollupKey, src *core.BalanceRow) {
		r, ok := rollups[k]
		if !ok {
			r = &core.BalanceRow{Key: k.value, OpeningBalance: decimal.Zero, IncomeTotal: decimal.Zero, ExpenseTotal: decimal.Zero}
			rollups[k] = r
			if k.dim == rollupAccountType {
				typeOrder = append(typeOrder, k)
			} else {
				currencyOrder = append(currencyOrder, k)
			}
		}
		r.OpeningBalance = r.OpeningBalance.Add(src.OpeningBalance)
		r.IncomeTotal = r.IncomeTotal.Add(src.IncomeTotal)
		r.ExpenseTotal = r.ExpenseTotal.Add(src.ExpenseTotal)
		r.Count += src.Count
		r.OpeningUnavailable = r.OpeningUnavailable || src.OpeningUnavailable
		r.Close()
	}

	for _, id := range ids {
		row := rows[id]
		row.Close()
		rep.Accounts = append(rep.Accounts, *row)
		rep.OpeningBalance = rep.OpeningBalance.Add(row.OpeningBalance)
		rep.TotalIncome = rep.TotalIncome.Add(row.IncomeTotal)
		rep.TotalExpense = rep.TotalExpense.Add(row.ExpenseTotal)

		acct := accounts[id]
		typ := acct.Type
		if typ == "" {
			typ = UnspecifiedAccountType
		}
		cur := acct.CurrencyCode
		if cur == "" {
			cur = core.DefaultCurrency
		}
		rollup(rollupKey{dim: rollupAccountType, value: typ}, row)
		rollup(rollupKey{dim: rollupCurrency, value: cur}, row)
	}
	rep.ClosingBalance = rep.OpeningBalance.Add(rep.TotalIncome).Sub(rep.TotalExpense)
	rep.Periods = periods.fold(rep.OpeningBalance)
	for _, k := range typeOrder {
		rep.AccountTypes = append(rep.AccountTypes, *rollups[k])
	}
	for _, k := range currencyOrder {
		rep.Currencies = append(rep.Currencies, *rollups[k])
	}
	rep.MixedUnits = units.Mixed()
	return rep, nil
}

// balanceSeries collects per-period flows before the running fold.
type balanceSeries struct {
	index map[string]*core.BalanceRow
}

func newBalanceSeries() *balanceSeries {
	return &balanceSeries{index: map[string]*core.BalanceRow{}}
}

func (s *balanceSeries) get(key string) *core.BalanceRow {
	if r, ok := s.index[key]; ok {
		return r
	}
	r := &core.BalanceRow{Key: key, OpeningBalance: decimal.Zero, IncomeTotal: decimal.Zero, ExpenseTotal: decimal.Zero}
	s.index[key] = r
	return r
}

// fold orders the periods chronologically and carries the running balance
// from each period's closing into the next one's opening.
func (s *balanceSeries) fold(opening decimal.Decimal) []core.BalanceRow {
	keys := make([]string, 0, len(s.index))
	for k := range s.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]core.BalanceRow, 0, len(keys))
	running := opening
	for _, k := range keys {
		r := *s.index[k]
		r.OpeningBalance = running
		r.Close()
		running = r.ClosingBalance
		out = append(out, r)
	}
	return out
}
