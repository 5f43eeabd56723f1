package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

// bucket accumulates one aggregate row.
type bucket struct {
	row   core.AggregateRow
	units core.UnitTracker
}

func (b *bucket) name(n string) {
	if b.row.Name == "" {
		b.row.Name = n
	}
}

func (b *bucket) income(m core.Money) {
	b.row.IncomeTotal = b.row.IncomeTotal.Add(m.Amount)
	b.units.Add(m)
}

func (b *bucket) expense(m core.Money) {
	b.row.ExpenseTotal = b.row.ExpenseTotal.Add(m.Amount)
	b.units.Add(m)
}

// single books t on one row: income and expense by type, transfers only in
// TransferTotal since they move money without earning or spending it.
func (b *bucket) single(t core.Transaction, m core.Money) {
	switch t.Type {
	case core.Income:
		b.income(m)
	case core.Expense:
		b.expense(m)
	case core.Transfer:
		b.row.TransferTotal = b.row.TransferTotal.Add(m.Amount)
		b.units.Add(m)
	}
	b.row.Count++
}

func (b *bucket) finish() core.AggregateRow {
	r := b.row
	r.NetBalance = r.IncomeTotal.Sub(r.ExpenseTotal)
	r.Currency = b.units.Currency()
	r.MixedUnits = b.units.Mixed()
	return r
}

// grouper keeps buckets in first-seen order under a typed key.
type grouper[K comparable] struct {
	index map[K]*bucket
	order []*bucket
}

func newGrouper[K comparable]() *grouper[K] {
	return &grouper[K]{index: map[K]*bucket{}}
}

func (g *grouper[K]) get(k K, key string) *bucket {
	if b, ok := g.index[k]; ok {
		return b
	}
	b := &bucket{row: core.AggregateRow{
		Key:           key,
		IncomeTotal:   decimal.Zero,
		ExpenseTotal:  decimal.Zero,
		TransferTotal: decimal.Zero,
	}}
	g.index[k] = b
	g.order = append(g.order, b)
	return b
}

func (g *grouper[K]) rows() []core.AggregateRow {
	out := make([]core.AggregateRow, len(g.order))
	for i, b := range g.order {
		out[i] = b.finish()
	}
	return out
}

// sortByFlow orders rows by income+expense descending; ties keep their
// first-seen order.
func sortByFlow(rows []core.AggregateRow) []core.AggregateRow {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Flow().GreaterThan(rows[j].Flow())
	})
	return rows
}

// ByPeriod buckets txs by period key, ascending.
func ByPeriod(txs []core.Transaction, g core.Granularity, home string) []core.AggregateRow {
	gr := newGrouper[string]()
	for _, t := range txs {
		key := PeriodKey(t.Date, g)
		gr.get(key, key).single(t, t.Preferred(home))
	}
	rows := gr.rows()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

// byRef groups on an optional reference; transactions without one are
// skipped.
func byRef(txs []core.Transaction, home string, ref func(core.Transaction) (id, name string)) []core.AggregateRow {
	gr := newGrouper[string]()
	for _, t := range txs {
		id, name := ref(t)
		if id == "" {
			continue
		}
		b := gr.get(id, id)
		b.name(name)
		b.single(t, t.Preferred(home))
	}
	return sortByFlow(gr.rows())
}

func ByCategory(txs []core.Transaction, home string) []core.AggregateRow {
	return byRef(txs, home, func(t core.Transaction) (string, string) { return t.CategoryID, t.CategoryName })
}

func ByPartner(txs []core.Transaction, home string) []core.AggregateRow {
	return byRef(txs, home, func(t core.Transaction) (string, string) { return t.PartnerID, t.PartnerName })
}

func ByCreator(txs []core.Transaction, home string) []core.AggregateRow {
	return byRef(txs, home, func(t core.Transaction) (string, string) { return t.CreatorID, t.CreatorName })
}

// ByCurrency groups on the derived currency code.
func ByCurrency(txs []core.Transaction, home string) []core.AggregateRow {
	return byRef(txs, home, func(t core.Transaction) (string, string) { return t.CurrencyCode, "" })
}

// ByAccount is two-sided: a transfer is an expense on its source row and an
// income on its destination row, so its effects cancel across accounts.
func ByAccount(txs []core.Transaction, accounts map[string]core.Account, home string) []core.AggregateRow {
	gr := newGrouper[string]()
	for _, t := range txs {
		for _, leg := range legs(t, t.Preferred(home)) {
			b := gr.get(leg.account, leg.account)
			b.name(accounts[leg.account].Name)
			if leg.incoming {
				b.income(leg.money)
			} else {
				b.expense(leg.money)
			}
			b.row.Count++
		}
	}
	return sortByFlow(gr.rows())
}

// leg is the effect of a transaction on one account.
type leg struct {
	account  string
	incoming bool
	money    core.Money
}

func legs(t core.Transaction, m core.Money) []leg {
	var out []leg
	if t.SourceAccountID != "" && (t.Type == core.Expense || t.Type == core.Transfer) {
		out = append(out, leg{account: t.SourceAccountID, money: m})
	}
	if t.DestinationAccountID != "" && (t.Type == core.Income || t.Type == core.Transfer) {
		out = append(out, leg{account: t.DestinationAccountID, incoming: true, money: m})
	}
	return out
}

// ByType returns one row per type present, in income, expense, transfer
// order.
func ByType(txs []core.Transaction, home string) []core.TypeRow {
	type acc struct {
		row   core.TypeRow
		units core.UnitTracker
		seen  bool
	}
	order := []core.TransactionType{core.Income, core.Expense, core.Transfer}
	byType := map[core.TransactionType]*acc{}
	for _, tt := range order {
		byType[tt] = &acc{row: core.TypeRow{Type: tt, AmountTotal: decimal.Zero}}
	}
	for _, t := range txs {
		a, ok := byType[t.Type]
		if !ok {
			continue
		}
		m := t.Preferred(home)
		a.row.AmountTotal = a.row.AmountTotal.Add(m.Amount)
		a.row.Count++
		a.units.Add(m)
		a.seen = true
	}
	var out []core.TypeRow
	for _, tt := range order {
		a := byType[tt]
		if !a.seen {
			continue
		}
		a.row.Currency = a.units.Currency()
		a.row.MixedUnits = a.units.Mixed()
		out = append(out, a.row)
	}
	return out
}

// Summarize totals income and expense over txs. Transfers are counted but
// move no money in or out.
func Summarize(txs []core.Transaction, home string) core.Summary {
	var b bucket
	b.row.IncomeTotal, b.row.ExpenseTotal = decimal.Zero, decimal.Zero
	for _, t := range txs {
		b.single(t, t.Preferred(home))
	}
	r := b.finish()
	return core.Summary{
		TotalIncome:  r.IncomeTotal,
		TotalExpense: r.ExpenseTotal,
		NetBalance:   r.NetBalance,
		Count:        r.Count,
		Currency:     r.Currency,
		MixedUnits:   r.MixedUnits,
	}
}
