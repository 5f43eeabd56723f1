package report

import (
	"sort"

	"ledgerreport/internal/core"
)

// DefaultTopN is the size of every ranking unless configured otherwise.
const DefaultTopN = 10

// TopTransactions returns the n largest transactions by preferred amount.
// Equal amounts keep their input order.
func TopTransactions(txs []core.Transaction, n int, home string) []core.RankedTransaction {
	ranked := make([]core.RankedTransaction, len(txs))
	for i, t := range txs {
		ranked[i] = core.RankedTransaction{
			ID:          t.ID,
			Date:        t.Date,
			Type:        t.Type,
			Description: t.Description,
			AmountTotal: t.Preferred(home),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AmountTotal.Amount.GreaterThan(ranked[j].AmountTotal.Amount)
	})
	return head(ranked, n)
}

// TopRows ranks already grouped rows by flow and keeps the first n.
func TopRows(rows []core.AggregateRow, n int) []core.AggregateRow {
	cp := append([]core.AggregateRow(nil), rows...)
	return head(sortByFlow(cp), n)
}

func head[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		s = s[:n]
	}
	return s
}
