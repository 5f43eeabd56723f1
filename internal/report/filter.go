package report

import (
	"strings"

	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger"
)

// Apply returns the transactions matching f, preserving input order.
// Within one dimension the listed values are alternatives; across dimensions
// every populated constraint must hold. CurrencyCode must already be resolved.
func Apply(txs []core.Transaction, f core.ReportFilter) []core.Transaction {
	m := newMatcher(f)
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if m.match(t) {
			out = append(out, t)
		}
	}
	return out
}

type matcher struct {
	filter     core.ReportFilter
	categories set
	partners   set
	creators   set
	accounts   set
	types      set
	currencies set
	keyword    string
}

type set map[string]struct{}

func newSet[T ~string](values []T) set {
	if len(values) == 0 {
		return nil
	}
	s := make(set, len(values))
	for _, v := range values {
		s[string(v)] = struct{}{}
	}
	return s
}

// has is true for a nil set, which imposes no constraint.
func (s set) has(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

func newMatcher(f core.ReportFilter) matcher {
	return matcher{
		filter:     f,
		categories: newSet(f.CategoryIDs),
		partners:   newSet(f.PartnerIDs),
		creators:   newSet(f.CreatorIDs),
		accounts:   newSet(f.AccountIDs),
		types:      newSet(f.Types),
		currencies: newSet(f.Currencies),
		keyword:    strings.ToLower(strings.TrimSpace(f.Keyword)),
	}
}

func (m matcher) match(t core.Transaction) bool {
	if !ledger.InRange(t.Date, m.filter) {
		return false
	}
	if !m.categories.has(t.CategoryID) || !m.partners.has(t.PartnerID) || !m.creators.has(t.CreatorID) {
		return false
	}
	if !m.types.has(string(t.Type)) || !m.currencies.has(t.CurrencyCode) {
		return false
	}
	if m.accounts != nil && !m.accounts.has(t.SourceAccountID) && !m.accounts.has(t.DestinationAccountID) {
		return false
	}
	if m.keyword != "" {
		found := false
		for _, field := range []string{t.Description, t.DocumentNumber, t.Note} {
			if strings.Contains(strings.ToLower(field), m.keyword) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
