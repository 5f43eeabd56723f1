package report

import (
	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

var hundred = decimal.NewFromInt(100)

// percentPlaces is the precision of every reported percentage.
const percentPlaces = 2

// PreviousWindow derives the comparison window for f. Both bounds of f are
// required.
func PreviousWindow(f core.ReportFilter, option core.CompareOption) (core.Date, core.Date, error) {
	if err := f.RequireRange("compare"); err != nil {
		return core.Date{}, core.Date{}, err
	}
	from, to := *f.From, *f.To
	switch option {
	case core.PreviousMonth:
		return from.AddMonthsClamped(-1), to.AddMonthsClamped(-1), nil
	case core.PreviousYear:
		return from.AddMonthsClamped(-12), to.AddMonthsClamped(-12), nil
	case core.PreviousPeriod:
		prevTo := from.AddDays(-1)
		return prevTo.AddDays(-from.DaysUntil(to)), prevTo, nil
	default:
		return core.Date{}, core.Date{}, &core.ValidationError{Op: "compare", Field: "option", Msg: "is not a known comparison"}
	}
}

// PercentChange is (current-previous)/previous*100. A zero previous value
// yields +100 for a positive current value, -100 for a negative one and 0
// when both are zero.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return zeroBaseline(current)
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(percentPlaces)
}

// NetPercentChange is PercentChange for a signed metric: it divides by
// |previous| so that improving from -100 to -50 reads as +50%.
func NetPercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return zeroBaseline(current)
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(hundred).Round(percentPlaces)
}

func zeroBaseline(current decimal.Decimal) decimal.Decimal {
	switch current.Sign() {
	case 1:
		return hundred
	case -1:
		return hundred.Neg()
	default:
		return decimal.Zero
	}
}

// CompareSummaries builds the comparison payload from two summaries.
func CompareSummaries(option core.CompareOption, prevFrom, prevTo core.Date, current, previous core.Summary) core.Comparison {
	count := func(s core.Summary) decimal.Decimal { return decimal.NewFromInt(int64(s.Count)) }
	delta := func(cur, prev decimal.Decimal, pct func(a, b decimal.Decimal) decimal.Decimal) core.Delta {
		return core.Delta{Current: cur, Previous: prev, Percent: pct(cur, prev)}
	}
	return core.Comparison{
		Option:       option,
		PreviousFrom: prevFrom,
		PreviousTo:   prevTo,
		Current:      current,
		Previous:     previous,
		Income:       delta(current.TotalIncome, previous.TotalIncome, PercentChange),
		Expense:      delta(current.TotalExpense, previous.TotalExpense, PercentChange),
		NetBalance:   delta(current.NetBalance, previous.NetBalance, NetPercentChange),
		Count:        delta(count(current), count(previous), PercentChange),
	}
}
