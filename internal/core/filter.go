package core

import (
	"fmt"
	"strings"
)

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

const (
	PreviousMonth  CompareOption = "previous_month"
	PreviousYear   CompareOption = "previous_year"
	PreviousPeriod CompareOption = "previous_period"
)

type (
	Granularity   string
	CompareOption string

	// ReportFilter selects the transactions a report covers. Every empty
	// field imposes no constraint.
	ReportFilter struct {
		From *Date `json:"from,omitempty"`
		To   *Date `json:"to,omitempty"`

		CategoryIDs []string          `json:"categoryIds,omitempty"`
		PartnerIDs  []string          `json:"partnerIds,omitempty"`
		CreatorIDs  []string          `json:"creatorIds,omitempty"`
		AccountIDs  []string          `json:"accountIds,omitempty"`
		Types       []TransactionType `json:"types,omitempty"`
		Currencies  []string          `json:"currencies,omitempty"`

		// Keyword is matched case-insensitively against description,
		// document number and note.
		Keyword string `json:"keyword,omitempty"`
	}
)

func (g Granularity) IsValid() bool {
	switch g {
	case Day, Week, Month, Quarter, Year:
		return true
	default:
		return false
	}
}

// ParseGranularity defaults to Month for an empty string.
func ParseGranularity(s string) (Granularity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Month, nil
	}
	g := Granularity(s)
	if !g.IsValid() {
		return "", &ValidationError{Field: "granularity", Msg: fmt.Sprintf("must be one of day, week, month, quarter, year (got %q)", s)}
	}
	return g, nil
}

func (o CompareOption) IsValid() bool {
	switch o {
	case PreviousMonth, PreviousYear, PreviousPeriod:
		return true
	default:
		return false
	}
}

// ParseCompareOption accepts snake_case and camelCase spellings.
func ParseCompareOption(s string) (CompareOption, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "previous_month", "previousmonth":
		return PreviousMonth, nil
	case "previous_year", "previousyear":
		return PreviousYear, nil
	case "previous_period", "previousperiod":
		return PreviousPeriod, nil
	}
	return "", &ValidationError{Field: "compare", Msg: fmt.Sprintf("must be one of previous_month, previous_year, previous_period (got %q)", s)}
}

// RequireRange fails with a ValidationError unless both bounds are set and
// ordered.
func (f ReportFilter) RequireRange(op string) error {
	if f.From == nil || f.From.IsZero() {
		return &ValidationError{Op: op, Field: "from"}
	}
	if f.To == nil || f.To.IsZero() {
		return &ValidationError{Op: op, Field: "to"}
	}
	if f.To.Before(*f.From) {
		return &ValidationError{Op: op, Field: "to", Msg: "must not be before from"}
	}
	return nil
}

// WithRange returns a copy of f covering [from, to].
func (f ReportFilter) WithRange(from, to Date) ReportFilter {
	f.From, f.To = &from, &to
	return f
}

// Before returns a copy of f with no lower bound and an upper bound strictly
// before asOf. Only the date range is kept.
func (f ReportFilter) Before(asOf Date) ReportFilter {
	to := asOf.AddDays(-1)
	return ReportFilter{To: &to}
}
