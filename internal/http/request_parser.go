// Query strings are turned into report filters here. Every malformed
// parameter is reported as a core.ValidationError so handlers can answer
// 400 without inspecting the message.

package http

import (
	"fmt"
	"net/url"
	"strings"

	"ledgerreport/internal/core"
)

const maxKeywordLength = 200

// ReportParams is everything a report request can carry.
type ReportParams struct {
	Filter      core.ReportFilter
	Granularity core.Granularity
	Compare     core.CompareOption
}

// ParseReportParams reads from, to, granularity, compare, the comma
// separated id lists and the q keyword from query.
func ParseReportParams(query url.Values) (ReportParams, error) {
	var p ReportParams
	var err error

	if p.Filter.From, err = parseDateParam(query, "from"); err != nil {
		return p, err
	}
	if p.Filter.To, err = parseDateParam(query, "to"); err != nil {
		return p, err
	}
	if p.Filter.From != nil && p.Filter.To != nil && p.Filter.To.Before(*p.Filter.From) {
		return p, &core.ValidationError{Field: "to", Msg: "must not be before from"}
	}

	p.Filter.CategoryIDs = parseList(query, "category")
	p.Filter.PartnerIDs = parseList(query, "partner")
	p.Filter.CreatorIDs = parseList(query, "creator")
	p.Filter.AccountIDs = parseList(query, "account")
	p.Filter.Currencies = parseList(query, "currency")

	for _, raw := range parseList(query, "type") {
		t := core.TransactionType(strings.ToLower(raw))
		if !t.IsValid() {
			return p, &core.ValidationError{Field: "type", Msg: fmt.Sprintf("must be income, expense or transfer (got %q)", raw)}
		}
		p.Filter.Types = append(p.Filter.Types, t)
	}

	keyword := sanitizeInput(query.Get("q"))
	if len(keyword) > maxKeywordLength {
		return p, &core.ValidationError{Field: "q", Msg: fmt.Sprintf("must be at most %d characters", maxKeywordLength)}
	}
	p.Filter.Keyword = keyword

	if p.Granularity, err = core.ParseGranularity(query.Get("granularity")); err != nil {
		return p, err
	}
	if c := strings.TrimSpace(query.Get("compare")); c != "" {
		if p.Compare, err = core.ParseCompareOption(c); err != nil {
			return p, err
		}
	}
	return p, nil
}

func parseDateParam(query url.Values, key string) (*core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, &core.ValidationError{Field: key, Msg: fmt.Sprintf("must be a date in YYYY-MM-DD format (got %q)", v)}
	}
	return &d, nil
}

// parseList accepts both repeated parameters and comma separated values.
func parseList(query url.Values, key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range query[key] {
		for _, part := range strings.Split(v, ",") {
			part = sanitizeInput(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s))
}
