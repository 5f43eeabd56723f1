package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/core"
)

// RowError describes a sheet row that could not be parsed.
type RowError struct {
	Sheet string
	Row   int // 1-based, as shown in the Sheets UI
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Header aliases, matched case-insensitively.
var (
	accountColumns = map[string][]string{
		"id":       {"ID", "Account ID"},
		"name":     {"Name", "Account"},
		"type":     {"Type", "Account Type"},
		"currency": {"Currency", "Currency Code"},
		"opening":  {"Opening Balance", "Opening"},
	}
	transactionColumns = map[string][]string{
		"id":          {"ID", "Transaction ID"},
		"date":        {"Date"},
		"type":        {"Type"},
		"amount":      {"Amount"},
		"home":        {"Home Amount", "Home Currency Amount"},
		"source":      {"Source Account", "Source Account ID", "From Account"},
		"destination": {"Destination Account", "Destination Account ID", "To Account"},
		"categoryID":  {"Category ID"},
		"category":    {"Category"},
		"partnerID":   {"Partner ID"},
		"partner":     {"Partner"},
		"creatorID":   {"Creator ID"},
		"creator":     {"Creator"},
		"description": {"Description"},
		"document":    {"Document Number", "Document"},
		"note":        {"Note", "Notes"},
	}
)

type columns map[string]int

func resolveColumns(headers []string, aliases map[string][]string, required ...string) (columns, error) {
	cols := columns{}
	for field, names := range aliases {
		cols[field] = -1
		for _, n := range names {
			if i := indexOf(headers, n); i >= 0 {
				cols[field] = i
				break
			}
		}
	}
	var missing []string
	for _, r := range required {
		if cols[r] < 0 {
			missing = append(missing, aliases[r][0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	return cols, nil
}

func (c columns) get(row []string, field string) string {
	return safeGet(row, c[field])
}

// parseAccountRows converts the Accounts tab. The first row is the header.
func parseAccountRows(sheet string, values [][]interface{}) ([]core.Account, []RowError, error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	cols, err := resolveColumns(toStrings(values[0]), accountColumns, "id")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", sheet, err)
	}
	var out []core.Account
	var bad []RowError
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := cols.get(row, "id")
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		opening := decimal.Zero
		if s := cols.get(row, "opening"); s != "" {
			v, err := core.ParseAmount(s)
			if err != nil {
				bad = append(bad, RowError{Sheet: sheet, Row: i + 1, Err: err})
				continue
			}
			opening = v
		}
		out = append(out, core.Account{
			ID:             id,
			Name:           cols.get(row, "name"),
			Type:           cols.get(row, "type"),
			CurrencyCode:   strings.ToUpper(cols.get(row, "currency")),
			OpeningBalance: opening,
		})
	}
	return out, bad, nil
}

// parseTransactionRows converts the Transactions tab. Rows whose date or
// amounts cannot be parsed are reported and skipped; unknown types are kept
// so the report engine can flag them.
func parseTransactionRows(sheet string, values [][]interface{}) ([]core.Transaction, []RowError, error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	cols, err := resolveColumns(toStrings(values[0]), transactionColumns, "id", "date", "type", "amount")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", sheet, err)
	}
	var out []core.Transaction
	var bad []RowError
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := cols.get(row, "id")
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		fail := func(err error) { bad = append(bad, RowError{Sheet: sheet, Row: i + 1, Err: err}) }

		date, err := core.ParseDate(cols.get(row, "date"))
		if err != nil {
			fail(err)
			continue
		}
		amount, err := core.ParseAmount(cols.get(row, "amount"))
		if err != nil {
			fail(err)
			continue
		}
		t := core.Transaction{
			ID:                   id,
			Date:                 date,
			Type:                 transactionType(cols.get(row, "type")),
			Amount:               amount,
			SourceAccountID:      cols.get(row, "source"),
			DestinationAccountID: cols.get(row, "destination"),
			CategoryID:           cols.get(row, "categoryID"),
			CategoryName:         cols.get(row, "category"),
			PartnerID:            cols.get(row, "partnerID"),
			PartnerName:          cols.get(row, "partner"),
			CreatorID:            cols.get(row, "creatorID"),
			CreatorName:          cols.get(row, "creator"),
			Description:          cols.get(row, "description"),
			DocumentNumber:       cols.get(row, "document"),
			Note:                 cols.get(row, "note"),
		}
		if t.CategoryID == "" {
			t.CategoryID = t.CategoryName
		}
		if t.PartnerID == "" {
			t.PartnerID = t.PartnerName
		}
		if t.CreatorID == "" {
			t.CreatorID = t.CreatorName
		}
		if s := cols.get(row, "home"); s != "" {
			home, err := core.ParseAmount(s)
			if err != nil {
				fail(err)
				continue
			}
			t.HomeAmount = &home
		}
		out = append(out, t)
	}
	return out, bad, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(cellString(v))
	}
	return out
}

// cellString renders an unformatted cell. Numbers are written in plain
// decimal notation so large ids and amounts never turn into 1.2e+07.
func cellString(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// transactionType normalises the case of a type cell. Unknown values are
// kept lowercased so the engine reports them as skipped records.
func transactionType(raw string) core.TransactionType {
	if t, err := core.ParseTransactionType(raw); err == nil {
		return t
	}
	return core.TransactionType(strings.ToLower(strings.TrimSpace(raw)))
}
