package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger"
	"ledgerreport/internal/log"
)

// Ensure interface conformance
var (
	_ ledger.Store                 = (*Client)(nil)
	_ ledger.OpeningBalanceBatcher = (*Client)(nil)
)

// Config names the spreadsheet and its tabs.
type Config struct {
	SpreadsheetID     string
	AccountsSheet     string
	TransactionsSheet string
	CredentialsJSON   []byte
	CredentialsFile   string
}

// Client is a read-only ledger store over a Google spreadsheet with an
// Accounts tab and a Transactions tab. Each tab starts with a header row.
type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	accountsSheet     string
	transactionsSheet string
	logger            *log.Logger
}

// New creates a Sheets client. Extra options are appended after the
// credentials, which lets tests point the client at a local endpoint.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.AccountsSheet == "" {
		cfg.AccountsSheet = "Accounts"
	}
	if cfg.TransactionsSheet == "" {
		cfg.TransactionsSheet = "Transactions"
	}

	svc, err := newSheetsService(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		accountsSheet:     cfg.AccountsSheet,
		transactionsSheet: cfg.TransactionsSheet,
		logger:            logger,
	}, nil
}

// newSheetsService initializes a read-only Sheets service using service
// account credentials, inline or from a file. With no credentials the caller
// must supply authentication through opts.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*gsheet.Service, error) {
	credentialsJSON := cfg.CredentialsJSON
	if len(credentialsJSON) == 0 && cfg.CredentialsFile != "" {
		logger.DebugContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	}

	var all []goption.ClientOption
	if len(credentialsJSON) > 0 {
		all = append(all,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	} else if len(opts) == 0 {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	all = append(all, opts...)

	service, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return service, nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) readTransactions(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.readSheet(ctx, c.transactionsSheet)
	if err != nil {
		return nil, err
	}
	txs, bad, err := parseTransactionRows(c.transactionsSheet, values)
	if err != nil {
		return nil, err
	}
	for _, e := range bad {
		c.logger.WarnContext(ctx, "Skipping unreadable sheet row", "sheet", e.Sheet, "row", e.Row, log.FieldError, e.Err)
	}
	return txs, nil
}

// FetchTransactions reads the whole Transactions tab and keeps the rows
// inside the filter's date range.
func (c *Client) FetchTransactions(ctx context.Context, f core.ReportFilter) ([]core.Transaction, error) {
	all, err := c.readTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, t := range all {
		if ledger.InRange(t.Date, f) {
			out = append(out, t)
		}
	}
	c.logger.DebugContext(ctx, "Transactions read from sheet", log.FieldCount, len(out), "rows", len(all))
	return out, nil
}

func (c *Client) FetchAccounts(ctx context.Context, ids []string) ([]core.Account, error) {
	values, err := c.readSheet(ctx, c.accountsSheet)
	if err != nil {
		return nil, err
	}
	accounts, bad, err := parseAccountRows(c.accountsSheet, values)
	if err != nil {
		return nil, err
	}
	for _, e := range bad {
		c.logger.WarnContext(ctx, "Skipping unreadable sheet row", "sheet", e.Sheet, "row", e.Row, log.FieldError, e.Err)
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := accounts[:0:0]
	for _, a := range accounts {
		if _, ok := want[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Client) FetchAccountOpeningBalance(ctx context.Context, accountID string, asOf core.Date) (decimal.Decimal, error) {
	m, err := c.FetchOpeningBalances(ctx, []string{accountID}, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return m[accountID], nil
}

// FetchOpeningBalances reads both tabs once and folds the history before
// asOf for every requested account.
func (c *Client) FetchOpeningBalances(ctx context.Context, accountIDs []string, asOf core.Date) (map[string]decimal.Decimal, error) {
	accounts, err := c.FetchAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	history, err := c.FetchTransactions(ctx, core.ReportFilter{}.Before(asOf))
	if err != nil {
		return nil, err
	}
	return core.FoldOpeningBalances(history, core.IndexAccounts(accounts), accountIDs, asOf, ""), nil
}
