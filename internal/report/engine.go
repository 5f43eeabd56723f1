package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ledgerreport/internal/cache"
	"ledgerreport/internal/core"
	"ledgerreport/internal/ledger"
	"ledgerreport/internal/log"
)

// Engine defaults used when Config leaves a field unset.
const (
	DefaultLookupTimeout     = 5 * time.Second
	DefaultLookupConcurrency = 8
)

// Config tunes an Engine.
type Config struct {
	HomeCurrency      string
	TopN              int
	LookupTimeout     time.Duration
	LookupConcurrency int
}

// Options selects what a financial report contains.
type Options struct {
	Granularity core.Granularity
	Compare     core.CompareOption
}

// BalanceKey identifies a cached opening balance. Version is the store's
// ledger version at lookup time, so any write makes older entries unreachable.
type BalanceKey struct {
	AccountID string
	AsOf      string
	Version   string
}

// BalanceCache holds opening balances between reports.
type BalanceCache = cache.Cache[BalanceKey, decimal.Decimal]

// Engine reads ledger data through a Store and builds reports. It holds no
// per-report state and is safe for concurrent use.
type Engine struct {
	store    ledger.Store
	logger   *log.Logger
	events   *log.StructuredLogger
	cfg      Config
	balances BalanceCache
}

// NewEngine creates an engine over store.
func NewEngine(store ledger.Store, logger *log.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.HomeCurrency == "" {
		cfg.HomeCurrency = core.DefaultCurrency
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = DefaultLookupConcurrency
	}
	logger = logger.WithComponent(log.ComponentReport)
	return &Engine{
		store:  store,
		logger: logger,
		events: log.NewStructuredLogger(logger),
		cfg:    cfg,
	}
}

// WithBalanceCache makes the engine remember opening balances in c. The
// cache is only consulted when the store implements ledger.Versioned.
func (e *Engine) WithBalanceCache(c BalanceCache) *Engine {
	e.balances = c
	return e
}

// HomeCurrency is the unit converted amounts are reported in.
func (e *Engine) HomeCurrency() string {
	return e.cfg.HomeCurrency
}

// dataset is one fetched, validated and filtered window.
type dataset struct {
	txs      []core.Transaction
	accounts map[string]core.Account
	warnings []core.Warning
}

func (e *Engine) load(ctx context.Context, f core.ReportFilter) (dataset, error) {
	raw, err := e.store.FetchTransactions(ctx, f)
	if err != nil {
		return dataset{}, fmt.Errorf("fetch transactions: %w", err)
	}
	accts, err := e.store.FetchAccounts(ctx, core.AccountIDs(raw))
	if err != nil {
		return dataset{}, fmt.Errorf("fetch accounts: %w", err)
	}
	index := core.IndexAccounts(accts)

	var ds dataset
	valid := make([]core.Transaction, 0, len(raw))
	for _, t := range core.ResolveCurrencies(raw, index) {
		if err := t.Check(); err != nil {
			ds.warnings = append(ds.warnings, core.Warning{TransactionID: t.ID, Reason: err.Error()})
			e.logger.WarnContext(ctx, "Skipping invalid transaction",
				log.FieldTransactionID, t.ID,
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeInvalidState)
			continue
		}
		valid = append(valid, t)
	}
	ds.txs = Apply(valid, f)
	ds.accounts = index
	return ds, nil
}

// loadPair fetches the current window and, when prev is non-nil, the
// previous window in parallel.
func (e *Engine) loadPair(ctx context.Context, f core.ReportFilter, prev *core.ReportFilter) (dataset, dataset, error) {
	var cur, old dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = e.load(gctx, f)
		return err
	})
	if prev != nil {
		g.Go(func() error {
			var err error
			old, err = e.load(gctx, *prev)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return dataset{}, dataset{}, err
	}
	return cur, old, nil
}

// FinancialReport builds the summary, dimension breakdowns, rankings and the
// optional comparison for the transactions matching f.
func (e *Engine) FinancialReport(ctx context.Context, f core.ReportFilter, opts Options) (*core.Report, error) {
	const op = "financial report"
	g := opts.Granularity
	if g == "" {
		g = core.Month
	}
	if !g.IsValid() {
		return nil, &core.ValidationError{Op: op, Field: "granularity", Msg: fmt.Sprintf("%q is not supported", g)}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, &core.ValidationError{Op: op, Field: "to", Msg: "must not be before from"}
	}

	var prev *core.ReportFilter
	var prevFrom, prevTo core.Date
	if opts.Compare != "" {
		if !opts.Compare.IsValid() {
			return nil, &core.ValidationError{Op: op, Field: "compare", Msg: fmt.Sprintf("%q is not supported", opts.Compare)}
		}
		var err error
		prevFrom, prevTo, err = PreviousWindow(f, opts.Compare)
		if err != nil {
			return nil, err
		}
		pf := f.WithRange(prevFrom, prevTo)
		prev = &pf
	}

	cur, old, err := e.loadPair(ctx, f, prev)
	if err != nil {
		return nil, err
	}

	home := e.cfg.HomeCurrency
	txs := cur.txs
	rep := &core.Report{
		From:            f.From,
		To:              f.To,
		Granularity:     g,
		Summary:         Summarize(txs, home),
		ByPeriod:        ByPeriod(txs, g, home),
		ByCategory:      ByCategory(txs, home),
		ByPartner:       ByPartner(txs, home),
		ByCreator:       ByCreator(txs, home),
		ByAccount:       ByAccount(txs, cur.accounts, home),
		ByCurrency:      ByCurrency(txs, home),
		ByType:          ByType(txs, home),
		TopTransactions: TopTransactions(txs, e.cfg.TopN, home),
		Warnings:        cur.warnings,
	}
	rep.TopCategories = TopRows(rep.ByCategory, e.cfg.TopN)
	rep.TopPartners = TopRows(rep.ByPartner, e.cfg.TopN)
	if prev != nil {
		c := CompareSummaries(opts.Compare, prevFrom, prevTo, rep.Summary, Summarize(old.txs, home))
		rep.Comparison = &c
	}

	e.events.LogReportBuilt(ctx, log.OpFinancialReport, dateString(f.From), dateString(f.To), len(txs), false)
	return rep, nil
}

// Compare summarises f's window and the window derived from option.
func (e *Engine) Compare(ctx context.Context, f core.ReportFilter, option core.CompareOption) (*core.Comparison, error) {
	if !option.IsValid() {
		return nil, &core.ValidationError{Op: "compare", Field: "option", Msg: fmt.Sprintf("%q is not supported", option)}
	}
	prevFrom, prevTo, err := PreviousWindow(f, option)
	if err != nil {
		return nil, err
	}
	pf := f.WithRange(prevFrom, prevTo)
	cur, old, err := e.loadPair(ctx, f, &pf)
	if err != nil {
		return nil, err
	}
	home := e.cfg.HomeCurrency
	c := CompareSummaries(option, prevFrom, prevTo, Summarize(cur.txs, home), Summarize(old.txs, home))
	e.events.LogReportBuilt(ctx, log.OpCompare, dateString(f.From), dateString(f.To), len(cur.txs)+len(old.txs), false)
	return &c, nil
}

// AccountReport builds the running-balance report for f's window. Opening
// balances that cannot be looked up are reported as zero and the result is
// marked incomplete.
func (e *Engine) AccountReport(ctx context.Context, f core.ReportFilter) (*core.AccountReport, error) {
	if err := f.RequireRange("account report"); err != nil {
		return nil, err
	}
	ds, err := e.load(ctx, f)
	if err != nil {
		return nil, err
	}
	openings, err := e.Openings(ctx, ReportAccounts(ds.txs, f), *f.From)
	if err != nil {
		return nil, err
	}
	rep, err := ComputeAccountReport(ds.txs, ds.accounts, openings, f, e.cfg.HomeCurrency)
	if err != nil {
		return nil, err
	}
	rep.Warnings = ds.warnings
	e.events.LogReportBuilt(ctx, log.OpAccountReport, f.From.String(), f.To.String(), len(ds.txs), rep.Incomplete)
	return &rep, nil
}

// Openings looks up the balance of every account in ids as of asOf. Cached
// values are used first, then one batched query when the store supports it,
// then bounded concurrent per-account lookups. Individual failures are
// collected in Unavailable; only cancellation of ctx fails the call.
func (e *Engine) Openings(ctx context.Context, ids []string, asOf core.Date) (Openings, error) {
	out := Openings{Balances: make(map[string]decimal.Decimal, len(ids))}
	keys := e.cacheKeys(ctx, asOf)

	var missing []string
	for _, id := range ids {
		if bal, ok := keys.get(id); ok {
			out.Balances[id] = bal
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	if b, ok := e.store.(ledger.OpeningBalanceBatcher); ok {
		missing = e.batchOpenings(ctx, b, missing, asOf, out.Balances, keys)
		if err := ctx.Err(); err != nil {
			return Openings{}, err
		}
		if len(missing) == 0 {
			return out, nil
		}
	}

	results := make([]decimal.Decimal, len(missing))
	failures := make([]error, len(missing))
	var g errgroup.Group
	g.SetLimit(e.cfg.LookupConcurrency)
	for i, id := range missing {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
			defer cancel()
			bal, err := e.store.FetchAccountOpeningBalance(lctx, id, asOf)
			if err != nil {
				failures[i] = &core.LookupFailure{AccountID: id, Err: err}
				return nil
			}
			results[i] = bal
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Openings{}, err
	}

	for i, id := range missing {
		if failures[i] != nil {
			out.Unavailable = append(out.Unavailable, id)
			e.logger.WarnContext(ctx, "Opening balance unavailable",
				log.FieldAccountID, id,
				log.FieldOperation, log.OpOpeningBalance,
				log.FieldError, failures[i],
				log.FieldErrorType, log.ErrorTypeLookup)
			continue
		}
		out.Balances[id] = results[i]
		keys.set(id, results[i])
	}
	return out, nil
}

// batchOpenings fills dst from one batched query and returns the ids it
// could not answer. A failed batch leaves every id to the per-account path.
func (e *Engine) batchOpenings(ctx context.Context, b ledger.OpeningBalanceBatcher, ids []string, asOf core.Date, dst map[string]decimal.Decimal, keys balanceKeys) []string {
	lctx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
	defer cancel()
	got, err := b.FetchOpeningBalances(lctx, ids, asOf)
	if err != nil {
		e.logger.WarnContext(ctx, "Batched opening balance lookup failed, retrying per account",
			log.FieldOperation, log.OpOpeningBalance,
			log.FieldCount, len(ids),
			log.FieldError, err)
		return ids
	}
	var rest []string
	for _, id := range ids {
		bal, ok := got[id]
		if !ok {
			rest = append(rest, id)
			continue
		}
		dst[id] = bal
		keys.set(id, bal)
	}
	return rest
}

// balanceKeys binds the cache to one ledger version for a single lookup
// round. A nil cache disables both get and set.
type balanceKeys struct {
	cache   BalanceCache
	asOf    string
	version string
}

func (k balanceKeys) get(id string) (decimal.Decimal, bool) {
	if k.cache == nil {
		return decimal.Decimal{}, false
	}
	return k.cache.Get(BalanceKey{AccountID: id, AsOf: k.asOf, Version: k.version})
}

func (k balanceKeys) set(id string, bal decimal.Decimal) {
	if k.cache != nil {
		k.cache.Set(BalanceKey{AccountID: id, AsOf: k.asOf, Version: k.version}, bal)
	}
}

// cacheKeys reads the store's ledger version once per lookup round. An
// unversioned store, or a failed version read, bypasses the cache.
func (e *Engine) cacheKeys(ctx context.Context, asOf core.Date) balanceKeys {
	if e.balances == nil {
		return balanceKeys{}
	}
	v, ok := e.store.(ledger.Versioned)
	if !ok {
		return balanceKeys{}
	}
	version, err := v.LedgerVersion(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Ledger version unavailable, bypassing balance cache",
			log.FieldOperation, log.OpOpeningBalance,
			log.FieldError, err)
		return balanceKeys{}
	}
	return balanceKeys{cache: e.balances, asOf: asOf.String(), version: version}
}

func dateString(d *core.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}
