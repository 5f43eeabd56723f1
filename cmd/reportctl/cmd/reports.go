package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"ledgerreport/internal/amqp"
	"ledgerreport/internal/cli"
	"ledgerreport/internal/core"
	"ledgerreport/internal/log"
	"ledgerreport/internal/report"
)

// filterFlags are the report filter options shared by every report command.
type filterFlags struct {
	from, to    string
	categories  []string
	partners    []string
	creators    []string
	accounts    []string
	types       []string
	currencies  []string
	keyword     string
	enqueue     bool
	granularity string
	compare     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.from, "from", "", "first day of the window (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last day of the window (YYYY-MM-DD)")
	fs.StringSliceVar(&f.categories, "category", nil, "category ids")
	fs.StringSliceVar(&f.partners, "partner", nil, "partner ids")
	fs.StringSliceVar(&f.creators, "creator", nil, "creator ids")
	fs.StringSliceVar(&f.accounts, "account", nil, "account ids")
	fs.StringSliceVar(&f.types, "type", nil, "transaction types (income, expense, transfer)")
	fs.StringSliceVar(&f.currencies, "currency", nil, "currency codes")
	fs.StringVar(&f.keyword, "q", "", "keyword matched against description, document number and note")
	fs.BoolVar(&f.enqueue, "enqueue", false, "publish the request to the report queue instead of building it here")
}

func (f *filterFlags) filter() (core.ReportFilter, error) {
	var out core.ReportFilter
	for _, b := range []struct {
		name string
		raw  string
		dst  **core.Date
	}{{"from", f.from, &out.From}, {"to", f.to, &out.To}} {
		if b.raw == "" {
			continue
		}
		d, err := core.ParseDate(b.raw)
		if err != nil {
			return out, &core.ValidationError{Field: b.name, Msg: fmt.Sprintf("must be a date in YYYY-MM-DD format (got %q)", b.raw)}
		}
		*b.dst = &d
	}
	out.CategoryIDs = f.categories
	out.PartnerIDs = f.partners
	out.CreatorIDs = f.creators
	out.AccountIDs = f.accounts
	out.Currencies = f.currencies
	out.Keyword = strings.TrimSpace(f.keyword)
	for _, raw := range f.types {
		t := core.TransactionType(strings.ToLower(strings.TrimSpace(raw)))
		if !t.IsValid() {
			return out, &core.ValidationError{Field: "type", Msg: fmt.Sprintf("must be income, expense or transfer (got %q)", raw)}
		}
		out.Types = append(out.Types, t)
	}
	return out, nil
}

var (
	financialFlags filterFlags
	accountsFlags  filterFlags
	compareFlags   filterFlags
)

var financialCmd = &cobra.Command{
	Use:   "financial",
	Short: "Summary, dimension breakdowns and rankings",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := &financialFlags
		g, err := core.ParseGranularity(f.granularity)
		if err != nil {
			return fmt.Errorf("invalid granularity: %w", err)
		}
		var option core.CompareOption
		if f.compare != "" {
			if option, err = core.ParseCompareOption(f.compare); err != nil {
				return fmt.Errorf("invalid comparison: %w", err)
			}
		}
		return runReport(cmd, f, amqp.KindFinancial, g, option, func(ctx context.Context, e *report.Engine, filter core.ReportFilter) (any, error) {
			return e.FinancialReport(ctx, filter, report.Options{Granularity: g, Compare: option})
		})
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Opening and closing balances per account, type and currency",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, &accountsFlags, amqp.KindAccounts, "", "", func(ctx context.Context, e *report.Engine, filter core.ReportFilter) (any, error) {
			return e.AccountReport(ctx, filter)
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the window with the previous month, year or period",
	RunE: func(cmd *cobra.Command, args []string) error {
		option, err := core.ParseCompareOption(compareFlags.compare)
		if err != nil {
			return fmt.Errorf("invalid comparison: %w", err)
		}
		return runReport(cmd, &compareFlags, amqp.KindCompare, "", option, func(ctx context.Context, e *report.Engine, filter core.ReportFilter) (any, error) {
			return e.Compare(ctx, filter, option)
		})
	},
}

func init() {
	financialFlags.register(financialCmd)
	financialCmd.Flags().StringVar(&financialFlags.granularity, "granularity", "month", "period bucket: day, week, month, quarter, year")
	financialCmd.Flags().StringVar(&financialFlags.compare, "compare", "", "optional comparison: previous_month, previous_year, previous_period")

	accountsFlags.register(accountsCmd)

	compareFlags.register(compareCmd)
	compareCmd.Flags().StringVar(&compareFlags.compare, "option", "previous_period", "previous_month, previous_year or previous_period")
}

type buildFunc func(ctx context.Context, e *report.Engine, filter core.ReportFilter) (any, error)

// runReport returns every failure so the deferred closes run before the
// process exits.
func runReport(cmd *cobra.Command, f *filterFlags, kind amqp.ReportKind, g core.Granularity, option core.CompareOption, build buildFunc) error {
	filter, err := f.filter()
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if f.enqueue {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue, logger)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer client.Close()

		msg := amqp.NewReportRequestMessage(kind, filter)
		msg.Granularity = g
		msg.Compare = option
		if err := client.PublishReportRequest(ctx, msg); err != nil {
			return fmt.Errorf("publish report request: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{"requestId": msg.RequestID, "resultQueue": cfg.AMQPResultQueue})
	}

	rt, err := cli.BuildEngine(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build report engine: %w", err)
	}
	defer rt.Close()

	result, err := build(ctx, rt.Engine, filter)
	if err != nil {
		logger.ErrorContext(ctx, "Report failed", log.FieldError, err, "kind", kind)
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
