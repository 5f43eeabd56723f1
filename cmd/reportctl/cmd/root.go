// Package cmd provides the reportctl commands.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	ledgerbackend "ledgerreport/internal/backend"
	"ledgerreport/internal/cli"
	"ledgerreport/internal/config"
	"ledgerreport/internal/log"
)

var (
	envFile  string
	logLevel string
	backend  string
	compact  bool

	logger *log.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Build ledger reports from the command line",
	Long: `reportctl runs the report engine against the configured ledger
store and prints the result as JSON.

Example:
  reportctl financial --from 2024-01-01 --to 2024-03-31 --granularity week
  reportctl accounts --from 2024-02-01 --to 2024-02-29 --account A,B
  reportctl compare --from 2024-02-01 --to 2024-02-29 --option previous_month
  reportctl financial --from 2024-01-01 --to 2024-01-31 --enqueue`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// stdout carries the JSON result, logs go to stderr
		logger = log.New(log.Config{
			Level:     log.ParseLevel(logLevel),
			Component: log.ComponentCLI,
			Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: log.ParseLevel(logLevel)}),
		})
		log.SetDefault(logger)
		if envFile != "" {
			cli.LoadEnvFile(logger, envFile)
		} else {
			cli.LoadEnvFile(logger)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "",
		"override DATA_BACKEND ("+strings.Join(ledgerbackend.GetBackendTypeStrings(), ", ")+")")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "print JSON on one line")

	rootCmd.AddCommand(financialCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(importCmd)
}

// loadConfig reads the environment, applies flag overrides and validates.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if backend != "" {
		cfg.DataBackend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
