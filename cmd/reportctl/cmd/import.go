package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerreport/internal/ledger/memory"
	"ledgerreport/internal/storage"
)

var (
	importFile string
	importDB   string
)

// importCmd loads a JSON ledger seed into the SQLite store.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON ledger file into the SQLite database",
	Long: `Import reads a ledger file in the memory backend's seed format
({"accounts": [...], "transactions": [...]}) and writes it to the SQLite
database in a single transaction.

Example:
  reportctl import --file ledger.json --db ./data/ledger.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if importDB == "" {
			importDB = cfg.SQLiteDBPath
		}

		seed, err := memory.NewFromFile(importFile, cfg.HomeCurrency)
		if err != nil {
			return fmt.Errorf("read ledger file: %w", err)
		}
		accounts, txs := seed.Snapshot()
		if len(accounts) == 0 && len(txs) == 0 {
			return fmt.Errorf("nothing to import: %s is missing or empty", importFile)
		}

		repo, err := storage.NewSQLiteRepository(importDB, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer repo.Close()

		if err := repo.Import(cmd.Context(), accounts, txs); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts and %d transactions into %s\n", len(accounts), len(txs), importDB)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "ledger JSON file")
	importCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	_ = importCmd.MarkFlagRequired("file")
}
