package backend

import (
	"context"
	"fmt"

	"ledgerreport/internal/ledger/memory"
	"ledgerreport/internal/log"
	gsheet "ledgerreport/internal/sheets/google"
	"ledgerreport/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		AccountsSheet:     config.GoogleAccountsSheet,
		TransactionsSheet: config.GoogleTransactionsSheet,
		CredentialsJSON:   []byte(config.GoogleServiceAccountJSON),
		CredentialsFile:   config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	var store *memory.Store
	if config.MemorySeedFile == "" {
		store = memory.New(config.HomeCurrency, nil, nil)
	} else {
		var err error
		store, err = memory.NewFromFile(config.MemorySeedFile, config.HomeCurrency)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory seed: %w", err)
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)

	return &BackendResult{Backend: store}, nil
}
