// Package cli provides common initialization shared by cmd/reportd,
// cmd/report-worker and cmd/reportctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"ledgerreport/internal/backend"
	"ledgerreport/internal/cache"
	"ledgerreport/internal/config"
	"ledgerreport/internal/ledger"
	"ledgerreport/internal/log"
	"ledgerreport/internal/report"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Handler = nil
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. A missing file is
// fine; a malformed one is logged.
func LoadEnvFile(logger *log.Logger, files ...string) {
	if err := config.LoadDotEnv(files...); err != nil {
		logger.Warn("Ignoring unreadable env file", log.FieldError, err)
	}
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// Runtime is a report engine together with the resources it holds.
type Runtime struct {
	Engine  *report.Engine
	Backend backend.BackendType
	// Cached is set when opening balances are cached between reports.
	Cached bool
	store  *backend.BackendResult
	caches *cache.Manager
}

// BuildEngine opens the configured ledger store and builds an engine over
// it, with the opening-balance cache when BALANCE_CACHE_SIZE is positive and
// the backend can report ledger changes.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bc.Type, err)
	}

	engine := report.NewEngine(store.Backend, logger, report.Config{
		HomeCurrency:      cfg.HomeCurrency,
		TopN:              cfg.ReportTopN,
		LookupTimeout:     cfg.LookupTimeout,
		LookupConcurrency: cfg.LookupConcurrency,
	})

	rt := &Runtime{Engine: engine, Backend: bc.Type, store: store}
	_, versioned := store.Backend.(ledger.Versioned)
	if cfg.BalanceCacheSize > 0 && !versioned {
		logger.Warn("Balance cache disabled: backend cannot report ledger changes",
			log.FieldBackend, bc.Type.String())
	}
	if cfg.BalanceCacheSize > 0 && versioned {
		rt.Cached = true
		balances := cache.NewLRUCache[report.BalanceKey, decimal.Decimal](cfg.BalanceCacheSize, cfg.BalanceCacheTTL)
		engine.WithBalanceCache(balances)
		rt.caches = cache.NewManager(logger)
		rt.caches.Register(balances)
		rt.caches.StartCleanup(cfg.BalanceCacheTTL)
	}

	logger.Info("Report engine ready",
		log.FieldBackend, bc.Type.String(),
		"home_currency", cfg.HomeCurrency,
		"balance_cache", rt.Cached)
	return rt, nil
}

// Close stops the cache cleanup and releases the ledger store.
func (r *Runtime) Close() error {
	if r.caches != nil {
		r.caches.Stop()
	}
	return r.store.Close()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
