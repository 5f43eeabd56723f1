package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerreport/internal/cli"
	apphttp "ledgerreport/internal/http"
	"ledgerreport/internal/log"
)

func main() {
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	rt, err := cli.BuildEngine(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to build report engine", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer rt.Close()

	srv, err := apphttp.NewServer(":"+cfg.Port, rt.Engine, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     30 * time.Second,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		rt.Close()
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting report server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		rt.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
