package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledgerreport/internal/amqp"
	"ledgerreport/internal/cli"
	"ledgerreport/internal/log"
	"ledgerreport/internal/worker"
)

func main() {
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	logger.Info("Starting report-worker", log.FieldBackend, cfg.DataBackend, "queue", cfg.AMQPQueue)

	rt, err := cli.BuildEngine(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to build report engine", log.FieldError, err)
		os.Exit(1)
	}
	defer rt.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		rt.Close()
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(rt.Engine, amqpClient, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := amqpClient.ConsumeReportRequests(ctx, reportWorker.HandleReportRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		amqpClient.Close()
		rt.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped gracefully")
}
