package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bottega/internal/amqp"
	"bottega/internal/cli"
	"bottega/internal/log"
	"bottega/internal/metrics"
	"bottega/internal/sheets"
	gsheet "bottega/internal/sheets/google"
	mem "bottega/internal/sheets/memory"
	"bottega/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting bottega-worker")

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	res := cli.OpenBackend(startCtx, cfg, logger)

	var appender sheets.RecordAppender
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(startCtx, cfg, logger.Slog())
		if err != nil {
			cancelStart()
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			_ = res.Cleanup()
			return
		}
		appender = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = mem.New()
		logger.Info("Google Sheets disabled, mirroring to memory", "reason", "no GOOGLE_SPREADSHEET_ID provided")
	}
	cancelStart()

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(res.Repository, appender, cfg.SyncBatchSize, logger.Slog(),
		worker.WithMetrics(m))

	var metricsSrv *http.Server
	if cfg.MetricsEnabled() {
		metricsSrv = metrics.NewServer(":"+cfg.MetricsPort, m)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", log.FieldError, err)
			}
		}()
		logger.Info("Serving worker metrics", "port", cfg.MetricsPort)
	}

	var scheduler *worker.Scheduler
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if scheduler != nil {
			scheduler.Stop()
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Metrics server shutdown error", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	scheduler, err := worker.NewScheduler(ctx, syncWorker, cfg.SyncSchedule, logger.Slog())
	if err != nil {
		logger.Error("Invalid sync schedule", log.FieldError, err, "schedule", cfg.SyncSchedule)
		_ = res.Cleanup()
		return
	}

	// Records written while the worker was down.
	logger.Info("Performing startup sync check...")
	scheduler.RunNow(ctx)
	scheduler.Start()

	if consumer, ok := res.Publisher.(*amqp.Client); ok {
		go func() {
			err := consumer.ConsumeRecordSync(ctx, syncWorker.HandleMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming record sync messages", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Skipping AMQP message consumption, relying on scheduled sweeps", "schedule", cfg.SyncSchedule)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
