package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bottega/internal/aggregate"
	"bottega/internal/auth"
	"bottega/internal/cache"
	"bottega/internal/cli"
	apphttp "bottega/internal/http"
	"bottega/internal/log"
	"bottega/internal/metrics"
	"bottega/internal/middleware/ratelimit"
	"bottega/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	res := cli.OpenBackend(startCtx, cfg, logger)
	cancelStart()

	m := metrics.New()

	monthly := cache.NewLRUCache[aggregate.MonthlySeries](16, 5*time.Minute)
	caches := cache.NewManager(logger.Slog())
	caches.Register(monthly)
	caches.StartCleanup(10 * time.Minute)

	agg := aggregate.New(logger.Slog(), aggregate.WithMaxRangeDays(cfg.MaxRangeDays))
	reports := services.NewReportService(res.Repository, agg, logger.Slog(),
		services.WithCache(monthly),
		services.WithTimeout(cfg.RequestTimeout),
		services.WithMetrics(m))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:    services.NewLedgerService(res.Repository, res.Publisher, reports, m, logger),
		Reports:   reports,
		Tasks:     services.NewTaskService(res.Repository, logger.Slog()),
		Identity:  auth.NewLocalProvider(res.Repository, bcrypt.DefaultCost, logger.Slog()),
		Sessions:  auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		Metrics:   m,
		Caches:    caches,
		Logger:    logger,
		Ready:     res.Repository.Ping,
		RateLimit: ratelimit.DefaultConfig(),
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting bottega server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sync_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
