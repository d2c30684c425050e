package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"bottega/internal/log"
)

// Scheduler runs the periodic sweep on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	worker *SyncWorker
	logger *slog.Logger
}

// NewScheduler registers the sweep on schedule, a standard five-field cron
// expression or a descriptor such as "@every 5m". Overlapping runs are
// skipped.
func NewScheduler(ctx context.Context, w *SyncWorker, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(log.FieldComponent, log.ComponentScheduler)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, worker: w, logger: logger}

	if _, err := c.AddFunc(schedule, func() { s.runSweep(ctx) }); err != nil {
		return nil, fmt.Errorf("register sweep %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.worker.Sweep(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Periodic sweep failed", log.FieldOperation, log.OpSweep, log.FieldError, err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow executes the sweep immediately, for the startup check.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runSweep(ctx)
}
