package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"bottega/internal/amqp"
	"bottega/internal/core"
	"bottega/internal/log"
	"bottega/internal/metrics"
	"bottega/internal/resilience"
	"bottega/internal/sheets"
	"bottega/internal/storage"
)

// RecordStore is what the worker reads and marks.
type RecordStore interface {
	GetSale(ctx context.Context, id string) (core.Sale, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	IsSynced(ctx context.Context, kind core.Kind, id string) (bool, error)
	MarkSynced(ctx context.Context, kind core.Kind, id string, at time.Time) error
	ListUnsynced(ctx context.Context, kind core.Kind, limit int) ([]string, error)
}

// SyncWorker mirrors sales and expenses into the spreadsheet. Each record
// change appends one row; records already mirrored since their last change
// are skipped, so redelivered messages do not duplicate rows.
type SyncWorker struct {
	store     RecordStore
	sheets    sheets.RecordAppender
	breaker   *gobreaker.CircuitBreaker
	retry     resilience.Config
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*SyncWorker)

// WithRetry overrides the retry policy around each append.
func WithRetry(cfg resilience.Config) Option {
	return func(w *SyncWorker) { w.retry = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *SyncWorker) { w.metrics = m }
}

func NewSyncWorker(store RecordStore, appender sheets.RecordAppender, batchSize int, logger *slog.Logger, opts ...Option) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	logger = logger.With(log.FieldComponent, log.ComponentWorker)
	w := &SyncWorker{
		store:     store,
		sheets:    appender,
		retry:     resilience.DefaultConfig(),
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
	w.breaker = resilience.NewCircuitBreaker("sheets-append", func(name string, from, to gobreaker.State) {
		logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	})
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleMessage processes one record sync message. A returned error
// requeues the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldKind, string(msg.Kind),
		log.FieldRecordID, msg.ID,
		"timestamp", msg.Timestamp)
	return w.SyncRecord(ctx, msg.Kind, msg.ID)
}

// SyncRecord appends the current state of one record. Records that no
// longer exist, or that are already mirrored, are acknowledged without
// touching the spreadsheet.
func (w *SyncWorker) SyncRecord(ctx context.Context, kind core.Kind, id string) error {
	kindLabel := string(kind)

	synced, err := w.store.IsSynced(ctx, kind, id)
	if storage.IsNotFound(err) {
		w.metrics.IncSync(kindLabel, metrics.OutcomeNotFound)
		w.logger.InfoContext(ctx, "Record no longer exists, skipping", log.FieldKind, kindLabel, log.FieldRecordID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("check sync state: %w", err)
	}
	if synced {
		w.logger.DebugContext(ctx, "Record already synced", log.FieldKind, kindLabel, log.FieldRecordID, id)
		return nil
	}

	row, err := w.loadRow(ctx, kind, id)
	if storage.IsNotFound(err) {
		w.metrics.IncSync(kindLabel, metrics.OutcomeNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	var ref string
	attempt := 0
	err = resilience.RetryWithBackoff(ctx, w.retry, func() error {
		attempt++
		out, err := w.breaker.Execute(func() (any, error) {
			return w.sheets.AppendRecord(ctx, kind, row)
		})
		if err != nil {
			if resilience.IsBreakerOpen(err) {
				return resilience.Permanent(err)
			}
			w.logger.WarnContext(ctx, "Append failed",
				log.FieldKind, kindLabel,
				log.FieldRecordID, id,
				log.FieldAttempt, attempt,
				log.FieldError, err)
			return err
		}
		ref, _ = out.(string)
		return nil
	})
	if err != nil {
		if resilience.IsBreakerOpen(err) {
			w.metrics.IncSync(kindLabel, metrics.OutcomeRejected)
		} else {
			w.metrics.IncSync(kindLabel, metrics.OutcomeFailed)
		}
		return fmt.Errorf("append %s %s: %w", kind, id, err)
	}

	if err := w.store.MarkSynced(ctx, kind, id, w.now()); err != nil {
		// the row is already in the sheet; a resend would duplicate it
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldKind, kindLabel, log.FieldRecordID, id, log.FieldError, err)
	}
	w.metrics.IncSync(kindLabel, metrics.OutcomeSynced)
	w.logger.InfoContext(ctx, "Successfully synced record",
		log.FieldKind, kindLabel,
		log.FieldRecordID, id,
		"sheets_ref", ref)
	return nil
}

func (w *SyncWorker) loadRow(ctx context.Context, kind core.Kind, id string) ([]any, error) {
	switch kind {
	case core.KindSale:
		s, err := w.store.GetSale(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.SaleRow(s), nil
	case core.KindExpense:
		e, err := w.store.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.ExpenseRow(e), nil
	}
	return nil, core.ErrInvalidKind
}

// SweepResult counts the outcome of one sweep.
type SweepResult struct {
	Synced int
	Failed int
}

// Sweep syncs up to the batch size of unsynced records per kind. It is the
// fallback for messages that were lost or published while the broker was
// down. It stops early when the spreadsheet breaker opens.
func (w *SyncWorker) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	for _, kind := range []core.Kind{core.KindSale, core.KindExpense} {
		ids, err := w.store.ListUnsynced(ctx, kind, w.batchSize)
		if err != nil {
			return res, fmt.Errorf("list unsynced %s: %w", kind, err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := w.SyncRecord(ctx, kind, id); err != nil {
				res.Failed++
				if resilience.IsBreakerOpen(err) {
					w.logger.WarnContext(ctx, "Spreadsheet unavailable, stopping sweep", log.FieldError, err)
					return res, nil
				}
				continue
			}
			res.Synced++
		}
	}
	if res.Synced > 0 || res.Failed > 0 {
		w.logger.InfoContext(ctx, "Sweep completed", "synced", res.Synced, "errors", res.Failed)
	}
	return res, nil
}
