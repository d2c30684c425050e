package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
	"bottega/internal/log"
	"bottega/internal/metrics"
	"bottega/internal/storage"
)

var ErrNotFound = storage.ErrNotFound

// LedgerStore is the persistence the ledger needs.
type LedgerStore interface {
	AddSale(ctx context.Context, s core.Sale, createdBy string) (string, error)
	GetSale(ctx context.Context, id string) (core.Sale, error)
	ListSales(ctx context.Context) ([]core.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	UpdateSaleStatus(ctx context.Context, id string, status core.Status) error
	AddExpense(ctx context.Context, e core.Expense, createdBy string) (string, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

// SyncPublisher announces a changed record to the spreadsheet worker.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, kind core.Kind, id string) error
}

// Invalidator drops derived data after a write.
type Invalidator interface {
	Invalidate()
}

// SaleInput is a sale as submitted by a form.
type SaleInput struct {
	CustomerName string
	Quantity     int
	PricePerUnit decimal.Decimal
	SaleDate     string
	Status       core.Status
}

// LedgerService writes sales and expenses. Every successful write
// invalidates cached charts and, when a publisher is configured, announces
// the record for spreadsheet sync. Publish failures are logged only.
type LedgerService struct {
	store     LedgerStore
	publisher SyncPublisher
	reports   Invalidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	events    *log.StructuredLogger
}

func NewLedgerService(store LedgerStore, publisher SyncPublisher, reports Invalidator, m *metrics.Metrics, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:     store,
		publisher: publisher,
		reports:   reports,
		metrics:   m,
		logger:    logger.Slog(),
		events:    log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) CreateSale(ctx context.Context, in SaleInput, userID string) (core.Sale, error) {
	sale := core.NewSale(in.CustomerName, in.Quantity, in.PricePerUnit, in.SaleDate, in.Status)
	if err := sale.Validate(); err != nil {
		return core.Sale{}, err
	}
	id, err := s.store.AddSale(ctx, sale, userID)
	if err != nil {
		return core.Sale{}, fmt.Errorf("save sale: %w", err)
	}
	sale.ID = id

	s.events.LogRecordCreated(ctx, string(core.KindSale), id, sale.SaleAmount.StringFixed(2), sale.SaleDate, sale.Status.String())
	s.afterWrite(ctx, core.KindSale, id, log.OpCreate)
	return sale, nil
}

// DeleteSale fails with ErrNotFound when the sale does not exist.
func (s *LedgerService) DeleteSale(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	if _, err := s.store.GetSale(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteSale(ctx, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	s.afterWrite(ctx, core.KindSale, id, log.OpDelete)
	return nil
}

// UpdateSaleStatus accepts only Paid and Pending.
func (s *LedgerService) UpdateSaleStatus(ctx context.Context, id, status string) error {
	if _, err := s.store.GetSale(ctx, id); err != nil {
		return err
	}
	st, err := core.ParseStatus(status)
	if err != nil {
		return err
	}
	if err := s.store.UpdateSaleStatus(ctx, id, st); err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	s.afterWrite(ctx, core.KindSale, id, log.OpUpdate)
	return nil
}

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense, userID string) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	id, err := s.store.AddExpense(ctx, e, userID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.events.LogRecordCreated(ctx, string(core.KindExpense), id, e.Amount.StringFixed(2), e.Date, e.Status.String())
	s.afterWrite(ctx, core.KindExpense, id, log.OpCreate)
	return e, nil
}

// DeleteExpense is idempotent.
func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.afterWrite(ctx, core.KindExpense, id, log.OpDelete)
	return nil
}

func (s *LedgerService) ListSales(ctx context.Context) ([]core.Sale, error) {
	return s.store.ListSales(ctx)
}

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *LedgerService) afterWrite(ctx context.Context, kind core.Kind, id, op string) {
	s.metrics.IncRecordWritten(string(kind), op)
	if s.reports != nil {
		s.reports.Invalidate()
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, kind, id); err != nil {
		s.metrics.IncPublishFailure()
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldKind, string(kind),
			log.FieldRecordID, id,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

// IsValidation reports whether err is a domain validation failure that
// should be shown to the user rather than logged as a server error.
func IsValidation(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrInvalidTime, core.ErrInvalidAmount,
		core.ErrInvalidQuantity, core.ErrInvalidStatus, core.ErrInvalidPriority,
		core.ErrEmptyName, core.ErrNameTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
