package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bottega/internal/aggregate"
	"bottega/internal/cache"
	"bottega/internal/core"
	"bottega/internal/log"
	"bottega/internal/metrics"
)

const monthlyCacheName = "monthly_chart"

// ReportStore is the read side the reports need.
type ReportStore interface {
	ListSales(ctx context.Context) ([]core.Sale, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
}

// ReportService turns stored records into chart series and dashboard totals.
// Monthly series are cached until the next write.
type ReportService struct {
	store   ReportStore
	agg     *aggregate.Aggregator
	cache   cache.Cache[aggregate.MonthlySeries]
	metrics *metrics.Metrics
	timeout time.Duration
	logger  *slog.Logger

	// gen counts invalidations. A fetch that raced a write must not
	// repopulate the cache.
	mu  sync.Mutex
	gen uint64
}

type ReportOption func(*ReportService)

// WithCache enables monthly chart caching.
func WithCache(c cache.Cache[aggregate.MonthlySeries]) ReportOption {
	return func(s *ReportService) { s.cache = c }
}

// WithTimeout bounds every store fetch.
func WithTimeout(d time.Duration) ReportOption {
	return func(s *ReportService) { s.timeout = d }
}

func WithMetrics(m *metrics.Metrics) ReportOption {
	return func(s *ReportService) { s.metrics = m }
}

func NewReportService(store ReportStore, agg *aggregate.Aggregator, logger *slog.Logger, opts ...ReportOption) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReportService{
		store:   store,
		agg:     agg,
		timeout: 10 * time.Second,
		logger:  logger.With(log.FieldComponent, log.ComponentReport),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops cached monthly series.
func (s *ReportService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cache != nil {
		s.cache.Clear()
	}
}

func (s *ReportService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// storeIfCurrent caches series unless an invalidation happened since gen.
func (s *ReportService) storeIfCurrent(key string, series aggregate.MonthlySeries, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.cache.Set(key, series)
	return true
}

// SalesChart groups paid sales by month.
func (s *ReportService) SalesChart(ctx context.Context) (aggregate.MonthlySeries, error) {
	return s.MonthlyChart(ctx, core.KindSale)
}

// ExpensesChart groups expenses of every status by month.
func (s *ReportService) ExpensesChart(ctx context.Context) (aggregate.MonthlySeries, error) {
	return s.MonthlyChart(ctx, core.KindExpense)
}

func (s *ReportService) MonthlyChart(ctx context.Context, kind core.Kind) (aggregate.MonthlySeries, error) {
	key := string(kind)
	if s.cache != nil {
		if series, ok := s.cache.Get(key); ok {
			s.metrics.IncCacheHit(monthlyCacheName)
			return series, nil
		}
		s.metrics.IncCacheMiss(monthlyCacheName)
	}
	gen := s.generation()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var series aggregate.MonthlySeries
	switch kind {
	case core.KindSale:
		sales, err := s.store.ListSales(ctx)
		if err != nil {
			return aggregate.MonthlySeries{}, fmt.Errorf("load sales: %w", err)
		}
		series = s.agg.Monthly(aggregate.SaleRecords(sales), aggregate.OnlyPaid)
	case core.KindExpense:
		expenses, err := s.store.ListExpenses(ctx)
		if err != nil {
			return aggregate.MonthlySeries{}, fmt.Errorf("load expenses: %w", err)
		}
		series = s.agg.Monthly(aggregate.ExpenseRecords(expenses), aggregate.AnyStatus)
	default:
		return aggregate.MonthlySeries{}, core.ErrInvalidKind
	}
	s.metrics.AddSkipped(key, series.Skipped)

	if s.cache != nil && !s.storeIfCurrent(key, series, gen) {
		s.logger.DebugContext(ctx, "Discarding monthly series fetched before a write", log.FieldKind, key)
	}
	return series, nil
}

// RangeChart validates the range before touching the store, so a bad
// request never costs a fetch.
func (s *ReportService) RangeChart(ctx context.Context, start, end string) (aggregate.DailySeries, error) {
	r, err := s.agg.ParseRange(start, end)
	if err != nil {
		return aggregate.DailySeries{}, err
	}
	sales, expenses, err := s.fetchAll(ctx)
	if err != nil {
		return aggregate.DailySeries{}, err
	}
	series := s.agg.DailyRange(aggregate.SaleRecords(sales), aggregate.ExpenseRecords(expenses), r)
	if series.Skipped > 0 {
		s.logger.InfoContext(ctx, "Range chart skipped records",
			log.FieldStartDate, start, log.FieldEndDate, end, "skipped", series.Skipped)
		s.metrics.AddSkipped("range", series.Skipped)
	}
	return series, nil
}

// Dashboard computes the summary totals.
func (s *ReportService) Dashboard(ctx context.Context) (aggregate.Totals, error) {
	sales, expenses, err := s.fetchAll(ctx)
	if err != nil {
		return aggregate.Totals{}, err
	}
	return s.agg.Totals(aggregate.SaleRecords(sales), aggregate.ExpenseRecords(expenses)), nil
}

// fetchAll loads sales and expenses concurrently.
func (s *ReportService) fetchAll(ctx context.Context) ([]core.Sale, []core.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		sales    []core.Sale
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.store.ListSales(gctx)
		if err != nil {
			return fmt.Errorf("load sales: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(gctx)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sales, expenses, nil
}
