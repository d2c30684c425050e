// Package aggregate turns dated sales and expenses into chart series.
//
// Two groupings exist. Monthly buckets only contain months that received at
// least one record and are ordered by (year, month). Daily range buckets
// cover every date of an inclusive range, zero-filled. Records whose date
// cannot be parsed are logged and skipped; they never fail a whole call.
package aggregate

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
	"bottega/internal/log"
)

// MonthLabelLayout formats month labels such as "May 2025".
const MonthLabelLayout = "Jan 2006"

// DefaultMaxRangeDays bounds a daily range request to roughly three years.
const DefaultMaxRangeDays = 1096

type (
	// MonthBucket is the total of one calendar month.
	MonthBucket struct {
		Year  int
		Month time.Month
		Total decimal.Decimal
	}

	// MonthlySeries is the full-history chart data. Labels and Data are
	// aligned with Buckets.
	MonthlySeries struct {
		Buckets []MonthBucket
		Labels  []string
		Data    []decimal.Decimal
		Skipped int
	}

	// DateRange is an inclusive range of calendar dates.
	DateRange struct {
		Start core.Date
		End   core.Date
	}

	// DailySeries holds four per-day totals aligned with Labels.
	DailySeries struct {
		Labels               []string
		DailySales           []decimal.Decimal
		DailyPending         []decimal.Decimal
		DailyExpensesPaid    []decimal.Decimal
		DailyExpensesPending []decimal.Decimal
		Skipped              int
	}

	// Totals is the dashboard summary.
	Totals struct {
		TotalSales      decimal.Decimal
		PaidExpenses    decimal.Decimal
		PendingExpenses decimal.Decimal
		NetIncome       decimal.Decimal
	}
)

// Label formats the bucket key, e.g. "Jan 2025".
func (b MonthBucket) Label() string {
	return time.Date(b.Year, b.Month, 1, 0, 0, 0, 0, time.UTC).Format(MonthLabelLayout)
}

// Days is the number of dates in the range, both ends included.
func (r DateRange) Days() int {
	return r.End.DaysSince(r.Start) + 1
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d core.Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Aggregator holds no per-call state and is safe for concurrent use.
type Aggregator struct {
	logger       *slog.Logger
	maxRangeDays int
}

type Option func(*Aggregator)

// WithMaxRangeDays overrides DefaultMaxRangeDays.
func WithMaxRangeDays(days int) Option {
	return func(a *Aggregator) {
		if days > 0 {
			a.maxRangeDays = days
		}
	}
}

func New(logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		logger:       logger.With(log.FieldComponent, log.ComponentAggregate),
		maxRangeDays: DefaultMaxRangeDays,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type monthKey struct {
	year  int
	month time.Month
}

// Monthly groups the records accepted by filter by calendar month.
func (a *Aggregator) Monthly(records []Record, filter StatusFilter) MonthlySeries {
	var series MonthlySeries
	sums := make(map[monthKey]decimal.Decimal)

	for i, r := range records {
		if filter != nil && !filter(r.Status) {
			continue
		}
		d, err := a.parseRecordDate(i, r.Date)
		if err != nil {
			series.Skipped++
			continue
		}
		k := monthKey{year: d.Year(), month: d.Month()}
		sums[k] = sums[k].Add(r.Amount)
	}

	keys := make([]monthKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y monthKey) int {
		if c := cmp.Compare(x.year, y.year); c != 0 {
			return c
		}
		return cmp.Compare(x.month, y.month)
	})

	series.Buckets = make([]MonthBucket, len(keys))
	series.Labels = make([]string, len(keys))
	series.Data = make([]decimal.Decimal, len(keys))
	for i, k := range keys {
		b := MonthBucket{Year: k.year, Month: k.month, Total: sums[k]}
		series.Buckets[i] = b
		series.Labels[i] = b.Label()
		series.Data[i] = b.Total
	}
	return series
}

// ParseRange validates the caller's start and end dates.
func (a *Aggregator) ParseRange(start, end string) (DateRange, error) {
	if start == "" {
		return DateRange{}, &MissingParameterError{Name: "start_date"}
	}
	if end == "" {
		return DateRange{}, &MissingParameterError{Name: "end_date"}
	}
	s, err := core.ParseDate(start)
	if err != nil {
		return DateRange{}, &InvalidRangeError{reason: ReasonMalformedStartDate, Start: start, End: end}
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return DateRange{}, &InvalidRangeError{reason: ReasonMalformedEndDate, Start: start, End: end}
	}
	if s.After(e.Time) {
		return DateRange{}, &InvalidRangeError{reason: ReasonStartAfterEnd, Start: start, End: end}
	}
	r := DateRange{Start: s, End: e}
	if r.Days() > a.maxRangeDays {
		return DateRange{}, &InvalidRangeError{reason: ReasonRangeTooLarge, Start: start, End: end}
	}
	return r, nil
}

// DailyRange totals sales and expenses per day and status over r.
// Records outside r are ignored.
func (a *Aggregator) DailyRange(sales, expenses []Record, r DateRange) DailySeries {
	n := r.Days()
	series := DailySeries{
		Labels:               make([]string, n),
		DailySales:           zeros(n),
		DailyPending:         zeros(n),
		DailyExpensesPaid:    zeros(n),
		DailyExpensesPending: zeros(n),
	}
	for i := 0; i < n; i++ {
		series.Labels[i] = r.Start.AddDays(i).String()
	}

	accumulate := func(records []Record, paid, pending []decimal.Decimal) {
		for i, rec := range records {
			d, err := a.parseRecordDate(i, rec.Date)
			if err != nil {
				series.Skipped++
				continue
			}
			if !r.Contains(d) {
				continue
			}
			idx := d.DaysSince(r.Start)
			switch rec.Status {
			case core.StatusPaid:
				paid[idx] = paid[idx].Add(rec.Amount)
			case core.StatusPending:
				pending[idx] = pending[idx].Add(rec.Amount)
			default:
				a.logger.Debug("Ignoring record without payment status", "index", i, "date", rec.Date)
			}
		}
	}
	accumulate(sales, series.DailySales, series.DailyPending)
	accumulate(expenses, series.DailyExpensesPaid, series.DailyExpensesPending)
	return series
}

// Totals computes the dashboard figures. Total sales count every sale
// regardless of status; net income subtracts only paid expenses.
func (a *Aggregator) Totals(sales, expenses []Record) Totals {
	var t Totals
	for _, s := range sales {
		t.TotalSales = t.TotalSales.Add(s.Amount)
	}
	for _, e := range expenses {
		switch e.Status {
		case core.StatusPaid:
			t.PaidExpenses = t.PaidExpenses.Add(e.Amount)
		case core.StatusPending:
			t.PendingExpenses = t.PendingExpenses.Add(e.Amount)
		}
	}
	t.NetIncome = t.TotalSales.Sub(t.PaidExpenses)
	return t
}

func (a *Aggregator) parseRecordDate(index int, value string) (core.Date, error) {
	d, err := core.ParseDate(value)
	if err != nil {
		merr := &MalformedDateError{Index: index, Value: value, Err: err}
		a.logger.Warn("Skipping record with malformed date",
			"index", index,
			"date", value,
			log.FieldOperation, log.OpAggregate,
			log.FieldError, merr.Error())
		return core.Date{}, merr
	}
	return d, nil
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
