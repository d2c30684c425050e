package aggregate

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rec(amount, date string, status core.Status) Record {
	return Record{Amount: decimal.RequireFromString(amount), Date: date, Status: status}
}

func sum(ds []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}

func assertAmounts(t *testing.T, name string, got []decimal.Decimal, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d values, want %d", name, len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(decimal.RequireFromString(want[i])) {
			t.Fatalf("%s[%d] = %s, want %s", name, i, got[i], want[i])
		}
	}
}

func TestMonthlyPaidFilterScenario(t *testing.T) {
	a := New(quiet())
	records := []Record{
		rec("100", "2025-01-15", core.StatusPaid),
		rec("50", "2025-02-01", core.StatusPending),
	}
	got := a.Monthly(records, OnlyPaid)
	if len(got.Labels) != 1 || got.Labels[0] != "Jan 2025" {
		t.Fatalf("unexpected labels %v", got.Labels)
	}
	assertAmounts(t, "data", got.Data, "100")
}

func TestMonthlyExpensesCountEveryStatus(t *testing.T) {
	a := New(quiet())
	records := []Record{
		rec("100", "2025-01-15", core.StatusPaid),
		rec("50", "2025-01-20", core.StatusPending),
		rec("7", "2025-01-21", core.StatusUnknown),
	}
	got := a.Monthly(records, AnyStatus)
	assertAmounts(t, "data", got.Data, "157")

	// nil filter behaves like AnyStatus
	if !a.Monthly(records, nil).Data[0].Equal(got.Data[0]) {
		t.Fatalf("nil filter should count every status")
	}
}

func TestMonthlyChronologicalOrder(t *testing.T) {
	a := New(quiet())
	// Deliberately unordered, spanning a year boundary. A lexical sort of the
	// labels would put "Dec 2024" after "Apr 2025" and "Feb" before "Jan".
	records := []Record{
		rec("5", "2025-04-03", core.StatusPaid),
		rec("1", "2025-02-10", core.StatusPaid),
		rec("2", "2024-12-31", core.StatusPaid),
		rec("3", "2025-01-01", core.StatusPaid),
		rec("4", "2023-12-01", core.StatusPaid),
		rec("6", "2025-02-28", core.StatusPaid),
	}
	got := a.Monthly(records, OnlyPaid)

	want := []string{"Dec 2023", "Dec 2024", "Jan 2025", "Feb 2025", "Apr 2025"}
	if strings.Join(got.Labels, ",") != strings.Join(want, ",") {
		t.Fatalf("labels = %v, want %v", got.Labels, want)
	}
	assertAmounts(t, "data", got.Data, "4", "2", "3", "7", "5")

	var prev time.Time
	for i, l := range got.Labels {
		parsed, err := time.Parse(MonthLabelLayout, l)
		if err != nil {
			t.Fatalf("label %q does not parse back: %v", l, err)
		}
		if i > 0 && !parsed.After(prev) {
			t.Fatalf("labels not strictly increasing at %d: %v", i, got.Labels)
		}
		prev = parsed
	}
}

func TestMonthlyTotalsConservation(t *testing.T) {
	a := New(quiet())
	records := []Record{
		rec("10.10", "2025-01-01", core.StatusPaid),
		rec("20.20", "2025-03-09", core.StatusPending),
		rec("30.30", "2025-03-10", core.StatusPaid),
		rec("0.01", "2026-07-04", core.StatusPaid),
		rec("99.99", "2024-11-30", core.StatusPending),
	}
	for name, filter := range map[string]StatusFilter{"paid": OnlyPaid, "any": AnyStatus} {
		want := decimal.Zero
		for _, r := range records {
			if filter(r.Status) {
				want = want.Add(r.Amount)
			}
		}
		got := a.Monthly(records, filter)
		if !sum(got.Data).Equal(want) {
			t.Fatalf("%s: sum of buckets %s != sum of records %s", name, sum(got.Data), want)
		}
	}
}

func TestMonthlySkipsMalformedDates(t *testing.T) {
	var buf bytes.Buffer
	a := New(slog.New(slog.NewTextHandler(&buf, nil)))
	records := []Record{
		rec("10", "2025-01-05", core.StatusPaid),
		rec("999", "05/01/2025", core.StatusPaid),
		rec("5", "2025-01-06", core.StatusPaid),
		rec("1", "", core.StatusPaid),
	}
	got := a.Monthly(records, OnlyPaid)
	if got.Skipped != 2 {
		t.Fatalf("expected 2 skipped records, got %d", got.Skipped)
	}
	assertAmounts(t, "data", got.Data, "15")
	if !strings.Contains(buf.String(), "Skipping record with malformed date") {
		t.Fatalf("expected skip to be logged, got %q", buf.String())
	}
}

func TestMonthlyEmptyInput(t *testing.T) {
	got := New(quiet()).Monthly(nil, OnlyPaid)
	if len(got.Labels) != 0 || len(got.Data) != 0 || got.Skipped != 0 {
		t.Fatalf("expected empty series, got %+v", got)
	}
}

func TestParseRange(t *testing.T) {
	a := New(quiet(), WithMaxRangeDays(31))
	cases := []struct {
		start, end string
		reason     string
	}{
		{"", "2025-03-03", ReasonMissingStartDate},
		{"2025-03-01", "", ReasonMissingEndDate},
		{"2025-3-1", "2025-03-03", ReasonMalformedStartDate},
		{"2025-03-01", "March 3", ReasonMalformedEndDate},
		{"2025-03-04", "2025-03-03", ReasonStartAfterEnd},
		{"2025-01-01", "2025-02-01", ReasonRangeTooLarge},
		{"2025-01-01", "2025-01-31", ""},
		{"2025-03-03", "2025-03-03", ""},
	}
	for _, tc := range cases {
		r, err := a.ParseRange(tc.start, tc.end)
		if tc.reason == "" {
			if err != nil {
				t.Fatalf("%s..%s: unexpected error %v", tc.start, tc.end, err)
			}
			if r.Days() < 1 {
				t.Fatalf("%s..%s: bad day count %d", tc.start, tc.end, r.Days())
			}
			continue
		}
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("%s..%s: expected ErrInvalidRange, got %v", tc.start, tc.end, err)
		}
		if got := Reason(err); got != tc.reason {
			t.Fatalf("%s..%s: reason %q, want %q", tc.start, tc.end, got, tc.reason)
		}
	}

	_, err := a.ParseRange("", "")
	var missing *MissingParameterError
	if !errors.As(err, &missing) || missing.Name != "start_date" {
		t.Fatalf("expected MissingParameterError for start_date, got %v", err)
	}
}

func TestParseRangeCountsCenturies(t *testing.T) {
	a := New(quiet(), WithMaxRangeDays(150000))
	_, err := a.ParseRange("1700-01-01", "2300-01-01")
	if Reason(err) != ReasonRangeTooLarge {
		t.Fatalf("600-year range with a 150000-day limit: got %v", err)
	}

	wide := New(quiet(), WithMaxRangeDays(4000000))
	r, err := wide.ParseRange("0001-01-01", "9999-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Days(); got != 3652059 {
		t.Errorf("Days() = %d, want 3652059", got)
	}
}

func TestDailyRangeEmptyScenario(t *testing.T) {
	a := New(quiet())
	r, err := a.ParseRange("2025-03-01", "2025-03-03")
	if err != nil {
		t.Fatal(err)
	}
	outside := []Record{rec("10", "2025-02-28", core.StatusPaid), rec("3", "2025-03-04", core.StatusPending)}
	got := a.DailyRange(outside, nil, r)

	want := []string{"2025-03-01", "2025-03-02", "2025-03-03"}
	if strings.Join(got.Labels, ",") != strings.Join(want, ",") {
		t.Fatalf("labels = %v", got.Labels)
	}
	assertAmounts(t, "daily_sales", got.DailySales, "0", "0", "0")
	assertAmounts(t, "daily_pending", got.DailyPending, "0", "0", "0")
	assertAmounts(t, "daily_expenses_paid", got.DailyExpensesPaid, "0", "0", "0")
	assertAmounts(t, "daily_expenses_pending", got.DailyExpensesPending, "0", "0", "0")
}

func TestDailyRangeSplitsByKindAndStatus(t *testing.T) {
	a := New(quiet())
	r, _ := a.ParseRange("2025-03-01", "2025-03-03")
	sales := []Record{
		rec("100", "2025-03-01", core.StatusPaid),
		rec("20", "2025-03-01", core.StatusPaid),
		rec("50", "2025-03-02", core.StatusPending),
		rec("9", "2025-03-02", core.StatusUnknown),
	}
	expenses := []Record{
		rec("30", "2025-03-03", core.StatusPaid),
		rec("15", "2025-03-01", core.StatusPending),
	}
	got := a.DailyRange(sales, expenses, r)
	assertAmounts(t, "daily_sales", got.DailySales, "120", "0", "0")
	assertAmounts(t, "daily_pending", got.DailyPending, "0", "50", "0")
	assertAmounts(t, "daily_expenses_paid", got.DailyExpensesPaid, "0", "0", "30")
	assertAmounts(t, "daily_expenses_pending", got.DailyExpensesPending, "15", "0", "0")
}

func TestDailyRangeEndBoundary(t *testing.T) {
	a := New(quiet())
	r, _ := a.ParseRange("2025-03-01", "2025-03-31")
	sales := []Record{
		rec("1", "2025-03-31", core.StatusPaid),
		rec("1000", "2025-04-01", core.StatusPaid),
		rec("2", "2025-03-01", core.StatusPaid),
		rec("1000", "2025-02-28", core.StatusPaid),
	}
	got := a.DailyRange(sales, nil, r)
	if !got.DailySales[len(got.DailySales)-1].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("record on end date must be included, got %s", got.DailySales[len(got.DailySales)-1])
	}
	if !got.DailySales[0].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("record on start date must be included, got %s", got.DailySales[0])
	}
	if !sum(got.DailySales).Equal(decimal.NewFromInt(3)) {
		t.Fatalf("records outside the range must be excluded, total %s", sum(got.DailySales))
	}
}

func TestDailyRangeLengthMatchesDays(t *testing.T) {
	a := New(quiet())
	cases := []struct {
		start, end string
		days       int
	}{
		{"2025-03-03", "2025-03-03", 1},
		{"2024-02-27", "2024-03-01", 4}, // leap year
		{"2024-12-30", "2025-01-02", 4},
		{"2025-03-29", "2025-04-01", 4}, // crosses DST in many zones
		{"2025-01-01", "2025-12-31", 365},
	}
	many := make([]Record, 0, 500)
	for i := 0; i < 500; i++ {
		many = append(many, rec("1", "2025-06-15", core.StatusPaid))
	}
	for _, tc := range cases {
		r, err := a.ParseRange(tc.start, tc.end)
		if err != nil {
			t.Fatal(err)
		}
		for _, records := range [][]Record{nil, many} {
			got := a.DailyRange(records, records, r)
			for name, vals := range map[string]int{
				"labels":                 len(got.Labels),
				"daily_sales":            len(got.DailySales),
				"daily_pending":          len(got.DailyPending),
				"daily_expenses_paid":    len(got.DailyExpensesPaid),
				"daily_expenses_pending": len(got.DailyExpensesPending),
			} {
				if vals != tc.days {
					t.Fatalf("%s..%s: len(%s) = %d, want %d", tc.start, tc.end, name, vals, tc.days)
				}
			}
		}
	}
}

func TestDailyRangeSkipsMalformedDates(t *testing.T) {
	var buf bytes.Buffer
	a := New(slog.New(slog.NewTextHandler(&buf, nil)))
	r, _ := a.ParseRange("2025-03-01", "2025-03-02")
	sales := []Record{
		rec("10", "2025-03-01", core.StatusPaid),
		rec("10", "not-a-date", core.StatusPaid),
	}
	expenses := []Record{rec("4", "2025/03/02", core.StatusPaid)}
	got := a.DailyRange(sales, expenses, r)
	if got.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", got.Skipped)
	}
	assertAmounts(t, "daily_sales", got.DailySales, "10", "0")
	assertAmounts(t, "daily_expenses_paid", got.DailyExpensesPaid, "0", "0")
	if strings.Count(buf.String(), "malformed date") != 2 {
		t.Fatalf("expected both skips logged, got %q", buf.String())
	}
}

func TestAggregationIsIdempotent(t *testing.T) {
	a := New(quiet())
	records := []Record{
		rec("1.5", "2025-05-01", core.StatusPaid),
		rec("2.5", "2025-05-02", core.StatusPending),
		rec("3", "2025-06-01", core.StatusPaid),
		rec("4", "bad", core.StatusPaid),
	}
	m1 := a.Monthly(records, OnlyPaid)
	m2 := a.Monthly(records, OnlyPaid)
	if strings.Join(m1.Labels, ",") != strings.Join(m2.Labels, ",") || m1.Skipped != m2.Skipped {
		t.Fatalf("monthly not idempotent: %v vs %v", m1, m2)
	}
	for i := range m1.Data {
		if !m1.Data[i].Equal(m2.Data[i]) {
			t.Fatalf("monthly data differs at %d", i)
		}
	}

	r, _ := a.ParseRange("2025-05-01", "2025-05-03")
	d1 := a.DailyRange(records, records, r)
	d2 := a.DailyRange(records, records, r)
	for i := range d1.Labels {
		if d1.Labels[i] != d2.Labels[i] ||
			!d1.DailySales[i].Equal(d2.DailySales[i]) ||
			!d1.DailyPending[i].Equal(d2.DailyPending[i]) ||
			!d1.DailyExpensesPaid[i].Equal(d2.DailyExpensesPaid[i]) ||
			!d1.DailyExpensesPending[i].Equal(d2.DailyExpensesPending[i]) {
			t.Fatalf("daily range not idempotent at %d", i)
		}
	}
}

func TestTotals(t *testing.T) {
	a := New(quiet())
	sales := []Record{
		rec("100", "2025-01-01", core.StatusPaid),
		rec("40", "2025-01-02", core.StatusPending),
	}
	expenses := []Record{
		rec("30", "2025-01-01", core.StatusPaid),
		rec("25", "2025-01-05", core.StatusPending),
		rec("5", "bad-date", core.StatusUnknown),
	}
	got := a.Totals(sales, expenses)
	for name, pair := range map[string][2]decimal.Decimal{
		"total_sales":      {got.TotalSales, decimal.NewFromInt(140)},
		"paid_expenses":    {got.PaidExpenses, decimal.NewFromInt(30)},
		"pending_expenses": {got.PendingExpenses, decimal.NewFromInt(25)},
		"net_income":       {got.NetIncome, decimal.NewFromInt(110)},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Fatalf("%s = %s, want %s", name, pair[0], pair[1])
		}
	}
}

func TestRecordMappingChoosesAmountField(t *testing.T) {
	sale := core.NewSale("Acme", 2, decimal.NewFromInt(15), "2025-01-01", core.StatusPaid)
	got := SaleRecords([]core.Sale{sale})
	if !got[0].Amount.Equal(decimal.NewFromInt(30)) || got[0].Date != "2025-01-01" {
		t.Fatalf("sale mapped wrongly: %+v", got[0])
	}
	exp := core.Expense{Name: "Ink", Amount: decimal.NewFromInt(8), Date: "2025-01-02", Status: core.StatusPending}
	gotE := ExpenseRecords([]core.Expense{exp})
	if !gotE[0].Amount.Equal(decimal.NewFromInt(8)) || gotE[0].Status != core.StatusPending {
		t.Fatalf("expense mapped wrongly: %+v", gotE[0])
	}
}
