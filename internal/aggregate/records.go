package aggregate

import (
	"github.com/shopspring/decimal"

	"bottega/internal/core"
)

// Record is the aggregation view of one sale or one expense.
type Record struct {
	Amount decimal.Decimal
	Date   string
	Status core.Status
}

// StatusFilter restricts which records a monthly aggregation counts.
// A nil filter counts every record.
type StatusFilter func(core.Status) bool

var (
	// OnlyPaid is applied to sales.
	OnlyPaid StatusFilter = func(s core.Status) bool { return s == core.StatusPaid }
	// AnyStatus is applied to expenses.
	AnyStatus StatusFilter = func(core.Status) bool { return true }
)

// SaleRecords sums sale_amount.
func SaleRecords(sales []core.Sale) []Record {
	out := make([]Record, len(sales))
	for i, s := range sales {
		out[i] = Record{Amount: s.SaleAmount, Date: s.SaleDate, Status: s.Status}
	}
	return out
}

// ExpenseRecords sums amount.
func ExpenseRecords(expenses []core.Expense) []Record {
	out := make([]Record, len(expenses))
	for i, e := range expenses {
		out[i] = Record{Amount: e.Amount, Date: e.Date, Status: e.Status}
	}
	return out
}
