package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
)

// RecordAppender mirrors ledger records into a spreadsheet, one row per
// record, one sheet per kind.
type RecordAppender interface {
	AppendRecord(ctx context.Context, kind core.Kind, row []any) (rowRef string, err error)
}

var (
	// SalesHeader names the columns written by SaleRow.
	SalesHeader = []any{"ID", "Date", "Customer", "Quantity", "Price per unit", "Amount", "Status"}
	// ExpensesHeader names the columns written by ExpenseRow.
	ExpensesHeader = []any{"ID", "Date", "Name", "Amount", "Status"}
)

// SaleRow is the spreadsheet row for a sale. Amounts are written with two
// decimals so the sheet parses them as numbers.
func SaleRow(s core.Sale) []any {
	return []any{
		s.ID,
		s.SaleDate,
		s.CustomerName,
		s.Quantity,
		money(s.PricePerUnit),
		money(s.SaleAmount),
		s.Status.String(),
	}
}

// ExpenseRow is the spreadsheet row for an expense.
func ExpenseRow(e core.Expense) []any {
	return []any{e.ID, e.Date, e.Name, money(e.Amount), e.Status.String()}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// HeaderFor returns the header row of kind's sheet, or nil for an unknown kind.
func HeaderFor(kind core.Kind) []any {
	switch kind {
	case core.KindSale:
		return SalesHeader
	case core.KindExpense:
		return ExpensesHeader
	}
	return nil
}
