package sheets

import (
	"testing"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
)

func TestSaleRow(t *testing.T) {
	s := core.NewSale("Acme", 3, decimal.RequireFromString("2.5"), "2025-01-15", core.StatusPaid)
	s.ID = "s1"

	row := SaleRow(s)
	if len(row) != len(SalesHeader) {
		t.Fatalf("row has %d columns, header %d", len(row), len(SalesHeader))
	}
	want := []any{"s1", "2025-01-15", "Acme", 3, "2.50", "7.50", "Paid"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %v = %v, want %v", SalesHeader[i], row[i], want[i])
		}
	}
}

func TestExpenseRow(t *testing.T) {
	e := core.Expense{ID: "e1", Name: "Rent", Amount: decimal.NewFromInt(500), Date: "2025-02-01"}

	row := ExpenseRow(e)
	if len(row) != len(ExpensesHeader) {
		t.Fatalf("row has %d columns, header %d", len(row), len(ExpensesHeader))
	}
	if row[3] != "500.00" {
		t.Errorf("amount = %v, want 500.00", row[3])
	}
	if row[4] != "Unknown" {
		t.Errorf("status = %v, want Unknown", row[4])
	}
}

func TestHeaderFor(t *testing.T) {
	if got := HeaderFor(core.KindSale); len(got) != 7 {
		t.Errorf("sale header = %v", got)
	}
	if got := HeaderFor(core.KindExpense); len(got) != 5 {
		t.Errorf("expense header = %v", got)
	}
	if got := HeaderFor(core.Kind("refund")); got != nil {
		t.Errorf("unknown kind header = %v", got)
	}
}
