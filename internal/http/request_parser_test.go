package http

import (
	"errors"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseSaleForm(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		wantErr error
	}{
		{
			name: "valid",
			form: url.Values{"customer_name": {" Acme "}, "quantity": {"2"}, "price_per_unit": {"10.50"}, "sale_date": {"2025-01-15"}, "status": {"paid"}},
		},
		{
			name:    "quantity not a number",
			form:    url.Values{"customer_name": {"Acme"}, "quantity": {"two"}, "price_per_unit": {"1"}, "status": {"Paid"}},
			wantErr: core.ErrInvalidQuantity,
		},
		{
			name:    "bad price",
			form:    url.Values{"customer_name": {"Acme"}, "quantity": {"1"}, "price_per_unit": {"1.2.3"}, "status": {"Paid"}},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown status",
			form:    url.Values{"customer_name": {"Acme"}, "quantity": {"1"}, "price_per_unit": {"1"}, "status": {"Refunded"}},
			wantErr: core.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseSaleForm(tt.form)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if in.CustomerName != "Acme" || in.Quantity != 2 || !in.PricePerUnit.Equal(dec("10.5")) ||
				in.SaleDate != "2025-01-15" || in.Status != core.StatusPaid {
				t.Errorf("input = %+v", in)
			}
		})
	}
}

func TestParseExpenseForm(t *testing.T) {
	e, err := ParseExpenseForm(url.Values{"name": {"Rent"}, "amount": {"1200,50"}, "date": {"2025-02-01"}, "status": {"Pending"}})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if e.Name != "Rent" || !e.Amount.Equal(dec("1200.50")) || e.Status != core.StatusPending {
		t.Errorf("expense = %+v", e)
	}

	if _, err := ParseExpenseForm(url.Values{"amount": {""}, "status": {"Paid"}}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("empty amount err = %v", err)
	}
}

func TestParseTaskForm(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		wantDateTime string
		wantPriority core.Priority
		wantPrice    string
		wantErr      error
	}{
		{"date only", url.Values{"name": {"Call"}, "date": {"2025-03-01"}}, "2025-03-01", core.PriorityNormal, "0", nil},
		{"with time", url.Values{"name": {"Call"}, "date": {"2025-03-01"}, "time": {"14:00"}, "priority": {"HIGH"}, "price": {"9.99"}}, "2025-03-01 14:00", core.PriorityHigh, "9.99", nil},
		{"bad priority", url.Values{"name": {"Call"}, "date": {"2025-03-01"}, "priority": {"urgent"}}, "", "", "", core.ErrInvalidPriority},
		{"bad price", url.Values{"name": {"Call"}, "date": {"2025-03-01"}, "price": {"free"}}, "", "", "", core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTaskForm(tt.form)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if task.DateTime != tt.wantDateTime || task.Priority != tt.wantPriority || !task.Price.Equal(dec(tt.wantPrice)) {
				t.Errorf("task = %+v", task)
			}
		})
	}
}

func TestMoneyTemplateFunc(t *testing.T) {
	money, ok := templateFuncs["money"].(func(decimal.Decimal) string)
	if !ok {
		t.Fatalf("money func has type %T", templateFuncs["money"])
	}
	if got := money(dec("1234567.8")); got != "1,234,567.80" {
		t.Errorf("money(1234567.8) = %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Acme\x00 Srl\x07 "); got != "Acme Srl" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
