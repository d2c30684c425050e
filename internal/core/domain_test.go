package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Paid", StatusPaid, true},
		{"pending", StatusPending, true},
		{" PAID ", StatusPaid, true},
		{"refunded", StatusUnknown, false},
		{"", StatusUnknown, false},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if got != tc.want || (err == nil) != tc.ok {
			t.Fatalf("ParseStatus(%q) = %q, %v", tc.in, got, err)
		}
	}
	if StatusUnknown.String() != "Unknown" {
		t.Fatalf("unexpected unknown label %q", StatusUnknown.String())
	}
}

func TestNewSaleComputesAmount(t *testing.T) {
	s := NewSale("Acme", 3, decimal.RequireFromString("19.99"), "2025-01-15", StatusPaid)
	if !s.SaleAmount.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("expected 59.97, got %s", s.SaleAmount)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestSaleValidate(t *testing.T) {
	price := decimal.NewFromInt(10)
	bads := []Sale{
		NewSale("", 1, price, "2025-01-01", StatusPaid),
		NewSale("a", 0, price, "2025-01-01", StatusPaid),
		NewSale("a", 1, price.Neg(), "2025-01-01", StatusPaid),
		NewSale("a", 1, price, "2025-13-01", StatusPaid),
		NewSale("a", 1, price, "2025-01-01", StatusUnknown),
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Name: "Rent", Amount: decimal.NewFromInt(500), Date: "2025-02-01", Status: StatusPending}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Name: "", Amount: decimal.NewFromInt(1), Date: "2025-02-01", Status: StatusPaid},
		{Name: "a", Amount: decimal.Zero, Date: "2025-02-01", Status: StatusPaid},
		{Name: "a", Amount: decimal.NewFromInt(1), Date: "01/02/2025", Status: StatusPaid},
		{Name: "a", Amount: decimal.NewFromInt(1), Date: "2025-02-01", Status: "Refunded"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTaskWhenAndValidate(t *testing.T) {
	task := Task{Name: "Call supplier", DateTime: TaskDateTime("2025-04-02", " 14:30 "), Priority: PriorityHigh}
	if task.DateTime != "2025-04-02 14:30" {
		t.Fatalf("unexpected datetime %q", task.DateTime)
	}
	when, err := task.When()
	if err != nil || when.Hour() != 14 || when.Minute() != 30 {
		t.Fatalf("unexpected when: %v %v", when, err)
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	dateOnly := Task{Name: "x", DateTime: TaskDateTime("2025-04-02", ""), Priority: PriorityNormal}
	if err := dateOnly.Validate(); err != nil {
		t.Fatalf("expected ok for date-only task, got %v", err)
	}

	bads := []Task{
		{Name: "x", DateTime: "2025-04-02 25:00", Priority: PriorityNormal},
		{Name: "x", DateTime: "tomorrow", Priority: PriorityNormal},
		{Name: "x", DateTime: "2025-04-02", Priority: "urgent"},
		{Name: "x", DateTime: "2025-04-02", Priority: PriorityNormal, Price: decimal.NewFromInt(-1)},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestValidateRegistration(t *testing.T) {
	if err := ValidateRegistration("owner", "owner@shop.test", "secret1"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	cases := []struct{ user, email, pass string }{
		{"own", "owner@shop.test", "secret1"},
		{"a-very-long-username-x", "owner@shop.test", "secret1"},
		{"owner", "owner.shop.test", "secret1"},
		{"owner", "owner@shop", "secret1"},
		{"owner", "owner@shop.test", "12345"},
	}
	for i, c := range cases {
		if err := ValidateRegistration(c.user, c.email, c.pass); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateDaysSince(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2025-03-01", "2025-03-01", 0},
		{"2024-02-28", "2024-03-01", 2},
		{"2023-02-28", "2023-03-01", 1},
		{"1970-01-01", "1969-12-31", -1},
		{"1700-01-01", "2300-01-01", 219145},
		{"0001-01-01", "9999-12-31", 3652058},
	}
	for _, tc := range cases {
		from, err := ParseDate(tc.from)
		if err != nil {
			t.Fatal(err)
		}
		to, err := ParseDate(tc.to)
		if err != nil {
			t.Fatal(err)
		}
		if got := to.DaysSince(from); got != tc.want {
			t.Errorf("%s..%s = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}
