// Package http provides HTTP server and handler implementations.
//
// This file turns submitted forms into domain values. Parsing only checks
// that numbers and enums are well formed; the domain validates the rest.

package http

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
	"bottega/internal/services"
)

// ParseSaleForm reads the new-sale form.
func ParseSaleForm(form url.Values) (services.SaleInput, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(form.Get("quantity")))
	if err != nil {
		return services.SaleInput{}, core.ErrInvalidQuantity
	}
	price, err := parseAmount(form.Get("price_per_unit"))
	if err != nil {
		return services.SaleInput{}, err
	}
	status, err := core.ParseStatus(form.Get("status"))
	if err != nil {
		return services.SaleInput{}, err
	}
	return services.SaleInput{
		CustomerName: sanitizeInput(form.Get("customer_name")),
		Quantity:     qty,
		PricePerUnit: price,
		SaleDate:     strings.TrimSpace(form.Get("sale_date")),
		Status:       status,
	}, nil
}

// ParseExpenseForm reads the new-expense form.
func ParseExpenseForm(form url.Values) (core.Expense, error) {
	amount, err := parseAmount(form.Get("amount"))
	if err != nil {
		return core.Expense{}, err
	}
	status, err := core.ParseStatus(form.Get("status"))
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Name:   sanitizeInput(form.Get("name")),
		Amount: amount,
		Date:   strings.TrimSpace(form.Get("date")),
		Status: status,
	}, nil
}

// ParseTaskForm reads the calendar task form used for both create and edit.
// An empty price means zero.
func ParseTaskForm(form url.Values) (core.Task, error) {
	price := decimal.Zero
	if v := strings.TrimSpace(form.Get("price")); v != "" {
		p, err := parseAmount(v)
		if err != nil {
			return core.Task{}, err
		}
		price = p
	}
	priority := core.PriorityNormal
	if v := strings.TrimSpace(form.Get("priority")); v != "" {
		p, err := core.ParsePriority(v)
		if err != nil {
			return core.Task{}, err
		}
		priority = p
	}
	return core.Task{
		Name:     sanitizeInput(form.Get("name")),
		DateTime: core.TaskDateTime(form.Get("date"), form.Get("time")),
		Priority: priority,
		Price:    price,
	}, nil
}

// parseAmount accepts "12.50" and "12,50".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, core.ErrInvalidAmount
	}
	return d, nil
}
