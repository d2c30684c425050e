package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bottega/internal/core"
	"bottega/internal/docstore"
)

// Document field names.
const (
	fieldCustomerName = "customer_name"
	fieldQuantity     = "quantity"
	fieldPricePerUnit = "price_per_unit"
	fieldSaleDate     = "sale_date"
	fieldSaleAmount   = "sale_amount"
	fieldStatus       = "status"
	fieldName         = "name"
	fieldAmount       = "amount"
	fieldDate         = "date"
	fieldDateTime     = "datetime"
	fieldPriority     = "priority"
	fieldDone         = "done"
	fieldPrice        = "price"
	fieldUsername     = "username"
	fieldEmail        = "email"
	fieldEmailKey     = "email_key"
	fieldCreatedAt    = "created_at"
	fieldRole         = "role"
	fieldPasswordHash = "password_hash"
	fieldCreatedBy    = "created_by"
	fieldSyncedAt     = "synced_at"
)

const createdAtLayout = "2006-01-02 15:04:05"

// Decoders apply the defaulting rules once so nothing downstream has to:
// absent numbers are zero, an absent or unrecognised status is
// core.StatusUnknown, an absent priority is normal and an absent done flag is
// false.

func decodeSale(doc docstore.Document) core.Sale {
	f := doc.Fields
	return core.Sale{
		ID:           doc.ID,
		CustomerName: f.String(fieldCustomerName),
		Quantity:     intField(f, fieldQuantity),
		PricePerUnit: decimalField(f, fieldPricePerUnit),
		SaleDate:     f.String(fieldSaleDate),
		SaleAmount:   decimalField(f, fieldSaleAmount),
		Status:       statusField(f),
	}
}

func encodeSale(s core.Sale) docstore.Fields {
	return docstore.Fields{
		fieldCustomerName: s.CustomerName,
		fieldQuantity:     s.Quantity,
		fieldPricePerUnit: s.PricePerUnit.StringFixed(2),
		fieldSaleDate:     s.SaleDate,
		fieldSaleAmount:   s.SaleAmount.StringFixed(2),
		fieldStatus:       string(s.Status),
	}
}

func decodeExpense(doc docstore.Document) core.Expense {
	f := doc.Fields
	return core.Expense{
		ID:     doc.ID,
		Name:   f.String(fieldName),
		Amount: decimalField(f, fieldAmount),
		Date:   f.String(fieldDate),
		Status: statusField(f),
	}
}

func encodeExpense(e core.Expense) docstore.Fields {
	return docstore.Fields{
		fieldName:   e.Name,
		fieldAmount: e.Amount.StringFixed(2),
		fieldDate:   e.Date,
		fieldStatus: string(e.Status),
	}
}

func decodeTask(doc docstore.Document) core.Task {
	f := doc.Fields
	priority, err := core.ParsePriority(f.String(fieldPriority))
	if err != nil {
		priority = core.PriorityNormal
	}
	return core.Task{
		ID:       doc.ID,
		Name:     f.String(fieldName),
		DateTime: f.String(fieldDateTime),
		Priority: priority,
		Done:     boolField(f, fieldDone),
		Price:    decimalField(f, fieldPrice),
	}
}

func encodeTask(t core.Task) docstore.Fields {
	return docstore.Fields{
		fieldName:     t.Name,
		fieldDateTime: t.DateTime,
		fieldPriority: string(t.Priority),
		fieldDone:     t.Done,
		fieldPrice:    t.Price.StringFixed(2),
	}
}

func decodeUser(doc docstore.Document) core.User {
	f := doc.Fields
	u := core.User{
		ID:       doc.ID,
		Username: f.String(fieldUsername),
		Email:    f.String(fieldEmail),
		Role:     f.String(fieldRole),
	}
	if t, err := time.Parse(createdAtLayout, f.String(fieldCreatedAt)); err == nil {
		u.CreatedAt = t
	}
	if u.Role == "" {
		u.Role = core.RoleUser
	}
	return u
}

func encodeUser(u core.User) docstore.Fields {
	role := u.Role
	if role == "" {
		role = core.RoleUser
	}
	return docstore.Fields{
		fieldUsername:  u.Username,
		fieldEmail:     u.Email,
		fieldEmailKey:  emailKey(u.Email),
		fieldCreatedAt: u.CreatedAt.UTC().Format(createdAtLayout),
		fieldRole:      role,
	}
}

// emailKey is the indexed lookup form of an address.
func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func statusField(f docstore.Fields) core.Status {
	s, err := core.ParseStatus(f.String(fieldStatus))
	if err != nil {
		return core.StatusUnknown
	}
	return s
}

// decimalField accepts every numeric shape a document can carry: strings
// written by this package, json.Number from SQLite, and ints or floats from
// YAML seeds.
func decimalField(f docstore.Fields, key string) decimal.Decimal {
	d, err := toDecimal(f[key])
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(n))
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
}

func intField(f docstore.Fields, key string) int {
	switch n := f[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}

func boolField(f docstore.Fields, key string) bool {
	switch b := f[key].(type) {
	case bool:
		return b
	case string:
		v, _ := strconv.ParseBool(b)
		return v
	}
	return false
}
