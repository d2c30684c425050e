package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by forms, storage and charts.
const DateLayout = "2006-01-02"

const (
	StatusPaid    Status = "Paid"
	StatusPending Status = "Pending"
	StatusUnknown Status = ""
)

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

const (
	KindSale    Kind = "sale"
	KindExpense Kind = "expense"
)

// RoleUser is the role given to every registered account.
const RoleUser = "user"

type (
	// Status is the payment state of a sale or an expense.
	Status string

	// Priority of a calendar task.
	Priority string

	// Kind distinguishes the two financial record types.
	Kind string

	Date struct {
		time.Time
	}

	Sale struct {
		ID           string
		CustomerName string
		Quantity     int
		PricePerUnit decimal.Decimal
		SaleDate     string // YYYY-MM-DD as stored
		SaleAmount   decimal.Decimal
		Status       Status
	}

	Expense struct {
		ID     string
		Name   string
		Amount decimal.Decimal
		Date   string // YYYY-MM-DD as stored
		Status Status
	}

	Task struct {
		ID       string
		Name     string
		DateTime string // "YYYY-MM-DD" or "YYYY-MM-DD HH:MM"
		Priority Priority
		Done     bool
		Price    decimal.Decimal
	}

	User struct {
		ID        string
		Username  string
		Email     string
		CreatedAt time.Time
		Role      string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTime      = errors.New("invalid time")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidKind      = errors.New("invalid record kind")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrInvalidUsername  = errors.New("username must be between 4 and 20 characters")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// ParseStatus accepts "Paid" and "Pending" in any case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return StatusPaid, nil
	case "pending":
		return StatusPending, nil
	}
	return StatusUnknown, ErrInvalidStatus
}

func (s Status) Valid() bool {
	return s == StatusPaid || s == StatusPending
}

func (s Status) String() string {
	if s == StatusUnknown {
		return "Unknown"
	}
	return string(s)
}

// ParseKind accepts the singular and plural forms used in URLs and messages.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sale", "sales":
		return KindSale, nil
	case "expense", "expenses":
		return KindExpense, nil
	}
	return "", ErrInvalidKind
}

// ParsePriority accepts "normal" and "high" in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", ErrInvalidPriority
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the calendar days from start to d, negative when d is
// earlier. Spans longer than a time.Duration stay exact.
func (d Date) DaysSince(start Date) int {
	return int(civilDay(d.Time) - civilDay(start.Time))
}

// civilDay numbers days from 1970-01-01 in the proleptic Gregorian calendar.
func civilDay(t time.Time) int64 {
	y, m, day := t.Date()
	year := int64(y)
	if m <= time.February {
		year--
	}
	era := year / 400
	if year < 0 {
		era = (year - 399) / 400
	}
	yoe := year - era*400
	mp := (int64(m) + 9) % 12
	doy := (153*mp+2)/5 + int64(day) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

// NewSale builds a sale and computes its amount as quantity times unit price.
func NewSale(customer string, quantity int, pricePerUnit decimal.Decimal, date string, status Status) Sale {
	return Sale{
		CustomerName: customer,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		SaleDate:     date,
		SaleAmount:   pricePerUnit.Mul(decimal.NewFromInt(int64(quantity))),
		Status:       status,
	}
}

func (s Sale) Validate() error {
	if err := validateName(s.CustomerName); err != nil {
		return err
	}
	if s.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if s.PricePerUnit.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := ParseDate(s.SaleDate); err != nil {
		return err
	}
	if !s.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// TaskDateTime joins a date and an optional HH:MM time the way tasks store it.
func TaskDateTime(date, clock string) string {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return strings.TrimSpace(date)
	}
	return strings.TrimSpace(date) + " " + clock
}

// When parses the task datetime; a missing time means midnight.
func (t Task) When() (time.Time, error) {
	if len(t.DateTime) > len(DateLayout) {
		when, err := time.Parse(DateLayout+" 15:04", t.DateTime)
		if err != nil {
			return time.Time{}, ErrInvalidTime
		}
		return when, nil
	}
	d, err := ParseDate(t.DateTime)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

func (t Task) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if _, err := t.When(); err != nil {
		return err
	}
	if t.Priority != PriorityNormal && t.Priority != PriorityHigh {
		return ErrInvalidPriority
	}
	if t.Price.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateRegistration checks the fields a new account needs.
func ValidateRegistration(username, email, password string) error {
	n := len(strings.TrimSpace(username))
	if n < 4 || n > 20 {
		return ErrInvalidUsername
	}
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return ErrInvalidEmail
	}
	if len(password) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}
