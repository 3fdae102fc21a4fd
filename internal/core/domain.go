package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// UncategorizedLabel is the sentinel category for expenses without one.
const UncategorizedLabel = "Uncategorized"

type (
	TransactionType string

	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is an immutable record owned by the transaction store.
	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money
		Category    string // empty when uncategorized
		Type        TransactionType
	}

	// RecurringTransaction is derived from transaction history and recomputed
	// on every detection pass. Identity is stable across passes through
	// (NormalizedKey, Frequency, Type).
	RecurringTransaction struct {
		ID            int64
		Description   string
		NormalizedKey string
		Amount        Money
		Frequency     Frequency
		NextDueDate   Date
		Type          TransactionType
	}

	// Alert is a user-configured reminder bound to at most one recurring
	// transaction.
	Alert struct {
		ID                     int64
		RecurringTransactionID int64
		Title                  string
		Message                string
		Icon                   string
		LeadTimeDays           int
	}

	CategoryWeeklySummary struct {
		Label  string
		Spent  Money
		Budget Money
	}

	WeeklyInsightsReport struct {
		WeekStart   Date
		WeekLabel   string
		TotalSpent  Money
		TotalBudget Money
		Categories  []CategoryWeeklySummary
	}

	// WeeklyReportEntry is a persisted report snapshot; one per distinct week.
	WeeklyReportEntry struct {
		WeekStart   Date
		Report      WeeklyInsightsReport
		GeneratedAt time.Time
	}
)

var (
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to midnight UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a stored YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the storage form (YYYY-MM-DD).
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// DaysUntil returns the whole-day delta from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Monthly:
		return nil
	default:
		return ErrUnknownFrequency
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return errors.New("unknown transaction type")
	}
}

func (rt RecurringTransaction) Validate() error {
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := rt.Frequency.Validate(); err != nil {
		return err
	}
	if err := rt.NextDueDate.Validate(); err != nil {
		return err
	}
	if rt.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return rt.Type.Validate()
}
