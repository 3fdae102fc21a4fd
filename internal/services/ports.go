package services

import (
	"context"

	"bilancio/internal/core"
)

// Ports for the engine's store collaborators. The SQLite repository satisfies
// all of them; tests substitute in-memory fakes.
type (
	// TransactionFilter narrows a transaction listing. Nil fields mean "any".
	TransactionFilter struct {
		Type *core.TransactionType
		From *core.Date
		To   *core.Date
	}

	// TransactionReader is the read-only view of the transaction store.
	// The engine never mutates transactions.
	TransactionReader interface {
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	}

	// RecurringRegistry holds the currently known recurring records.
	RecurringRegistry interface {
		// UpsertRecurring matches on (NormalizedKey, Frequency, Type) and
		// updates amount and next due date in place, or inserts.
		UpsertRecurring(ctx context.Context, rt core.RecurringTransaction) (int64, error)
		ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
	}

	// AlertStore persists alerts; at most one alert per recurring id.
	AlertStore interface {
		UpsertAlert(ctx context.Context, spec core.AlertSpec) error
		DeleteAlertByRecurringID(ctx context.Context, recurringID int64) error
		DeleteAlertsNotIn(ctx context.Context, recurringIDs []int64) error
		ListActiveAlerts(ctx context.Context) ([]core.Alert, error)
	}

	// ReportHistory persists weekly report snapshots, one per week start.
	ReportHistory interface {
		// SaveWeeklyReport overwrites any prior entry for the same week.
		SaveWeeklyReport(ctx context.Context, report core.WeeklyInsightsReport) error
		// ListWeeklyReports returns history ordered by week start descending.
		ListWeeklyReports(ctx context.Context) ([]core.WeeklyReportEntry, error)
	}

	// BudgetReader resolves the configured weekly budget for a category
	// label, zero when unset.
	BudgetReader interface {
		WeeklyBudgetFor(ctx context.Context, label string) (core.Money, error)
	}
)
