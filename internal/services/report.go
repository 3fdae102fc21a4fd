package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"bilancio/internal/core"
)

// ReportBuilder aggregates a week of transactions into a persisted
// spending-vs-budget report.
type ReportBuilder struct {
	transactions TransactionReader
	budgets      BudgetReader
	history      ReportHistory
	now          func() time.Time
}

// NewReportBuilder wires the builder to its stores.
func NewReportBuilder(transactions TransactionReader, budgets BudgetReader, history ReportHistory) *ReportBuilder {
	return &ReportBuilder{
		transactions: transactions,
		budgets:      budgets,
		history:      history,
		now:          time.Now,
	}
}

// GenerateLatestReport builds and persists the report for the most recently
// completed week.
func (b *ReportBuilder) GenerateLatestReport(ctx context.Context) (core.WeeklyInsightsReport, error) {
	return b.GenerateWeeklyReport(ctx, core.MostRecentCompletedWeek(b.now()))
}

// GenerateWeeklyReport builds the report for the week starting at weekStart
// and persists it into report history, overwriting any prior entry for that
// week. An empty week is not an error: it yields zero totals and no
// categories.
func (b *ReportBuilder) GenerateWeeklyReport(ctx context.Context, weekStart core.Date) (core.WeeklyInsightsReport, error) {
	expense := core.Expense
	end := core.WeekEnd(weekStart)
	txs, err := b.transactions.ListTransactions(ctx, TransactionFilter{
		Type: &expense,
		From: &weekStart,
		To:   &end,
	})
	if err != nil {
		return core.WeeklyInsightsReport{}, fmt.Errorf("list week transactions: %w: %w", core.ErrDataUnavailable, err)
	}

	budgets, err := b.budgetsForWeek(ctx, txs)
	if err != nil {
		return core.WeeklyInsightsReport{}, err
	}

	report := core.BuildWeeklyReport(weekStart, txs, budgets)

	if err := b.history.SaveWeeklyReport(ctx, report); err != nil {
		return core.WeeklyInsightsReport{}, fmt.Errorf("save weekly report: %w: %w", core.ErrDataUnavailable, err)
	}

	slog.InfoContext(ctx, "Weekly report generated",
		"week_start", weekStart.String(),
		"week_label", report.WeekLabel,
		"total_spent_cents", report.TotalSpent.Cents,
		"total_budget_cents", report.TotalBudget.Cents,
		"categories", len(report.Categories))

	return report, nil
}

// budgetsForWeek resolves the configured budget for every category label
// observed in the week's transactions. Unset budgets resolve to zero.
func (b *ReportBuilder) budgetsForWeek(ctx context.Context, txs []core.Transaction) (map[string]core.Money, error) {
	budgets := make(map[string]core.Money)
	for _, tx := range txs {
		label := tx.Category
		if label == "" {
			label = core.UncategorizedLabel
		}
		if _, seen := budgets[label]; seen {
			continue
		}
		if label == core.UncategorizedLabel {
			budgets[label] = core.Money{}
			continue
		}
		budget, err := b.budgets.WeeklyBudgetFor(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("budget for %q: %w: %w", label, core.ErrDataUnavailable, err)
		}
		budgets[label] = budget
	}
	return budgets, nil
}

// SavedReports returns report history, most recent week first.
func (b *ReportBuilder) SavedReports(ctx context.Context) ([]core.WeeklyReportEntry, error) {
	entries, err := b.history.ListWeeklyReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weekly reports: %w: %w", core.ErrDataUnavailable, err)
	}
	return entries, nil
}

// TransactionsForWeek returns the raw expense and income transactions of a
// week in chronological order, for history drill-down. No aggregation.
func (b *ReportBuilder) TransactionsForWeek(ctx context.Context, weekStart core.Date) ([]core.Transaction, error) {
	end := core.WeekEnd(weekStart)
	txs, err := b.transactions.ListTransactions(ctx, TransactionFilter{From: &weekStart, To: &end})
	if err != nil {
		return nil, fmt.Errorf("list week transactions: %w: %w", core.ErrDataUnavailable, err)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date.Time) })
	return txs, nil
}
