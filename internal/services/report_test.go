package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func categorizedExpense(y, m, d int, desc, category string, cents int64) core.Transaction {
	tx := expenseOn(y, m, d, desc, cents)
	tx.Category = category
	return tx
}

func TestGenerateWeeklyReport(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		categorizedExpense(2024, 1, 9, "Supermarket", "Groceries", 4520),
		categorizedExpense(2024, 1, 10, "Rent January", "Rent", 18000),
		{Date: core.NewDate(2024, 1, 11), Description: "Salary", Amount: core.Money{Cents: 250000}, Category: "Income", Type: core.Income},
	}
	store.budgets["Groceries"] = core.Money{Cents: 10000}
	store.budgets["Rent"] = core.Money{Cents: 18000}

	b := NewReportBuilder(store, store, store)
	week := core.NewDate(2024, 1, 8)

	report, err := b.GenerateWeeklyReport(context.Background(), week)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalSpent.Cents != 22520 {
		t.Errorf("TotalSpent = %d, want 22520", report.TotalSpent.Cents)
	}
	if report.TotalBudget.Cents != 28000 {
		t.Errorf("TotalBudget = %d, want 28000", report.TotalBudget.Cents)
	}

	// Report must be persisted keyed by week start.
	entry, ok := store.reports[week.String()]
	if !ok {
		t.Fatal("report was not persisted")
	}
	if entry.Report.TotalSpent.Cents != 22520 {
		t.Errorf("persisted TotalSpent = %d", entry.Report.TotalSpent.Cents)
	}
}

func TestGenerateWeeklyReportEmptyWeek(t *testing.T) {
	store := newFakeStore()
	b := NewReportBuilder(store, store, store)

	report, err := b.GenerateWeeklyReport(context.Background(), core.NewDate(2024, 1, 8))
	if err != nil {
		t.Fatalf("empty week must not fail: %v", err)
	}
	if report.TotalSpent.Cents != 0 || len(report.Categories) != 0 {
		t.Errorf("empty week report = %+v, want zero totals and no categories", report)
	}
}

func TestGenerateLatestReportDefaultsToCompletedWeek(t *testing.T) {
	store := newFakeStore()
	b := NewReportBuilder(store, store, store)
	b.now = func() time.Time { return time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC) } // Wednesday

	report, err := b.GenerateLatestReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.WeekStart.String() != "2024-01-08" {
		t.Errorf("week start = %s, want 2024-01-08", report.WeekStart)
	}
}

func TestGenerateWeeklyReportRegenerationReflectsNewData(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		categorizedExpense(2024, 1, 9, "Supermarket", "Groceries", 1000),
	}
	b := NewReportBuilder(store, store, store)
	week := core.NewDate(2024, 1, 8)

	if _, err := b.GenerateWeeklyReport(context.Background(), week); err != nil {
		t.Fatalf("first generation: %v", err)
	}

	// More data arrives for the same week; regeneration overwrites.
	store.txs = append(store.txs, categorizedExpense(2024, 1, 12, "Supermarket again", "Groceries", 500))
	if _, err := b.GenerateWeeklyReport(context.Background(), week); err != nil {
		t.Fatalf("second generation: %v", err)
	}

	entries, err := b.SavedReports(context.Background())
	if err != nil {
		t.Fatalf("saved reports: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d history entries for one week, want 1", len(entries))
	}
	if entries[0].Report.TotalSpent.Cents != 1500 {
		t.Errorf("history entry spent = %d, want 1500 (second report's values)", entries[0].Report.TotalSpent.Cents)
	}
}

func TestGenerateWeeklyReportDataUnavailable(t *testing.T) {
	store := newFakeStore()
	store.failTransactions = true
	b := NewReportBuilder(store, store, store)

	_, err := b.GenerateWeeklyReport(context.Background(), core.NewDate(2024, 1, 8))
	if !errors.Is(err, core.ErrDataUnavailable) {
		t.Errorf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestTransactionsForWeek(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		categorizedExpense(2024, 1, 12, "Later expense", "Groceries", 100),
		{Date: core.NewDate(2024, 1, 9), Description: "Salary", Amount: core.Money{Cents: 250000}, Type: core.Income},
		categorizedExpense(2024, 1, 20, "Next week", "Groceries", 100),
	}
	b := NewReportBuilder(store, store, store)

	txs, err := b.TransactionsForWeek(context.Background(), core.NewDate(2024, 1, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2 (income included, next week excluded)", len(txs))
	}
	if !txs[0].Date.Before(txs[1].Date.Time) {
		t.Errorf("transactions must be chronological: %s then %s", txs[0].Date, txs[1].Date)
	}
	if txs[0].Type != core.Income {
		t.Errorf("earliest record should be the income entry, got %+v", txs[0])
	}
}
