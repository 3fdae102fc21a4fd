package core

import "sort"

// BuildWeeklyReport aggregates the expense transactions of one week into
// per-category spent-vs-budget summaries. Transactions outside the week or
// of income type are ignored; uncategorized expenses fold into the
// UncategorizedLabel sentinel with a zero budget. Categories are ordered by
// descending spent, then by label for determinism. An empty week yields a
// report with zero totals and no categories.
func BuildWeeklyReport(weekStart Date, txs []Transaction, budgets map[string]Money) WeeklyInsightsReport {
	spent := make(map[string]Money)
	for _, tx := range txs {
		if tx.Type != Expense || !InWeek(tx.Date, weekStart) {
			continue
		}
		label := tx.Category
		if label == "" {
			label = UncategorizedLabel
		}
		spent[label] = spent[label].Add(tx.Amount.Abs())
	}

	report := WeeklyInsightsReport{
		WeekStart: weekStart,
		WeekLabel: WeekLabel(weekStart),
	}
	for label, amount := range spent {
		budget := budgets[label]
		report.Categories = append(report.Categories, CategoryWeeklySummary{
			Label:  label,
			Spent:  amount,
			Budget: budget,
		})
		report.TotalSpent = report.TotalSpent.Add(amount)
		report.TotalBudget = report.TotalBudget.Add(budget)
	}

	sort.Slice(report.Categories, func(i, j int) bool {
		a, b := report.Categories[i], report.Categories[j]
		if a.Spent.Cents != b.Spent.Cents {
			return a.Spent.Cents > b.Spent.Cents
		}
		return a.Label < b.Label
	})

	return report
}
