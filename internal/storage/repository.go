package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"

	_ "modernc.org/sqlite"
)

// SQLiteRepository backs every engine store: transaction history, category
// budgets, the recurring registry, alerts, and report history.
type SQLiteRepository struct {
	db *sql.DB
}

// Interface conformance with the engine ports.
var (
	_ services.TransactionReader = (*SQLiteRepository)(nil)
	_ services.RecurringRegistry = (*SQLiteRepository)(nil)
	_ services.AlertStore        = (*SQLiteRepository)(nil)
	_ services.ReportHistory     = (*SQLiteRepository)(nil)
	_ services.BudgetReader      = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction records one imported transaction. The import pipeline
// owns transaction writes; this exists for it and for seeding.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (date, description, amount_cents, category, type)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		tx.Date.String(), tx.Description, tx.Amount.Cents, tx.Category, string(tx.Type),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// ListTransactions implements services.TransactionReader, ordered by date.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f services.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, date, description, amount_cents, category, type FROM transactions`
	var conds []string
	var args []any
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.String())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			rawDate string
			typ     string
		)
		if err := rows.Scan(&tx.ID, &rawDate, &tx.Description, &tx.Amount.Cents, &tx.Category, &typ); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		date, err := core.ParseDate(rawDate)
		if err != nil {
			// One malformed record must not block the rest.
			slog.WarnContext(ctx, "Skipping transaction with unparseable date",
				"id", tx.ID, "date", rawDate)
			continue
		}
		tx.Date = date
		tx.Type = core.TransactionType(typ)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// UpsertRecurring implements services.RecurringRegistry. Matching on
// (normalized_key, frequency, type) keeps identity stable across detection
// runs: re-detection updates instead of duplicating.
func (r *SQLiteRepository) UpsertRecurring(ctx context.Context, rt core.RecurringTransaction) (int64, error) {
	if err := rt.Validate(); err != nil {
		return 0, fmt.Errorf("validate recurring: %w", err)
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO recurring_transactions (description, normalized_key, amount_cents, frequency, next_due_date, type)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (normalized_key, frequency, type) DO UPDATE SET
		   description = excluded.description,
		   amount_cents = excluded.amount_cents,
		   next_due_date = excluded.next_due_date,
		   updated_at = CURRENT_TIMESTAMP
		 RETURNING id`,
		rt.Description, rt.NormalizedKey, rt.Amount.Cents, string(rt.Frequency), rt.NextDueDate.String(), string(rt.Type),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert recurring: %w", err)
	}
	return id, nil
}

// ListRecurring implements services.RecurringRegistry.
func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, normalized_key, amount_cents, frequency, next_due_date, type
		 FROM recurring_transactions ORDER BY next_due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	defer rows.Close()

	var rts []core.RecurringTransaction
	for rows.Next() {
		var (
			rt      core.RecurringTransaction
			rawDate string
			freq    string
			typ     string
		)
		if err := rows.Scan(&rt.ID, &rt.Description, &rt.NormalizedKey, &rt.Amount.Cents, &freq, &rawDate, &typ); err != nil {
			return nil, fmt.Errorf("scan recurring: %w", err)
		}
		if date, err := core.ParseDate(rawDate); err == nil {
			rt.NextDueDate = date
		} else {
			slog.WarnContext(ctx, "Recurring record has unparseable due date",
				"id", rt.ID, "next_due_date", rawDate)
		}
		rt.Frequency = core.Frequency(freq)
		rt.Type = core.TransactionType(typ)
		rts = append(rts, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring: %w", err)
	}
	return rts, nil
}

// UpsertAlert implements services.AlertStore. The UNIQUE constraint on
// recurring_transaction_id enforces at most one alert per recurring record.
func (r *SQLiteRepository) UpsertAlert(ctx context.Context, spec core.AlertSpec) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (recurring_transaction_id, title, message, icon, lead_time_days)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (recurring_transaction_id) DO UPDATE SET
		   title = excluded.title,
		   message = excluded.message,
		   icon = excluded.icon,
		   lead_time_days = excluded.lead_time_days`,
		spec.RecurringID, spec.Title, spec.Message, spec.Icon, spec.LeadTimeDays)
	if err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAlertByRecurringID(ctx context.Context, recurringID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE recurring_transaction_id = ?`, recurringID)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

// DeleteAlertsNotIn removes every alert whose recurring id is outside the
// given set. An empty set clears all alerts.
func (r *SQLiteRepository) DeleteAlertsNotIn(ctx context.Context, recurringIDs []int64) error {
	if len(recurringIDs) == 0 {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM alerts`); err != nil {
			return fmt.Errorf("delete all alerts: %w", err)
		}
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(recurringIDs)), ",")
	args := make([]any, len(recurringIDs))
	for i, id := range recurringIDs {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE recurring_transaction_id NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete alerts not in selection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActiveAlerts(ctx context.Context) ([]core.Alert, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recurring_transaction_id, title, message, icon, lead_time_days
		 FROM alerts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	for rows.Next() {
		var a core.Alert
		if err := rows.Scan(&a.ID, &a.RecurringTransactionID, &a.Title, &a.Message, &a.Icon, &a.LeadTimeDays); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// reportCategory is the persisted JSON shape of one category summary.
type reportCategory struct {
	Label       string `json:"label"`
	SpentCents  int64  `json:"spent_cents"`
	BudgetCents int64  `json:"budget_cents"`
}

// SaveWeeklyReport implements services.ReportHistory with overwrite
// semantics: one row per week start.
func (r *SQLiteRepository) SaveWeeklyReport(ctx context.Context, report core.WeeklyInsightsReport) error {
	cats := make([]reportCategory, len(report.Categories))
	for i, c := range report.Categories {
		cats[i] = reportCategory{Label: c.Label, SpentCents: c.Spent.Cents, BudgetCents: c.Budget.Cents}
	}
	payload, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("marshal report categories: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO weekly_reports (week_start, week_label, total_spent_cents, total_budget_cents, categories, generated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (week_start) DO UPDATE SET
		   week_label = excluded.week_label,
		   total_spent_cents = excluded.total_spent_cents,
		   total_budget_cents = excluded.total_budget_cents,
		   categories = excluded.categories,
		   generated_at = CURRENT_TIMESTAMP`,
		report.WeekStart.String(), report.WeekLabel, report.TotalSpent.Cents, report.TotalBudget.Cents, string(payload))
	if err != nil {
		return fmt.Errorf("save weekly report: %w", err)
	}
	return nil
}

// ListWeeklyReports implements services.ReportHistory, most recent first.
func (r *SQLiteRepository) ListWeeklyReports(ctx context.Context) ([]core.WeeklyReportEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT week_start, week_label, total_spent_cents, total_budget_cents, categories, generated_at
		 FROM weekly_reports ORDER BY week_start DESC`)
	if err != nil {
		return nil, fmt.Errorf("list weekly reports: %w", err)
	}
	defer rows.Close()

	var entries []core.WeeklyReportEntry
	for rows.Next() {
		var (
			rawStart    string
			label       string
			spent       int64
			budget      int64
			payload     string
			generatedAt time.Time
		)
		if err := rows.Scan(&rawStart, &label, &spent, &budget, &payload, &generatedAt); err != nil {
			return nil, fmt.Errorf("scan weekly report: %w", err)
		}
		start, err := core.ParseDate(rawStart)
		if err != nil {
			slog.WarnContext(ctx, "Skipping report with unparseable week start", "week_start", rawStart)
			continue
		}
		var cats []reportCategory
		if err := json.Unmarshal([]byte(payload), &cats); err != nil {
			return nil, fmt.Errorf("unmarshal report categories: %w", err)
		}
		report := core.WeeklyInsightsReport{
			WeekStart:   start,
			WeekLabel:   label,
			TotalSpent:  core.Money{Cents: spent},
			TotalBudget: core.Money{Cents: budget},
		}
		for _, c := range cats {
			report.Categories = append(report.Categories, core.CategoryWeeklySummary{
				Label:  c.Label,
				Spent:  core.Money{Cents: c.SpentCents},
				Budget: core.Money{Cents: c.BudgetCents},
			})
		}
		entries = append(entries, core.WeeklyReportEntry{
			WeekStart:   start,
			Report:      report,
			GeneratedAt: generatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly reports: %w", err)
	}
	return entries, nil
}

// WeeklyBudgetFor implements services.BudgetReader; zero when unset.
func (r *SQLiteRepository) WeeklyBudgetFor(ctx context.Context, label string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT weekly_budget_cents FROM categories WHERE label = ?`, label).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("budget for category: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// SetCategoryBudget configures the weekly budget for a category label.
func (r *SQLiteRepository) SetCategoryBudget(ctx context.Context, label string, budget core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (label, weekly_budget_cents) VALUES (?, ?)
		 ON CONFLICT (label) DO UPDATE SET weekly_budget_cents = excluded.weekly_budget_cents`,
		label, budget.Cents)
	if err != nil {
		return fmt.Errorf("set category budget: %w", err)
	}
	return nil
}
