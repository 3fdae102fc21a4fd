package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
)

// Service dependencies are narrow interfaces so handlers can be tested with
// in-memory fakes.
type ReportService interface {
	GenerateLatestReport(ctx context.Context) (core.WeeklyInsightsReport, error)
	GenerateWeeklyReport(ctx context.Context, weekStart core.Date) (core.WeeklyInsightsReport, error)
	SavedReports(ctx context.Context) ([]core.WeeklyReportEntry, error)
	TransactionsForWeek(ctx context.Context, weekStart core.Date) ([]core.Transaction, error)
}

type RecurringLister interface {
	ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
}

type AlertService interface {
	Reconcile(ctx context.Context, selected []int64, titles map[int64]string) error
	ActiveAlerts(ctx context.Context) ([]core.Alert, error)
}

type DetectionService interface {
	IdentifyRecurringTransactions(ctx context.Context, now time.Time) (int, error)
}

type categoryJSON struct {
	Label       string `json:"label"`
	SpentCents  int64  `json:"spent_cents"`
	Spent       string `json:"spent"`
	BudgetCents int64  `json:"budget_cents"`
	Budget      string `json:"budget"`
}

type reportJSON struct {
	WeekStart        string         `json:"week_start"`
	WeekLabel        string         `json:"week_label"`
	TotalSpentCents  int64          `json:"total_spent_cents"`
	TotalSpent       string         `json:"total_spent"`
	TotalBudgetCents int64          `json:"total_budget_cents"`
	TotalBudget      string         `json:"total_budget"`
	Categories       []categoryJSON `json:"categories"`
}

type reportEntryJSON struct {
	reportJSON
	GeneratedAt time.Time `json:"generated_at"`
}

type transactionJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

type recurringJSON struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency"`
	NextDueDate string `json:"next_due_date"`
	DueLabel    string `json:"due_label"`
	Type        string `json:"type"`
}

type alertJSON struct {
	ID                     int64  `json:"id"`
	RecurringTransactionID int64  `json:"recurring_transaction_id"`
	Title                  string `json:"title"`
	Message                string `json:"message"`
	Icon                   string `json:"icon"`
	LeadTimeDays           int    `json:"lead_time_days"`
}

func toReportJSON(report core.WeeklyInsightsReport) reportJSON {
	out := reportJSON{
		WeekStart:        report.WeekStart.String(),
		WeekLabel:        report.WeekLabel,
		TotalSpentCents:  report.TotalSpent.Cents,
		TotalSpent:       report.TotalSpent.Format(),
		TotalBudgetCents: report.TotalBudget.Cents,
		TotalBudget:      report.TotalBudget.Format(),
		Categories:       []categoryJSON{},
	}
	for _, c := range report.Categories {
		out.Categories = append(out.Categories, categoryJSON{
			Label:       c.Label,
			SpentCents:  c.Spent.Cents,
			Spent:       c.Spent.Format(),
			BudgetCents: c.Budget.Cents,
			Budget:      c.Budget.Format(),
		})
	}
	return out
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, map[string]string{"error": msg})
}

// serviceStatus maps service errors to HTTP status codes.
func serviceStatus(err error) int {
	if errors.Is(err, core.ErrDataUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// handleReports lists saved weekly reports, most recent first.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.reports.SavedReports(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list reports", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to list reports")
		return
	}

	out := []reportEntryJSON{}
	for _, e := range entries {
		out = append(out, reportEntryJSON{
			reportJSON:  toReportJSON(e.Report),
			GeneratedAt: e.GeneratedAt,
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

// handleReportByWeek serves two routes under /api/reports/:
// POST /api/reports/generate regenerates a report (optional ?week=),
// GET  /api/reports/{week} returns the saved report for that week start.
func (s *Server) handleReportByWeek(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/api/reports/")

	if suffix == "generate" {
		s.handleGenerateReport(w, r)
		return
	}

	if r.Method != http.MethodGet {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	weekStart, err := core.ParseDate(suffix)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid week start, expected YYYY-MM-DD")
		return
	}

	entries, err := s.reports.SavedReports(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list reports", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to list reports")
		return
	}
	for _, e := range entries {
		if e.WeekStart.String() == weekStart.String() {
			writeJSON(r.Context(), w, http.StatusOK, reportEntryJSON{
				reportJSON:  toReportJSON(e.Report),
				GeneratedAt: e.GeneratedAt,
			})
			return
		}
	}
	writeError(r.Context(), w, http.StatusNotFound, "no report for week "+weekStart.String())
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		report core.WeeklyInsightsReport
		err    error
	)
	if week := r.URL.Query().Get("week"); week != "" {
		var weekStart core.Date
		weekStart, err = core.ParseDate(week)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "invalid week start, expected YYYY-MM-DD")
			return
		}
		report, err = s.reports.GenerateWeeklyReport(r.Context(), weekStart)
	} else {
		report, err = s.reports.GenerateLatestReport(r.Context())
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate report", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to generate report")
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, toReportJSON(report))
}

// handleWeekTransactions lists the transactions of one week, oldest first.
func (s *Server) handleWeekTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	week := r.URL.Query().Get("week")
	if week == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "missing week query parameter")
		return
	}
	weekStart, err := core.ParseDate(week)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid week start, expected YYYY-MM-DD")
		return
	}

	txs, err := s.reports.TransactionsForWeek(r.Context(), weekStart)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list week transactions", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to list transactions")
		return
	}

	out := []transactionJSON{}
	for _, tx := range txs {
		out = append(out, transactionJSON{
			ID:          tx.ID,
			Date:        tx.Date.String(),
			Description: tx.Description,
			AmountCents: tx.Amount.Cents,
			Amount:      tx.Amount.Format(),
			Category:    tx.Category,
			Type:        string(tx.Type),
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

// handleRecurring lists detected recurring transactions with due labels.
func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rts, err := s.recurring.ListRecurring(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring transactions", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to list recurring transactions")
		return
	}

	now := time.Now()
	out := []recurringJSON{}
	for _, rt := range rts {
		out = append(out, recurringJSON{
			ID:          rt.ID,
			Description: rt.Description,
			AmountCents: rt.Amount.Cents,
			Amount:      rt.Amount.Format(),
			Frequency:   string(rt.Frequency),
			NextDueDate: rt.NextDueDate.String(),
			DueLabel:    core.DueLabel(rt.NextDueDate.String(), now),
			Type:        string(rt.Type),
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

// handleDetect runs a recurring-detection pass on demand, returning the
// number of recurring records in the registry afterwards.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.detector.IdentifyRecurringTransactions(r.Context(), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Recurring detection failed", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to run detection")
		return
	}

	slog.InfoContext(r.Context(), "Recurring detection completed", "recurring_count", count)
	writeJSON(r.Context(), w, http.StatusOK, map[string]int{"recurring_count": count})
}

// handleAlerts lists active alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	alerts, err := s.alerts.ActiveAlerts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list alerts", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to list alerts")
		return
	}

	out := []alertJSON{}
	for _, a := range alerts {
		out = append(out, alertJSON{
			ID:                     a.ID,
			RecurringTransactionID: a.RecurringTransactionID,
			Title:                  a.Title,
			Message:                a.Message,
			Icon:                   a.Icon,
			LeadTimeDays:           a.LeadTimeDays,
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

type reconcileRequest struct {
	SelectedIDs []int64           `json:"selected_ids"`
	Titles      map[string]string `json:"titles"`
}

// handleReconcileAlerts applies the user's alert selection: alerts are
// created for selected recurring ids and removed for everything else.
func (s *Server) handleReconcileAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}

	titles := make(map[int64]string, len(req.Titles))
	for key, title := range req.Titles {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "invalid recurring id in titles: "+key)
			return
		}
		titles[id] = title
	}

	if err := s.alerts.Reconcile(r.Context(), req.SelectedIDs, titles); err != nil {
		slog.ErrorContext(r.Context(), "Failed to reconcile alerts", "error", err)
		writeError(r.Context(), w, serviceStatus(err), "failed to reconcile alerts")
		return
	}

	slog.InfoContext(r.Context(), "Alerts reconciled", "selected_count", len(req.SelectedIDs))
	writeJSON(r.Context(), w, http.StatusOK, map[string]int{"selected_count": len(req.SelectedIDs)})
}
