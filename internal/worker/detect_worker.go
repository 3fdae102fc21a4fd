package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/services"
)

// Publisher announces detection results. Nil-safe wiring lives in the
// worker; the AMQP client satisfies this.
type Publisher interface {
	PublishDetectionCompleted(ctx context.Context, recurringCount int) error
}

// ReportGenerator refreshes the report snapshot for the most recently
// completed week.
type ReportGenerator interface {
	GenerateLatestReport(ctx context.Context) (core.WeeklyInsightsReport, error)
}

// DetectionWorker runs periodic recurring-transaction detection and keeps
// alert contents and the latest weekly report fresh after each pass.
type DetectionWorker struct {
	detector   *services.Detector
	reconciler *services.AlertReconciler
	reports    ReportGenerator
	publisher  Publisher
}

func NewDetectionWorker(detector *services.Detector, reconciler *services.AlertReconciler, reports ReportGenerator, publisher Publisher) *DetectionWorker {
	return &DetectionWorker{
		detector:   detector,
		reconciler: reconciler,
		reports:    reports,
		publisher:  publisher,
	}
}

// RunOnce performs one detection pass. Alerts that already exist are
// re-reconciled so their messages pick up updated amounts and due dates, and
// the latest weekly report is regenerated over the fresh data.
func (w *DetectionWorker) RunOnce(ctx context.Context, now time.Time) (int, error) {
	count, err := w.detector.IdentifyRecurringTransactions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("identify recurring transactions: %w", err)
	}

	if err := w.refreshAlerts(ctx); err != nil {
		return count, fmt.Errorf("refresh alerts: %w", err)
	}

	if w.reports != nil {
		if report, err := w.reports.GenerateLatestReport(ctx); err != nil {
			// Detection already persisted; the next pass retries the report.
			slog.WarnContext(ctx, "Failed to refresh latest weekly report", "error", err)
		} else {
			slog.InfoContext(ctx, "Latest weekly report refreshed",
				"week_start", report.WeekStart.String(),
				"total_spent_cents", report.TotalSpent.Cents)
		}
	}

	if w.publisher != nil {
		if err := w.publisher.PublishDetectionCompleted(ctx, count); err != nil {
			slog.WarnContext(ctx, "Failed to publish detection completed message", "error", err)
		}
	}

	return count, nil
}

// refreshAlerts re-applies the current alert selection so messages reflect
// the latest detected amounts and due dates.
func (w *DetectionWorker) refreshAlerts(ctx context.Context) error {
	alerts, err := w.reconciler.ActiveAlerts(ctx)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	selected := make([]int64, 0, len(alerts))
	titles := make(map[int64]string, len(alerts))
	for _, a := range alerts {
		selected = append(selected, a.RecurringTransactionID)
		titles[a.RecurringTransactionID] = a.Title
	}
	return w.reconciler.Reconcile(ctx, selected, titles)
}

// RunPeriodic runs a detection pass on startup and then on every tick until
// the context is cancelled.
func (w *DetectionWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	slog.InfoContext(ctx, "Running initial detection pass")
	if count, err := w.RunOnce(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial detection pass failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Initial detection pass complete", "recurring_count", count)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			count, err := w.RunOnce(ctx, now)
			if err != nil {
				slog.ErrorContext(ctx, "Periodic detection pass failed", "error", err)
				continue
			}
			slog.InfoContext(ctx, "Periodic detection pass complete",
				"recurring_count", count,
				"next_check", now.Add(interval).Format("15:04:05"))
		}
	}
}

// HandleTransactionsSynced runs a detection pass in response to an import
// notification.
func (w *DetectionWorker) HandleTransactionsSynced(ctx context.Context) func(*amqp.TransactionsSyncedMessage) error {
	return func(msg *amqp.TransactionsSyncedMessage) error {
		slog.InfoContext(ctx, "Detection triggered by transaction sync",
			"message_id", msg.MessageID,
			"transaction_count", msg.TransactionCount)

		count, err := w.RunOnce(ctx, time.Now())
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Triggered detection pass complete", "recurring_count", count)
		return nil
	}
}
