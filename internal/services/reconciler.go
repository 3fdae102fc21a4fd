package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// AlertReconciler makes the alert set an exact image of a user's selection of
// recurring transactions. Reconciliation is idempotent: repeating the same
// call leaves the alert set unchanged.
type AlertReconciler struct {
	registry     RecurringRegistry
	alerts       AlertStore
	leadTimeDays int
}

// NewAlertReconciler wires the reconciler to its stores.
func NewAlertReconciler(registry RecurringRegistry, alerts AlertStore) *AlertReconciler {
	return &AlertReconciler{
		registry:     registry,
		alerts:       alerts,
		leadTimeDays: core.DefaultLeadTimeDays,
	}
}

// WithLeadTime overrides how many days before the due date alerts fire.
func (r *AlertReconciler) WithLeadTime(days int) *AlertReconciler {
	if days > 0 {
		r.leadTimeDays = days
	}
	return r
}

// Reconcile synchronizes alerts to the selected recurring ids. Titles
// override the derived default title per id. The two phases must run in
// order: per-selection upsert/delete first, then the orphan sweep that
// removes alerts whose recurring parent is gone or deselected.
func (r *AlertReconciler) Reconcile(ctx context.Context, selected []int64, titles map[int64]string) error {
	known, err := r.registry.ListRecurring(ctx)
	if err != nil {
		return fmt.Errorf("list recurring: %w: %w", core.ErrDataUnavailable, err)
	}

	selectedSet := make(map[int64]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	plan := core.PlanAlertSync(known, selectedSet, titles)

	for _, spec := range plan.Upserts {
		spec.LeadTimeDays = r.leadTimeDays
		if err := r.alerts.UpsertAlert(ctx, spec); err != nil {
			return fmt.Errorf("upsert alert for recurring %d: %w: %w", spec.RecurringID, core.ErrDataUnavailable, err)
		}
	}
	for _, id := range plan.DeleteRecurringIDs {
		if err := r.alerts.DeleteAlertByRecurringID(ctx, id); err != nil {
			return fmt.Errorf("delete alert for recurring %d: %w: %w", id, core.ErrDataUnavailable, err)
		}
	}

	// Orphan sweep: covers alerts bound to recurring records that have since
	// disappeared from the registry.
	if err := r.alerts.DeleteAlertsNotIn(ctx, plan.SelectedIDs); err != nil {
		return fmt.Errorf("sweep orphaned alerts: %w: %w", core.ErrDataUnavailable, err)
	}

	slog.InfoContext(ctx, "Alerts reconciled",
		"selected", len(plan.SelectedIDs),
		"upserts", len(plan.Upserts),
		"deletes", len(plan.DeleteRecurringIDs))

	return nil
}

// ActiveAlerts lists the alerts currently configured.
func (r *AlertReconciler) ActiveAlerts(ctx context.Context) ([]core.Alert, error) {
	alerts, err := r.alerts.ListActiveAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w: %w", core.ErrDataUnavailable, err)
	}
	return alerts, nil
}
