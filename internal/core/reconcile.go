package core

import "fmt"

// DefaultLeadTimeDays is how many days before the due date an alert fires.
const DefaultLeadTimeDays = 3

// AlertSpec is the desired shape of one alert, produced by planning and
// applied by a store adapter.
type AlertSpec struct {
	RecurringID  int64
	Title        string
	Message      string
	Icon         string
	LeadTimeDays int
}

// ReconcilePlan is the pure outcome of diffing a selection against the known
// recurring records. Applying it in order (upserts, per-record deletes, then
// the orphan sweep over SelectedIDs) makes the alert set an exact image of
// the selection.
type ReconcilePlan struct {
	Upserts []AlertSpec
	// DeleteRecurringIDs are known records the user deselected.
	DeleteRecurringIDs []int64
	// SelectedIDs drives the final sweep: any alert bound to a recurring id
	// outside this set is orphaned and must go.
	SelectedIDs []int64
}

// PlanAlertSync computes the create/update/delete plan for synchronizing
// alerts to a user selection. Titles override the derived default per
// recurring id. The function is pure and commutes with repeated identical
// calls.
func PlanAlertSync(known []RecurringTransaction, selected map[int64]bool, titles map[int64]string) ReconcilePlan {
	plan := ReconcilePlan{SelectedIDs: make([]int64, 0, len(selected))}
	for id, on := range selected {
		if on {
			plan.SelectedIDs = append(plan.SelectedIDs, id)
		}
	}

	for _, rt := range known {
		if selected[rt.ID] {
			title := titles[rt.ID]
			if title == "" {
				title = DefaultAlertTitle(rt)
			}
			plan.Upserts = append(plan.Upserts, AlertSpec{
				RecurringID:  rt.ID,
				Title:        title,
				Message:      dueSoonMessage(rt),
				Icon:         FrequencyIcon(rt.Frequency),
				LeadTimeDays: DefaultLeadTimeDays,
			})
		} else {
			plan.DeleteRecurringIDs = append(plan.DeleteRecurringIDs, rt.ID)
		}
	}
	return plan
}

// DefaultAlertTitle derives a display title from the recurring record when
// the user supplied none.
func DefaultAlertTitle(rt RecurringTransaction) string {
	return fmt.Sprintf("%s %s", FrequencyIcon(rt.Frequency), rt.Description)
}

// FrequencyIcon maps a cadence to its display emoji.
func FrequencyIcon(freq Frequency) string {
	switch freq {
	case Weekly:
		return "📅"
	case Monthly:
		return "🗓️"
	default:
		return "🔔"
	}
}

func dueSoonMessage(rt RecurringTransaction) string {
	return fmt.Sprintf("Your recurring payment of %s is due soon.", rt.Amount.Format())
}
