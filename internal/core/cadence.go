package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cadence is the classified repeat interval of a transaction group.
type Cadence int

const (
	// CadenceIndeterminate means the group shows no stable cadence.
	// This is a classification outcome, not an error.
	CadenceIndeterminate Cadence = iota
	CadenceWeekly
	CadenceMonthly
)

// CadenceResult is the outcome of classifying a sorted date sequence.
type CadenceResult struct {
	Cadence    Cadence
	MedianDays float64
}

// Frequency maps a determinate cadence to its frequency value.
// Only valid when Cadence is not CadenceIndeterminate.
func (r CadenceResult) Frequency() Frequency {
	switch r.Cadence {
	case CadenceWeekly:
		return Weekly
	case CadenceMonthly:
		return Monthly
	default:
		return ""
	}
}

// Tolerances holds the tunable thresholds for grouping and classification.
// The exact values are provisional until validated against real data, so
// they are parameters rather than constants.
type Tolerances struct {
	// AmountTolerance is the fractional band for treating two amounts as the
	// same recurring charge (0.02 means ±2%).
	AmountTolerance float64
	// WeeklySlackDays is how far the median delta may stray from 7 days.
	WeeklySlackDays int
	// MonthlyMinDays and MonthlyMaxDays bound the monthly window.
	MonthlyMinDays int
	MonthlyMaxDays int
	// MaxKeyDistance is the maximum edit distance between normalized
	// descriptions that still fold into one group.
	MaxKeyDistance int
}

// DefaultTolerances returns the default detection thresholds.
func DefaultTolerances() Tolerances {
	return Tolerances{
		AmountTolerance: 0.02,
		WeeklySlackDays: 2,
		MonthlyMinDays:  28,
		MonthlyMaxDays:  31,
		MaxKeyDistance:  2,
	}
}

// NormalizeKey canonicalizes a transaction description for grouping:
// lowercased, whitespace collapsed to single spaces.
func NormalizeKey(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// ClassifyCadence inspects the inter-occurrence deltas of a date sequence and
// decides whether they follow a weekly or monthly rhythm. Fewer than two
// occurrences, or a median delta outside both windows, is indeterminate.
// The input does not need to be sorted.
func ClassifyCadence(dates []Date, tol Tolerances) CadenceResult {
	if len(dates) < 2 {
		return CadenceResult{Cadence: CadenceIndeterminate}
	}

	sorted := make([]Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j].Time) })

	deltas := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		deltas = append(deltas, float64(sorted[i-1].DaysUntil(sorted[i])))
	}

	median := medianOf(deltas)
	result := CadenceResult{Cadence: CadenceIndeterminate, MedianDays: median}

	diff := median - 7
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= float64(tol.WeeklySlackDays):
		result.Cadence = CadenceWeekly
	case median >= float64(tol.MonthlyMinDays) && median <= float64(tol.MonthlyMaxDays):
		result.Cadence = CadenceMonthly
	}
	return result
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// NextDueDate projects the next occurrence: one period past the most recent
// occurrence, then stepped forward until it is at or after now. Stepping
// past stale history keeps the projection correct when sync lagged, and a
// charge seen today projects to the following period, not today.
// Monthly projection anchors on the last occurrence's day of month and clamps
// to the end of shorter months.
func NextDueDate(last Date, freq Frequency, now time.Time) Date {
	if freq != Weekly && freq != Monthly {
		return last
	}
	today := DateOf(now)
	anchorDay := last.Day()
	next := last
	for {
		switch freq {
		case Weekly:
			next = next.AddDays(7)
		case Monthly:
			next = addMonthClamped(next, anchorDay)
		}
		if !next.Before(today.Time) {
			return next
		}
	}
}

// addMonthClamped advances one calendar month, restoring the anchor day when
// the new month allows it and clamping otherwise (Jan 31 -> Feb 29 -> Mar 31).
func addMonthClamped(d Date, anchorDay int) Date {
	year, month := d.Year(), int(d.Month())
	month++
	if month > 12 {
		month = 1
		year++
	}
	day := anchorDay
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueLabel renders a human label for a stored next-due-date string relative
// to today. Dates are compared at midnight with no time-of-day component.
// Unparseable input degrades to the raw stored string.
func DueLabel(stored string, now time.Time) string {
	due, err := ParseDate(stored)
	if err != nil {
		return stored
	}
	days := DateOf(now).DaysUntil(due)
	switch {
	case days < 0:
		return fmt.Sprintf("Overdue since %s", due.Format("2 Jan 2006"))
	case days == 0:
		return "Due today"
	case days == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", days)
	}
}
