package core

import (
	"fmt"
	"time"
)

// WeekStart returns the Monday of the week containing t, at midnight UTC.
func WeekStart(t time.Time) Date {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDays(-offset)
}

// MostRecentCompletedWeek returns the Monday of the last fully elapsed week.
func MostRecentCompletedWeek(now time.Time) Date {
	return WeekStart(now).AddDays(-7)
}

// WeekEnd returns the last day of the week starting at start (inclusive).
func WeekEnd(start Date) Date {
	return start.AddDays(6)
}

// WeekLabel renders a human-readable identifier for the week starting at
// start, e.g. "1 Jan – 7 Jan 2024" or "30 Dec 2024 – 5 Jan 2025".
func WeekLabel(start Date) string {
	end := WeekEnd(start)
	if start.Year() == end.Year() {
		return fmt.Sprintf("%s – %s", start.Format("2 Jan"), end.Format("2 Jan 2006"))
	}
	return fmt.Sprintf("%s – %s", start.Format("2 Jan 2006"), end.Format("2 Jan 2006"))
}

// InWeek reports whether d falls within [start, start+6 days].
func InWeek(d Date, start Date) bool {
	return !d.Before(start.Time) && !d.After(WeekEnd(start).Time)
}
