package core

import (
	"testing"
	"time"
)

func TestClassifyCadence(t *testing.T) {
	tol := DefaultTolerances()

	tests := []struct {
		name  string
		dates []Date
		want  Cadence
	}{
		{
			name:  "weekly exact sevens",
			dates: []Date{NewDate(2024, 1, 1), NewDate(2024, 1, 8), NewDate(2024, 1, 15)},
			want:  CadenceWeekly,
		},
		{
			name:  "weekly with jitter",
			dates: []Date{NewDate(2024, 1, 1), NewDate(2024, 1, 9), NewDate(2024, 1, 15)},
			want:  CadenceWeekly,
		},
		{
			name:  "monthly uneven month lengths",
			dates: []Date{NewDate(2024, 1, 5), NewDate(2024, 2, 4), NewDate(2024, 3, 6)},
			want:  CadenceMonthly,
		},
		{
			name:  "monthly on the dot",
			dates: []Date{NewDate(2024, 1, 15), NewDate(2024, 2, 15), NewDate(2024, 3, 15)},
			want:  CadenceMonthly,
		},
		{
			name:  "single occurrence is indeterminate",
			dates: []Date{NewDate(2024, 1, 1)},
			want:  CadenceIndeterminate,
		},
		{
			name:  "no occurrences is indeterminate",
			dates: nil,
			want:  CadenceIndeterminate,
		},
		{
			name:  "fifteen day spacing matches neither window",
			dates: []Date{NewDate(2024, 1, 1), NewDate(2024, 1, 16), NewDate(2024, 1, 31)},
			want:  CadenceIndeterminate,
		},
		{
			name: "median resolves mixed spacing",
			// deltas 7, 7, 30: median 7 wins over the single monthly-like gap
			dates: []Date{NewDate(2024, 1, 1), NewDate(2024, 1, 8), NewDate(2024, 1, 15), NewDate(2024, 2, 14)},
			want:  CadenceWeekly,
		},
		{
			name:  "unsorted input",
			dates: []Date{NewDate(2024, 1, 15), NewDate(2024, 1, 1), NewDate(2024, 1, 8)},
			want:  CadenceWeekly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCadence(tt.dates, tol)
			if got.Cadence != tt.want {
				t.Errorf("ClassifyCadence() = %v (median %.1f), want %v", got.Cadence, got.MedianDays, tt.want)
			}
		})
	}
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name string
		last Date
		freq Frequency
		now  time.Time
		want Date
	}{
		{
			name: "weekly projects one period forward",
			last: NewDate(2024, 1, 15),
			freq: Weekly,
			now:  time.Date(2024, 1, 16, 10, 30, 0, 0, time.UTC),
			want: NewDate(2024, 1, 22),
		},
		{
			name: "projection lands on today",
			last: NewDate(2024, 1, 15),
			freq: Weekly,
			now:  time.Date(2024, 1, 22, 8, 0, 0, 0, time.UTC),
			want: NewDate(2024, 1, 22),
		},
		{
			name: "last occurrence today projects one week out",
			last: NewDate(2024, 1, 15),
			freq: Weekly,
			now:  time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			want: NewDate(2024, 1, 22),
		},
		{
			name: "last occurrence today projects one month out",
			last: NewDate(2024, 1, 15),
			freq: Monthly,
			now:  time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			want: NewDate(2024, 2, 15),
		},
		{
			name: "sync gap advances multiple periods",
			last: NewDate(2024, 1, 1),
			freq: Weekly,
			now:  time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			want: NewDate(2024, 2, 12),
		},
		{
			name: "monthly anchors day of month",
			last: NewDate(2024, 3, 6),
			freq: Monthly,
			now:  time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
			want: NewDate(2024, 4, 6),
		},
		{
			name: "monthly clamps short february",
			last: NewDate(2024, 1, 31),
			freq: Monthly,
			now:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want: NewDate(2024, 2, 29),
		},
		{
			name: "anchor day restored after clamped month",
			last: NewDate(2024, 1, 31),
			freq: Monthly,
			now:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want: NewDate(2024, 3, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.last, tt.freq, tt.now)
			if !got.Equal(tt.want.Time) {
				t.Errorf("NextDueDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Netflix", "netflix"},
		{"  NETFLIX   Subscription ", "netflix subscription"},
		{"Spotify\tPremium\n", "spotify premium"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDueLabel(t *testing.T) {
	now := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stored string
		want   string
	}{
		{"due today", "2024-05-10", "Due today"},
		{"due tomorrow", "2024-05-11", "Due tomorrow"},
		{"due in n days", "2024-05-15", "Due in 5 days"},
		{"overdue carries original date", "2024-05-01", "Overdue since 1 May 2024"},
		{"unparseable degrades to raw string", "sometime soon", "sometime soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueLabel(tt.stored, now); got != tt.want {
				t.Errorf("DueLabel(%q) = %q, want %q", tt.stored, got, tt.want)
			}
		})
	}
}
