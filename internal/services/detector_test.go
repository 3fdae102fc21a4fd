package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func expenseOn(y, m, d int, desc string, cents int64) core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(y, m, d),
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        core.Expense,
	}
}

func TestDetectorWeeklyClassification(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		expenseOn(2024, 1, 1, "Gym Membership", 999),
		expenseOn(2024, 1, 8, "Gym Membership", 999),
		expenseOn(2024, 1, 15, "Gym Membership", 999),
	}
	d := NewDetector(store, store, core.DefaultTolerances())
	now := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	count, err := d.IdentifyRecurringTransactions(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 || len(store.recurring) != 1 {
		t.Fatalf("got %d upserts, %d records; want 1 and 1", count, len(store.recurring))
	}

	rt := store.recurring[0]
	if rt.Frequency != core.Weekly {
		t.Errorf("frequency = %s, want weekly", rt.Frequency)
	}
	if rt.NextDueDate.String() != "2024-01-22" {
		t.Errorf("next due = %s, want 2024-01-22", rt.NextDueDate)
	}
	if rt.NormalizedKey != "gym membership" {
		t.Errorf("key = %q", rt.NormalizedKey)
	}
}

func TestDetectorMonthlyClassification(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		expenseOn(2024, 1, 5, "Netflix", 1299),
		expenseOn(2024, 2, 4, "Netflix", 1299),
		expenseOn(2024, 3, 6, "Netflix", 1299),
	}
	d := NewDetector(store, store, core.DefaultTolerances())
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := d.IdentifyRecurringTransactions(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.recurring) != 1 {
		t.Fatalf("got %d records, want 1", len(store.recurring))
	}
	if store.recurring[0].Frequency != core.Monthly {
		t.Errorf("frequency = %s, want monthly", store.recurring[0].Frequency)
	}
}

func TestDetectorInsufficientEvidence(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		// single occurrence
		expenseOn(2024, 1, 1, "One-off purchase", 5000),
		// ~15 day spacing matches neither window
		expenseOn(2024, 1, 1, "Oddly spaced", 2000),
		expenseOn(2024, 1, 16, "Oddly spaced", 2000),
		expenseOn(2024, 1, 31, "Oddly spaced", 2000),
	}
	d := NewDetector(store, store, core.DefaultTolerances())

	count, err := d.IdentifyRecurringTransactions(context.Background(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 || len(store.recurring) != 0 {
		t.Errorf("expected no recurring records, got %d", len(store.recurring))
	}
}

func TestDetectorIdempotent(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		expenseOn(2024, 1, 1, "Gym Membership", 999),
		expenseOn(2024, 1, 8, "Gym Membership", 999),
		expenseOn(2024, 1, 5, "Netflix", 1299),
		expenseOn(2024, 2, 5, "Netflix", 1299),
	}
	d := NewDetector(store, store, core.DefaultTolerances())
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	if _, err := d.IdentifyRecurringTransactions(context.Background(), now); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := make([]core.RecurringTransaction, len(store.recurring))
	copy(first, store.recurring)

	if _, err := d.IdentifyRecurringTransactions(context.Background(), now); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.recurring) != len(first) {
		t.Fatalf("second run changed record count: %d -> %d", len(first), len(store.recurring))
	}
	for i := range first {
		if store.recurring[i] != first[i] {
			t.Errorf("record %d changed between runs: %+v vs %+v", i, first[i], store.recurring[i])
		}
	}
}

func TestDetectorGroupsSimilarDescriptionsAndAmounts(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		// small description drift and a price inside the 2% band
		expenseOn(2024, 1, 3, "Spotify AB", 1099),
		expenseOn(2024, 2, 3, "Spotify  AB.", 1089),
		expenseOn(2024, 3, 3, "SPOTIFY AB", 1099),
	}
	d := NewDetector(store, store, core.DefaultTolerances())

	if _, err := d.IdentifyRecurringTransactions(context.Background(), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.recurring) != 1 {
		t.Fatalf("drifting descriptions should fold into one group, got %d records", len(store.recurring))
	}
}

func TestDetectorSeparatesByAmountBand(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		expenseOn(2024, 1, 1, "Transfer", 1000),
		expenseOn(2024, 1, 8, "Transfer", 1000),
		expenseOn(2024, 1, 4, "Transfer", 50000),
		expenseOn(2024, 1, 11, "Transfer", 50000),
	}
	d := NewDetector(store, store, core.DefaultTolerances())

	if _, err := d.IdentifyRecurringTransactions(context.Background(), time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.recurring) != 2 {
		t.Errorf("amounts outside the band must not merge, got %d records", len(store.recurring))
	}
}

func TestDetectorLeavesUnsupportedEntriesUntouched(t *testing.T) {
	store := newFakeStore()
	store.recurring = []core.RecurringTransaction{
		{ID: 7, Description: "Old subscription", NormalizedKey: "old subscription", Amount: core.Money{Cents: 500}, Frequency: core.Monthly, NextDueDate: core.NewDate(2024, 2, 1), Type: core.Expense},
	}
	store.nextID = 8

	d := NewDetector(store, store, core.DefaultTolerances())
	if _, err := d.IdentifyRecurringTransactions(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.recurring) != 1 || store.recurring[0].ID != 7 {
		t.Errorf("non-detection must not delete existing entries: %+v", store.recurring)
	}
}

func TestDetectorDataUnavailable(t *testing.T) {
	store := newFakeStore()
	store.failTransactions = true
	d := NewDetector(store, store, core.DefaultTolerances())

	_, err := d.IdentifyRecurringTransactions(context.Background(), time.Now())
	if !errors.Is(err, core.ErrDataUnavailable) {
		t.Errorf("err = %v, want ErrDataUnavailable", err)
	}
}
