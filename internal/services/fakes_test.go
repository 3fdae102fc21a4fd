package services

import (
	"context"
	"errors"
	"sort"

	"bilancio/internal/core"
)

// fakeStore is an in-memory implementation of all engine ports.
type fakeStore struct {
	txs       []core.Transaction
	recurring []core.RecurringTransaction
	nextID    int64
	alerts    map[int64]core.Alert // keyed by recurring id
	budgets   map[string]core.Money
	reports   map[string]core.WeeklyReportEntry

	failTransactions bool
	failRecurring    bool
	failReports      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:  1,
		alerts:  make(map[int64]core.Alert),
		budgets: make(map[string]core.Money),
		reports: make(map[string]core.WeeklyReportEntry),
	}
}

var errStoreDown = errors.New("store down")

func (s *fakeStore) ListTransactions(_ context.Context, f TransactionFilter) ([]core.Transaction, error) {
	if s.failTransactions {
		return nil, errStoreDown
	}
	var out []core.Transaction
	for _, tx := range s.txs {
		if f.Type != nil && tx.Type != *f.Type {
			continue
		}
		if f.From != nil && tx.Date.Before(f.From.Time) {
			continue
		}
		if f.To != nil && tx.Date.After(f.To.Time) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *fakeStore) UpsertRecurring(_ context.Context, rt core.RecurringTransaction) (int64, error) {
	if s.failRecurring {
		return 0, errStoreDown
	}
	for i, existing := range s.recurring {
		if existing.NormalizedKey == rt.NormalizedKey && existing.Frequency == rt.Frequency && existing.Type == rt.Type {
			rt.ID = existing.ID
			s.recurring[i] = rt
			return rt.ID, nil
		}
	}
	rt.ID = s.nextID
	s.nextID++
	s.recurring = append(s.recurring, rt)
	return rt.ID, nil
}

func (s *fakeStore) ListRecurring(_ context.Context) ([]core.RecurringTransaction, error) {
	if s.failRecurring {
		return nil, errStoreDown
	}
	out := make([]core.RecurringTransaction, len(s.recurring))
	copy(out, s.recurring)
	return out, nil
}

func (s *fakeStore) UpsertAlert(_ context.Context, spec core.AlertSpec) error {
	existing, ok := s.alerts[spec.RecurringID]
	id := s.nextID
	if ok {
		id = existing.ID
	} else {
		s.nextID++
	}
	s.alerts[spec.RecurringID] = core.Alert{
		ID:                     id,
		RecurringTransactionID: spec.RecurringID,
		Title:                  spec.Title,
		Message:                spec.Message,
		Icon:                   spec.Icon,
		LeadTimeDays:           spec.LeadTimeDays,
	}
	return nil
}

func (s *fakeStore) DeleteAlertByRecurringID(_ context.Context, recurringID int64) error {
	delete(s.alerts, recurringID)
	return nil
}

func (s *fakeStore) DeleteAlertsNotIn(_ context.Context, recurringIDs []int64) error {
	keep := make(map[int64]bool, len(recurringIDs))
	for _, id := range recurringIDs {
		keep[id] = true
	}
	for id := range s.alerts {
		if !keep[id] {
			delete(s.alerts, id)
		}
	}
	return nil
}

func (s *fakeStore) ListActiveAlerts(_ context.Context) ([]core.Alert, error) {
	out := make([]core.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecurringTransactionID < out[j].RecurringTransactionID })
	return out, nil
}

func (s *fakeStore) SaveWeeklyReport(_ context.Context, report core.WeeklyInsightsReport) error {
	if s.failReports {
		return errStoreDown
	}
	s.reports[report.WeekStart.String()] = core.WeeklyReportEntry{
		WeekStart: report.WeekStart,
		Report:    report,
	}
	return nil
}

func (s *fakeStore) ListWeeklyReports(_ context.Context) ([]core.WeeklyReportEntry, error) {
	if s.failReports {
		return nil, errStoreDown
	}
	out := make([]core.WeeklyReportEntry, 0, len(s.reports))
	for _, e := range s.reports {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart.Time) })
	return out, nil
}

func (s *fakeStore) WeeklyBudgetFor(_ context.Context, label string) (core.Money, error) {
	return s.budgets[label], nil
}
