package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"

	"bilancio/internal/core"
)

// Detector scans the transaction history for recurring payments and upserts
// the recurring registry to reflect the current evidence. Running it twice on
// unchanged input converges to the same registry.
type Detector struct {
	transactions TransactionReader
	registry     RecurringRegistry
	tol          core.Tolerances
}

// NewDetector creates a detector with the given tolerances.
func NewDetector(transactions TransactionReader, registry RecurringRegistry, tol core.Tolerances) *Detector {
	return &Detector{
		transactions: transactions,
		registry:     registry,
		tol:          tol,
	}
}

// txGroup collects transactions believed to be the same recurring charge.
type txGroup struct {
	key    string
	typ    core.TransactionType
	amount core.Money // reference amount for the tolerance band
	txs    []core.Transaction
}

// IdentifyRecurringTransactions runs one detection pass and returns how many
// registry records were upserted. Groups without a stable cadence are dropped
// silently; existing registry entries no longer backed by evidence are left
// untouched so a missed sync cannot destroy a user's alert configuration.
func (d *Detector) IdentifyRecurringTransactions(ctx context.Context, now time.Time) (int, error) {
	txs, err := d.transactions.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w: %w", core.ErrDataUnavailable, err)
	}

	groups := d.groupTransactions(txs)

	slog.InfoContext(ctx, "Running recurrence detection",
		"transactions", len(txs),
		"groups", len(groups),
		"as_of", now.Format("2006-01-02"))

	upserted := 0
	for _, g := range groups {
		if len(g.txs) < 2 {
			continue
		}

		dates := make([]core.Date, len(g.txs))
		for i, tx := range g.txs {
			dates[i] = tx.Date
		}
		result := core.ClassifyCadence(dates, d.tol)
		if result.Cadence == core.CadenceIndeterminate {
			slog.DebugContext(ctx, "Group has no stable cadence",
				"key", g.key,
				"occurrences", len(g.txs),
				"median_days", result.MedianDays)
			continue
		}

		latest := g.txs[len(g.txs)-1]
		rt := core.RecurringTransaction{
			Description:   latest.Description,
			NormalizedKey: g.key,
			Amount:        latest.Amount.Abs(),
			Frequency:     result.Frequency(),
			NextDueDate:   core.NextDueDate(latest.Date, result.Frequency(), now),
			Type:          g.typ,
		}

		// Upserts apply sequentially per group; each record update is
		// independent and later groups never observe a half-written state.
		id, err := d.registry.UpsertRecurring(ctx, rt)
		if err != nil {
			return upserted, fmt.Errorf("upsert recurring %q: %w: %w", g.key, core.ErrDataUnavailable, err)
		}
		upserted++

		slog.InfoContext(ctx, "Recurring transaction detected",
			"id", id,
			"key", g.key,
			"frequency", rt.Frequency,
			"next_due", rt.NextDueDate.String(),
			"amount_cents", rt.Amount.Cents,
			"occurrences", len(g.txs))
	}

	slog.InfoContext(ctx, "Recurrence detection complete",
		"groups", len(groups),
		"upserted", upserted)

	return upserted, nil
}

// groupTransactions partitions transactions by type and folds together those
// whose normalized descriptions are near-duplicates and whose amounts fall
// within the tolerance band of the group's reference amount. Each group keeps
// its transactions in chronological order.
func (d *Detector) groupTransactions(txs []core.Transaction) []*txGroup {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	var groups []*txGroup
	for _, tx := range sorted {
		key := core.NormalizeKey(tx.Description)
		if key == "" {
			continue
		}

		var match *txGroup
		for _, g := range groups {
			if g.typ != tx.Type {
				continue
			}
			if !d.keysMatch(key, g.key) {
				continue
			}
			if !g.amount.WithinTolerance(tx.Amount, d.tol.AmountTolerance) {
				continue
			}
			match = g
			break
		}

		if match == nil {
			match = &txGroup{key: key, typ: tx.Type, amount: tx.Amount.Abs()}
			groups = append(groups, match)
		}
		match.txs = append(match.txs, tx)
	}
	return groups
}

func (d *Detector) keysMatch(a, b string) bool {
	if a == b {
		return true
	}
	if d.tol.MaxKeyDistance <= 0 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= d.tol.MaxKeyDistance
}
