// Package summary computes aggregate ledger statistics and serves them
// through a time-boxed cache.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/ledger"
	"github.com/kmadira/ledgerstream/internal/metrics"
)

// Engine computes SummarySnapshots from the ledger's query capability. All
// window arithmetic is done on UTC midnights so day boundaries line up
// regardless of the server's local zone.
type Engine struct {
	store ledger.Store
	now   func() time.Time
}

// NewEngine returns an Engine reading from store.
func NewEngine(store ledger.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock overrides the time source. Tests use it to pin "today".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Compute builds a fresh snapshot. Any underlying query failure aborts the
// whole computation with domain.ErrAggregationFailed; a partial snapshot is
// never returned.
func (e *Engine) Compute(ctx context.Context) (domain.SummarySnapshot, error) {
	started := time.Now()
	snap, err := e.compute(ctx)
	if err != nil {
		return domain.SummarySnapshot{}, fmt.Errorf("%w: %w", domain.ErrAggregationFailed, err)
	}
	metrics.SummaryComputeSeconds.Observe(time.Since(started).Seconds())
	return snap, nil
}

func (e *Engine) compute(ctx context.Context) (domain.SummarySnapshot, error) {
	now := e.now().UTC()
	today := midnight(now)
	tomorrow := today.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	windowStart := today.AddDate(0, 0, -(domain.SummaryWindowDays - 1))

	var snap domain.SummarySnapshot

	total, err := e.store.CountAll(ctx)
	if err != nil {
		return snap, fmt.Errorf("count all: %w", err)
	}
	snap.TotalVolume = total

	sum, err := e.store.SumAll(ctx)
	if err != nil {
		return snap, fmt.Errorf("sum all: %w", err)
	}
	if total > 0 {
		// Integer mean in cents, rounded half up.
		snap.AverageAmount = domain.Cents((int64(sum) + total/2) / total)
	}

	byStatus, err := e.store.CountByStatus(ctx)
	if err != nil {
		return snap, fmt.Errorf("count by status: %w", err)
	}
	snap.StatusCount = make(map[domain.Status]int64, len(domain.Statuses()))
	for _, status := range domain.Statuses() {
		snap.StatusCount[status] = byStatus[status]
	}

	if snap.DailyVolume, err = e.store.CountInRange(ctx, today, tomorrow); err != nil {
		return snap, fmt.Errorf("daily count: %w", err)
	}
	if snap.DailyTotalAmount, err = e.store.SumInRange(ctx, today, tomorrow); err != nil {
		return snap, fmt.Errorf("daily sum: %w", err)
	}
	if snap.MonthlyVolume, err = e.store.CountInRange(ctx, monthStart, nextMonth); err != nil {
		return snap, fmt.Errorf("monthly count: %w", err)
	}
	if snap.MonthlyTotalAmount, err = e.store.SumInRange(ctx, monthStart, nextMonth); err != nil {
		return snap, fmt.Errorf("monthly sum: %w", err)
	}

	// One grouped round trip for the rolling window, bucketed in memory.
	totals, err := e.store.DailyTotals(ctx, windowStart, tomorrow)
	if err != nil {
		return snap, fmt.Errorf("daily totals: %w", err)
	}
	snap.Last30DaysCount = make([]int64, domain.SummaryWindowDays)
	snap.Last30DaysAmount = make([]domain.Cents, domain.SummaryWindowDays)
	for _, day := range totals {
		// Bucket index: 29 - whole days between the row's day and today.
		// Both are UTC midnights, so the division is exact.
		behind := int(today.Sub(day.Day) / (24 * time.Hour))
		if behind < 0 || behind >= domain.SummaryWindowDays {
			continue
		}
		idx := domain.SummaryWindowDays - 1 - behind
		snap.Last30DaysCount[idx] = day.Count
		snap.Last30DaysAmount[idx] = day.Amount
	}

	return snap, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
