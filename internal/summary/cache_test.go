package summary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
)

type countingEngine struct {
	calls int
	snap  domain.SummarySnapshot
	err   error
}

func (c *countingEngine) Compute(context.Context) (domain.SummarySnapshot, error) {
	c.calls++
	if c.err != nil {
		return domain.SummarySnapshot{}, c.err
	}
	snap := c.snap
	snap.TotalVolume = int64(c.calls)
	return snap, nil
}

func validSnapshot() domain.SummarySnapshot {
	return domain.SummarySnapshot{
		StatusCount: map[domain.Status]int64{
			domain.StatusSuccessful: 0,
			domain.StatusPending:    0,
			domain.StatusFailed:     0,
		},
		Last30DaysCount:  make([]int64, domain.SummaryWindowDays),
		Last30DaysAmount: make([]domain.Cents, domain.SummaryWindowDays),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCacheHitWithinTTL(t *testing.T) {
	engine := &countingEngine{snap: validSnapshot()}
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	cache := NewCache(testLogger(), engine, time.Hour).WithClock(func() time.Time { return now })

	first, err := cache.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("expected 1 compute, got %d", engine.calls)
	}

	now = now.Add(30 * time.Minute)
	second, err := cache.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("expected cached snapshot without recompute, got %d computes", engine.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical snapshot from cache hit")
	}
}

func TestCacheRecomputesAfterTTL(t *testing.T) {
	engine := &countingEngine{snap: validSnapshot()}
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	cache := NewCache(testLogger(), engine, time.Hour).WithClock(func() time.Time { return now })

	if _, err := cache.GetSummary(context.Background()); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	now = now.Add(time.Hour)
	snap, err := cache.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("post-expiry call failed: %v", err)
	}
	if engine.calls != 2 {
		t.Fatalf("expected recompute after TTL, got %d computes", engine.calls)
	}
	if snap.TotalVolume != 2 {
		t.Fatalf("expected the fresh snapshot, got volume %d", snap.TotalVolume)
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	engine := &countingEngine{err: domain.ErrAggregationFailed}
	cache := NewCache(testLogger(), engine, time.Hour)

	if _, err := cache.GetSummary(context.Background()); !errors.Is(err, domain.ErrAggregationFailed) {
		t.Fatalf("expected ErrAggregationFailed, got %v", err)
	}

	// Once the engine recovers the next call must compute, not serve a
	// half-written entry.
	engine.err = nil
	engine.snap = validSnapshot()
	snap, err := cache.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("recovered call failed: %v", err)
	}
	if engine.calls != 2 {
		t.Fatalf("expected a fresh compute after failure, got %d", engine.calls)
	}
	if !snap.Valid() {
		t.Fatal("expected valid snapshot after recovery")
	}
}

func TestCacheTreatsInvalidSnapshotAsMiss(t *testing.T) {
	engine := &countingEngine{snap: validSnapshot()}
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	cache := NewCache(testLogger(), engine, time.Hour).WithClock(func() time.Time { return now })

	if _, err := cache.GetSummary(context.Background()); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	// Simulate a stale deployment leaving a malformed snapshot behind.
	cache.mu.Lock()
	cache.snapshot.Last30DaysCount = nil
	cache.mu.Unlock()

	if _, err := cache.GetSummary(context.Background()); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if engine.calls != 2 {
		t.Fatalf("expected malformed snapshot to trigger recompute, got %d computes", engine.calls)
	}
}

func TestCacheInvalidate(t *testing.T) {
	engine := &countingEngine{snap: validSnapshot()}
	cache := NewCache(testLogger(), engine, time.Hour)

	if _, err := cache.GetSummary(context.Background()); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	cache.Invalidate()
	if _, err := cache.GetSummary(context.Background()); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if engine.calls != 2 {
		t.Fatalf("expected recompute after invalidation, got %d computes", engine.calls)
	}
}
