package summary

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/metrics"
)

// Computer produces a fresh snapshot. Satisfied by *Engine.
type Computer interface {
	Compute(ctx context.Context) (domain.SummarySnapshot, error)
}

// Cache is a read-through, TTL-bounded front for the aggregation engine.
// Nothing invalidates it early when new transactions commit; staleness up to
// the TTL is the accepted tradeoff for keeping full-table aggregation off the
// request path. Two concurrent misses may both compute; the last write wins.
type Cache struct {
	logger *slog.Logger
	engine Computer
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	snapshot domain.SummarySnapshot
	storedAt time.Time
	valid    bool
}

// NewCache wraps engine with a TTL cache. A non-positive ttl falls back to an
// hour, matching the configuration default.
func NewCache(logger *slog.Logger, engine Computer, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		logger: logger,
		engine: engine,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for expiry checks.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// GetSummary returns the cached snapshot when fresh, otherwise recomputes,
// stores and returns it. Failed computations are surfaced and never cached. A
// stored snapshot that no longer has the expected shape is treated as a miss.
func (c *Cache) GetSummary(ctx context.Context) (domain.SummarySnapshot, error) {
	if snap, ok := c.lookup(); ok {
		metrics.SummaryCacheHitsTotal.Inc()
		return snap, nil
	}
	metrics.SummaryCacheMissesTotal.Inc()

	snap, err := c.engine.Compute(ctx)
	if err != nil {
		return domain.SummarySnapshot{}, err
	}

	c.mu.Lock()
	c.snapshot = snap
	c.storedAt = c.now()
	c.valid = true
	c.mu.Unlock()

	return snap, nil
}

// Invalidate drops the stored snapshot so the next read recomputes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

func (c *Cache) lookup() (domain.SummarySnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid || c.now().Sub(c.storedAt) >= c.ttl {
		return domain.SummarySnapshot{}, false
	}
	if !c.snapshot.Valid() {
		c.logger.Warn("discarding cached snapshot", "error", domain.ErrInvalidSnapshotState)
		return domain.SummarySnapshot{}, false
	}
	return c.snapshot, true
}
