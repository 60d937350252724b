package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
)

// MemoryStore is a slice-backed Store used by unit tests and single-process
// deployments that do not need durability (STORE_DRIVER=memory).
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.Transaction
	err    error
	now    func() time.Time
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

// WithClock overrides the timestamp source for inserted rows.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// WithError forces every subsequent call to fail with err. Tests use it to
// exercise aggregation failure paths.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) InsertTransaction(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Transaction{}, m.err
	}

	tx.ID = m.nextID
	m.nextID++
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = m.now().UTC()
	} else {
		tx.CreatedAt = tx.CreatedAt.UTC()
	}
	m.rows = append(m.rows, tx)
	return tx, nil
}

func (m *MemoryStore) GetTransaction(_ context.Context, id int64) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Transaction{}, m.err
	}
	for _, tx := range m.rows {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, domain.ErrNotFound
}

func (m *MemoryStore) ListTransactions(_ context.Context, filter Filter) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var matched []domain.Transaction
	for _, tx := range m.rows {
		if filter.ID != 0 && tx.ID != filter.ID {
			continue
		}
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && tx.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !tx.CreatedAt.Before(filter.To) {
			continue
		}
		matched = append(matched, tx)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	start := (page - 1) * limit
	if start >= len(matched) {
		return []domain.Transaction{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]domain.Transaction, end-start)
	copy(out, matched[start:end])
	return out, nil
}

func (m *MemoryStore) CountAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.rows)), nil
}

func (m *MemoryStore) SumAll(context.Context) (domain.Cents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var sum domain.Cents
	for _, tx := range m.rows {
		sum += tx.Amount
	}
	return sum, nil
}

func (m *MemoryStore) CountByStatus(context.Context) (map[domain.Status]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	counts := make(map[domain.Status]int64)
	for _, tx := range m.rows {
		counts[tx.Status]++
	}
	return counts, nil
}

func (m *MemoryStore) CountInRange(_ context.Context, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var count int64
	for _, tx := range m.rows {
		if inRange(tx.CreatedAt, from, to) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) SumInRange(_ context.Context, from, to time.Time) (domain.Cents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var sum domain.Cents
	for _, tx := range m.rows {
		if inRange(tx.CreatedAt, from, to) {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func (m *MemoryStore) DailyTotals(_ context.Context, from, to time.Time) ([]DayTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	byDay := make(map[time.Time]*DayTotal)
	var days []time.Time
	for _, tx := range m.rows {
		if !inRange(tx.CreatedAt, from, to) {
			continue
		}
		day := tx.CreatedAt.UTC().Truncate(24 * time.Hour)
		total, ok := byDay[day]
		if !ok {
			total = &DayTotal{Day: day}
			byDay[day] = total
			days = append(days, day)
		}
		total.Count++
		total.Amount += tx.Amount
	}

	out := make([]DayTotal, 0, len(days))
	for _, day := range days {
		out = append(out, *byDay[day])
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MemoryStore) Close() error { return nil }

func inRange(ts, from, to time.Time) bool {
	return !ts.Before(from) && ts.Before(to)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}
