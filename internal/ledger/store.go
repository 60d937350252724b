// Package ledger provides read/write access to the transaction ledger and the
// aggregate query capability consumed by the summary engine.
package ledger

import (
	"context"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
)

// Filter narrows ListTransactions results. Zero values mean "no constraint".
type Filter struct {
	ID     int64
	Kind   domain.Kind
	Status domain.Status
	From   time.Time
	To     time.Time
	Page   int
	Limit  int
}

// DayTotal is one row of a daily grouped aggregate. Day is the UTC midnight
// opening the [Day, Day+24h) interval the row covers.
type DayTotal struct {
	Day    time.Time
	Count  int64
	Amount domain.Cents
}

// Store defines the ledger contract required by the HTTP handlers and the
// aggregation engine. Time ranges are half-open intervals [from, to).
type Store interface {
	InsertTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	ListTransactions(ctx context.Context, filter Filter) ([]domain.Transaction, error)

	CountAll(ctx context.Context) (int64, error)
	SumAll(ctx context.Context) (domain.Cents, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int64, error)
	CountInRange(ctx context.Context, from, to time.Time) (int64, error)
	SumInRange(ctx context.Context, from, to time.Time) (domain.Cents, error)
	DailyTotals(ctx context.Context, from, to time.Time) ([]DayTotal, error)

	Ping(ctx context.Context) error
	Close() error
}
