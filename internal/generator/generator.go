// Package generator produces synthetic transactions for seeding local
// environments and exercising the summary window.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kmadira/ledgerstream/internal/domain"
)

// Config drives the synthetic data generator.
type Config struct {
	NumTransactions int
	NumParties      int
	Days            int
	Seed            int64
}

// DefaultConfig returns baseline settings: a month of data at a size that
// keeps every summary bucket populated.
func DefaultConfig() Config {
	return Config{
		NumTransactions: 500,
		NumParties:      25,
		Days:            30,
		Seed:            42,
	}
}

// Dataset contains the generated transactions.
type Dataset struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// Generator produces random transactions spread over a trailing window.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumTransactions <= 0 {
		cfg.NumTransactions = DefaultConfig().NumTransactions
	}
	if cfg.NumParties < 2 {
		cfg.NumParties = DefaultConfig().NumParties
	}
	if cfg.Days <= 0 {
		cfg.Days = DefaultConfig().Days
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

var (
	kinds    = []domain.Kind{domain.KindCredit, domain.KindDebit}
	statuses = []domain.Status{domain.StatusSuccessful, domain.StatusPending, domain.StatusFailed}
)

// Generate synthesises transactions. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, -(g.cfg.Days - 1))
	span := now.Sub(windowStart)
	if span <= 0 {
		// Days=1 collapses the window to a point; spread over the last day.
		span = 24 * time.Hour
		windowStart = now.Add(-span)
	}

	txs := make([]domain.Transaction, g.cfg.NumTransactions)
	for i := range txs {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		payee := g.party()
		recipient := g.party()
		for recipient == payee {
			recipient = g.party()
		}

		offset := time.Duration(g.rand.Int63n(int64(span)))
		txs[i] = domain.Transaction{
			Kind: kinds[g.rand.Intn(len(kinds))],
			// 0.01 .. 5000.00 in whole cents.
			Amount:    domain.Cents(1 + g.rand.Int63n(500000)),
			Status:    statuses[g.rand.Intn(len(statuses))],
			Payee:     payee,
			Recipient: recipient,
			CreatedAt: windowStart.Add(offset),
		}
	}

	return Dataset{Transactions: txs}, nil
}

func (g *Generator) party() string {
	return fmt.Sprintf("USR-%04d", 1+g.rand.Intn(g.cfg.NumParties))
}
