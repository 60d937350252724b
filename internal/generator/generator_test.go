package generator

import (
	"context"
	"testing"
	"time"
)

func TestGenerateProducesValidTransactions(t *testing.T) {
	gen := New(Config{NumTransactions: 200, NumParties: 10, Days: 30, Seed: 7})
	dataset, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(dataset.Transactions) != 200 {
		t.Fatalf("expected 200 transactions, got %d", len(dataset.Transactions))
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	for i, tx := range dataset.Transactions {
		if tx.Payee == tx.Recipient {
			t.Fatalf("transaction %d: payee equals recipient", i)
		}
		if tx.Amount <= 0 {
			t.Fatalf("transaction %d: non-positive amount %d", i, tx.Amount)
		}
		if tx.CreatedAt.Before(cutoff) || tx.CreatedAt.After(time.Now().UTC()) {
			t.Fatalf("transaction %d: timestamp %s outside window", i, tx.CreatedAt)
		}
	}
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	a, err := New(Config{NumTransactions: 50, NumParties: 5, Days: 10, Seed: 99}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	b, err := New(Config{NumTransactions: 50, NumParties: 5, Days: 10, Seed: 99}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for i := range a.Transactions {
		x, y := a.Transactions[i], b.Transactions[i]
		if x.Amount != y.Amount || x.Kind != y.Kind || x.Payee != y.Payee || x.Recipient != y.Recipient {
			t.Fatalf("transaction %d differs between runs with same seed", i)
		}
	}
}

func TestGenerateSingleDayWindow(t *testing.T) {
	dataset, err := New(Config{NumTransactions: 20, NumParties: 2, Days: 1, Seed: 7}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	for i, tx := range dataset.Transactions {
		if tx.CreatedAt.Before(cutoff) || tx.CreatedAt.After(time.Now().UTC()) {
			t.Fatalf("transaction %d: timestamp %s outside the single-day window", i, tx.CreatedAt)
		}
	}
}

func TestGenerateRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(Config{NumTransactions: 1000, Seed: 1}).Generate(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}
