// Package ingest bulk-loads transactions into the ledger with a bounded
// worker pool.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/ledger"
)

// TaskError accumulates the failures produced during a bulk load.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Publisher mirrors events.Publisher; nil disables notifications during load.
type Publisher interface {
	Publish(ctx context.Context, tx domain.Transaction) error
}

// Ingestor inserts large transaction datasets concurrently.
type Ingestor struct {
	store     ledger.Store
	publisher Publisher
	workers   int
}

// New creates an Ingestor with the provided concurrency.
func New(store ledger.Store, publisher Publisher, workers int) *Ingestor {
	if workers <= 0 {
		workers = 4
	}
	return &Ingestor{
		store:     store,
		publisher: publisher,
		workers:   workers,
	}
}

// IngestTransactions inserts the provided transactions concurrently. Row
// failures are collected into a TaskError rather than aborting the batch;
// context cancellation aborts.
func (in *Ingestor) IngestTransactions(ctx context.Context, txs []domain.Transaction) error {
	return in.run(ctx, len(txs), func(idx int) error {
		created, err := in.store.InsertTransaction(ctx, txs[idx])
		if err != nil {
			return err
		}
		if in.publisher != nil {
			// Best effort, same as the live write path.
			_ = in.publisher.Publish(ctx, created)
		}
		return nil
	})
}

func (in *Ingestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < in.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	// A cancelled batch is aborted, not partially succeeded.
	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
