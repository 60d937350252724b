package domain

import "errors"

var (
	// ErrInvalidTransaction wraps field-level validation failures on create.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrNotFound indicates the requested ledger entry does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrBrokerUnavailable indicates the broadcast broker could not be
	// reached. On the publish path callers log it and move on; the committed
	// transaction is never rolled back over a missed notification.
	ErrBrokerUnavailable = errors.New("broadcast broker unavailable")

	// ErrAggregationFailed indicates one of the queries backing a summary
	// snapshot failed. Partial snapshots are never returned or cached.
	ErrAggregationFailed = errors.New("summary aggregation failed")

	// ErrInvalidSnapshotState indicates a cached snapshot no longer matches
	// the expected shape. The cache treats it as a miss.
	ErrInvalidSnapshotState = errors.New("cached snapshot has invalid shape")
)
