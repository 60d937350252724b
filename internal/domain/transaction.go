package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind distinguishes the direction of a transaction.
type Kind string

// Status reflects the settlement state of a transaction.
type Status string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"

	StatusSuccessful Status = "successful"
	StatusPending    Status = "pending"
	StatusFailed     Status = "failed"
)

// Statuses lists every settlement state in a fixed order. Aggregations report
// a complete breakdown keyed by these values, including zero counts.
func Statuses() []Status {
	return []Status{StatusSuccessful, StatusPending, StatusFailed}
}

// Transaction is a committed ledger entry. Entries are immutable once created;
// this service only ever reads them back or notifies about them.
type Transaction struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"type"`
	Amount    Cents     `json:"amount"`
	Status    Status    `json:"status"`
	Payee     string    `json:"payee"`
	Recipient string    `json:"recipient"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTransaction validates the mutable inputs of a ledger entry and returns a
// Transaction ready for insertion. The ID and CreatedAt fields are assigned by
// the store.
func NewTransaction(kind Kind, amount Cents, status Status, payee, recipient string) (Transaction, error) {
	switch kind {
	case KindCredit, KindDebit:
	default:
		return Transaction{}, invalidTransaction("type must be credit or debit")
	}
	if amount <= 0 {
		return Transaction{}, invalidTransaction("amount must be positive")
	}
	switch status {
	case StatusSuccessful, StatusPending, StatusFailed:
	default:
		return Transaction{}, invalidTransaction("status must be successful, pending or failed")
	}
	if payee == "" || recipient == "" {
		return Transaction{}, invalidTransaction("payee and recipient are required")
	}
	if payee == recipient {
		return Transaction{}, invalidTransaction("payee and recipient cannot be the same")
	}

	return Transaction{
		Kind:      kind,
		Amount:    amount,
		Status:    status,
		Payee:     payee,
		Recipient: recipient,
	}, nil
}

func invalidTransaction(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransaction, reason)
}

// IsValidation reports whether err stems from transaction input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidTransaction)
}
