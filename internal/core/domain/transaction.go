package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction tells whether money entered or left the wallet.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// TransactionStatus represents the settlement state of a transaction.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry. Records are only created by the
// session seed or by a completed bank sync; they are never updated or deleted.
type Transaction struct {
	ID        string            `json:"id"`
	SessionID uuid.UUID         `json:"-"`
	Amount    decimal.Decimal   `json:"amount"` // always positive, Direction gives the sign
	Currency  string            `json:"currency"`
	Timestamp time.Time         `json:"timestamp"`
	Concept   string            `json:"concept"`
	Direction Direction         `json:"type"`
	Status    TransactionStatus `json:"status"`
}

// IsCredit returns true if the transaction added money to the wallet.
func (t *Transaction) IsCredit() bool {
	return t.Direction == DirectionCredit
}

// SignedAmount returns the amount with a negative sign for debits.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}
