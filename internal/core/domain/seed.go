package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seed transaction ids and concepts.
const (
	WelcomeTransactionID = "GOLD-TX-WELCOME"
	WelcomeConcept       = "Bono de Bienvenida Gold Elite"
	MembershipTxID       = "GOLD-TX-782"
	MembershipConcept    = "Membresía Founder Anual"
	SyncConcept          = "Sincronización Segura (Vault Access)"
	SyncTxPrefix         = "PLAID-SYNC-"
)

var membershipFee = decimal.NewFromInt(15000)

// NewWallet builds the opening wallet of a session.
func NewWallet(sessionID uuid.UUID, balance decimal.Decimal, currency, address string, tier Tier, at time.Time) *Wallet {
	return &Wallet{
		SessionID: sessionID,
		Balance:   balance,
		Currency:  currency,
		Address:   address,
		Tier:      tier,
		UpdatedAt: at,
	}
}

// SeedTransactions returns the opening history, newest first: the welcome
// bonus worth the opening balance and the annual membership charged a day
// earlier.
func SeedTransactions(sessionID uuid.UUID, bonus decimal.Decimal, currency string, now time.Time) []Transaction {
	return []Transaction{
		{
			ID:        WelcomeTransactionID,
			SessionID: sessionID,
			Amount:    bonus,
			Currency:  currency,
			Timestamp: now,
			Concept:   WelcomeConcept,
			Direction: DirectionCredit,
			Status:    TransactionStatusCompleted,
		},
		{
			ID:        MembershipTxID,
			SessionID: sessionID,
			Amount:    membershipFee,
			Currency:  currency,
			Timestamp: now.Add(-24 * time.Hour),
			Concept:   MembershipConcept,
			Direction: DirectionDebit,
			Status:    TransactionStatusCompleted,
		},
	}
}

// NewSyncTransaction builds the credit recorded by a completed bank link.
func NewSyncTransaction(sessionID uuid.UUID, suffix string, amount decimal.Decimal, currency string, at time.Time) Transaction {
	return Transaction{
		ID:        SyncTxPrefix + suffix,
		SessionID: sessionID,
		Amount:    amount,
		Currency:  currency,
		Timestamp: at,
		Concept:   SyncConcept,
		Direction: DirectionCredit,
		Status:    TransactionStatusCompleted,
	}
}
