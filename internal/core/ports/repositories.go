package ports

import (
	"context"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerRepository persists the wallet and transaction history of each session.
// Lookups return nil, nil when the session has no ledger.
type LedgerRepository interface {
	// Open stores the opening wallet and its seed transactions.
	Open(ctx context.Context, wallet *domain.Wallet, seed []domain.Transaction) error
	GetWallet(ctx context.Context, sessionID uuid.UUID) (*domain.Wallet, error)
	// ListTransactions returns newest first. limit <= 0 means no limit.
	ListTransactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Transaction, error)
	// Credit adds tx.Amount to the balance and records tx in one atomic step,
	// returning the updated wallet.
	Credit(ctx context.Context, sessionID uuid.UUID, tx *domain.Transaction) (*domain.Wallet, error)
}

// SessionStore keeps lock-gate sessions. Get returns nil, nil when missing.
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
}

// FlowStore keeps account-linking wizard runs. Get returns nil, nil when missing.
type FlowStore interface {
	Create(ctx context.Context, flow *domain.LinkFlow) error
	Get(ctx context.Context, id uuid.UUID) (*domain.LinkFlow, error)
	// Transition writes flow only while the stored run is at from. It returns
	// false, nil when another writer moved the run first.
	Transition(ctx context.Context, flow *domain.LinkFlow, from domain.LinkStep) (bool, error)
}

// TokenStore is the per-session key-value slot for the encrypted bank token.
type TokenStore interface {
	Put(ctx context.Context, sessionID uuid.UUID, payload *domain.EncryptedPayload) error
	// Get returns nil, nil when nothing is stored.
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.EncryptedPayload, error)
}

// LockStore hands out exclusive keys.
type LockStore interface {
	// Acquire sets key if it is free. Returns false if someone already holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// RateLimitStore counts requests in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}
