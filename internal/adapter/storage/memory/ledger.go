// Package memory holds process-local storage used when no database is
// configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
)

const sweepInterval = time.Minute

type ledger struct {
	wallet    domain.Wallet
	txs       []domain.Transaction // newest first
	expiresAt time.Time
}

// LedgerRepo implements ports.LedgerRepository in memory. Ledgers expire
// ttl after they are opened, the same lifetime as the session they belong to.
type LedgerRepo struct {
	mu        sync.RWMutex
	ledgers   map[uuid.UUID]*ledger
	ttl       time.Duration // <= 0 keeps ledgers forever
	now       func() time.Time
	lastSweep time.Time
}

// NewLedgerRepo creates an empty in-memory ledger whose entries live for ttl.
func NewLedgerRepo(ttl time.Duration) *LedgerRepo {
	return &LedgerRepo{
		ledgers: make(map[uuid.UUID]*ledger),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *LedgerRepo) Open(_ context.Context, wallet *domain.Wallet, seed []domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)
	if _, ok := r.live(wallet.SessionID, now); ok {
		return fmt.Errorf("ledger already open for session %s", wallet.SessionID)
	}
	txs := make([]domain.Transaction, len(seed))
	copy(txs, seed)
	l := &ledger{wallet: *wallet, txs: txs}
	if r.ttl > 0 {
		l.expiresAt = now.Add(r.ttl)
	}
	r.ledgers[wallet.SessionID] = l
	return nil
}

func (r *LedgerRepo) GetWallet(_ context.Context, sessionID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.live(sessionID, r.now())
	if !ok {
		return nil, nil
	}
	w := l.wallet
	return &w, nil
}

func (r *LedgerRepo) ListTransactions(_ context.Context, sessionID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.live(sessionID, r.now())
	if !ok {
		return []domain.Transaction{}, nil
	}
	n := len(l.txs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Transaction, n)
	copy(out, l.txs[:n])
	return out, nil
}

func (r *LedgerRepo) Credit(_ context.Context, sessionID uuid.UUID, tx *domain.Transaction) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.live(sessionID, r.now())
	if !ok {
		return nil, nil
	}
	for _, existing := range l.txs {
		if existing.ID == tx.ID {
			return nil, fmt.Errorf("duplicate transaction %s", tx.ID)
		}
	}
	l.wallet.Credit(tx.Amount, tx.Timestamp)
	l.txs = append([]domain.Transaction{*tx}, l.txs...)

	w := l.wallet
	return &w, nil
}

// live returns the session's ledger unless it has expired.
func (r *LedgerRepo) live(sessionID uuid.UUID, now time.Time) (*ledger, bool) {
	l, ok := r.ledgers[sessionID]
	if !ok || (!l.expiresAt.IsZero() && !now.Before(l.expiresAt)) {
		return nil, false
	}
	return l, true
}

// sweep drops expired ledgers, at most once per sweepInterval. Callers hold
// the write lock.
func (r *LedgerRepo) sweep(now time.Time) {
	if r.ttl <= 0 || now.Sub(r.lastSweep) < sweepInterval {
		return
	}
	r.lastSweep = now
	for id, l := range r.ledgers {
		if !now.Before(l.expiresAt) {
			delete(r.ledgers, id)
		}
	}
}
