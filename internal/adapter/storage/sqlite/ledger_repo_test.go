package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func openLedger(t *testing.T, repo *LedgerRepo) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now()
	balance := decimal.NewFromInt(1000000)
	w := domain.NewWallet(id, balance, "MXN", "0xG0LD...88FF", domain.TierElite, now)
	require.NoError(t, repo.Open(context.Background(), w, domain.SeedTransactions(id, balance, "MXN", now)))
	return id
}

func TestOpen_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// second run finds nothing to apply
	db, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	hc := NewHealthCheck(db)
	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "sqlite", hc.Name())
}

func TestLedgerRepo_OpenAndRead(t *testing.T) {
	repo := NewLedgerRepo(newTestDB(t))
	ctx := context.Background()
	id := openLedger(t, repo)

	w, err := repo.GetWallet(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, id, w.SessionID)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(1000000)))
	assert.Equal(t, "MXN", w.Currency)
	assert.Equal(t, domain.TierElite, w.Tier)

	txs, err := repo.ListTransactions(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.WelcomeTransactionID, txs[0].ID)
	assert.Equal(t, domain.MembershipTxID, txs[1].ID)
	assert.True(t, txs[1].Amount.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, domain.DirectionDebit, txs[1].Direction)

	limited, err := repo.ListTransactions(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, domain.WelcomeTransactionID, limited[0].ID)
}

func TestLedgerRepo_OpenTwiceFails(t *testing.T) {
	repo := NewLedgerRepo(newTestDB(t))
	id := openLedger(t, repo)

	w := domain.NewWallet(id, decimal.NewFromInt(1), "MXN", "x", domain.TierGold, time.Now())
	assert.Error(t, repo.Open(context.Background(), w, nil))
}

func TestLedgerRepo_UnknownSession(t *testing.T) {
	repo := NewLedgerRepo(newTestDB(t))
	ctx := context.Background()

	w, err := repo.GetWallet(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, w)

	txs, err := repo.ListTransactions(ctx, uuid.New(), 0)
	require.NoError(t, err)
	assert.Empty(t, txs)

	tx := domain.NewSyncTransaction(uuid.New(), "ABC123XYZ", decimal.NewFromInt(450000), "MXN", time.Now())
	w, err = repo.Credit(ctx, tx.SessionID, &tx)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestLedgerRepo_Credit(t *testing.T) {
	repo := NewLedgerRepo(newTestDB(t))
	ctx := context.Background()
	id := openLedger(t, repo)

	tx := domain.NewSyncTransaction(id, "ABC123XYZ", decimal.RequireFromString("450000.00"), "MXN", time.Now().Add(time.Second))
	w, err := repo.Credit(ctx, id, &tx)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "1450000.00", w.Balance.StringFixed(2))

	stored, err := repo.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(w.Balance))

	txs, err := repo.ListTransactions(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, tx.ID, txs[0].ID)
	assert.Equal(t, domain.SyncConcept, txs[0].Concept)

	// the same id cannot be recorded twice for a session
	_, err = repo.Credit(ctx, id, &tx)
	assert.Error(t, err)

	again, err := repo.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(w.Balance), "a failed credit must roll back")
}

func TestLedgerRepo_ConcurrentCredits(t *testing.T) {
	repo := NewLedgerRepo(newTestDB(t))
	ctx := context.Background()
	id := openLedger(t, repo)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := domain.NewSyncTransaction(id, uuid.NewString()[:9], decimal.NewFromInt(10), "MXN", time.Now())
			if _, err := repo.Credit(ctx, id, &tx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("credit failed: %v", err)
	}

	w, err := repo.GetWallet(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1000200.00", w.Balance.StringFixed(2))

	txs, err := repo.ListTransactions(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, txs, n+2)
}

func TestAuditRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository(db)
	sessionID := uuid.New()

	entry := &domain.AuditLog{
		ID:           uuid.New(),
		SessionID:    &sessionID,
		Action:       domain.AuditActionSessionUnlock,
		ResourceType: "session",
		ResourceID:   sessionID.String(),
		IPAddress:    "127.0.0.1",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), entry))

	var (
		action  string
		details sql.NullString
	)
	err := db.QueryRow(`SELECT action, details FROM audit_logs WHERE id = ?`, entry.ID.String()).Scan(&action, &details)
	require.NoError(t, err)
	assert.Equal(t, "SESSION_UNLOCK", action)
	assert.False(t, details.Valid)
}
