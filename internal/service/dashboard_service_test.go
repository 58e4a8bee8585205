package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports/mocks"
	"goldpayments/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type dashboardTestDeps struct {
	svc      *dashboardService
	ledger   *mocks.MockLedgerRepository
	sessions *mocks.MockSessionStore
	tokens   *mocks.MockTokenStore
	cipher   *mocks.MockTokenCipher
	ctrl     *gomock.Controller
}

func setupDashboardService(t *testing.T) *dashboardTestDeps {
	ctrl := gomock.NewController(t)
	formatter, err := money.NewFormatter("en-US")
	require.NoError(t, err)

	d := &dashboardTestDeps{
		ledger:   mocks.NewMockLedgerRepository(ctrl),
		sessions: mocks.NewMockSessionStore(ctrl),
		tokens:   mocks.NewMockTokenStore(ctrl),
		cipher:   mocks.NewMockTokenCipher(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewDashboardService(d.ledger, d.sessions, d.tokens, d.cipher, formatter, newTestLogger()).(*dashboardService)
	return d
}

func TestDashboardService_GetDashboard(t *testing.T) {
	d := setupDashboardService(t)
	ctx := context.Background()
	sessionID := uuid.New()
	unlockedAt := time.Now()
	payload := &domain.EncryptedPayload{Ciphertext: "c", Nonce: "n"}

	d.ledger.EXPECT().GetWallet(ctx, sessionID).Return(testWallet(sessionID), nil)
	d.ledger.EXPECT().ListTransactions(ctx, sessionID, 0).
		Return(domain.SeedTransactions(sessionID, decimal.NewFromInt(1000000), "MXN", time.Now()), nil)
	d.cipher.EXPECT().Algorithm().Return("AES-256")
	d.sessions.EXPECT().Get(ctx, sessionID).Return(&domain.Session{ID: sessionID, State: domain.SessionStateUnlocked, UnlockedAt: &unlockedAt}, nil)
	d.tokens.EXPECT().Get(ctx, sessionID).Return(payload, nil)
	d.cipher.EXPECT().Decrypt(payload).Return("access-sandbox-x", nil)

	dash, err := d.svc.GetDashboard(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, "$1,000,000.00", dash.FormattedBalance)
	require.Len(t, dash.Transactions, 2)
	assert.Equal(t, "+$1,000,000.00", dash.Transactions[0].Display)
	assert.Equal(t, "-$15,000.00", dash.Transactions[1].Display)
	assert.Equal(t, "AES-256", dash.Security.Cipher)
	assert.True(t, dash.Security.TokenStored)
	assert.Equal(t, &unlockedAt, dash.Security.UnlockedAt)
}

func TestDashboardService_GetDashboard_UnreadableToken(t *testing.T) {
	d := setupDashboardService(t)
	ctx := context.Background()
	sessionID := uuid.New()

	d.ledger.EXPECT().GetWallet(ctx, sessionID).Return(testWallet(sessionID), nil)
	d.ledger.EXPECT().ListTransactions(ctx, sessionID, 0).Return(nil, nil)
	d.cipher.EXPECT().Algorithm().Return("AES-256")
	d.sessions.EXPECT().Get(ctx, sessionID).Return(nil, nil)
	d.tokens.EXPECT().Get(ctx, sessionID).Return(&domain.EncryptedPayload{}, nil)
	d.cipher.EXPECT().Decrypt(gomock.Any()).Return("", errors.New("message authentication failed"))

	dash, err := d.svc.GetDashboard(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, dash.Security.TokenStored)
	assert.Empty(t, dash.Transactions)
}

func TestDashboardService_GetDashboard_NoToken(t *testing.T) {
	d := setupDashboardService(t)
	ctx := context.Background()
	sessionID := uuid.New()

	d.ledger.EXPECT().GetWallet(ctx, sessionID).Return(testWallet(sessionID), nil)
	d.ledger.EXPECT().ListTransactions(ctx, sessionID, 0).Return([]domain.Transaction{}, nil)
	d.cipher.EXPECT().Algorithm().Return("AES-256")
	d.sessions.EXPECT().Get(ctx, sessionID).Return(nil, nil)
	d.tokens.EXPECT().Get(ctx, sessionID).Return(nil, nil)

	dash, err := d.svc.GetDashboard(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, dash.Security.TokenStored)
}

func TestDashboardService_GetDashboard_LockedSession(t *testing.T) {
	d := setupDashboardService(t)
	ctx := context.Background()
	sessionID := uuid.New()

	d.ledger.EXPECT().GetWallet(ctx, sessionID).Return(testWallet(sessionID), nil)
	d.ledger.EXPECT().ListTransactions(ctx, sessionID, 0).Return(nil, nil)
	d.cipher.EXPECT().Algorithm().Return("AES-256")
	d.sessions.EXPECT().Get(ctx, sessionID).Return(&domain.Session{ID: sessionID, State: domain.SessionStateLocked}, nil)

	_, err := d.svc.GetDashboard(ctx, sessionID)
	assertAppError(t, err, "SESSION_004")
}

func TestDashboardService_GetDashboard_UnknownSession(t *testing.T) {
	d := setupDashboardService(t)
	ctx := context.Background()
	sessionID := uuid.New()

	d.ledger.EXPECT().GetWallet(ctx, sessionID).Return(nil, nil)

	_, err := d.svc.GetDashboard(ctx, sessionID)
	assertAppError(t, err, "SESSION_001")
}

func TestDashboardService_ListTransactions(t *testing.T) {
	d := setupDashboardService(t)
	ctx := context.Background()
	sessionID := uuid.New()

	d.ledger.EXPECT().ListTransactions(ctx, sessionID, 1).Return(nil, errors.New("db down"))

	_, err := d.svc.ListTransactions(ctx, sessionID, 1)
	assertAppError(t, err, "SYS_001")
}
