package service

import (
	"context"
	"fmt"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"
	"goldpayments/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// dashboardService implements ports.DashboardService.
type dashboardService struct {
	ledger    ports.LedgerRepository
	sessions  ports.SessionStore
	tokens    ports.TokenStore
	cipher    ports.TokenCipher
	formatter *money.Formatter
	log       zerolog.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	ledger ports.LedgerRepository,
	sessions ports.SessionStore,
	tokens ports.TokenStore,
	cipher ports.TokenCipher,
	formatter *money.Formatter,
	log zerolog.Logger,
) ports.DashboardService {
	return &dashboardService{
		ledger:    ledger,
		sessions:  sessions,
		tokens:    tokens,
		cipher:    cipher,
		formatter: formatter,
		log:       log,
	}
}

// GetDashboard assembles the wallet card, history and security panel.
func (s *dashboardService) GetDashboard(ctx context.Context, sessionID uuid.UUID) (*ports.Dashboard, error) {
	wallet, err := s.ledger.GetWallet(ctx, sessionID)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("fetching wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrSessionNotFound()
	}

	txs, err := s.ListTransactions(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	views := make([]ports.TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, ports.TransactionView{
			Transaction: tx,
			Display:     s.signed(tx),
		})
	}

	security, err := s.securityStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &ports.Dashboard{
		Wallet:           wallet,
		FormattedBalance: s.format(wallet),
		Transactions:     views,
		Security:         security,
	}, nil
}

// ListTransactions returns the session history, newest first.
func (s *dashboardService) ListTransactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Transaction, error) {
	txs, err := s.ledger.ListTransactions(ctx, sessionID, limit)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("listing transactions: %w", err))
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

// securityStatus reports the cipher in use and whether a vaulted token can
// still be opened.
func (s *dashboardService) securityStatus(ctx context.Context, sessionID uuid.UUID) (ports.SecurityStatus, error) {
	status := ports.SecurityStatus{Cipher: s.cipher.Algorithm()}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return status, apperror.ErrStorageError(fmt.Errorf("fetching session: %w", err))
	}
	if session != nil {
		if !session.IsUnlocked() {
			return status, apperror.ErrSessionLocked()
		}
		status.UnlockedAt = session.UnlockedAt
	}

	payload, err := s.tokens.Get(ctx, sessionID)
	if err != nil {
		return status, apperror.ErrStorageError(fmt.Errorf("fetching vaulted token: %w", err))
	}
	if payload == nil {
		return status, nil
	}

	if _, err := s.cipher.Decrypt(payload); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("vaulted token unreadable")
		return status, nil
	}
	status.TokenStored = true
	return status, nil
}

func (s *dashboardService) format(wallet *domain.Wallet) string {
	out, err := s.formatter.Format(wallet.Balance, wallet.Currency)
	if err != nil {
		s.log.Warn().Err(err).Str("currency", wallet.Currency).Msg("cannot format balance")
		return wallet.Balance.StringFixed(2) + " " + wallet.Currency
	}
	return out
}

func (s *dashboardService) signed(tx domain.Transaction) string {
	out, err := s.formatter.Signed(tx.Amount, tx.Currency, tx.IsCredit())
	if err != nil {
		return tx.SignedAmount().StringFixed(2) + " " + tx.Currency
	}
	return out
}
