package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"
	"goldpayments/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const accessTokenPrefix = "access-sandbox-"

// SyncService implements ports.LinkCompletionHandler. It exchanges the public
// token, vaults the resulting access token and credits the sync amount.
type SyncService struct {
	cipher   ports.TokenCipher
	tokens   ports.TokenStore
	ledger   ports.LedgerRepository
	amount   decimal.Decimal
	currency string
	log      zerolog.Logger
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	cipher ports.TokenCipher,
	tokens ports.TokenStore,
	ledger ports.LedgerRepository,
	amount decimal.Decimal,
	currency string,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		cipher:   cipher,
		tokens:   tokens,
		ledger:   ledger,
		amount:   amount,
		currency: currency,
		log:      log,
	}
}

// OnLinkSuccess finishes a bank link. If the token cannot be encrypted or
// stored nothing is credited.
func (s *SyncService) OnLinkSuccess(ctx context.Context, sessionID uuid.UUID, publicToken string) (*ports.SyncResult, error) {
	s.log.Debug().
		Str("session_id", sessionID.String()).
		Str("public_token", logger.Mask(publicToken)).
		Msg("exchanging public token")

	accessToken := accessTokenPrefix + randomCode(20)

	payload, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("token encryption failed")
		return nil, apperror.ErrEncryptionFailure(err)
	}

	if err := s.tokens.Put(ctx, sessionID, payload); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("storing encrypted token failed")
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("storing payload: %w", err))
	}

	tx := domain.NewSyncTransaction(sessionID, strings.ToUpper(randomCode(9)), s.amount, s.currency, time.Now().UTC())
	wallet, err := s.ledger.Credit(ctx, sessionID, &tx)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("crediting sync amount: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrSessionNotFound()
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("transaction_id", tx.ID).
		Str("amount", s.amount.StringFixed(2)).
		Msg("bank sync credited")

	return &ports.SyncResult{
		Wallet:      wallet,
		Transaction: &tx,
		Notice:      "Tokens Bancarios Encriptados con " + s.cipher.Algorithm(),
	}, nil
}
