package service

import (
	"context"
	"fmt"
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// scanLockGrace is added to the scan delay when holding the scan lock.
const scanLockGrace = 30 * time.Second

// WalletSeed describes the wallet every new session opens with.
type WalletSeed struct {
	Balance  decimal.Decimal
	Currency string
	Address  string
	Tier     domain.Tier
}

// SessionServiceImpl implements ports.SessionService.
type SessionServiceImpl struct {
	sessions  ports.SessionStore
	ledger    ports.LedgerRepository
	locks     ports.LockStore
	device    ports.CaptureDevice
	tokens    ports.TokenService
	seed      WalletSeed
	scanDelay time.Duration
	log       zerolog.Logger
}

// NewSessionService creates a new SessionServiceImpl.
func NewSessionService(
	sessions ports.SessionStore,
	ledger ports.LedgerRepository,
	locks ports.LockStore,
	device ports.CaptureDevice,
	tokens ports.TokenService,
	seed WalletSeed,
	scanDelay time.Duration,
	log zerolog.Logger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessions:  sessions,
		ledger:    ledger,
		locks:     locks,
		device:    device,
		tokens:    tokens,
		seed:      seed,
		scanDelay: scanDelay,
		log:       log,
	}
}

// Open creates a LOCKED session and seeds its wallet.
func (s *SessionServiceImpl) Open(ctx context.Context) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New(),
		State:     domain.SessionStateLocked,
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("creating session: %w", err))
	}

	wallet := domain.NewWallet(session.ID, s.seed.Balance, s.seed.Currency, s.seed.Address, s.seed.Tier, now)
	seed := domain.SeedTransactions(session.ID, s.seed.Balance, s.seed.Currency, now)
	if err := s.ledger.Open(ctx, wallet, seed); err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("opening ledger: %w", err))
	}

	s.log.Info().Str("session_id", session.ID.String()).Msg("session opened")
	return session, nil
}

// Get returns a session by id.
func (s *SessionServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("fetching session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrSessionNotFound()
	}
	return session, nil
}

// Scan runs the simulated biometric capture and unlocks the session.
// Pipeline: scan lock -> state check -> capture device -> delay -> unlock -> token.
func (s *SessionServiceImpl) Scan(ctx context.Context, id uuid.UUID) (*ports.ScanResult, error) {
	lockKey := "scan:" + id.String()
	acquired, err := s.locks.Acquire(ctx, lockKey, s.scanDelay+scanLockGrace)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("acquiring scan lock: %w", err))
	}
	if !acquired {
		return nil, apperror.ErrScanInProgress()
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			s.log.Warn().Err(err).Str("session_id", id.String()).Msg("failed to release scan lock")
		}
	}()

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsUnlocked() {
		return nil, apperror.ErrSessionAlreadyUnlocked()
	}

	cameraLive := true
	stream, err := s.device.Acquire(ctx)
	if err != nil {
		cameraLive = false
		s.log.Warn().Err(err).Str("session_id", id.String()).Msg("capture device denied, scanning without preview")
	} else {
		defer stream.Release()
	}

	if err := sleep(ctx, s.scanDelay); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	if !session.Unlock(time.Now().UTC()) {
		return nil, apperror.ErrSessionAlreadyUnlocked()
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("saving unlocked session: %w", err))
	}

	token, expiresAt, err := s.tokens.Generate(session.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("issuing session token: %w", err))
	}

	s.log.Info().
		Str("session_id", id.String()).
		Bool("camera_live", cameraLive).
		Msg("session unlocked")

	return &ports.ScanResult{
		Session:    session,
		Token:      token,
		ExpiresAt:  expiresAt,
		CameraLive: cameraLive,
	}, nil
}
