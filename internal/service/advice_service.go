package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Texts shown instead of generated advice.
const (
	AdviceUnavailableText = "Lo siento, mi análisis de élite no está disponible en este momento."
	AdviceErrorText       = "Error al conectar con el motor de IA. Por favor, intente más tarde."
)

const adviceRecentTransactions = 5

const advicePromptTemplate = `
Eres el Consultor de IA de GoldPayments Premium.
Analiza el siguiente perfil financiero de un cliente de alto valor y proporciona 3 consejos estratégicos en español con un tono extremadamente sofisticado y exclusivo.

Perfil del Cliente:
- Saldo Actual: %s %s
- Nivel de Membresía: %s
- Transacciones Recientes: %s

Formato de respuesta:
1. Una breve bienvenida personalizada.
2. Tres "Insights de Oro" accionables.
3. Una recomendación de inversión acorde a su estatus.
`

// AdviceServiceImpl implements ports.AdviceService.
type AdviceServiceImpl struct {
	ledger    ports.LedgerRepository
	generator ports.TextGenerator
	params    ports.GenerationParams
	timeout   time.Duration
	log       zerolog.Logger
}

// NewAdviceService creates a new AdviceServiceImpl. A zero timeout leaves the
// call bounded only by the request context.
func NewAdviceService(
	ledger ports.LedgerRepository,
	generator ports.TextGenerator,
	params ports.GenerationParams,
	timeout time.Duration,
	log zerolog.Logger,
) *AdviceServiceImpl {
	return &AdviceServiceImpl{
		ledger:    ledger,
		generator: generator,
		params:    params,
		timeout:   timeout,
		log:       log,
	}
}

// GetAdvice makes one generation call for the session's wallet. Generation
// failures never surface as errors; they become the fallback text.
func (s *AdviceServiceImpl) GetAdvice(ctx context.Context, sessionID uuid.UUID) (*ports.Advice, error) {
	wallet, err := s.ledger.GetWallet(ctx, sessionID)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("fetching wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrSessionNotFound()
	}

	txs, err := s.ledger.ListTransactions(ctx, sessionID, adviceRecentTransactions)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("listing transactions: %w", err))
	}

	prompt, err := BuildAdvicePrompt(wallet, txs)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	advice := &ports.Advice{Provider: s.generator.Name(), At: time.Now().UTC()}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.generator.Generate(callCtx, prompt, s.params)
	switch {
	case err != nil:
		s.log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Str("provider", advice.Provider).
			Msg("advice generation failed")
		advice.Text = AdviceErrorText
		advice.Fallback = true
	case strings.TrimSpace(text) == "":
		advice.Text = AdviceUnavailableText
		advice.Fallback = true
	default:
		advice.Text = text
	}

	return advice, nil
}

// BuildAdvicePrompt renders the prompt for a wallet and its most recent
// transactions. Only the first five transactions are included.
func BuildAdvicePrompt(wallet *domain.Wallet, txs []domain.Transaction) (string, error) {
	if len(txs) > adviceRecentTransactions {
		txs = txs[:adviceRecentTransactions]
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	recent, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("serializing transactions: %w", err)
	}

	return fmt.Sprintf(advicePromptTemplate, wallet.Balance.String(), wallet.Currency, wallet.Tier, recent), nil
}
