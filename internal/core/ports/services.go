package ports

import (
	"context"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
)

// TokenCipher seals short secrets with an authenticated cipher.
type TokenCipher interface {
	Encrypt(plaintext string) (*domain.EncryptedPayload, error)
	Decrypt(payload *domain.EncryptedPayload) (string, error)
	// Algorithm names the cipher, e.g. "AES-256".
	Algorithm() string
}

// TokenService issues and checks the JWT granted by an unlock.
type TokenService interface {
	Generate(sessionID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	SessionID uuid.UUID
}

// CaptureDevice stands in for the camera used by the biometric scan.
type CaptureDevice interface {
	Acquire(ctx context.Context) (CaptureStream, error)
}

// CaptureStream is an acquired device. Release must be called exactly once.
type CaptureStream interface {
	Release()
}

// TextGenerator is the boundary to a language model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Name() string
}

// GenerationParams are fixed per call.
type GenerationParams struct {
	Model       string
	Temperature float32
	TopP        float32
}

// --- Service Ports (Business Logic) ---

// SessionService drives the lock gate.
type SessionService interface {
	Open(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Scan(ctx context.Context, id uuid.UUID) (*ScanResult, error)
}

// ScanResult is returned by a successful unlock.
type ScanResult struct {
	Session   *domain.Session
	Token     string
	ExpiresAt time.Time
	// CameraLive is false when the capture device was denied.
	CameraLive bool
}

// LinkService drives the account-linking wizard.
type LinkService interface {
	ListInstitutions(query string) []string
	Start(ctx context.Context, sessionID uuid.UUID) (*domain.LinkFlow, error)
	Advance(ctx context.Context, sessionID, flowID uuid.UUID) (*domain.LinkFlow, error)
	SelectInstitution(ctx context.Context, sessionID, flowID uuid.UUID, institution string) (*domain.LinkFlow, error)
	Finalize(ctx context.Context, sessionID, flowID uuid.UUID) (*LinkResult, error)
	Cancel(ctx context.Context, sessionID, flowID uuid.UUID) (*domain.LinkFlow, error)
}

// LinkResult is the outcome of a finalized wizard.
type LinkResult struct {
	Flow *domain.LinkFlow
	Sync *SyncResult
}

// LinkCompletionHandler receives the public token of a finished wizard.
type LinkCompletionHandler interface {
	OnLinkSuccess(ctx context.Context, sessionID uuid.UUID, publicToken string) (*SyncResult, error)
}

// SyncResult is what a completed bank sync produced.
type SyncResult struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
	Notice      string
}

// AdviceService produces the advice panel text.
type AdviceService interface {
	GetAdvice(ctx context.Context, sessionID uuid.UUID) (*Advice, error)
}

// Advice is the text shown in the advice panel.
type Advice struct {
	Text     string    `json:"text"`
	Fallback bool      `json:"fallback"`
	Provider string    `json:"provider"`
	At       time.Time `json:"generated_at"`
}

// DashboardService assembles the dashboard screen.
type DashboardService interface {
	GetDashboard(ctx context.Context, sessionID uuid.UUID) (*Dashboard, error)
	ListTransactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Transaction, error)
}

// Dashboard is the unlocked home screen.
type Dashboard struct {
	Wallet           *domain.Wallet
	FormattedBalance string
	Transactions     []TransactionView
	Security         SecurityStatus
}

// TransactionView is a transaction with its display amount, e.g. "+$450,000.00".
type TransactionView struct {
	domain.Transaction
	Display string
}

// SecurityStatus feeds the security panel.
type SecurityStatus struct {
	Cipher      string
	TokenStored bool
	UnlockedAt  *time.Time
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
