package dto

import (
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
)

// SelectInstitutionRequest is the request body for picking a bank. The name
// is matched against the configured list, so it is only trimmed.
type SelectInstitutionRequest struct {
	Institution string `json:"institution" binding:"required,min=1,max=64,safe_name" sanitize:"trim"`
}

// InstitutionQuery filters the institution list.
type InstitutionQuery struct {
	Q string `form:"q" binding:"omitempty,max=64,safe_name"`
}

// TransactionListQuery bounds the transaction list. Zero means all.
type TransactionListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=0,max=500"`
}

// SessionResponse is the public view of a lock-gate session.
type SessionResponse struct {
	ID         string  `json:"id"`
	State      string  `json:"state"`
	CreatedAt  string  `json:"created_at"`
	UnlockedAt *string `json:"unlocked_at,omitempty"`
}

// ScanResponse is returned by a successful biometric scan.
type ScanResponse struct {
	Session    SessionResponse `json:"session"`
	Token      string          `json:"token"`
	Expiry     int64           `json:"expiry"` // Unix timestamp
	CameraLive bool            `json:"camera_live"`
}

// WalletResponse is the wallet card.
type WalletResponse struct {
	Balance          string `json:"balance"`
	FormattedBalance string `json:"formatted_balance,omitempty"`
	Currency         string `json:"currency"`
	Address          string `json:"address"`
	Tier             string `json:"tier"`
	UpdatedAt        string `json:"updated_at"`
}

// TransactionResponse is one history row.
type TransactionResponse struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Display   string `json:"display,omitempty"`
	Currency  string `json:"currency"`
	Timestamp string `json:"timestamp"`
	Concept   string `json:"concept"`
	Type      string `json:"type"`
	Status    string `json:"status"`
}

// SecurityResponse feeds the security panel.
type SecurityResponse struct {
	Cipher      string  `json:"cipher"`
	TokenStored bool    `json:"token_stored"`
	UnlockedAt  *string `json:"unlocked_at,omitempty"`
}

// DashboardResponse is the unlocked home screen.
type DashboardResponse struct {
	Wallet       WalletResponse        `json:"wallet"`
	Transactions []TransactionResponse `json:"transactions"`
	Security     SecurityResponse      `json:"security"`
}

// TransactionListResponse wraps the transaction list.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Count int                   `json:"count"`
}

// InstitutionListResponse wraps the institution list.
type InstitutionListResponse struct {
	Items []string `json:"items"`
}

// FlowResponse is the state of an account-linking wizard.
type FlowResponse struct {
	ID          string `json:"id"`
	Step        string `json:"step"`
	Institution string `json:"institution,omitempty"`
	PublicToken string `json:"public_token,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// FinalizeResponse is returned when the wizard completes and the sync ran.
type FinalizeResponse struct {
	Flow        FlowResponse        `json:"flow"`
	Wallet      WalletResponse      `json:"wallet"`
	Transaction TransactionResponse `json:"transaction"`
	Notice      string              `json:"notice"`
}

// AdviceResponse is the advice panel text.
type AdviceResponse struct {
	Text        string `json:"text"`
	Fallback    bool   `json:"fallback"`
	Provider    string `json:"provider"`
	GeneratedAt string `json:"generated_at"`
}

func NewSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID.String(),
		State:      string(s.State),
		CreatedAt:  formatTime(s.CreatedAt),
		UnlockedAt: formatTimePtr(s.UnlockedAt),
	}
}

func NewWalletResponse(w *domain.Wallet, formatted string) WalletResponse {
	return WalletResponse{
		Balance:          w.Balance.StringFixed(2),
		FormattedBalance: formatted,
		Currency:         w.Currency,
		Address:          w.Address,
		Tier:             string(w.Tier),
		UpdatedAt:        formatTime(w.UpdatedAt),
	}
}

func NewTransactionResponse(tx *domain.Transaction, display string) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Amount:    tx.Amount.StringFixed(2),
		Display:   display,
		Currency:  tx.Currency,
		Timestamp: formatTime(tx.Timestamp),
		Concept:   tx.Concept,
		Type:      string(tx.Direction),
		Status:    string(tx.Status),
	}
}

func NewDashboardResponse(d *ports.Dashboard) DashboardResponse {
	txs := make([]TransactionResponse, 0, len(d.Transactions))
	for i := range d.Transactions {
		txs = append(txs, NewTransactionResponse(&d.Transactions[i].Transaction, d.Transactions[i].Display))
	}
	return DashboardResponse{
		Wallet:       NewWalletResponse(d.Wallet, d.FormattedBalance),
		Transactions: txs,
		Security: SecurityResponse{
			Cipher:      d.Security.Cipher,
			TokenStored: d.Security.TokenStored,
			UnlockedAt:  formatTimePtr(d.Security.UnlockedAt),
		},
	}
}

func NewFlowResponse(f *domain.LinkFlow) FlowResponse {
	return FlowResponse{
		ID:          f.ID.String(),
		Step:        string(f.Step),
		Institution: f.Institution,
		PublicToken: f.PublicToken,
		CreatedAt:   formatTime(f.CreatedAt),
		UpdatedAt:   formatTime(f.UpdatedAt),
	}
}

func NewAdviceResponse(a *ports.Advice) AdviceResponse {
	return AdviceResponse{
		Text:        a.Text,
		Fallback:    a.Fallback,
		Provider:    a.Provider,
		GeneratedAt: formatTime(a.At),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
