package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the membership level shown on the wallet card.
type Tier string

const (
	TierElite   Tier = "Elite"
	TierGold    Tier = "Gold"
	TierFounder Tier = "Founder"
)

// ParseTier validates a configured tier name.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierElite, TierGold, TierFounder:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// Wallet holds the balance of one session. The only mutation is Credit.
type Wallet struct {
	SessionID uuid.UUID       `json:"-"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Address   string          `json:"address"`
	Tier      Tier            `json:"tier"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(amount decimal.Decimal, at time.Time) {
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = at
}
