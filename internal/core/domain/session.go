package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the position of the lock gate.
type SessionState string

const (
	SessionStateLocked   SessionState = "LOCKED"
	SessionStateUnlocked SessionState = "UNLOCKED"
)

// Session represents one dashboard visit. It starts LOCKED and can only move
// to UNLOCKED, once.
type Session struct {
	ID         uuid.UUID    `json:"id"`
	State      SessionState `json:"state"`
	CreatedAt  time.Time    `json:"created_at"`
	UnlockedAt *time.Time   `json:"unlocked_at,omitempty"`
}

// IsUnlocked returns true once the scan has succeeded.
func (s *Session) IsUnlocked() bool {
	return s.State == SessionStateUnlocked
}

// Unlock moves the session to UNLOCKED. It returns false, leaving the
// session untouched, if it was already unlocked.
func (s *Session) Unlock(at time.Time) bool {
	if s.IsUnlocked() {
		return false
	}
	s.State = SessionStateUnlocked
	s.UnlockedAt = &at
	return true
}
