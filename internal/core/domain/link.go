package domain

import (
	"time"

	"github.com/google/uuid"
)

// LinkStep is a position in the account-linking wizard.
type LinkStep string

const (
	LinkStepIntro        LinkStep = "INTRO"
	LinkStepInstitution  LinkStep = "INSTITUTION"
	LinkStepConfirmation LinkStep = "CONFIRMATION"
	LinkStepCompleted    LinkStep = "COMPLETED"
	LinkStepCancelled    LinkStep = "CANCELLED"
)

// IsTerminal returns true for steps no action can leave.
func (s LinkStep) IsTerminal() bool {
	return s == LinkStepCompleted || s == LinkStepCancelled
}

// Next returns the step reached by a forward action, or false if the step
// has no successor.
func (s LinkStep) Next() (LinkStep, bool) {
	switch s {
	case LinkStepIntro:
		return LinkStepInstitution, true
	case LinkStepInstitution:
		return LinkStepConfirmation, true
	case LinkStepConfirmation:
		return LinkStepCompleted, true
	default:
		return "", false
	}
}

// LinkFlow is one run of the wizard.
type LinkFlow struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Step        LinkStep  `json:"step"`
	Institution string    `json:"institution,omitempty"`
	PublicToken string    `json:"public_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MoveTo sets the flow's step.
func (f *LinkFlow) MoveTo(step LinkStep, at time.Time) {
	f.Step = step
	f.UpdatedAt = at
}
