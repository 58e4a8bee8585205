package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	publicTokenPrefix = "public-sandbox-"
	// A flow finalizes once; the guard outlives any realistic retry.
	finalizeGuardTTL = 24 * time.Hour

	minFuzzyQuery = 4
	maxQueryTypos = 2

	// Cancel retries when a concurrent forward step moves the run under it.
	maxCancelAttempts = 3
)

// LinkDelays are the artificial round trips of the wizard.
type LinkDelays struct {
	Step     time.Duration
	Finalize time.Duration
}

// LinkServiceImpl implements ports.LinkService.
type LinkServiceImpl struct {
	flows        ports.FlowStore
	locks        ports.LockStore
	completion   ports.LinkCompletionHandler
	institutions []string
	delays       LinkDelays
	log          zerolog.Logger
}

// NewLinkService creates a new LinkServiceImpl.
func NewLinkService(
	flows ports.FlowStore,
	locks ports.LockStore,
	completion ports.LinkCompletionHandler,
	institutions []string,
	delays LinkDelays,
	log zerolog.Logger,
) *LinkServiceImpl {
	return &LinkServiceImpl{
		flows:        flows,
		locks:        locks,
		completion:   completion,
		institutions: institutions,
		delays:       delays,
		log:          log,
	}
}

// ListInstitutions filters the institution list by case-insensitive
// substring. When nothing matches, names within a couple of typos of the
// query are suggested instead.
func (s *LinkServiceImpl) ListInstitutions(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0, len(s.institutions))
	for _, name := range s.institutions {
		if q == "" || strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	if len(out) > 0 || len([]rune(q)) < minFuzzyQuery {
		return out
	}

	for _, name := range s.institutions {
		if levenshtein.ComputeDistance(q, strings.ToLower(name)) <= maxQueryTypos {
			out = append(out, name)
		}
	}
	return out
}

// Start opens a new wizard run at INTRO.
func (s *LinkServiceImpl) Start(ctx context.Context, sessionID uuid.UUID) (*domain.LinkFlow, error) {
	now := time.Now().UTC()
	flow := &domain.LinkFlow{
		ID:        uuid.New(),
		SessionID: sessionID,
		Step:      domain.LinkStepIntro,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.flows.Create(ctx, flow); err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("creating link flow: %w", err))
	}
	return flow, nil
}

// Advance moves INTRO -> INSTITUTION.
func (s *LinkServiceImpl) Advance(ctx context.Context, sessionID, flowID uuid.UUID) (*domain.LinkFlow, error) {
	return s.step(ctx, sessionID, flowID, domain.LinkStepIntro, nil)
}

// SelectInstitution records the bank and moves INSTITUTION -> CONFIRMATION.
func (s *LinkServiceImpl) SelectInstitution(ctx context.Context, sessionID, flowID uuid.UUID, institution string) (*domain.LinkFlow, error) {
	name, ok := s.lookupInstitution(institution)
	if !ok {
		return nil, apperror.ErrUnknownInstitution(institution)
	}
	return s.step(ctx, sessionID, flowID, domain.LinkStepInstitution, func(f *domain.LinkFlow) {
		f.Institution = name
	})
}

// Finalize moves CONFIRMATION -> COMPLETED, mints the public token and
// hands it to the completion handler. It succeeds at most once per flow.
func (s *LinkServiceImpl) Finalize(ctx context.Context, sessionID, flowID uuid.UUID) (*ports.LinkResult, error) {
	flow, err := s.load(ctx, sessionID, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Step != domain.LinkStepConfirmation {
		return nil, apperror.ErrInvalidStep(string(flow.Step))
	}

	guardKey := "finalize:" + flowID.String()
	acquired, err := s.locks.Acquire(ctx, guardKey, finalizeGuardTTL)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("acquiring finalize guard: %w", err))
	}
	if !acquired {
		return nil, apperror.ErrFinalizeInProgress()
	}

	// Until the flow is marked COMPLETED a failure frees the guard for a retry.
	completed := false
	defer func() {
		if completed {
			return
		}
		if err := s.locks.Release(context.WithoutCancel(ctx), guardKey); err != nil {
			s.log.Warn().Err(err).Str("flow_id", flowID.String()).Msg("failed to release finalize guard")
		}
	}()

	if err := sleep(ctx, s.delays.Finalize); err != nil {
		return nil, fmt.Errorf("finalize interrupted: %w", err)
	}

	// A cancel may have landed during the delay.
	flow, err = s.load(ctx, sessionID, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Step != domain.LinkStepConfirmation {
		return nil, apperror.ErrInvalidStep(string(flow.Step))
	}

	flow.PublicToken = publicTokenPrefix + randomCode(15)
	flow.MoveTo(domain.LinkStepCompleted, time.Now().UTC())
	moved, err := s.flows.Transition(ctx, flow, domain.LinkStepConfirmation)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("completing link flow: %w", err))
	}
	if !moved {
		return nil, s.stale(ctx, sessionID, flowID)
	}
	completed = true

	s.log.Info().
		Str("flow_id", flowID.String()).
		Str("institution", flow.Institution).
		Msg("link flow completed")

	synced, err := s.completion.OnLinkSuccess(ctx, sessionID, flow.PublicToken)
	if err != nil {
		return nil, err
	}

	return &ports.LinkResult{Flow: flow, Sync: synced}, nil
}

// Cancel aborts the flow from any non-terminal step without side effects.
func (s *LinkServiceImpl) Cancel(ctx context.Context, sessionID, flowID uuid.UUID) (*domain.LinkFlow, error) {
	for attempt := 0; attempt < maxCancelAttempts; attempt++ {
		flow, err := s.load(ctx, sessionID, flowID)
		if err != nil {
			return nil, err
		}
		if flow.Step.IsTerminal() {
			return nil, apperror.ErrInvalidStep(string(flow.Step))
		}

		from := flow.Step
		flow.MoveTo(domain.LinkStepCancelled, time.Now().UTC())
		moved, err := s.flows.Transition(ctx, flow, from)
		if err != nil {
			return nil, apperror.ErrStorageError(fmt.Errorf("cancelling link flow: %w", err))
		}
		if moved {
			s.log.Info().Str("flow_id", flowID.String()).Msg("link flow cancelled")
			return flow, nil
		}
	}
	return nil, s.stale(ctx, sessionID, flowID)
}

// step performs one forward move out of from, after the step delay.
func (s *LinkServiceImpl) step(ctx context.Context, sessionID, flowID uuid.UUID, from domain.LinkStep, mutate func(*domain.LinkFlow)) (*domain.LinkFlow, error) {
	flow, err := s.load(ctx, sessionID, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Step != from {
		return nil, apperror.ErrInvalidStep(string(flow.Step))
	}

	if err := sleep(ctx, s.delays.Step); err != nil {
		return nil, fmt.Errorf("link step interrupted: %w", err)
	}

	flow, err = s.load(ctx, sessionID, flowID)
	if err != nil {
		return nil, err
	}
	next, ok := flow.Step.Next()
	if flow.Step != from || !ok {
		return nil, apperror.ErrInvalidStep(string(flow.Step))
	}

	if mutate != nil {
		mutate(flow)
	}
	flow.MoveTo(next, time.Now().UTC())
	moved, err := s.flows.Transition(ctx, flow, from)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("advancing link flow: %w", err))
	}
	if !moved {
		return nil, s.stale(ctx, sessionID, flowID)
	}

	s.log.Debug().
		Str("flow_id", flowID.String()).
		Str("step", string(next)).
		Msg("link flow advanced")
	return flow, nil
}

// load fetches a flow owned by the session.
func (s *LinkServiceImpl) load(ctx context.Context, sessionID, flowID uuid.UUID) (*domain.LinkFlow, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return nil, apperror.ErrStorageError(fmt.Errorf("fetching link flow: %w", err))
	}
	if flow == nil || flow.SessionID != sessionID {
		return nil, apperror.ErrFlowNotFound()
	}
	return flow, nil
}

// stale reports a lost Transition with the step the winner left behind.
func (s *LinkServiceImpl) stale(ctx context.Context, sessionID, flowID uuid.UUID) error {
	flow, err := s.load(ctx, sessionID, flowID)
	if err != nil {
		return err
	}
	return apperror.ErrInvalidStep(string(flow.Step))
}

func (s *LinkServiceImpl) lookupInstitution(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, inst := range s.institutions {
		if strings.EqualFold(inst, name) {
			return inst, true
		}
	}
	return "", false
}
