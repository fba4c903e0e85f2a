package checkout

import (
	"context"
	"fmt"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/domain/lead"
	"github.com/cassiomorais/leadpay/internal/domain/pricing"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
	"github.com/cassiomorais/leadpay/internal/gateway"
	"github.com/cassiomorais/leadpay/pkg/saga"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ActionType tells the caller what to do next after an attempt is created.
type ActionType string

const (
	ActionRedirect     ActionType = "redirect"
	ActionManual       ActionType = "manual"
	ActionMissingField ActionType = "missing_field"
)

// Action is the caller-facing outcome of CreateAttempt.
type Action struct {
	Type         ActionType
	RedirectURL  string
	Instructions string
	MissingField string
}

// CreateAttemptRequest holds the input for starting a checkout.
type CreateAttemptRequest struct {
	LeadID       uuid.UUID
	ObligationID uuid.UUID
	Method       attempt.Method
	// InstallmentPart is 1 or 2.
	InstallmentPart int
	// ContextID identifies the browsing context; trackers are scoped to it.
	ContextID string
	// TaxID, when set, is stored on the lead before checkout proceeds. Used
	// by the re-invocation after a missing_field response.
	TaxID string
}

// CreateAttemptResponse holds the created attempt and the follow-up action.
type CreateAttemptResponse struct {
	Attempt *attempt.Attempt
	Action  Action
}

// Config holds checkout pricing and manual-transfer settings.
type Config struct {
	Pricing pricing.Config
	// NetPartCents is the net USD obligation per installment part.
	NetPartCents int64
	// ZelleRecipient is the account shown in manual-transfer instructions.
	ZelleRecipient string
}

// CreateAttemptUseCase is the checkout orchestrator: it prices the method,
// appends the attempt, records the in-flight tracker, and opens the provider
// session where one is needed.
//
// It deliberately enforces no uniqueness across (lead, obligation, part,
// method): duplicate attempts from double clicks and retries are expected and
// resolved at read time by the ledger, not prevented at write time.
type CreateAttemptUseCase struct {
	cfg          Config
	leadRepo     lead.Repository
	attemptRepo  attempt.Repository
	trackerStore tracker.Store
	gateways     *gateway.Factory
	fxSource     FXRateSource
	events       EventPublisher
	logger       zerolog.Logger
}

// NewCreateAttemptUseCase creates a new CreateAttemptUseCase.
func NewCreateAttemptUseCase(
	cfg Config,
	leadRepo lead.Repository,
	attemptRepo attempt.Repository,
	trackerStore tracker.Store,
	gateways *gateway.Factory,
	fxSource FXRateSource,
	events EventPublisher,
	logger zerolog.Logger,
) *CreateAttemptUseCase {
	return &CreateAttemptUseCase{
		cfg:          cfg,
		leadRepo:     leadRepo,
		attemptRepo:  attemptRepo,
		trackerStore: trackerStore,
		gateways:     gateways,
		fxSource:     fxSource,
		events:       events,
		logger:       logger,
	}
}

// Execute creates a payment attempt for the lead's active obligation. The
// operation is safe to repeat: a re-invocation after a missing_field response
// or a client retry simply appends another attempt.
func (uc *CreateAttemptUseCase) Execute(ctx context.Context, req CreateAttemptRequest) (*CreateAttemptResponse, error) {
	if !attempt.ValidMethod(req.Method) {
		return nil, domainErrors.ErrInvalidMethod
	}

	l, err := uc.leadRepo.GetByID(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}

	obligation, err := uc.leadRepo.GetAcceptance(ctx, req.ObligationID)
	if err != nil {
		return nil, err
	}
	if obligation == nil || obligation.LeadID != req.LeadID {
		return nil, domainErrors.ErrObligationNotFound
	}

	// Parcelow needs a national tax id on file before a session can open.
	if req.Method == attempt.MethodParcelow {
		if req.TaxID != "" {
			if err := uc.leadRepo.UpdateTaxID(ctx, l.ID, req.TaxID); err != nil {
				return nil, err
			}
			l.SetTaxID(req.TaxID)
		}
		if !l.HasTaxID() {
			return &CreateAttemptResponse{
				Action: Action{Type: ActionMissingField, MissingField: "tax_id"},
			}, nil
		}
	}

	amount, metadata, err := uc.price(ctx, req.Method)
	if err != nil {
		return nil, err
	}

	if req.Method == attempt.MethodZelle {
		return uc.createManual(ctx, req, amount, metadata)
	}
	return uc.createRedirect(ctx, req, amount, metadata)
}

// price computes the gross amount and the metadata that pins the quote. The
// PIX quote echoes the margin-adjusted rate into metadata so the exact gross
// requested here is the one the session is created with; nothing re-quotes.
func (uc *CreateAttemptUseCase) price(ctx context.Context, method attempt.Method) (attempt.Amount, map[string]any, error) {
	metadata := make(map[string]any)

	var fxQuote *pricing.FXQuote
	if method == attempt.MethodStripePix {
		quote, err := uc.fxSource.GetRate(ctx, "USD", "BRL")
		if err != nil {
			return attempt.Amount{}, nil, err
		}
		fxQuote = &quote
		metadata["fx_rate"] = quote.Rate
		metadata["fx_rate_with_margin"] = quote.RateWithMargin
		metadata["fx_source"] = string(quote.Source)
	}

	amount, err := pricing.Quote(uc.cfg.Pricing, method, uc.cfg.NetPartCents, fxQuote)
	if err != nil {
		return attempt.Amount{}, nil, err
	}
	return amount, metadata, nil
}

// createManual records a Zelle attempt. There is no provider callback to
// await: the attempt lands directly in its awaiting-manual-confirmation
// status and staff assert completion out of band.
func (uc *CreateAttemptUseCase) createManual(
	ctx context.Context,
	req CreateAttemptRequest,
	amount attempt.Amount,
	metadata map[string]any,
) (*CreateAttemptResponse, error) {
	a, err := attempt.New(req.LeadID, &req.ObligationID, req.Method, req.InstallmentPart, amount, attempt.StatusRedirectedToZelle)
	if err != nil {
		return nil, err
	}
	for k, v := range metadata {
		a.Metadata[k] = v
	}

	if err := uc.attemptRepo.Insert(ctx, a); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("attempt_id", a.ID.String()).
		Str("lead_id", req.LeadID.String()).
		Int("part", req.InstallmentPart).
		Msg("manual transfer attempt recorded")

	return &CreateAttemptResponse{
		Attempt: a,
		Action: Action{
			Type: ActionManual,
			Instructions: fmt.Sprintf("Send %s via Zelle to %s and reply with the confirmation number.",
				amount.String(), uc.cfg.ZelleRecipient),
		},
	}, nil
}

// createRedirect opens a provider session for a redirect method. The attempt
// row and the tracker are both durable before the redirect URL is handed
// back, so a crash mid-redirect leaves a recoverable trail. A session
// failure after the tracker was written rolls the tracker back: a dangling
// tracker must never survive a failed checkout.
func (uc *CreateAttemptUseCase) createRedirect(
	ctx context.Context,
	req CreateAttemptRequest,
	amount attempt.Amount,
	metadata map[string]any,
) (*CreateAttemptResponse, error) {
	gw, breaker, err := uc.gateways.Get(req.Method)
	if err != nil {
		return nil, err
	}

	a, err := attempt.New(req.LeadID, &req.ObligationID, req.Method, req.InstallmentPart, amount, attempt.StatusPending)
	if err != nil {
		return nil, err
	}
	for k, v := range metadata {
		a.Metadata[k] = v
	}

	if err := uc.attemptRepo.Insert(ctx, a); err != nil {
		return nil, err
	}

	key := tracker.Key{
		ContextID:            req.ContextID,
		LeadID:               req.LeadID,
		ContractAcceptanceID: req.ObligationID,
		InstallmentPart:      req.InstallmentPart,
	}

	var result *gateway.Result

	s := saga.New("open-checkout").
		AddStep(saga.Step{
			Name: "create-session",
			Execute: func(ctx context.Context) error {
				res, cbErr := breaker.Execute(func() (*gateway.Result, error) {
					return gw.CreateSession(ctx, gateway.CreateRequest{
						AttemptID: a.ID.String(),
						Method:    req.Method,
						Amount:    amount,
						Metadata:  a.Metadata,
					})
				})
				if cbErr != nil {
					return fmt.Errorf("create session: %w", cbErr)
				}
				result = res
				return nil
			},
		}).
		AddStep(saga.Step{
			Name: "write-tracker",
			Execute: func(ctx context.Context) error {
				// Overwrites any tracker left by a prior method choice under
				// the same slot: one in-flight checkout per slot.
				return uc.trackerStore.Put(ctx, key, tracker.New(req.Method, a.ID, result.SessionRef))
			},
			Compensate: func(ctx context.Context) error {
				return uc.trackerStore.Delete(ctx, key)
			},
		}).
		AddStep(saga.Step{
			Name: "attach-session-ref",
			Execute: func(ctx context.Context) error {
				a.SetSessionRef(result.SessionRef)
				return uc.attemptRepo.AttachSessionRef(ctx, a.ID, result.SessionRef)
			},
		})

	if err := s.Execute(ctx); err != nil {
		uc.logger.Error().Err(err).
			Str("attempt_id", a.ID.String()).
			Str("method", string(req.Method)).
			Msg("checkout session creation failed")
		return nil, err
	}

	if uc.events != nil {
		if err := uc.events.PublishAttemptCreated(ctx, a.ID.String(), map[string]any{
			"lead_id":     req.LeadID.String(),
			"method":      string(req.Method),
			"session_ref": result.SessionRef,
		}); err != nil {
			// The worker also sweeps pending attempts; a missed event only
			// delays provider-side refresh.
			uc.logger.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("failed to publish attempt event")
		}
	}

	uc.logger.Info().
		Str("attempt_id", a.ID.String()).
		Str("method", string(req.Method)).
		Str("session_ref", result.SessionRef).
		Msg("checkout session created")

	return &CreateAttemptResponse{
		Attempt: a,
		Action:  Action{Type: ActionRedirect, RedirectURL: result.RedirectURL},
	}, nil
}

// Abandon deletes the in-flight tracker for a slot. It is invoked when the
// user walks away from a pending redirect, and is idempotent: abandoning an
// empty slot is a no-op.
func (uc *CreateAttemptUseCase) Abandon(ctx context.Context, key tracker.Key) error {
	return uc.trackerStore.Delete(ctx, key)
}
