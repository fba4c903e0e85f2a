package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/cassiomorais/leadpay/internal/gateway"
	"github.com/cassiomorais/leadpay/pkg/retry"
)

// RefreshAttemptUseCase pulls the provider-native status of an attempt and
// patches it into the attempt store. It is the out-of-band confirmation
// channel for providers that lack webhooks (and a safety net for the ones
// that have them): the ledger itself never calls a provider, so this refresh
// is what moves a row from pending to a completed status.
type RefreshAttemptUseCase struct {
	attemptRepo attempt.Repository
	gateways    *gateway.Factory
	retryPolicy retry.Policy
	logger      zerolog.Logger
}

// NewRefreshAttemptUseCase creates a new RefreshAttemptUseCase.
func NewRefreshAttemptUseCase(
	attemptRepo attempt.Repository,
	gateways *gateway.Factory,
	retryPolicy retry.Policy,
	logger zerolog.Logger,
) *RefreshAttemptUseCase {
	return &RefreshAttemptUseCase{
		attemptRepo: attemptRepo,
		gateways:    gateways,
		retryPolicy: retryPolicy,
		logger:      logger,
	}
}

// Execute refreshes one attempt. Attempts without a session reference,
// manual-method attempts, and attempts already in a completed status are
// skipped without error: the refresh only ever moves a row forward.
func (uc *RefreshAttemptUseCase) Execute(ctx context.Context, attemptID uuid.UUID) error {
	a, err := uc.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}

	if a.ProviderSessionRef == nil || !a.Method.IsRedirect() {
		return nil
	}
	if ledger.Classify(a.Status) == ledger.ClassCompleted {
		return nil
	}

	gw, breaker, err := uc.gateways.Get(a.Method)
	if err != nil {
		return err
	}

	res, err := retry.DoWithResult(ctx, uc.retryPolicy, func() (*gateway.Result, error) {
		return breaker.Execute(func() (*gateway.Result, error) {
			return gw.QueryStatus(ctx, *a.ProviderSessionRef)
		})
	})
	if err != nil {
		return err
	}

	if res.NativeStatus == "" || res.NativeStatus == a.Status {
		return nil
	}

	if err := uc.attemptRepo.UpdateStatus(ctx, a.ID, res.NativeStatus, map[string]any{
		"reconciled_at": time.Now().UTC().Format(time.RFC3339),
		"reconciled_by": gw.Name(),
	}); err != nil {
		return err
	}

	uc.logger.Info().
		Str("attempt_id", a.ID.String()).
		Str("from", a.Status).
		Str("to", res.NativeStatus).
		Msg("attempt status reconciled")
	return nil
}

// Sweep refreshes up to limit pending attempts. It backs the periodic sweep
// that catches attempts whose creation event was lost.
func (uc *RefreshAttemptUseCase) Sweep(ctx context.Context, limit int) (int, error) {
	pending, err := uc.attemptRepo.QueryPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, a := range pending {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if err := uc.Execute(ctx, a.ID); err != nil {
			uc.logger.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("sweep refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
