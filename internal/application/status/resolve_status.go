package status

import (
	"context"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/lead"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/google/uuid"
)

// ResolveStatusUseCase computes the canonical payment status for a lead. The
// dashboard, the success page, and the confirmation poller all go through
// here, so every surface sees the same resolution of the same attempt
// history. Nothing is cached: each call recomputes from current data.
type ResolveStatusUseCase struct {
	leadRepo    lead.Repository
	attemptRepo attempt.Repository
}

// NewResolveStatusUseCase creates a new ResolveStatusUseCase.
func NewResolveStatusUseCase(leadRepo lead.Repository, attemptRepo attempt.Repository) *ResolveStatusUseCase {
	return &ResolveStatusUseCase{leadRepo: leadRepo, attemptRepo: attemptRepo}
}

// Result pairs a part's resolution with the obligation it was resolved
// against.
type Result struct {
	Resolution         ledger.Resolution
	ActiveObligationID uuid.UUID
}

// Execute resolves one installment part from a fresh read of all attempts.
func (uc *ResolveStatusUseCase) Execute(ctx context.Context, leadID uuid.UUID, installmentPart int) (*Result, error) {
	activeID, err := uc.activeObligation(ctx, leadID)
	if err != nil {
		return nil, err
	}

	attempts, err := uc.attemptRepo.QueryByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	return &Result{
		Resolution:         ledger.Resolve(attempts, activeID, installmentPart),
		ActiveObligationID: activeID,
	}, nil
}

// Resolve is the narrow read used by the confirmation poller.
func (uc *ResolveStatusUseCase) Resolve(ctx context.Context, leadID uuid.UUID, installmentPart int) (ledger.Resolution, error) {
	res, err := uc.Execute(ctx, leadID, installmentPart)
	if err != nil {
		return ledger.Resolution{}, err
	}
	return res.Resolution, nil
}

// Summary resolves both installment parts in one attempt-store read.
func (uc *ResolveStatusUseCase) Summary(ctx context.Context, leadID uuid.UUID) (map[int]Result, error) {
	activeID, err := uc.activeObligation(ctx, leadID)
	if err != nil {
		return nil, err
	}

	attempts, err := uc.attemptRepo.QueryByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	out := make(map[int]Result, 2)
	for _, part := range []int{1, 2} {
		out[part] = Result{
			Resolution:         ledger.Resolve(attempts, activeID, part),
			ActiveObligationID: activeID,
		}
	}
	return out, nil
}

// activeObligation returns the lead's most recent contract acceptance, or
// uuid.Nil when the lead has never accepted.
func (uc *ResolveStatusUseCase) activeObligation(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error) {
	acceptances, err := uc.leadRepo.ListAcceptances(ctx, leadID)
	if err != nil {
		return uuid.Nil, err
	}
	active := lead.ActiveAcceptance(acceptances)
	if active == nil {
		return uuid.Nil, nil
	}
	return active.ID, nil
}
