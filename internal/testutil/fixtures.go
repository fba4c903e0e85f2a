package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/lead"
	"github.com/cassiomorais/leadpay/internal/domain/pricing"
)

// TestPricingConfig returns the fee schedule used across tests.
func TestPricingConfig() pricing.Config {
	return pricing.Config{
		CardFeePct:        0.039,
		CardFeeFixedCents: 30,
		FXMargin:          0.04,
		PixFeePct:         0.018,
	}
}

func NewTestLead(email, name string) *lead.Lead {
	now := time.Now()
	return &lead.Lead{
		ID:          uuid.New(),
		Email:       email,
		Name:        name,
		CountryHint: "BR",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewTestAcceptance(leadID uuid.UUID, acceptedAt time.Time) *lead.ContractAcceptance {
	return &lead.ContractAcceptance{
		ID:         uuid.New(),
		LeadID:     leadID,
		AcceptedAt: acceptedAt,
	}
}

func NewTestAttempt(
	leadID uuid.UUID,
	acceptanceID *uuid.UUID,
	method attempt.Method,
	installmentPart int,
	status string,
) *attempt.Attempt {
	return &attempt.Attempt{
		ID:                   uuid.New(),
		LeadID:               leadID,
		ContractAcceptanceID: acceptanceID,
		Method:               method,
		InstallmentPart:      installmentPart,
		Amount:               attempt.Amount{ValueCents: 199900, Currency: "USD"},
		Status:               status,
		Metadata:             make(map[string]any),
		CreatedAt:            time.Now(),
	}
}

func NewCompletedAttempt(
	leadID uuid.UUID,
	acceptanceID *uuid.UUID,
	method attempt.Method,
	installmentPart int,
) *attempt.Attempt {
	return NewTestAttempt(leadID, acceptanceID, method, installmentPart, attempt.StatusCompleted)
}
