package lead

import (
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/google/uuid"
)

// Lead represents the paying party, captured by the lead-capture funnel.
// CountryHint only drives default-currency UX, never authorization.
type Lead struct {
	ID          uuid.UUID
	Email       string
	Name        string
	CountryHint string
	// TaxID is the national tax id some gateways require (e.g. CPF for the
	// installment gateway). Nil until the lead supplies it.
	TaxID     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContractAcceptance is the commercial obligation a payment discharges.
// One lead may accept the contract more than once over time (renegotiation);
// the most recent acceptance is the active obligation for new checkouts.
type ContractAcceptance struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	AcceptedAt time.Time
}

// NewLead creates a new lead.
func NewLead(email, name, countryHint string) (*Lead, error) {
	if email == "" {
		return nil, errors.NewValidationError("email", "cannot be empty")
	}
	now := time.Now()
	return &Lead{
		ID:          uuid.New(),
		Email:       email,
		Name:        name,
		CountryHint: countryHint,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetTaxID records the lead's national tax id.
func (l *Lead) SetTaxID(taxID string) {
	l.TaxID = &taxID
	l.UpdatedAt = time.Now()
}

// HasTaxID reports whether a non-empty tax id is on file.
func (l *Lead) HasTaxID() bool {
	return l.TaxID != nil && *l.TaxID != ""
}

// ActiveAcceptance returns the most recent acceptance from the given set, or
// nil if the lead has never accepted the contract.
func ActiveAcceptance(acceptances []*ContractAcceptance) *ContractAcceptance {
	var active *ContractAcceptance
	for _, a := range acceptances {
		if active == nil || a.AcceptedAt.After(active.AcceptedAt) {
			active = a
		}
	}
	return active
}
