package lead

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for lead persistence. Leads are owned by
// the lead-capture subsystem; this core only reads them.
type Repository interface {
	// GetByID retrieves a lead by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Lead, error)

	// UpdateTaxID records a tax id supplied during checkout
	UpdateTaxID(ctx context.Context, id uuid.UUID, taxID string) error

	// GetAcceptance retrieves a single contract acceptance by ID
	GetAcceptance(ctx context.Context, id uuid.UUID) (*ContractAcceptance, error)

	// ListAcceptances retrieves all contract acceptances for a lead,
	// newest first
	ListAcceptances(ctx context.Context, leadID uuid.UUID) ([]*ContractAcceptance, error)
}
