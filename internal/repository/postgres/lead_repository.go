package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/domain/lead"
)

// LeadRepository implements lead.Repository using PostgreSQL.
type LeadRepository struct {
	db DBTX
}

// NewLeadRepository creates a new LeadRepository.
func NewLeadRepository(db DBTX) *LeadRepository {
	return &LeadRepository{db: db}
}

// GetByID retrieves a lead by its ID.
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	l := &lead.Lead{}
	err := r.db.QueryRow(ctx,
		`SELECT id, email, name, country_hint, tax_id, created_at, updated_at
		 FROM leads WHERE id = $1`, id,
	).Scan(&l.ID, &l.Email, &l.Name, &l.CountryHint, &l.TaxID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrLeadNotFound
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	return l, nil
}

// UpdateTaxID records a tax id supplied during checkout.
func (r *LeadRepository) UpdateTaxID(ctx context.Context, id uuid.UUID, taxID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET tax_id = $1, updated_at = NOW() WHERE id = $2`, taxID, id,
	)
	if err != nil {
		return fmt.Errorf("update lead tax id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrLeadNotFound
	}
	return nil
}

// GetAcceptance retrieves a single contract acceptance by ID.
func (r *LeadRepository) GetAcceptance(ctx context.Context, id uuid.UUID) (*lead.ContractAcceptance, error) {
	a := &lead.ContractAcceptance{}
	err := r.db.QueryRow(ctx,
		`SELECT id, lead_id, accepted_at FROM contract_acceptances WHERE id = $1`, id,
	).Scan(&a.ID, &a.LeadID, &a.AcceptedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrObligationNotFound
		}
		return nil, fmt.Errorf("scan acceptance: %w", err)
	}
	return a, nil
}

// ListAcceptances retrieves all contract acceptances for a lead, newest first.
func (r *LeadRepository) ListAcceptances(ctx context.Context, leadID uuid.UUID) ([]*lead.ContractAcceptance, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, lead_id, accepted_at
		 FROM contract_acceptances WHERE lead_id = $1 ORDER BY accepted_at DESC`, leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list acceptances: %w", err)
	}
	defer rows.Close()

	var acceptances []*lead.ContractAcceptance
	for rows.Next() {
		a := &lead.ContractAcceptance{}
		if err := rows.Scan(&a.ID, &a.LeadID, &a.AcceptedAt); err != nil {
			return nil, fmt.Errorf("scan acceptance: %w", err)
		}
		acceptances = append(acceptances, a)
	}
	return acceptances, rows.Err()
}
