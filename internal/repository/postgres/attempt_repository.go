package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
)

// AttemptRepository implements attempt.Repository using PostgreSQL.
// The table is append-only: rows are inserted and status-patched, never
// deleted, so a full per-lead read always sees the complete history.
type AttemptRepository struct {
	db DBTX
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Insert appends a new attempt row.
func (r *AttemptRepository) Insert(ctx context.Context, a *attempt.Attempt) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	amountStr := centsToNumeric(a.Amount.ValueCents)

	_, err = r.db.Exec(ctx,
		`INSERT INTO payment_attempts
		 (id, lead_id, contract_acceptance_id, method, installment_part,
		  amount, currency, status, provider_session_ref, metadata, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.LeadID, a.ContractAcceptanceID, string(a.Method), a.InstallmentPart,
		amountStr, a.Amount.Currency, a.Status, a.ProviderSessionRef, metadata, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// GetByID retrieves a single attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*attempt.Attempt, error) {
	return r.scanAttempt(r.db.QueryRow(ctx,
		`SELECT id, lead_id, contract_acceptance_id, method, installment_part,
		        amount, currency, status, provider_session_ref, metadata, created_at
		 FROM payment_attempts WHERE id = $1`, id))
}

// QueryPending retrieves attempts still in their initial status that carry a
// session reference, oldest first. These are the rows the reconciliation
// worker refreshes against the provider.
func (r *AttemptRepository) QueryPending(ctx context.Context, limit int) ([]*attempt.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, lead_id, contract_acceptance_id, method, installment_part,
		        amount, currency, status, provider_session_ref, metadata, created_at
		 FROM payment_attempts
		 WHERE status = 'pending' AND provider_session_ref IS NOT NULL
		 ORDER BY created_at ASC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*attempt.Attempt
	for rows.Next() {
		a, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// QueryByLead retrieves every attempt ever recorded for a lead, oldest first.
func (r *AttemptRepository) QueryByLead(ctx context.Context, leadID uuid.UUID) ([]*attempt.Attempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, lead_id, contract_acceptance_id, method, installment_part,
		        amount, currency, status, provider_session_ref, metadata, created_at
		 FROM payment_attempts WHERE lead_id = $1 ORDER BY created_at ASC`, leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*attempt.Attempt
	for rows.Next() {
		a, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// QueryBySessionRef retrieves the attempt holding a provider session
// reference, or nil when no attempt carries it.
func (r *AttemptRepository) QueryBySessionRef(ctx context.Context, ref string) (*attempt.Attempt, error) {
	a, err := r.scanAttempt(r.db.QueryRow(ctx,
		`SELECT id, lead_id, contract_acceptance_id, method, installment_part,
		        amount, currency, status, provider_session_ref, metadata, created_at
		 FROM payment_attempts WHERE provider_session_ref = $1`, ref))
	if err != nil {
		if err == domainErrors.ErrAttemptNotFound {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// AttachSessionRef records the provider session reference on an attempt.
func (r *AttemptRepository) AttachSessionRef(ctx context.Context, id uuid.UUID, ref string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payment_attempts SET provider_session_ref = $1 WHERE id = $2`, ref, id,
	)
	if err != nil {
		return fmt.Errorf("attach session ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAttemptNotFound
	}
	return nil
}

// UpdateStatus overwrites the provider-native status of one attempt and
// merges any confirmation metadata into the stored blob.
func (r *AttemptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, metadata map[string]any) error {
	var patch []byte
	if len(metadata) > 0 {
		var err error
		patch, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	} else {
		patch = []byte("{}")
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE payment_attempts SET status = $1, metadata = metadata || $2::jsonb WHERE id = $3`,
		status, patch, id,
	)
	if err != nil {
		return fmt.Errorf("update attempt status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAttemptNotFound
	}
	return nil
}

// --- scanning helpers ---

func (r *AttemptRepository) scanAttempt(s scanner) (*attempt.Attempt, error) {
	a := &attempt.Attempt{Metadata: make(map[string]any)}
	var (
		method    string
		amountStr string
		metadata  []byte
	)
	err := s.Scan(
		&a.ID, &a.LeadID, &a.ContractAcceptanceID, &method, &a.InstallmentPart,
		&amountStr, &a.Amount.Currency, &a.Status, &a.ProviderSessionRef, &metadata, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("scan attempt: %w", err)
	}

	cents, err := numericToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	a.Amount.ValueCents = cents
	a.Method = attempt.Method(method)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal attempt metadata: %w", err)
		}
	}
	return a, nil
}
