package tracker

import (
	"context"
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/google/uuid"
)

// DefaultTTL bounds how long a redirect is considered in flight.
const DefaultTTL = time.Hour

// Key scopes a tracker to one browsing context and one
// (lead, obligation, installment part). Only one checkout can legitimately be
// in flight per slot at a time.
type Key struct {
	ContextID            string
	LeadID               uuid.UUID
	ContractAcceptanceID uuid.UUID
	InstallmentPart      int
}

// ReturnTracker is an ephemeral marker recording that a redirect-based
// checkout left the browsing context. It is a hint for the confirmation
// poller, never a source of truth: every read is re-validated against the
// ledger before being acted on.
type ReturnTracker struct {
	Method             attempt.Method
	AttemptID          uuid.UUID
	ProviderSessionRef string
	CreatedAt          time.Time
}

// New creates a tracker for an attempt about to redirect.
func New(method attempt.Method, attemptID uuid.UUID, sessionRef string) *ReturnTracker {
	return &ReturnTracker{
		Method:             method,
		AttemptID:          attemptID,
		ProviderSessionRef: sessionRef,
		CreatedAt:          time.Now(),
	}
}

// ExpiredAt reports whether the tracker is older than ttl at the given time.
func (t *ReturnTracker) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.CreatedAt) > ttl
}

// Store is the narrow read/write interface isolating tracker storage from
// business logic. Put overwrites any existing slot under the same key (last
// redirect wins); Delete is idempotent.
type Store interface {
	Put(ctx context.Context, key Key, t *ReturnTracker) error
	// Get returns nil with no error when the slot is empty or expired.
	Get(ctx context.Context, key Key) (*ReturnTracker, error)
	Delete(ctx context.Context, key Key) error
}
