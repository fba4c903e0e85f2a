package attempt

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for attempt persistence.
// The store is append-only from the checkout's point of view: Insert adds
// rows, UpdateStatus is reserved for the provider confirmation channel, and
// nothing ever deletes.
type Repository interface {
	// Insert appends a new attempt
	Insert(ctx context.Context, a *Attempt) error

	// GetByID retrieves a single attempt
	GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error)

	// QueryByLead retrieves every attempt ever recorded for a lead
	QueryByLead(ctx context.Context, leadID uuid.UUID) ([]*Attempt, error)

	// QueryBySessionRef retrieves the attempt holding a provider session
	// reference, or nil when no attempt carries it
	QueryBySessionRef(ctx context.Context, ref string) (*Attempt, error)

	// QueryPending retrieves attempts still awaiting provider confirmation
	// that carry a session reference, oldest first
	QueryPending(ctx context.Context, limit int) ([]*Attempt, error)

	// AttachSessionRef records the provider session reference on an attempt
	// immediately after the session is created
	AttachSessionRef(ctx context.Context, id uuid.UUID, ref string) error

	// UpdateStatus overwrites the provider-native status of one attempt.
	// Only the out-of-band confirmation channel calls this.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, metadata map[string]any) error
}
