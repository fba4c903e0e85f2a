package gateway

import (
	"context"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
)

// Result is what a provider hands back. CreateSession fills SessionRef and
// RedirectURL; QueryStatus fills NativeStatus. Payloads beyond these fields
// are opaque to the core.
type Result struct {
	SessionRef   string
	RedirectURL  string
	NativeStatus string
}

// Gateway abstracts one payment provider.
type Gateway interface {
	// Name returns the provider name.
	Name() string
	// CreateSession opens a checkout session and returns the redirect target.
	CreateSession(ctx context.Context, req CreateRequest) (*Result, error)
	// QueryStatus fetches the provider-native status of a session. The
	// returned string feeds the ledger's fail-closed classification.
	QueryStatus(ctx context.Context, sessionRef string) (*Result, error)
}

// CreateRequest carries everything a provider needs to open a session.
type CreateRequest struct {
	AttemptID string
	Method    attempt.Method
	Amount    attempt.Amount
	Metadata  map[string]any
}
