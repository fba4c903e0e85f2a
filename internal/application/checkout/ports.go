package checkout

import (
	"context"

	"github.com/cassiomorais/leadpay/internal/domain/pricing"
)

// FXRateSource provides margin-adjusted FX quotes. PIX is the only method
// that needs one.
type FXRateSource interface {
	GetRate(ctx context.Context, base, quote string) (pricing.FXQuote, error)
}

// EventPublisher announces created attempts to the reconciliation worker.
type EventPublisher interface {
	PublishAttemptCreated(ctx context.Context, attemptID string, payload map[string]any) error
}
