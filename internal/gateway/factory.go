package gateway

import (
	"fmt"
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Factory maps redirect methods to gateways and guards each with a circuit
// breaker. Zelle never registers here: manual transfers have no provider
// session.
type Factory struct {
	gateways        map[attempt.Method]Gateway
	circuitBreakers map[attempt.Method]*gobreaker.CircuitBreaker[*Result]
}

func NewFactory() *Factory {
	return &Factory{
		gateways:        make(map[attempt.Method]Gateway),
		circuitBreakers: make(map[attempt.Method]*gobreaker.CircuitBreaker[*Result]),
	}
}

// NewMockFactory registers mock gateways for every redirect method.
func NewMockFactory() *Factory {
	f := NewFactory()
	f.Register(attempt.MethodStripeCard, NewMockGateway("stripe_card", WithLatency(100*time.Millisecond)))
	f.Register(attempt.MethodStripePix, NewMockGateway("stripe_pix", WithLatency(150*time.Millisecond)))
	f.Register(attempt.MethodParcelow, NewMockGateway("parcelow", WithLatency(200*time.Millisecond)))
	return f
}

func (f *Factory) Register(method attempt.Method, g Gateway) {
	f.gateways[method] = g
	f.circuitBreakers[method] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        g.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

func (f *Factory) Get(method attempt.Method) (Gateway, *gobreaker.CircuitBreaker[*Result], error) {
	g, ok := f.gateways[method]
	if !ok {
		return nil, nil, fmt.Errorf("method %q: %w", method, domainErrors.ErrGatewayNotFound)
	}
	return g, f.circuitBreakers[method], nil
}
