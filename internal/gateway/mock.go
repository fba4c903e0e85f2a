package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/google/uuid"
)

// MockGateway simulates a redirect provider for development and tests. It
// remembers the sessions it created and can be told what status to report.
type MockGateway struct {
	mu          sync.Mutex
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
	statuses    map[string]string
}

type MockGatewayOption func(*MockGateway)

func WithFailureRate(rate float64) MockGatewayOption {
	return func(g *MockGateway) { g.failureRate = rate }
}

func WithLatency(d time.Duration) MockGatewayOption {
	return func(g *MockGateway) { g.latency = d }
}

func WithTimeoutRate(rate float64) MockGatewayOption {
	return func(g *MockGateway) { g.timeoutRate = rate }
}

func NewMockGateway(name string, opts ...MockGatewayOption) *MockGateway {
	g := &MockGateway{
		name:        name,
		failureRate: 0.0,
		latency:     50 * time.Millisecond,
		timeoutRate: 0.0,
		statuses:    make(map[string]string),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) Name() string { return g.name }

// SetStatus scripts the status QueryStatus reports for a session.
func (g *MockGateway) SetStatus(sessionRef, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[sessionRef] = status
}

func (g *MockGateway) CreateSession(ctx context.Context, req CreateRequest) (*Result, error) {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < g.timeoutRate {
		return nil, domainErrors.ErrGatewayTimeout
	}
	if rand.Float64() < g.failureRate {
		return nil, fmt.Errorf("%s: simulated session failure for attempt %s: %w",
			g.name, req.AttemptID, domainErrors.ErrGatewayRejected)
	}

	ref := fmt.Sprintf("%s_sess_%s", g.name, uuid.New().String()[:8])
	g.mu.Lock()
	g.statuses[ref] = attempt.StatusPending
	g.mu.Unlock()

	return &Result{
		SessionRef:   ref,
		RedirectURL:  fmt.Sprintf("https://checkout.%s.example/%s", g.name, ref),
		NativeStatus: attempt.StatusPending,
	}, nil
}

func (g *MockGateway) QueryStatus(ctx context.Context, sessionRef string) (*Result, error) {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < g.timeoutRate {
		return nil, domainErrors.ErrGatewayTimeout
	}

	g.mu.Lock()
	status, ok := g.statuses[sessionRef]
	g.mu.Unlock()
	if !ok {
		return nil, domainErrors.ErrAttemptNotFound
	}
	return &Result{SessionRef: sessionRef, NativeStatus: status}, nil
}
