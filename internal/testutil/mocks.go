package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/domain/lead"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/cassiomorais/leadpay/internal/domain/pricing"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
)

// --- Lead Repository Mock ---

// MockLeadRepository is a mock implementation of lead.Repository.
type MockLeadRepository struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]*lead.Lead
	acceptances map[uuid.UUID]*lead.ContractAcceptance

	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*lead.Lead, error)
	UpdateTaxIDFunc     func(ctx context.Context, id uuid.UUID, taxID string) error
	GetAcceptanceFunc   func(ctx context.Context, id uuid.UUID) (*lead.ContractAcceptance, error)
	ListAcceptancesFunc func(ctx context.Context, leadID uuid.UUID) ([]*lead.ContractAcceptance, error)
}

func NewMockLeadRepository() *MockLeadRepository {
	return &MockLeadRepository{
		leads:       make(map[uuid.UUID]*lead.Lead),
		acceptances: make(map[uuid.UUID]*lead.ContractAcceptance),
	}
}

// AddLead seeds a lead into the mock store.
func (m *MockLeadRepository) AddLead(l *lead.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = l
}

// AddAcceptance seeds a contract acceptance into the mock store.
func (m *MockLeadRepository) AddAcceptance(a *lead.ContractAcceptance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptances[a.ID] = a
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, domainErrors.ErrLeadNotFound
	}
	return l, nil
}

func (m *MockLeadRepository) UpdateTaxID(ctx context.Context, id uuid.UUID, taxID string) error {
	if m.UpdateTaxIDFunc != nil {
		return m.UpdateTaxIDFunc(ctx, id, taxID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return domainErrors.ErrLeadNotFound
	}
	l.SetTaxID(taxID)
	return nil
}

func (m *MockLeadRepository) GetAcceptance(ctx context.Context, id uuid.UUID) (*lead.ContractAcceptance, error) {
	if m.GetAcceptanceFunc != nil {
		return m.GetAcceptanceFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.acceptances[id]
	if !ok {
		return nil, domainErrors.ErrObligationNotFound
	}
	return a, nil
}

func (m *MockLeadRepository) ListAcceptances(ctx context.Context, leadID uuid.UUID) ([]*lead.ContractAcceptance, error) {
	if m.ListAcceptancesFunc != nil {
		return m.ListAcceptancesFunc(ctx, leadID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*lead.ContractAcceptance
	for _, a := range m.acceptances {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- Attempt Repository Mock ---

// MockAttemptRepository is a mock implementation of attempt.Repository.
type MockAttemptRepository struct {
	mu       sync.Mutex
	attempts []*attempt.Attempt

	InsertFunc            func(ctx context.Context, a *attempt.Attempt) error
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*attempt.Attempt, error)
	QueryPendingFunc      func(ctx context.Context, limit int) ([]*attempt.Attempt, error)
	QueryByLeadFunc       func(ctx context.Context, leadID uuid.UUID) ([]*attempt.Attempt, error)
	QueryBySessionRefFunc func(ctx context.Context, ref string) (*attempt.Attempt, error)
	AttachSessionRefFunc  func(ctx context.Context, id uuid.UUID, ref string) error
	UpdateStatusFunc      func(ctx context.Context, id uuid.UUID, status string, metadata map[string]any) error
}

func NewMockAttemptRepository() *MockAttemptRepository {
	return &MockAttemptRepository{}
}

// Add seeds an attempt into the mock store.
func (m *MockAttemptRepository) Add(a *attempt.Attempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
}

// All returns every attempt currently stored.
func (m *MockAttemptRepository) All() []*attempt.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*attempt.Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

func (m *MockAttemptRepository) Insert(ctx context.Context, a *attempt.Attempt) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, a)
	}
	m.Add(a)
	return nil
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*attempt.Attempt, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domainErrors.ErrAttemptNotFound
}

func (m *MockAttemptRepository) QueryPending(ctx context.Context, limit int) ([]*attempt.Attempt, error) {
	if m.QueryPendingFunc != nil {
		return m.QueryPendingFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*attempt.Attempt
	for _, a := range m.attempts {
		if a.Status == attempt.StatusPending && a.ProviderSessionRef != nil {
			out = append(out, a)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockAttemptRepository) QueryByLead(ctx context.Context, leadID uuid.UUID) ([]*attempt.Attempt, error) {
	if m.QueryByLeadFunc != nil {
		return m.QueryByLeadFunc(ctx, leadID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*attempt.Attempt
	for _, a := range m.attempts {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAttemptRepository) QueryBySessionRef(ctx context.Context, ref string) (*attempt.Attempt, error) {
	if m.QueryBySessionRefFunc != nil {
		return m.QueryBySessionRefFunc(ctx, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ProviderSessionRef != nil && *a.ProviderSessionRef == ref {
			return a, nil
		}
	}
	return nil, nil
}

func (m *MockAttemptRepository) AttachSessionRef(ctx context.Context, id uuid.UUID, ref string) error {
	if m.AttachSessionRefFunc != nil {
		return m.AttachSessionRefFunc(ctx, id, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID == id {
			a.SetSessionRef(ref)
			return nil
		}
	}
	return domainErrors.ErrAttemptNotFound
}

func (m *MockAttemptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, metadata map[string]any) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, metadata)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID == id {
			a.Status = status
			for k, v := range metadata {
				a.Metadata[k] = v
			}
			return nil
		}
	}
	return domainErrors.ErrAttemptNotFound
}

// --- Tracker Store Mock ---

// MockTrackerStore is an in-memory implementation of tracker.Store.
type MockTrackerStore struct {
	mu       sync.Mutex
	trackers map[tracker.Key]*tracker.ReturnTracker

	PutFunc    func(ctx context.Context, key tracker.Key, t *tracker.ReturnTracker) error
	GetFunc    func(ctx context.Context, key tracker.Key) (*tracker.ReturnTracker, error)
	DeleteFunc func(ctx context.Context, key tracker.Key) error
}

func NewMockTrackerStore() *MockTrackerStore {
	return &MockTrackerStore{trackers: make(map[tracker.Key]*tracker.ReturnTracker)}
}

func (m *MockTrackerStore) Put(ctx context.Context, key tracker.Key, t *tracker.ReturnTracker) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackers[key] = t
	return nil
}

func (m *MockTrackerStore) Get(ctx context.Context, key tracker.Key) (*tracker.ReturnTracker, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackers[key], nil
}

func (m *MockTrackerStore) Delete(ctx context.Context, key tracker.Key) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trackers, key)
	return nil
}

// Len reports how many trackers are currently stored.
func (m *MockTrackerStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trackers)
}

// --- Status Reader Mock ---

// MockStatusReader is a scriptable confirm.StatusReader. Resolutions are
// returned in order; the last one repeats once the script is exhausted.
type MockStatusReader struct {
	mu          sync.Mutex
	resolutions []ledger.Resolution
	calls       int

	ResolveFunc func(ctx context.Context, leadID uuid.UUID, installmentPart int) (ledger.Resolution, error)
}

func NewMockStatusReader(resolutions ...ledger.Resolution) *MockStatusReader {
	return &MockStatusReader{resolutions: resolutions}
}

func (m *MockStatusReader) Resolve(ctx context.Context, leadID uuid.UUID, installmentPart int) (ledger.Resolution, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, leadID, installmentPart)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.resolutions) == 0 {
		return ledger.Resolution{Status: ledger.StatusUnpaid}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.resolutions) {
		idx = len(m.resolutions) - 1
	}
	return m.resolutions[idx], nil
}

// Calls reports how many times Resolve ran.
func (m *MockStatusReader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- FX Source Mock ---

// MockFXSource is a mock implementation of checkout.FXRateSource.
type MockFXSource struct {
	Quote       pricing.FXQuote
	Err         error
	GetRateFunc func(ctx context.Context, base, quote string) (pricing.FXQuote, error)
}

func NewMockFXSource(rate, margin float64) *MockFXSource {
	return &MockFXSource{Quote: pricing.NewFXQuote("USD", "BRL", rate, margin, pricing.SourceLive)}
}

func (m *MockFXSource) GetRate(ctx context.Context, base, quote string) (pricing.FXQuote, error) {
	if m.GetRateFunc != nil {
		return m.GetRateFunc(ctx, base, quote)
	}
	if m.Err != nil {
		return pricing.FXQuote{}, m.Err
	}
	return m.Quote, nil
}

// --- Event Publisher Mock ---

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishAttemptCreatedFunc func(ctx context.Context, attemptID string, payload map[string]any) error
}

// PublishedEvent is one recorded publish call.
type PublishedEvent struct {
	AttemptID string
	Payload   map[string]any
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishAttemptCreated(ctx context.Context, attemptID string, payload map[string]any) error {
	if m.PublishAttemptCreatedFunc != nil {
		return m.PublishAttemptCreatedFunc(ctx, attemptID, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{AttemptID: attemptID, Payload: payload})
	return nil
}

// Events returns every recorded publish call.
func (m *MockEventPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}
