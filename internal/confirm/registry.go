package confirm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/leadpay/internal/domain/tracker"
)

// Registry owns at most one live poller per checkout slot. A confirmation
// page that reloads re-enters the same poller instead of stacking a second
// polling loop on the slot.
type Registry struct {
	cfg    Config
	store  tracker.Store
	reader StatusReader
	logger zerolog.Logger

	mu    sync.Mutex
	slots map[string]*slotEntry
}

// slotEntry serializes entries into one slot. Two tabs hitting the same slot
// at once must not each start a polling loop, so Enter holds the slot lock
// across the whole CheckingReturn step. Entries stay in the map for the life
// of the registry; a nil poller means the slot is idle.
type slotEntry struct {
	mu     sync.Mutex
	poller *Poller
}

// NewRegistry creates a poller registry.
func NewRegistry(cfg Config, store tracker.Store, reader StatusReader, logger zerolog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		store:  store,
		reader: reader,
		logger: logger,
		slots:  make(map[string]*slotEntry),
	}
}

func slotKey(key tracker.Key) string {
	return fmt.Sprintf("%s:%s:%s:%d",
		key.ContextID, key.LeadID, key.ContractAcceptanceID, key.InstallmentPart)
}

func (r *Registry) slot(key tracker.Key) *slotEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.slots[slotKey(key)]
	if !ok {
		e = &slotEntry{}
		r.slots[slotKey(key)] = e
	}
	return e
}

// Enter returns the state of the slot's poller, starting one when none is
// live. A poller that already reached a terminal state is evicted and
// replaced, so a fresh redirect on the same slot gets a fresh confirmation
// window. Concurrent entries into the same slot are serialized: the second
// caller waits for the first and then re-enters whatever it left behind.
func (r *Registry) Enter(ctx context.Context, key tracker.Key) (State, error) {
	e := r.slot(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.poller != nil {
		// Only an active poll occupies the slot; Idle and terminal pollers
		// are evicted so a fresh redirect starts a fresh window.
		if s := e.poller.State(); s == StatePolling {
			return s, nil
		}
		e.poller = nil
	}

	p := New(r.cfg, r.store, r.reader, r.logger)
	e.poller = p
	state, err := p.Enter(ctx, key)
	if state != StatePolling {
		e.poller = nil
	}
	return state, err
}

// State reports the slot's current poller state without starting anything.
// Slots with no live poller report Idle.
func (r *Registry) State(key tracker.Key) State {
	r.mu.Lock()
	e, ok := r.slots[slotKey(key)]
	r.mu.Unlock()
	if !ok {
		return StateIdle
	}
	e.mu.Lock()
	p := e.poller
	e.mu.Unlock()
	if p == nil {
		return StateIdle
	}
	return p.State()
}

// Abandon cancels the slot's poller and deletes its tracker.
func (r *Registry) Abandon(ctx context.Context, key tracker.Key) error {
	e := r.slot(key)
	e.mu.Lock()
	p := e.poller
	e.poller = nil
	e.mu.Unlock()

	if p == nil {
		// No live poller: still clear any tracker so the slot is clean.
		return r.store.Delete(ctx, key)
	}
	return p.Abandon(ctx, key)
}

// StopAll halts every live poller. Used on shutdown; trackers stay in place
// so a restarted instance can resume from them.
func (r *Registry) StopAll() {
	r.mu.Lock()
	entries := make([]*slotEntry, 0, len(r.slots))
	for _, e := range r.slots {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.poller != nil {
			e.poller.Stop()
			e.poller = nil
		}
		e.mu.Unlock()
	}
}
