package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
	"github.com/cassiomorais/leadpay/pkg/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the poller's position in the confirmation state machine.
type State string

const (
	StateIdle           State = "idle"
	StateCheckingReturn State = "checking_return"
	StatePolling        State = "polling"
	StateConfirmed      State = "confirmed"
	StateExpired        State = "expired"
	StateAbandoned      State = "abandoned"
)

// Terminal reports whether the state ends the poll.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateExpired || s == StateAbandoned
}

// StatusReader resolves the canonical status of a (lead, part) scope from a
// fresh attempt read.
type StatusReader interface {
	Resolve(ctx context.Context, leadID uuid.UUID, installmentPart int) (ledger.Resolution, error)
}

// Config bounds the poll.
type Config struct {
	// Interval between counted checks.
	Interval time.Duration
	// MaxAttempts is the counted-check budget; the immediate check on entry
	// is attempt one.
	MaxAttempts int
	// SoftRetries is the number of immediate, uncounted re-reads absorbing
	// provider-write propagation lag inside each counted check.
	SoftRetries uint
	// TrackerTTL is how old a tracker may be before it is discarded on entry.
	TrackerTTL time.Duration
}

// DefaultConfig returns the production polling budget: 30 checks 10s apart,
// one soft retry each, trackers valid for an hour.
func DefaultConfig() Config {
	return Config{
		Interval:    10 * time.Second,
		MaxAttempts: 30,
		SoftRetries: 1,
		TrackerTTL:  tracker.DefaultTTL,
	}
}

// Poller decides, on every page entry, whether to show method selection
// (Idle) or to await confirmation (Polling), and drives the poll to a
// terminal state.
//
// The poller assumes nothing about in-memory continuity: it may be
// constructed and entered fresh at any time (full reload, back/forward cache
// restore) and recovers everything it needs from the persisted tracker plus
// a fresh ledger read.
type Poller struct {
	cfg    Config
	store  tracker.Store
	reader StatusReader
	logger zerolog.Logger

	onTransition func(State)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithTransitionHook registers a callback fired on every state change.
func WithTransitionHook(fn func(State)) Option {
	return func(p *Poller) { p.onTransition = fn }
}

// New creates a poller in Idle.
func New(cfg Config, store tracker.Store, reader StatusReader, logger zerolog.Logger, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if cfg.TrackerTTL <= 0 {
		cfg.TrackerTTL = tracker.DefaultTTL
	}
	p := &Poller{
		cfg:    cfg,
		store:  store,
		reader: reader,
		logger: logger,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed when the poller reaches a terminal state.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Enter runs the CheckingReturn step. It consults the tracker for the slot:
// absent or older than the TTL means Idle (show method selection); otherwise
// the poll starts with an immediate counted check and continues in the
// background until a terminal state.
func (p *Poller) Enter(ctx context.Context, key tracker.Key) (State, error) {
	p.transition(StateCheckingReturn)

	t, err := p.store.Get(ctx, key)
	if err != nil {
		p.transition(StateIdle)
		return StateIdle, err
	}
	if t == nil {
		p.transition(StateIdle)
		return StateIdle, nil
	}
	if t.ExpiredAt(time.Now(), p.cfg.TrackerTTL) {
		// Stale hint from an old redirect; discard it rather than resurrect
		// a dead poll.
		if err := p.store.Delete(ctx, key); err != nil {
			p.logger.Warn().Err(err).Msg("failed to delete expired tracker")
		}
		p.transition(StateIdle)
		return StateIdle, nil
	}

	// Immediate check, attempt one of the budget.
	res, err := p.check(ctx, key)
	if err == nil && res.Status == ledger.StatusPaid {
		p.confirm(ctx, key)
		return StateConfirmed, nil
	}

	p.transition(StatePolling)

	// The loop owns its own lifetime: it must not die with the request
	// context that mounted the page.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(runCtx, key, p.cfg.MaxAttempts-1)

	return StatePolling, nil
}

// loop performs the remaining counted checks, one per interval.
func (p *Poller) loop(ctx context.Context, key tracker.Key, attemptsLeft int) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for n := 0; n < attemptsLeft; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := p.check(ctx, key)
		if err != nil {
			// Transient read errors consume the counted attempt once the
			// soft-retry budget is spent; the poll never retries forever.
			p.logger.Warn().Err(err).Int("check", n+2).Msg("ledger check failed")
			continue
		}
		if res.Status == ledger.StatusPaid {
			p.confirm(ctx, key)
			return
		}
	}

	p.expire(ctx, key)
}

// check reads the ledger once, with the configured soft retries.
func (p *Poller) check(ctx context.Context, key tracker.Key) (ledger.Resolution, error) {
	policy := retry.Policy{SoftRetries: p.cfg.SoftRetries}
	return retry.DoSoft(ctx, policy, func() (ledger.Resolution, error) {
		return p.reader.Resolve(ctx, key.LeadID, key.InstallmentPart)
	})
}

// confirm records payment confirmation: tracker deleted, poll over.
func (p *Poller) confirm(ctx context.Context, key tracker.Key) {
	if err := p.store.Delete(ctx, key); err != nil {
		p.logger.Warn().Err(err).Msg("failed to delete tracker after confirmation")
	}
	p.finish(StateConfirmed)
	p.logger.Info().Str("lead_id", key.LeadID.String()).Int("part", key.InstallmentPart).Msg("payment confirmed")
}

// expire ends the poll without resolution. The ledger is untouched; only the
// tracker is removed. The caller shows an unresolved state and the user
// checks back or contacts support.
func (p *Poller) expire(ctx context.Context, key tracker.Key) {
	if err := p.store.Delete(ctx, key); err != nil {
		p.logger.Warn().Err(err).Msg("failed to delete tracker after poll expiry")
	}
	p.finish(StateExpired)
	p.logger.Info().Str("lead_id", key.LeadID.String()).Int("part", key.InstallmentPart).Msg("confirmation poll expired")
}

// Abandon is called when the user explicitly picks a different method while
// a poll is active. The tracker is deleted so it cannot resurrect a stale
// poll later. Abandoning a poller that is not polling is a no-op.
func (p *Poller) Abandon(ctx context.Context, key tracker.Key) error {
	p.mu.Lock()
	if p.state != StatePolling {
		p.mu.Unlock()
		return nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	err := p.store.Delete(ctx, key)
	p.finish(StateAbandoned)
	return err
}

// Stop cancels the polling timer without changing state. Stopping an
// already-stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) transition(s State) {
	p.mu.Lock()
	changed := p.state != s
	p.state = s
	p.mu.Unlock()
	if changed && p.onTransition != nil {
		p.onTransition(s)
	}
}

// finish moves to a terminal state exactly once.
func (p *Poller) finish(s State) {
	p.mu.Lock()
	if p.state.Terminal() {
		p.mu.Unlock()
		return
	}
	p.state = s
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	close(p.done)
	p.mu.Unlock()
	if p.onTransition != nil {
		p.onTransition(s)
	}
}
