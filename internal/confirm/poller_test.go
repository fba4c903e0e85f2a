package confirm_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/leadpay/internal/confirm"
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
	"github.com/cassiomorais/leadpay/internal/testutil"
)

func fastConfig() confirm.Config {
	return confirm.Config{
		Interval:    10 * time.Millisecond,
		MaxAttempts: 3,
		SoftRetries: 0,
		TrackerTTL:  time.Hour,
	}
}

func testKey() tracker.Key {
	return tracker.Key{
		ContextID:            "ctx-1",
		LeadID:               uuid.New(),
		ContractAcceptanceID: uuid.New(),
		InstallmentPart:      1,
	}
}

func seedTracker(t *testing.T, store *testutil.MockTrackerStore, key tracker.Key) {
	t.Helper()
	rt := tracker.New(attempt.MethodStripeCard, uuid.New(), "cs_1")
	require.NoError(t, store.Put(context.Background(), key, rt))
}

func paid() ledger.Resolution {
	return ledger.Resolution{Status: ledger.StatusPaid}
}

func pending() ledger.Resolution {
	return ledger.Resolution{Status: ledger.StatusPendingConfirmation}
}

func TestEnter_NoTracker_Idle(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	reader := testutil.NewMockStatusReader()
	p := confirm.New(fastConfig(), store, reader, zerolog.Nop())

	state, err := p.Enter(context.Background(), testKey())
	require.NoError(t, err)
	assert.Equal(t, confirm.StateIdle, state)
	assert.Equal(t, 0, reader.Calls())
}

func TestEnter_ExpiredTracker_DiscardedAndIdle(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	rt := tracker.New(attempt.MethodStripeCard, uuid.New(), "cs_1")
	rt.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Put(context.Background(), key, rt))

	p := confirm.New(fastConfig(), store, testutil.NewMockStatusReader(), zerolog.Nop())

	state, err := p.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StateIdle, state)
	assert.Equal(t, 0, store.Len())
}

func TestEnter_ImmediatePaid_Confirmed(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	seedTracker(t, store, key)

	p := confirm.New(fastConfig(), store, testutil.NewMockStatusReader(paid()), zerolog.Nop())

	state, err := p.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StateConfirmed, state)
	assert.Equal(t, 0, store.Len())
}

func TestEnter_PaidOnLaterCheck_Confirmed(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	seedTracker(t, store, key)

	reader := testutil.NewMockStatusReader(pending(), pending(), paid())
	p := confirm.New(fastConfig(), store, reader, zerolog.Nop())

	state, err := p.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatePolling, state)

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not finish")
	}
	assert.Equal(t, confirm.StateConfirmed, p.State())
	assert.Equal(t, 0, store.Len())
}

func TestPoller_BudgetExhausted_Expired(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	seedTracker(t, store, key)

	reader := testutil.NewMockStatusReader(pending())
	p := confirm.New(fastConfig(), store, reader, zerolog.Nop())

	state, err := p.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatePolling, state)

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not finish")
	}
	assert.Equal(t, confirm.StateExpired, p.State())
	assert.Equal(t, 3, reader.Calls())
	assert.Equal(t, 0, store.Len())
}

func TestPoller_SurvivesRequestContextCancel(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	seedTracker(t, store, key)

	reader := testutil.NewMockStatusReader(pending(), paid())
	p := confirm.New(fastConfig(), store, reader, zerolog.Nop())

	reqCtx, cancel := context.WithCancel(context.Background())
	state, err := p.Enter(reqCtx, key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatePolling, state)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller died with the request context")
	}
	assert.Equal(t, confirm.StateConfirmed, p.State())
}

func TestAbandon_WhilePolling(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	seedTracker(t, store, key)

	cfg := fastConfig()
	cfg.Interval = time.Hour
	p := confirm.New(cfg, store, testutil.NewMockStatusReader(pending()), zerolog.Nop())

	state, err := p.Enter(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, confirm.StatePolling, state)

	require.NoError(t, p.Abandon(context.Background(), key))
	assert.Equal(t, confirm.StateAbandoned, p.State())
	assert.Equal(t, 0, store.Len())
}

func TestAbandon_WhenIdle_NoOp(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	p := confirm.New(fastConfig(), store, testutil.NewMockStatusReader(), zerolog.Nop())

	require.NoError(t, p.Abandon(context.Background(), testKey()))
	assert.Equal(t, confirm.StateIdle, p.State())
}

func TestStop_Idempotent(t *testing.T) {
	p := confirm.New(fastConfig(), testutil.NewMockTrackerStore(), testutil.NewMockStatusReader(), zerolog.Nop())
	p.Stop()
	p.Stop()
}

func TestTransitionHook(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	key := testKey()
	seedTracker(t, store, key)

	var seen []confirm.State
	p := confirm.New(fastConfig(), store, testutil.NewMockStatusReader(paid()), zerolog.Nop(),
		confirm.WithTransitionHook(func(s confirm.State) { seen = append(seen, s) }))

	_, err := p.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []confirm.State{confirm.StateCheckingReturn, confirm.StateConfirmed}, seen)
}
