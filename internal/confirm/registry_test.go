package confirm_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/leadpay/internal/confirm"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/cassiomorais/leadpay/internal/testutil"
)

func TestRegistry_Enter_IdleSlotNotOccupied(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	r := confirm.NewRegistry(fastConfig(), store, testutil.NewMockStatusReader(), zerolog.Nop())
	key := testKey()

	state, err := r.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StateIdle, state)

	// A tracker written after the idle entry must start a real poll.
	seedTracker(t, store, key)
	state, err = r.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatePolling, state)
}

func TestRegistry_Enter_ReentersLivePoller(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	reader := testutil.NewMockStatusReader(
	// Never resolves within this test's window.
	)
	cfg := fastConfig()
	cfg.Interval = time.Hour
	r := confirm.NewRegistry(cfg, store, reader, zerolog.Nop())
	key := testKey()
	seedTracker(t, store, key)

	state, err := r.Enter(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, confirm.StatePolling, state)
	callsAfterStart := reader.Calls()

	// Page reload: same slot, no second polling loop.
	state, err = r.Enter(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatePolling, state)
	assert.Equal(t, callsAfterStart, reader.Calls())

	r.StopAll()
}

func TestRegistry_State_UnknownSlotIdle(t *testing.T) {
	r := confirm.NewRegistry(fastConfig(), testutil.NewMockTrackerStore(), testutil.NewMockStatusReader(), zerolog.Nop())
	assert.Equal(t, confirm.StateIdle, r.State(testKey()))
}

func TestRegistry_Abandon_NoLivePoller_ClearsTracker(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	r := confirm.NewRegistry(fastConfig(), store, testutil.NewMockStatusReader(), zerolog.Nop())
	key := testKey()
	seedTracker(t, store, key)

	require.NoError(t, r.Abandon(context.Background(), key))
	assert.Equal(t, 0, store.Len())
}

func TestRegistry_Abandon_LivePoller(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	cfg := fastConfig()
	cfg.Interval = time.Hour
	r := confirm.NewRegistry(cfg, store, testutil.NewMockStatusReader(pending()), zerolog.Nop())
	key := testKey()
	seedTracker(t, store, key)

	state, err := r.Enter(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, confirm.StatePolling, state)

	require.NoError(t, r.Abandon(context.Background(), key))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, confirm.StateIdle, r.State(key))
}

func TestRegistry_StopAll(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	cfg := fastConfig()
	cfg.Interval = time.Hour
	r := confirm.NewRegistry(cfg, store, testutil.NewMockStatusReader(pending()), zerolog.Nop())
	key := testKey()
	seedTracker(t, store, key)

	_, err := r.Enter(context.Background(), key)
	require.NoError(t, err)

	r.StopAll()
	assert.Equal(t, confirm.StateIdle, r.State(key))
	// Trackers survive shutdown so a restarted instance can resume.
	assert.Equal(t, 1, store.Len())
}

func TestRegistry_Enter_ConcurrentSameSlot_SinglePollingLoop(t *testing.T) {
	store := testutil.NewMockTrackerStore()
	reader := testutil.NewMockStatusReader()
	gate := make(chan struct{})
	var calls atomic.Int32
	reader.ResolveFunc = func(ctx context.Context, leadID uuid.UUID, part int) (ledger.Resolution, error) {
		calls.Add(1)
		<-gate
		return ledger.Resolution{Status: ledger.StatusPendingConfirmation}, nil
	}
	cfg := fastConfig()
	cfg.Interval = time.Hour
	r := confirm.NewRegistry(cfg, store, reader, zerolog.Nop())
	key := testKey()
	seedTracker(t, store, key)

	// Two tabs land on the confirmation page at once. The second entry must
	// wait for the first and re-enter its poller, not start a second loop.
	states := make(chan confirm.State, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := r.Enter(context.Background(), key)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			states <- state
		}()
	}

	// Wait for the first entry to reach its ledger read, then let it finish.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()
	close(states)

	for state := range states {
		assert.Equal(t, confirm.StatePolling, state)
	}
	// One immediate check total: the second entry never ran its own.
	assert.Equal(t, int32(1), calls.Load())

	// The single loop is reachable: abandoning the slot leaves nothing live.
	require.NoError(t, r.Abandon(context.Background(), key))
	assert.Equal(t, confirm.StateIdle, r.State(key))
	assert.Equal(t, 0, store.Len())
}
