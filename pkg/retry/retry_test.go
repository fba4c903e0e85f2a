package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/leadpay/pkg/retry"
)

func fastPolicy(attempts uint) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, Interval: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0
	err := retry.Do(context.Background(), fastPolicy(3), func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := retry.DoWithResult(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDoSoft_UncountedImmediateRetries(t *testing.T) {
	calls := 0
	got, err := retry.DoSoft(context.Background(), retry.Policy{SoftRetries: 2}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("propagation lag")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoSoft_ZeroRetriesSingleRun(t *testing.T) {
	sentinel := errors.New("failed")
	calls := 0
	_, err := retry.DoSoft(context.Background(), retry.Policy{SoftRetries: 0}, func() (int, error) {
		calls++
		return 0, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDoSoft_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retry.DoSoft(ctx, retry.Policy{SoftRetries: 5}, func() (int, error) {
		t.Fatal("fn must not run after cancellation")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultPolicy(t *testing.T) {
	p := retry.DefaultPolicy()
	assert.Equal(t, uint(5), p.MaxAttempts)
	assert.Equal(t, uint(1), p.SoftRetries)
}
