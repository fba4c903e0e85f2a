package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Policy is the single retry abstraction shared by every call site (gateway
// checks, FX quotes, confirmation polling). Counted attempts are spaced by
// Interval with backoff; SoftRetries are immediate, uncounted retries that
// absorb provider-write propagation lag before an attempt is charged against
// the budget.
type Policy struct {
	MaxAttempts uint
	Interval    time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	SoftRetries uint
}

// DefaultPolicy returns the default retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Interval:    1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		SoftRetries: 1,
	}
}

// Do executes a function with exponential backoff retry
func Do(ctx context.Context, p Policy, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(p.MaxAttempts),
		retry.Delay(p.Interval),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// DoWithResult executes a function with exponential backoff retry and returns a result
func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// DoSoft runs fn once plus up to p.SoftRetries immediate re-runs. It never
// sleeps and never consults the counted-attempt budget; callers use it inside
// a single counted attempt.
func DoSoft[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	var err error
	for i := uint(0); i <= p.SoftRetries; i++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result, err = fn()
		if err == nil {
			return result, nil
		}
	}
	return result, err
}
