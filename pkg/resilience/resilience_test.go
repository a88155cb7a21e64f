package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		OnStateChange: func(_ string, _, to State) {
			transitions = append(transitions, to)
		},
	})

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreakerIgnoresNonFailures(t *testing.T) {
	errMiss := errors.New("miss")
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, errMiss) },
	})
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errMiss }), errMiss)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "publish", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, errBoom) },
	}, func(context.Context) error {
		calls++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsEventually(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "publish", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond},
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errBoom
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallTimesOut(t *testing.T) {
	_, err := Call(context.Background(), 10*time.Millisecond, "search", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	v, err := Call(context.Background(), time.Second, "search", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestBreakerSnapshotAndDo(t *testing.T) {
	cb := NewCircuitBreaker("redis-cache", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	v, err := Do(cb, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, BreakerSnapshot{Name: "redis-cache", State: "closed"}, cb.Snapshot())

	_, err = Do(cb, func() (string, error) { return "", errBoom })
	assert.ErrorIs(t, err, errBoom)

	snap := cb.Snapshot()
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, 1, snap.Failures)
	assert.Greater(t, snap.RetryIn, time.Duration(0))

	_, err = Do(cb, func() (string, error) { return "unreachable", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCallRecoversPanic(t *testing.T) {
	_, err := Call(context.Background(), time.Second, "search", func(context.Context) (int, error) {
		var s []int
		return s[3], nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search: panic")
}
