// internal/locator/poll_test.go
package locator_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// becomesTrueAt returns a condition that turns true once d has passed.
func becomesTrueAt(d time.Duration) (locator.Condition, *int32) {
	start := time.Now()
	var calls int32
	return func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return time.Since(start) >= d, nil
	}, &calls
}

func TestPollUntil(t *testing.T) {
	spec := locator.WaitSpec{Timeout: 400 * time.Millisecond, Interval: 20 * time.Millisecond, Message: "test condition"}

	t.Run("ResolvesImmediatelyWhenAlreadyTrue", func(t *testing.T) {
		cond, calls := becomesTrueAt(0)
		start := time.Now()
		err := locator.PollUntil(context.Background(), cond, spec)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), spec.Interval, "an already-true condition must not wait an interval")
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	})

	t.Run("ResolvesWithinOneIntervalOfTransition", func(t *testing.T) {
		turn := 120 * time.Millisecond
		cond, _ := becomesTrueAt(turn)
		start := time.Now()
		err := locator.PollUntil(context.Background(), cond, spec, locator.WithLogger(zaptest.NewLogger(t)))
		elapsed := time.Since(start)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, turn)
		// One interval plus scheduling slack.
		assert.Less(t, elapsed, turn+spec.Interval+60*time.Millisecond)
	})

	t.Run("TimesOutWhenConditionTurnsTrueTooLate", func(t *testing.T) {
		cond, _ := becomesTrueAt(2 * spec.Timeout)
		start := time.Now()
		err := locator.PollUntil(context.Background(), cond, spec)
		elapsed := time.Since(start)
		require.Error(t, err)
		assert.True(t, errors.Is(err, locator.ErrTimeoutExceeded))
		assert.GreaterOrEqual(t, elapsed, spec.Timeout)

		var terr *locator.TimeoutError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, "test condition", terr.Message)
		assert.Greater(t, terr.Attempts, 1)
		assert.Nil(t, terr.LastErr)
		assert.Contains(t, err.Error(), "test condition")
	})

	t.Run("TimesOutWhenConditionTurnsTrueAtDeadline", func(t *testing.T) {
		tight := locator.WaitSpec{Timeout: 100 * time.Millisecond, Interval: 30 * time.Millisecond, Message: "boundary"}
		cond, calls := becomesTrueAt(tight.Timeout)
		err := locator.PollUntil(context.Background(), cond, tight)
		require.ErrorIs(t, err, locator.ErrTimeoutExceeded)

		var terr *locator.TimeoutError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, int(atomic.LoadInt32(calls)), terr.Attempts)
		assert.Nil(t, terr.LastErr)
	})

	t.Run("LastErrComesFromAnInTimeEvaluation", func(t *testing.T) {
		unexpected := errors.New("javascript exception")
		tight := locator.WaitSpec{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond, Message: "in time"}
		start := time.Now()
		var late int32
		cond := func(ctx context.Context) (bool, error) {
			if time.Since(start) >= tight.Timeout {
				atomic.AddInt32(&late, 1)
			}
			return false, unexpected
		}
		for i := 0; i < 20; i++ {
			start = time.Now()
			err := locator.PollUntil(context.Background(), cond, tight)
			require.ErrorIs(t, err, locator.ErrTimeoutExceeded)
			require.ErrorIs(t, err, unexpected)
		}
		assert.Zero(t, atomic.LoadInt32(&late), "no evaluation may start at or after the deadline")
	})

	t.Run("TransientErrorsAreSwallowed", func(t *testing.T) {
		var n int32
		cond := func(ctx context.Context) (bool, error) {
			if atomic.AddInt32(&n, 1) < 4 {
				return false, locator.ErrStaleElement
			}
			return true, nil
		}
		require.NoError(t, locator.PollUntil(context.Background(), cond, spec))
		assert.Equal(t, int32(4), atomic.LoadInt32(&n))
	})

	t.Run("DriverErrorAbortsImmediately", func(t *testing.T) {
		var n int32
		boom := locator.NewDriverError("find", errors.New("invalid selector syntax"))
		cond := func(ctx context.Context) (bool, error) {
			atomic.AddInt32(&n, 1)
			return false, boom
		}
		start := time.Now()
		err := locator.PollUntil(context.Background(), cond, spec)
		assert.Less(t, time.Since(start), spec.Interval)
		assert.True(t, errors.Is(err, locator.ErrDriver))
		assert.False(t, errors.Is(err, locator.ErrTimeoutExceeded))
		assert.Equal(t, int32(1), atomic.LoadInt32(&n))
	})

	t.Run("UnexpectedErrorOnFinalAttemptIsPropagated", func(t *testing.T) {
		unexpected := errors.New("javascript exception")
		cond := func(ctx context.Context) (bool, error) { return false, unexpected }
		err := locator.PollUntil(context.Background(), cond, spec.WithTimeout(100*time.Millisecond))
		require.Error(t, err)
		assert.True(t, errors.Is(err, locator.ErrTimeoutExceeded))
		assert.True(t, errors.Is(err, unexpected), "the last unexpected error should be unwrappable")
	})

	t.Run("UnexpectedErrorFollowedByCleanFalseIsDropped", func(t *testing.T) {
		var n int32
		cond := func(ctx context.Context) (bool, error) {
			if atomic.AddInt32(&n, 1) == 1 {
				return false, errors.New("first evaluation blew up")
			}
			return false, nil
		}
		err := locator.PollUntil(context.Background(), cond, spec.WithTimeout(100*time.Millisecond))
		var terr *locator.TimeoutError
		require.True(t, errors.As(err, &terr))
		assert.Nil(t, terr.LastErr)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		cond := func(ctx context.Context) (bool, error) { return false, nil }
		err := locator.PollUntil(ctx, cond, spec)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("InvalidSpec", func(t *testing.T) {
		cond, calls := becomesTrueAt(0)
		err := locator.PollUntil(context.Background(), cond, locator.WaitSpec{Timeout: time.Second, Interval: time.Second})
		assert.ErrorIs(t, err, locator.ErrInvalidWaitSpec)
		assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	})
}

func TestWaitSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    locator.WaitSpec
		wantErr bool
	}{
		{"valid", locator.WaitSpec{Timeout: 10 * time.Second, Interval: 500 * time.Millisecond}, false},
		{"zero timeout", locator.WaitSpec{Timeout: 0, Interval: time.Millisecond}, true},
		{"zero interval", locator.WaitSpec{Timeout: time.Second}, true},
		{"interval equals timeout", locator.WaitSpec{Timeout: time.Second, Interval: time.Second}, true},
		{"interval exceeds timeout", locator.WaitSpec{Timeout: time.Second, Interval: 2 * time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, locator.ErrInvalidWaitSpec)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := locator.NewWaitSpec(time.Second, 2*time.Second, "bad")
	assert.Error(t, err)
	ws, err := locator.NewWaitSpec(time.Second, 100*time.Millisecond, "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", ws.Message)
	assert.Equal(t, "other", ws.WithMessage("other").Message)
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, locator.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, locator.Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, locator.Sleep(context.Background(), 0))
}
