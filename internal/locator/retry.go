// internal/locator/retry.go
package locator

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Outcome reports how many attempts an action took and, on failure, the
// error of the last one.
type Outcome struct {
	Attempts int
	LastErr  error
}

// Succeeded reports whether the action eventually completed.
func (o Outcome) Succeeded() bool { return o.Attempts > 0 && o.LastErr == nil }

// RetryAction runs action (a fallible unit of UI work such as a click or a
// grid read) up to maxAttempts times, sleeping spec.Interval
// between attempts (a fixed delay, not a poll). spec.Timeout bounds each
// individual attempt.
//
// Only wrap actions whose expected failure mode is transient UI
// inconsistency; assertions on business logic must not go through here.
// A *DriverError is returned immediately without further attempts.
func RetryAction[T any](ctx context.Context, maxAttempts int, spec WaitSpec, action func(ctx context.Context) (T, error), opts ...Option) (T, Outcome, error) {
	var zero T
	if maxAttempts < 1 {
		return zero, Outcome{}, fmt.Errorf("%w: maxAttempts must be at least 1, got %d", ErrInvalidWaitSpec, maxAttempts)
	}
	if err := spec.Validate(); err != nil {
		return zero, Outcome{}, err
	}
	o := applyOptions(opts)
	log := o.logger.With(zap.String("action", spec.Message))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
		val, err := action(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Debug("Action succeeded after retry.", zap.Int("attempts", attempt))
			}
			return val, Outcome{Attempts: attempt}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, Outcome{Attempts: attempt, LastErr: err}, ctx.Err()
		}
		if IsFatal(err) {
			log.Error("Action aborted by driver error.", zap.Int("attempt", attempt), zap.Error(err))
			return zero, Outcome{Attempts: attempt, LastErr: err}, err
		}
		log.Debug("Action attempt failed.", zap.Int("attempt", attempt), zap.Int("max_attempts", maxAttempts), zap.Error(err))

		if attempt < maxAttempts {
			if err := Sleep(ctx, spec.Interval); err != nil {
				return zero, Outcome{Attempts: attempt, LastErr: lastErr}, err
			}
		}
	}

	log.Warn("Action failed on every attempt.", zap.Int("attempts", maxAttempts), zap.Error(lastErr))
	return zero, Outcome{Attempts: maxAttempts, LastErr: lastErr}, &ActionError{Attempts: maxAttempts, Last: lastErr}
}

// Retry is RetryAction for actions with no result value.
func Retry(ctx context.Context, maxAttempts int, spec WaitSpec, action func(ctx context.Context) error, opts ...Option) (Outcome, error) {
	_, out, err := RetryAction(ctx, maxAttempts, spec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, action(ctx)
	}, opts...)
	return out, err
}
