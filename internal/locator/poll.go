// internal/locator/poll.go
package locator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Condition performs a single driver query and reports whether the awaited
// state holds. It must be side-effect free on failure paths.
type Condition func(ctx context.Context) (bool, error)

// PollUntil evaluates cond immediately and then every spec.Interval until it
// reports true or spec.Timeout elapses.
//
// Error handling per evaluation:
//   - transient errors (see IsTransient) count as "not yet true";
//   - a *DriverError aborts the poll and is returned as is;
//   - any other error also counts as "not yet true", but if the final
//     evaluation failed that way it is carried in TimeoutError.LastErr.
//
// Every evaluation starts strictly before the deadline; a state that only
// holds from spec.Timeout on is a timeout.
//
// Cancellation of ctx ends the poll with ctx.Err().
func PollUntil(ctx context.Context, cond Condition, spec WaitSpec, opts ...Option) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	o := applyOptions(opts)
	log := o.logger.With(zap.String("wait", spec.Message))

	start := time.Now()
	deadline := start.Add(spec.Timeout)
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var lastErr error
	attempts := 0
	timedOut := func() error {
		log.Warn("Wait timed out.", zap.Duration("timeout", spec.Timeout), zap.Int("attempts", attempts))
		return &TimeoutError{
			Message:  spec.Message,
			Timeout:  spec.Timeout,
			Elapsed:  time.Since(start),
			Attempts: attempts,
			LastErr:  lastErr,
		}
	}
	for {
		attempts++
		ok, err := cond(pollCtx)
		if err == nil && ok {
			log.Debug("Condition met.", zap.Int("attempts", attempts), zap.Duration("elapsed", time.Since(start)))
			return nil
		}

		lastErr = nil
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if IsFatal(err) {
				log.Error("Condition aborted by driver error.", zap.Int("attempts", attempts), zap.Error(err))
				return err
			}
			// The poll's own deadline cutting an evaluation short is not the
			// condition's failure.
			ownDeadline := pollCtx.Err() != nil && errors.Is(err, context.DeadlineExceeded)
			if !IsTransient(err) && !ownDeadline {
				lastErr = err
			}
			log.Debug("Condition evaluation failed.", zap.Int("attempt", attempts), zap.Error(err))
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return timedOut()
		}
		wait := spec.Interval
		if remaining < wait {
			wait = remaining
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
		// Never evaluate at or past the deadline.
		if time.Until(deadline) <= 0 {
			return timedOut()
		}
	}
}

// Sleep pauses for d or until ctx is done. It replaces fixed pauses in page
// objects so they stay cancellable.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
