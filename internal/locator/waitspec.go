// internal/locator/waitspec.go
package locator

import (
	"fmt"
	"time"
)

// WaitSpec configures a polling operation. Interval must be positive and
// strictly smaller than Timeout.
type WaitSpec struct {
	Timeout  time.Duration
	Interval time.Duration
	Message  string
}

// NewWaitSpec builds and validates a WaitSpec.
func NewWaitSpec(timeout, interval time.Duration, message string) (WaitSpec, error) {
	ws := WaitSpec{Timeout: timeout, Interval: interval, Message: message}
	if err := ws.Validate(); err != nil {
		return WaitSpec{}, err
	}
	return ws, nil
}

// Validate checks the WaitSpec invariants.
func (w WaitSpec) Validate() error {
	if w.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidWaitSpec, w.Timeout)
	}
	if w.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidWaitSpec, w.Interval)
	}
	if w.Interval >= w.Timeout {
		return fmt.Errorf("%w: interval %v must be smaller than timeout %v", ErrInvalidWaitSpec, w.Interval, w.Timeout)
	}
	return nil
}

// WithMessage returns a copy carrying a different diagnostic message.
func (w WaitSpec) WithMessage(msg string) WaitSpec {
	w.Message = msg
	return w
}

// WithTimeout returns a copy with a different timeout.
func (w WaitSpec) WithTimeout(d time.Duration) WaitSpec {
	w.Timeout = d
	return w
}
