// internal/locator/errors.go
package locator

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// -- Taxonomy --

var (
	// ErrTimeoutExceeded indicates a wait condition never became true.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
	// ErrElementNotFound indicates no selector candidate matched a visible element.
	ErrElementNotFound = errors.New("element not found")
	// ErrActionFailed indicates an action could not complete within its allotted attempts.
	ErrActionFailed = errors.New("action failed")
	// ErrDriver marks failures of the automation driver that are unrelated to timing.
	// These are never retried.
	ErrDriver = errors.New("driver error")

	// ErrInvalidWaitSpec is returned when a WaitSpec violates its invariants.
	ErrInvalidWaitSpec = errors.New("invalid wait spec")
	// ErrInvalidSelector is returned for selectors that fail static validation.
	ErrInvalidSelector = errors.New("invalid selector")
)

// Transient driver outcomes. A condition that fails with one of these is
// treated as "not yet true" by PollUntil.
var (
	// ErrNoSuchElement is returned by Driver.FindOne when nothing matches.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement indicates that the element reference is no longer valid,
	// likely due to a page navigation or DOM modification.
	ErrStaleElement = errors.New("element is stale or detached from the document")
	// ErrNotReady lets actions report a UI that has not caught up with the
	// application state yet (an empty grid right after a mutation, for example).
	ErrNotReady = errors.New("ui not ready")
)

// DriverError wraps a rejected automation call. It is fatal: PollUntil aborts
// on it and RetryAction does not retry it.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("driver error: %v", e.Err)
	}
	return fmt.Sprintf("driver error during %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// Is reports ErrDriver as a match so callers can test with errors.Is.
func (e *DriverError) Is(target error) bool { return target == ErrDriver }

// NewDriverError wraps err as a fatal driver error. A nil err yields nil.
func NewDriverError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{Op: op, Err: err}
}

// IsFatal reports whether err must surface immediately without retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDriver)
}

// IsTransient reports whether err describes a DOM state that may resolve on
// its own (missing, detached or not yet rendered elements).
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoSuchElement) ||
		errors.Is(err, ErrStaleElement) ||
		errors.Is(err, ErrNotReady)
}

// -- Diagnostic error types --

// TimeoutError is returned by PollUntil when the deadline passes.
// LastErr holds the error of the final evaluation when it was not transient.
type TimeoutError struct {
	Message  string
	Timeout  time.Duration
	Elapsed  time.Duration
	Attempts int
	LastErr  error
}

func (e *TimeoutError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timeout exceeded after %v (%d attempts)", e.Elapsed.Round(time.Millisecond), e.Attempts)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.LastErr != nil {
		fmt.Fprintf(&b, ": last error: %v", e.LastErr)
	}
	return b.String()
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeoutExceeded }
func (e *TimeoutError) Unwrap() error        { return e.LastErr }

// CandidateAttempt records why a selector candidate did not produce a match.
type CandidateAttempt struct {
	Selector Selector
	Reason   string
	Err      error
}

// NotFoundError is returned by LocateWithFallback when no candidate resolved
// to a visible element within the timeout.
type NotFoundError struct {
	Message  string
	Timeout  time.Duration
	Passes   int
	Attempts []CandidateAttempt
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("element not found")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	fmt.Fprintf(&b, " (%d candidates, %d passes in %v)", len(e.Attempts), e.Passes, e.Timeout)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %s", a.Selector, a.Reason)
	}
	return b.String()
}

func (e *NotFoundError) Is(target error) bool { return target == ErrElementNotFound }

// ActionError is returned by RetryAction once every attempt has failed.
type ActionError struct {
	Attempts int
	Last     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ActionError) Is(target error) bool { return target == ErrActionFailed }
func (e *ActionError) Unwrap() error        { return e.Last }
