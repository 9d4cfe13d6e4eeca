// internal/locator/locate.go
package locator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Match is a successful location: the element handle and the candidate that
// produced it. The caller owns Element for the duration of one action.
type Match struct {
	Element  Element
	Selector Selector
	// Index is the candidate's position in the priority list.
	Index int
	// Passes is the number of full or partial passes made over the list.
	Passes int
}

// Result is the explicit outcome of a single probing pass. Exactly one of
// Found/!Found holds; Attempts always lists the candidates tried in order.
type Result struct {
	Found    bool
	Match    *Match
	Attempts []CandidateAttempt
}

// Probe runs one pass over candidates and returns the first visible element.
// Candidates after the match are not evaluated. The returned error is non-nil
// only for fatal driver errors and invalid candidates; "not found" is a
// Result, not an error.
func Probe(ctx context.Context, d Driver, candidates []Selector) (Result, error) {
	if err := validateCandidates(candidates); err != nil {
		return Result{}, err
	}
	return probe(ctx, d, candidates)
}

func probe(ctx context.Context, d Driver, candidates []Selector) (Result, error) {
	res := Result{Attempts: make([]CandidateAttempt, 0, len(candidates))}
	for i, sel := range candidates {
		el, err := d.FindOne(ctx, sel)
		if err != nil {
			if IsFatal(err) {
				return res, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Attempts = append(res.Attempts, CandidateAttempt{Selector: sel, Reason: reasonFor(err, "not present"), Err: err})
			continue
		}

		visible, err := d.IsVisible(ctx, el)
		if err != nil {
			if IsFatal(err) {
				return res, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Attempts = append(res.Attempts, CandidateAttempt{Selector: sel, Reason: reasonFor(err, "detached while checking visibility"), Err: err})
			continue
		}
		if !visible {
			res.Attempts = append(res.Attempts, CandidateAttempt{Selector: sel, Reason: "present but not visible"})
			continue
		}

		res.Attempts = append(res.Attempts, CandidateAttempt{Selector: sel, Reason: "matched"})
		res.Found = true
		res.Match = &Match{Element: el, Selector: sel, Index: i}
		return res, nil
	}
	return res, nil
}

func reasonFor(err error, transientReason string) string {
	switch {
	case errors.Is(err, ErrNoSuchElement):
		return "not present"
	case IsTransient(err):
		return transientReason
	default:
		return err.Error()
	}
}

// LocateWithFallback tries candidates in priority order, repeating whole
// passes until one resolves to a visible element or spec.Timeout elapses.
// The timeout covers the entire list, not each candidate.
//
// On timeout it returns a *NotFoundError listing every candidate with the
// reason it failed on the last pass.
func LocateWithFallback(ctx context.Context, d Driver, candidates []Selector, spec WaitSpec, opts ...Option) (*Match, error) {
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	var (
		last   Result
		passes int
		match  *Match
	)
	cond := func(ctx context.Context) (bool, error) {
		passes++
		res, err := probe(ctx, d, candidates)
		if len(res.Attempts) > 0 {
			last = res
		}
		if err != nil {
			return false, err
		}
		if res.Found {
			match = res.Match
			return true, nil
		}
		return false, nil
	}

	err := PollUntil(ctx, cond, spec, opts...)
	if err == nil {
		match.Passes = passes
		o.logger.Debug("Located element.",
			zap.String("selector", match.Selector.String()),
			zap.Int("index", match.Index),
			zap.Int("passes", passes))
		return match, nil
	}

	var terr *TimeoutError
	if !errors.As(err, &terr) {
		return nil, err
	}

	attempts := last.Attempts
	// A pass cut short by the deadline may not have reached every candidate.
	if len(attempts) < len(candidates) {
		for i := len(attempts); i < len(candidates); i++ {
			attempts = append(attempts, CandidateAttempt{Selector: candidates[i], Reason: "not evaluated before deadline"})
		}
	}
	nf := &NotFoundError{
		Message:  spec.Message,
		Timeout:  spec.Timeout,
		Passes:   passes,
		Attempts: attempts,
	}
	o.logger.Warn("No selector candidate matched.", zap.Int("candidates", len(candidates)), zap.Int("passes", passes))
	return nil, nf
}

func validateCandidates(candidates []Selector) error {
	if len(candidates) == 0 {
		return NewDriverError("locate", fmt.Errorf("%w: no selector candidates", ErrInvalidSelector))
	}
	for i, c := range candidates {
		if err := c.Validate(); err != nil {
			return NewDriverError("locate", fmt.Errorf("candidate %d: %w", i, err))
		}
	}
	return nil
}
