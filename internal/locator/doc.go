// Package locator is the resilient element location and action execution
// core used by the page objects. It sits between step definitions and the
// browser automation Driver and provides three operations:
//
//   - PollUntil, the condition polling primitive;
//   - LocateWithFallback, which walks an ordered list of selector candidates
//     until one yields a visible element;
//   - RetryAction, which re-runs a fallible UI action with a fixed delay.
//
// All three are stateless between calls. They assume exclusive use of the
// session for their duration and issue driver calls strictly in order.
package locator
