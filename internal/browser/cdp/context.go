// internal/browser/cdp/context.go
package cdp

import (
	"context"
)

// CombineContext returns a context derived from primary that is also
// canceled when secondary is done. Values (the chromedp target) come from
// primary; secondary usually carries the caller's deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
