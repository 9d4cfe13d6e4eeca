// internal/browser/cdp/errors.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

// CDP error texts that mean the node handle outlived its document.
var staleMarkers = []string{
	"could not find node with given id",
	"no node with given id",
	"node with given id does not belong to the document",
	"node is detached from document",
	"cannot find context with specified id",
	"execution context was destroyed",
	"node is not an element",
}

// CDP error texts that mean the query itself is broken.
var invalidMarkers = []string{
	"is not a valid selector",
	"is not a valid xpath expression",
	"dom error while querying",
	"syntaxerror",
}

// classify maps a chromedp failure onto the locator taxonomy. Context errors
// pass through untouched so callers can tell a deadline from a driver fault.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, chromedp.ErrInvalidContext) || errors.Is(err, chromedp.ErrInvalidTarget) || errors.Is(err, chromedp.ErrChannelClosed) {
		return locator.NewDriverError(op, err)
	}

	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%s: %w (%v)", op, locator.ErrStaleElement, err)
		}
	}
	for _, m := range invalidMarkers {
		if strings.Contains(msg, m) {
			return locator.NewDriverError(op, err)
		}
	}
	if strings.Contains(msg, "websocket") || strings.Contains(msg, "target closed") {
		return locator.NewDriverError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
