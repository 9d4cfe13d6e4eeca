// internal/browser/roddriver/errors.go
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

var staleMarkers = []string{
	"could not find node with given id",
	"no node with given id",
	"node with given id does not belong to the document",
	"node is detached from document",
	"cannot find context with specified id",
	"execution context was destroyed",
	"cannot find object with id",
}

var invalidMarkers = []string{
	"is not a valid selector",
	"is not a valid xpath expression",
	"syntaxerror",
}

// classify maps a rod failure onto the locator taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w (%v)", op, locator.ErrStaleElement, err)
	}
	var notInteractable *rod.NotInteractableError
	if errors.As(err, &notInteractable) {
		return fmt.Errorf("%s: %w (%v)", op, locator.ErrNotReady, err)
	}
	var invisible *rod.InvisibleShapeError
	if errors.As(err, &invisible) {
		return fmt.Errorf("%s: %w (%v)", op, locator.ErrNotReady, err)
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

	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) && cdpErr.Code == -32601 {
		// Method not found: the browser does not speak this protocol.
		return locator.NewDriverError(op, err)
	}
	if strings.Contains(msg, "websocket") || strings.Contains(msg, "target closed") || strings.Contains(msg, "use of closed network connection") {
		return locator.NewDriverError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
