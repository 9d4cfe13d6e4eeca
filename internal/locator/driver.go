// internal/locator/driver.go
package locator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Element is an opaque handle to a DOM node owned by a Driver. A handle is
// valid for the duration of one action; after navigation or re-render it may
// become stale.
type Element interface {
	// Describe returns a short human readable description for logs.
	Describe() string
}

// ConsoleEntry is one browser console or log-domain message.
type ConsoleEntry struct {
	Level     string
	Message   string
	Source    string
	Timestamp time.Time
}

// Driver is the browser automation capability the core depends on.
//
// FindOne returns ErrNoSuchElement when nothing matches. Calls that fail for
// reasons unrelated to timing (invalid selector syntax, a closed target) must
// return a *DriverError so they are not retried.
type Driver interface {
	FindOne(ctx context.Context, sel Selector) (Element, error)
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
	IsVisible(ctx context.Context, el Element) (bool, error)
	IsAttached(ctx context.Context, el Element) (bool, error)

	Click(ctx context.Context, el Element) error
	SetText(ctx context.Context, el Element, value string) error
	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns ok=false when the attribute is absent. For "value" on
	// form controls it returns the current value.
	Attribute(ctx context.Context, el Element, name string) (value string, ok bool, err error)

	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// ExecuteScript evaluates script and decodes the result into res (which may
	// be nil). When args are given, script must be a function expression; it
	// is invoked with the JSON encoded args.
	ExecuteScript(ctx context.Context, script string, res any, args ...any) error

	Screenshot(ctx context.Context) ([]byte, error)
	ConsoleLogs(ctx context.Context) ([]ConsoleEntry, error)
	ClearCookies(ctx context.Context) error
}

// -- Options --

type options struct {
	logger *zap.Logger
}

// Option configures the polling, locating and retry helpers.
type Option func(*options)

// WithLogger routes diagnostic output to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
