// internal/browser/cdp/console.go
package cdp

import (
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/runtime"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const maxConsoleEntries = 2000

// consoleBuffer collects console API calls and log-domain entries for one tab.
type consoleBuffer struct {
	mu      sync.Mutex
	entries []locator.ConsoleEntry
}

// handle is registered with chromedp.ListenTarget. It runs on the event
// goroutine and must not issue CDP commands.
func (c *consoleBuffer) handle(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		c.add(locator.ConsoleEntry{
			Level:     consoleAPILevel(e.Type),
			Message:   consoleMessage(e.Args),
			Source:    "console-api",
			Timestamp: timestampOf(e.Timestamp),
		})
	case *log.EventEntryAdded:
		if e.Entry == nil {
			return
		}
		c.add(locator.ConsoleEntry{
			Level:     logLevel(e.Entry.Level),
			Message:   e.Entry.Text,
			Source:    string(e.Entry.Source),
			Timestamp: timestampOf(e.Entry.Timestamp),
		})
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails == nil {
			return
		}
		msg := e.ExceptionDetails.Text
		if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
			msg = e.ExceptionDetails.Exception.Description
		}
		c.add(locator.ConsoleEntry{
			Level:     "error",
			Message:   msg,
			Source:    "exception",
			Timestamp: timestampOf(e.Timestamp),
		})
	}
}

func (c *consoleBuffer) add(entry locator.ConsoleEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxConsoleEntries {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, entry)
}

func (c *consoleBuffer) snapshot() []locator.ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]locator.ConsoleEntry(nil), c.entries...)
}

func (c *consoleBuffer) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// consoleAPILevel folds console API call types onto error/warning/info/debug.
func consoleAPILevel(t runtime.APIType) string {
	switch t {
	case runtime.APITypeError, runtime.APITypeAssert:
		return "error"
	case runtime.APITypeWarning:
		return "warning"
	case runtime.APITypeDebug, runtime.APITypeTrace:
		return "debug"
	default:
		return "info"
	}
}

func logLevel(l log.Level) string {
	switch l {
	case log.LevelError:
		return "error"
	case log.LevelWarning:
		return "warning"
	case log.LevelVerbose:
		return "debug"
	default:
		return "info"
	}
}

// consoleMessage renders console.log arguments the way DevTools prints them:
// strings unquoted, everything else by value or description.
func consoleMessage(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if len(a.Value) > 0 {
			var s string
			if err := jsoniter.Unmarshal(a.Value, &s); err == nil {
				parts = append(parts, s)
				continue
			}
			parts = append(parts, string(a.Value))
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
			continue
		}
		parts = append(parts, string(a.Type))
	}
	return strings.Join(parts, " ")
}

func timestampOf(ts *runtime.Timestamp) time.Time {
	if ts == nil {
		return time.Now()
	}
	return ts.Time()
}
