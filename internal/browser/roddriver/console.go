// internal/browser/roddriver/console.go
package roddriver

import (
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const maxConsoleEntries = 2000

type consoleBuffer struct {
	mu      sync.Mutex
	entries []locator.ConsoleEntry
}

func (c *consoleBuffer) onConsole(e *proto.RuntimeConsoleAPICalled) {
	c.add(locator.ConsoleEntry{
		Level:     consoleLevel(e.Type),
		Message:   consoleMessage(e.Args),
		Source:    "console-api",
		Timestamp: e.Timestamp.Time(),
	})
}

func (c *consoleBuffer) onLog(e *proto.LogEntryAdded) {
	if e.Entry == nil {
		return
	}
	c.add(locator.ConsoleEntry{
		Level:     logLevel(e.Entry.Level),
		Message:   e.Entry.Text,
		Source:    string(e.Entry.Source),
		Timestamp: e.Entry.Timestamp.Time(),
	})
}

func (c *consoleBuffer) onException(e *proto.RuntimeExceptionThrown) {
	if e.ExceptionDetails == nil {
		return
	}
	msg := e.ExceptionDetails.Text
	if ex := e.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
		msg = ex.Description
	}
	c.add(locator.ConsoleEntry{
		Level:     "error",
		Message:   msg,
		Source:    "exception",
		Timestamp: e.Timestamp.Time(),
	})
}

func (c *consoleBuffer) add(entry locator.ConsoleEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
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

func consoleLevel(t proto.RuntimeConsoleAPICalledType) string {
	switch t {
	case proto.RuntimeConsoleAPICalledTypeError, proto.RuntimeConsoleAPICalledTypeAssert:
		return "error"
	case proto.RuntimeConsoleAPICalledTypeWarning:
		return "warning"
	case proto.RuntimeConsoleAPICalledTypeDebug, proto.RuntimeConsoleAPICalledTypeTrace:
		return "debug"
	default:
		return "info"
	}
}

func logLevel(l proto.LogLogEntryLevel) string {
	switch l {
	case proto.LogLogEntryLevelError:
		return "error"
	case proto.LogLogEntryLevelWarning:
		return "warning"
	case proto.LogLogEntryLevelVerbose:
		return "debug"
	default:
		return "info"
	}
}

func consoleMessage(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			if s, ok := a.Value.Val().(string); ok {
				parts = append(parts, s)
			} else {
				parts = append(parts, a.Value.JSON("", ""))
			}
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
