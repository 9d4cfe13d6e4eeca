// internal/scenario/console.go
package scenario

import (
	"strings"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

// Network noise that is logged at error level but says nothing about the
// application under test.
var ignoredConsoleMessages = []string{
	"Failed to load resource",
	"ERR_NAME_NOT_RESOLVED",
	"404 (Not Found)",
	"403 (Forbidden)",
}

// CriticalConsoleEntries keeps error-level entries that are not network noise.
func CriticalConsoleEntries(entries []locator.ConsoleEntry) []locator.ConsoleEntry {
	var out []locator.ConsoleEntry
	for _, e := range entries {
		if e.Level != "error" || isIgnored(e.Message) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func isIgnored(msg string) bool {
	for _, ig := range ignoredConsoleMessages {
		if strings.Contains(msg, ig) {
			return true
		}
	}
	return false
}

// FormatConsoleEntries renders entries one per line as "LEVEL: message".
func FormatConsoleEntries(entries []locator.ConsoleEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToUpper(e.Level))
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}
