// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// TextReporter prints one line per scenario and a summary on Close.
type TextReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	summary Summary
}

func NewTextReporter(w io.WriteCloser) *TextReporter {
	return &TextReporter{writer: w}
}

func (r *TextReporter) Write(rec *ScenarioRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.add(rec)

	line := fmt.Sprintf("%-6s %8s  %s", strings.ToUpper(rec.Status), rec.Duration.Round(time.Millisecond), rec.Name)
	if rec.Error != "" {
		line += "\n       " + rec.Error
	}
	if rec.ArtifactsDir != "" {
		line += "\n       artifacts: " + rec.ArtifactsDir
	}
	_, err := fmt.Fprintln(r.writer, line)
	return err
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	if _, err := fmt.Fprintf(r.writer, "\n%d scenarios (%d passed, %d failed) in %s\n", s.Total, s.Passed, s.Failed, s.Duration.Round(time.Millisecond)); err != nil {
		r.writer.Close()
		return err
	}
	return r.writer.Close()
}
