// -- internal/reporting/reporter.go --
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Scenario statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// ScenarioRecord is the outcome of one scenario.
type ScenarioRecord struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Feature      string        `json:"feature,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Error        string        `json:"error,omitempty"`
	ArtifactsDir string        `json:"artifacts_dir,omitempty"`
}

// Reporter defines the interface for writing scenario results to an output.
type Reporter interface {
	// Write records a single scenario outcome.
	Write(rec *ScenarioRecord) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return NewJSONReporter(writer), nil
	case "text":
		return NewTextReporter(writer), nil
	case "junit":
		return NewJUnitReporter(writer, "cyberrank-e2e"), nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Multi fans every record out to each reporter. Errors are joined; one
// failing sink does not stop the others.
func Multi(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) Write(rec *ScenarioRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Write(rec))
	}
	return errors.Join(errs...)
}

func (m multiReporter) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// Summary counts outcomes.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
}

func (s *Summary) add(rec *ScenarioRecord) {
	s.Total++
	if rec.Status == StatusFailed {
		s.Failed++
	} else {
		s.Passed++
	}
	s.Duration += rec.Duration
}
