// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// JSONReporter writes one JSON object per scenario (JSON Lines).
type JSONReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
	enc    *jsoniter.Encoder
}

func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{
		writer: w,
		enc:    jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w),
	}
}

func (r *JSONReporter) Write(rec *ScenarioRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode scenario %q: %w", rec.Name, err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}
