// internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/beevik/etree"
)

// JUnitReporter buffers scenarios and writes a JUnit XML document on Close,
// grouping scenarios into one testsuite per feature.
type JUnitReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	name    string
	records []ScenarioRecord
}

func NewJUnitReporter(w io.WriteCloser, name string) *JUnitReporter {
	return &JUnitReporter{writer: w, name: name}
}

func (r *JUnitReporter) Write(rec *ScenarioRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.build()
	doc.Indent(2)
	if _, err := doc.WriteTo(r.writer); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return r.writer.Close()
}

func (r *JUnitReporter) build() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	var total Summary
	byFeature := make(map[string][]ScenarioRecord)
	for _, rec := range r.records {
		total.add(&rec)
		feature := rec.Feature
		if feature == "" {
			feature = r.name
		}
		byFeature[feature] = append(byFeature[feature], rec)
	}

	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", r.name)
	root.CreateAttr("tests", strconv.Itoa(total.Total))
	root.CreateAttr("failures", strconv.Itoa(total.Failed))
	root.CreateAttr("time", seconds(total))

	features := make([]string, 0, len(byFeature))
	for f := range byFeature {
		features = append(features, f)
	}
	sort.Strings(features)

	for _, feature := range features {
		var s Summary
		for i := range byFeature[feature] {
			s.add(&byFeature[feature][i])
		}
		suite := root.CreateElement("testsuite")
		suite.CreateAttr("name", feature)
		suite.CreateAttr("tests", strconv.Itoa(s.Total))
		suite.CreateAttr("failures", strconv.Itoa(s.Failed))
		suite.CreateAttr("time", seconds(s))

		for _, rec := range byFeature[feature] {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", feature)
			tc.CreateAttr("name", rec.Name)
			tc.CreateAttr("time", strconv.FormatFloat(rec.Duration.Seconds(), 'f', 3, 64))
			if rec.Status == StatusFailed {
				failure := tc.CreateElement("failure")
				failure.CreateAttr("message", rec.Error)
				if rec.ArtifactsDir != "" {
					failure.SetText("artifacts: " + rec.ArtifactsDir)
				}
			}
		}
	}
	return doc
}

func seconds(s Summary) string {
	return strconv.FormatFloat(s.Duration.Seconds(), 'f', 3, 64)
}
