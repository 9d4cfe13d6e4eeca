// internal/browser/fakedriver/fakedriver.go
// Package fakedriver provides an in-memory locator.Driver whose DOM state is
// scripted against elapsed time. It lets the locator core, page objects and
// hooks be tested without a browser.
package fakedriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

// Node describes one scripted element. Offsets are relative to the driver's
// start time; a zero offset means "from the start".
type Node struct {
	Name string
	Text string
	// Attrs holds attribute values; absent keys are absent attributes.
	Attrs map[string]string

	AppearAt  time.Duration
	VisibleAt time.Duration
	// Hidden keeps the node present but never visible.
	Hidden bool
	// DetachAt, when non-zero, removes the node from the document.
	DetachAt time.Duration

	// FindErr is returned by FindOne/FindAll for this node's selector.
	FindErr error
	// ClickErr is returned by Click on this node.
	ClickErr error
	// TextFn, when set, computes the node text on every read.
	TextFn func(reads int) (string, error)
	// OnClick runs after a successful click. The driver lock is not held.
	OnClick func(d *Driver)
}

// Element is the handle handed out by the fake driver.
type Element struct {
	key  string
	idx  int
	node *Node
}

func (e *Element) Describe() string {
	if e.node.Name != "" {
		return e.node.Name
	}
	return fmt.Sprintf("%s[%d]", e.key, e.idx)
}

// Driver is a scripted locator.Driver. It is safe for concurrent use.
type Driver struct {
	mu    sync.Mutex
	start time.Time
	nodes map[string][]*Node

	url       string
	scripts   []string
	scriptRes map[string]any
	console   []locator.ConsoleEntry
	shot      []byte
	shotErr   error
	cookies   int

	finds  map[string]int
	clicks map[*Node]int
	reads  map[*Node]int
	values map[*Node]string
	log    []string
}

var _ locator.Driver = (*Driver)(nil)

// New returns an empty driver whose clock starts now. The document reports
// readyState "complete" until overridden with SetScriptResult.
func New() *Driver {
	return &Driver{
		start:     time.Now(),
		nodes:     make(map[string][]*Node),
		scriptRes: map[string]any{scripts.ReadyState: "complete"},
		finds:     make(map[string]int),
		clicks:    make(map[*Node]int),
		reads:     make(map[*Node]int),
		values:    make(map[*Node]string),
		url:       "about:blank",
		shot:      []byte("\x89PNG fake"),
	}
}

// Add registers a node under a legacy selector string. Several nodes may be
// registered under the same selector; FindOne returns the first present one.
func (d *Driver) Add(selector string, n Node) *Driver {
	key := keyFor(locator.MustParse(selector))
	d.mu.Lock()
	defer d.mu.Unlock()
	nn := n
	d.nodes[key] = append(d.nodes[key], &nn)
	return d
}

// Remove drops every node registered under selector.
func (d *Driver) Remove(selector string) {
	key := keyFor(locator.MustParse(selector))
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.nodes, key)
}

// SetURL sets the current URL.
func (d *Driver) SetURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = u
}

// SetScriptResult makes ExecuteScript decode res for an exact script text.
func (d *Driver) SetScriptResult(script string, res any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scriptRes[script] = res
}

// AddConsole appends a console entry.
func (d *Driver) AddConsole(level, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.console = append(d.console, locator.ConsoleEntry{Level: level, Message: msg, Timestamp: time.Now()})
}

// SetScreenshot overrides the screenshot bytes and error.
func (d *Driver) SetScreenshot(b []byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shot, d.shotErr = b, err
}

// -- Inspection --

// FindCount returns how many FindOne/FindAll calls hit selector.
func (d *Driver) FindCount(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finds[keyFor(locator.MustParse(selector))]
}

// Clicks returns the click count of the first node under selector.
func (d *Driver) Clicks(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	ns := d.nodes[keyFor(locator.MustParse(selector))]
	if len(ns) == 0 {
		return 0
	}
	return d.clicks[ns[0]]
}

// Value returns the text typed into the first node under selector.
func (d *Driver) Value(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ns := d.nodes[keyFor(locator.MustParse(selector))]
	if len(ns) == 0 {
		return ""
	}
	return d.values[ns[0]]
}

// Scripts returns executed scripts in order.
func (d *Driver) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scripts...)
}

// CookieClears returns how many times cookies were cleared.
func (d *Driver) CookieClears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cookies
}

// Calls returns the ordered log of mutating calls ("click name", "type name").
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

// -- locator.Driver --

func (d *Driver) FindOne(ctx context.Context, sel locator.Selector) (locator.Element, error) {
	els, err := d.find(sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, locator.ErrNoSuchElement
	}
	return els[0], nil
}

func (d *Driver) FindAll(ctx context.Context, sel locator.Selector) ([]locator.Element, error) {
	els, err := d.find(sel)
	if err != nil {
		return nil, err
	}
	out := make([]locator.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

func (d *Driver) find(sel locator.Selector) ([]*Element, error) {
	if _, err := sel.Compile(); err != nil {
		return nil, locator.NewDriverError("find", err)
	}
	key := keyFor(sel)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds[key]++
	elapsed := time.Since(d.start)
	var out []*Element
	for i, n := range d.nodes[key] {
		if n.FindErr != nil {
			return nil, n.FindErr
		}
		if !present(n, elapsed) {
			continue
		}
		out = append(out, &Element{key: key, idx: i, node: n})
	}
	return out, nil
}

func (d *Driver) IsVisible(ctx context.Context, el locator.Element) (bool, error) {
	n, err := d.live(el)
	if err != nil {
		return false, err
	}
	return !n.Hidden && time.Since(d.start) >= n.VisibleAt, nil
}

func (d *Driver) IsAttached(ctx context.Context, el locator.Element) (bool, error) {
	_, err := d.live(el)
	if err != nil {
		if err == locator.ErrStaleElement {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Driver) Click(ctx context.Context, el locator.Element) error {
	n, err := d.live(el)
	if err != nil {
		return err
	}
	if n.ClickErr != nil {
		return n.ClickErr
	}
	d.mu.Lock()
	d.clicks[n]++
	d.log = append(d.log, "click "+el.Describe())
	d.mu.Unlock()
	if n.OnClick != nil {
		n.OnClick(d)
	}
	return nil
}

func (d *Driver) SetText(ctx context.Context, el locator.Element, value string) error {
	n, err := d.live(el)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[n] = value
	d.log = append(d.log, "type "+el.Describe())
	return nil
}

func (d *Driver) Text(ctx context.Context, el locator.Element) (string, error) {
	n, err := d.live(el)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.reads[n]++
	reads := d.reads[n]
	d.mu.Unlock()
	if n.TextFn != nil {
		return n.TextFn(reads)
	}
	return n.Text, nil
}

func (d *Driver) Attribute(ctx context.Context, el locator.Element, name string) (string, bool, error) {
	n, err := d.live(el)
	if err != nil {
		return "", false, err
	}
	if name == "value" {
		d.mu.Lock()
		typed, ok := d.values[n]
		d.mu.Unlock()
		if ok {
			return typed, true, nil
		}
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
	d.log = append(d.log, "navigate "+url)
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, res any, args ...any) error {
	d.mu.Lock()
	d.scripts = append(d.scripts, script)
	v, ok := d.scriptRes[script]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	if err, isErr := v.(error); isErr {
		return err
	}
	if res == nil {
		return nil
	}
	raw, err := jsoniter.Marshal(v)
	if err != nil {
		return err
	}
	return jsoniter.Unmarshal(raw, res)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shot, d.shotErr
}

func (d *Driver) ConsoleLogs(ctx context.Context) ([]locator.ConsoleEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]locator.ConsoleEntry(nil), d.console...), nil
}

func (d *Driver) ClearCookies(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookies++
	return nil
}

// -- helpers --

func (d *Driver) live(el locator.Element) (*Node, error) {
	fe, ok := el.(*Element)
	if !ok {
		return nil, locator.NewDriverError("resolve", fmt.Errorf("foreign element %T", el))
	}
	if !present(fe.node, time.Since(d.start)) {
		return nil, locator.ErrStaleElement
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.nodes[fe.key] {
		if n == fe.node {
			return n, nil
		}
	}
	return nil, locator.ErrStaleElement
}

func present(n *Node, elapsed time.Duration) bool {
	if elapsed < n.AppearAt {
		return false
	}
	if n.DetachAt > 0 && elapsed >= n.DetachAt {
		return false
	}
	return true
}

func keyFor(sel locator.Selector) string {
	return sel.Kind().String() + ":" + sel.String()
}
