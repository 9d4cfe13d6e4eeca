// internal/browser/cdp/driver.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cdpnode "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const defaultOpTimeout = 10 * time.Second

// element is a chromedp node handle.
type element struct {
	node *cdpnode.Node
	via  string
}

func (e *element) Describe() string {
	name := strings.ToLower(e.node.LocalName)
	if name == "" {
		name = strings.ToLower(e.node.NodeName)
	}
	return fmt.Sprintf("<%s> via %s", name, e.via)
}

// Driver implements locator.Driver on one chromedp tab.
type Driver struct {
	ctx       context.Context // tab context carrying the chromedp target
	cancel    context.CancelFunc
	logger    *zap.Logger
	opTimeout time.Duration
	console   *consoleBuffer

	closeOnce sync.Once
	onClose   func()
}

var _ locator.Driver = (*Driver)(nil)

// run executes actions on the tab, bounded by ctx and the per-operation
// timeout. A tab whose context has ended yields a *locator.DriverError.
func (d *Driver) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	if err := d.ctx.Err(); err != nil {
		return locator.NewDriverError(op, fmt.Errorf("browser session closed: %w", err))
	}
	combined, cancel := CombineContext(d.ctx, ctx)
	defer cancel()
	opCtx, opCancel := context.WithTimeout(combined, d.opTimeout)
	defer opCancel()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && d.ctx.Err() != nil {
		return locator.NewDriverError(op, fmt.Errorf("browser session closed: %w", err))
	}
	return classify(op, err)
}

func (d *Driver) FindOne(ctx context.Context, sel locator.Selector) (locator.Element, error) {
	nodes, err := d.query(ctx, sel, true)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, locator.ErrNoSuchElement
	}
	return &element{node: nodes[0], via: sel.String()}, nil
}

func (d *Driver) FindAll(ctx context.Context, sel locator.Selector) ([]locator.Element, error) {
	nodes, err := d.query(ctx, sel, false)
	if err != nil {
		return nil, err
	}
	out := make([]locator.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{node: n, via: sel.String()})
	}
	return out, nil
}

// query never waits: AtLeast(0) returns whatever matches right now, leaving
// the waiting to the locator core.
func (d *Driver) query(ctx context.Context, sel locator.Selector, first bool) ([]*cdpnode.Node, error) {
	q, err := sel.Compile()
	if err != nil {
		return nil, locator.NewDriverError("find", err)
	}
	by := chromedp.ByQueryAll
	switch {
	case q.Kind == locator.QueryXPath:
		by = chromedp.BySearch
	case first:
		by = chromedp.ByQuery
	}

	var nodes []*cdpnode.Node
	err = d.run(ctx, "find", chromedp.Nodes(q.Expr, &nodes, by, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	// performSearch can surface text and document nodes; keep elements only.
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil && n.NodeType == cdpnode.NodeTypeElement {
			out = append(out, n)
		}
	}
	if first && len(out) > 1 {
		out = out[:1]
	}
	return out, nil
}

func (d *Driver) nodeOf(el locator.Element) (*cdpnode.Node, error) {
	e, ok := el.(*element)
	if !ok || e.node == nil {
		return nil, locator.NewDriverError("resolve", fmt.Errorf("element %T was not produced by the chromedp driver", el))
	}
	return e.node, nil
}

// callOn evaluates fn with `this` bound to the element's node.
func (d *Driver) callOn(ctx context.Context, op string, el locator.Element, fn string, res interface{}, args ...interface{}) error {
	node, err := d.nodeOf(el)
	if err != nil {
		return err
	}
	return d.run(ctx, op, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, node, fn, res, args...)
	}))
}

func (d *Driver) IsVisible(ctx context.Context, el locator.Element) (bool, error) {
	var st scripts.State
	if err := d.callOn(ctx, "visibility", el, scripts.NodeState, &st); err != nil {
		return false, err
	}
	if !st.Attached {
		return false, locator.ErrStaleElement
	}
	return st.Visible, nil
}

func (d *Driver) IsAttached(ctx context.Context, el locator.Element) (bool, error) {
	var st scripts.State
	err := d.callOn(ctx, "attached", el, scripts.NodeState, &st)
	if err != nil {
		if locator.IsTransient(err) {
			return false, nil
		}
		return false, err
	}
	return st.Attached, nil
}

func (d *Driver) Click(ctx context.Context, el locator.Element) error {
	node, err := d.nodeOf(el)
	if err != nil {
		return err
	}
	d.logger.Debug("Clicking element.", zap.String("element", el.Describe()))
	return d.run(ctx, "click", chromedp.MouseClickNode(node))
}

func (d *Driver) SetText(ctx context.Context, el locator.Element, value string) error {
	node, err := d.nodeOf(el)
	if err != nil {
		return err
	}
	if err := d.callOn(ctx, "clear", el, scripts.NodeClear, nil); err != nil {
		return err
	}
	return d.run(ctx, "type", chromedp.KeyEventNode(node, value))
}

func (d *Driver) Text(ctx context.Context, el locator.Element) (string, error) {
	var text string
	if err := d.callOn(ctx, "text", el, scripts.NodeText, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (d *Driver) Attribute(ctx context.Context, el locator.Element, name string) (string, bool, error) {
	var res scripts.AttrResult
	if err := d.callOn(ctx, "attribute", el, scripts.NodeAttr, &res, name); err != nil {
		return "", false, err
	}
	return res.Value, res.OK, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigating.", zap.String("url", url))
	err := d.run(ctx, "navigate", chromedp.Navigate(url))
	if err != nil && !locator.IsFatal(err) && ctx.Err() == nil && !isContextErr(err) {
		// A failed navigation (DNS, refused, TLS) is not going to fix itself.
		return locator.NewDriverError("navigate", err)
	}
	return err
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, "location", chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, res any, args ...any) error {
	expr, err := scripts.Expression(script, args)
	if err != nil {
		return locator.NewDriverError("script", err)
	}
	var raw []byte
	err = d.run(ctx, "script", chromedp.Evaluate(expr, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true)
	}))
	if err != nil {
		return err
	}
	if res == nil || len(raw) == 0 {
		return nil
	}
	if err := jsoniter.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("script: decoding result %q: %w", truncate(string(raw), 200), err)
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, "screenshot", chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Driver) ConsoleLogs(ctx context.Context) ([]locator.ConsoleEntry, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, locator.NewDriverError("console", fmt.Errorf("browser session closed: %w", err))
	}
	return d.console.snapshot(), nil
}

// ClearCookies also drops buffered console entries so each scenario starts
// with an empty log.
func (d *Driver) ClearCookies(ctx context.Context) error {
	if err := d.run(ctx, "clear cookies", network.ClearBrowserCookies()); err != nil {
		return err
	}
	d.console.reset()
	return nil
}

// Close closes the tab and waits for the target to go away. It is safe to
// call more than once.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(d.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("closing tab: %w", cerr)
		}
		d.cancel()
		if d.onClose != nil {
			d.onClose()
		}
	})
	return err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
