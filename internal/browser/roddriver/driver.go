// internal/browser/roddriver/driver.go
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const defaultOpTimeout = 10 * time.Second

type element struct {
	el  *rod.Element
	via string
}

func (e *element) Describe() string {
	name := "element"
	if e.el != nil && e.el.Object != nil && e.el.Object.ClassName != "" {
		name = e.el.Object.ClassName
	}
	return fmt.Sprintf("<%s> via %s", name, e.via)
}

// Driver implements locator.Driver on one rod page.
type Driver struct {
	page      *rod.Page
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	opTimeout time.Duration
	console   *consoleBuffer

	closeOnce sync.Once
	onClose   func()
}

var _ locator.Driver = (*Driver)(nil)

// bound returns a context for one operation along with its cancel func.
func (d *Driver) bound(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, nil, locator.NewDriverError(op, fmt.Errorf("browser session closed: %w", err))
	}
	opCtx, cancel := context.WithTimeout(ctx, d.opTimeout)
	stop := context.AfterFunc(d.ctx, cancel)
	return opCtx, func() { stop(); cancel() }, nil
}

func (d *Driver) finish(op string, err error) error {
	if err != nil && d.ctx.Err() != nil {
		return locator.NewDriverError(op, fmt.Errorf("browser session closed: %w", err))
	}
	return classify(op, err)
}

func (d *Driver) FindOne(ctx context.Context, sel locator.Selector) (locator.Element, error) {
	els, err := d.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, locator.ErrNoSuchElement
	}
	return els[0], nil
}

func (d *Driver) FindAll(ctx context.Context, sel locator.Selector) ([]locator.Element, error) {
	els, err := d.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]locator.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

// query uses Elements/ElementsX, which return the current matches without
// waiting.
func (d *Driver) query(ctx context.Context, sel locator.Selector) ([]*element, error) {
	q, err := sel.Compile()
	if err != nil {
		return nil, locator.NewDriverError("find", err)
	}
	opCtx, cancel, err := d.bound(ctx, "find")
	if err != nil {
		return nil, err
	}
	defer cancel()

	page := d.page.Context(opCtx)
	var found rod.Elements
	if q.Kind == locator.QueryXPath {
		found, err = page.ElementsX(q.Expr)
	} else {
		found, err = page.Elements(q.Expr)
	}
	if err != nil {
		return nil, d.finish("find", err)
	}
	out := make([]*element, 0, len(found))
	for _, el := range found {
		out = append(out, &element{el: el, via: sel.String()})
	}
	return out, nil
}

// on rebinds the element to the operation context; handles returned by
// query carry the (already finished) query context.
func (d *Driver) on(ctx context.Context, op string, el locator.Element) (*rod.Element, context.CancelFunc, error) {
	e, ok := el.(*element)
	if !ok || e.el == nil {
		return nil, nil, locator.NewDriverError(op, fmt.Errorf("element %T was not produced by the rod driver", el))
	}
	opCtx, cancel, err := d.bound(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	return e.el.Context(opCtx), cancel, nil
}

func (d *Driver) state(ctx context.Context, op string, el locator.Element) (scripts.State, error) {
	var st scripts.State
	rel, cancel, err := d.on(ctx, op, el)
	if err != nil {
		return st, err
	}
	defer cancel()
	res, err := rel.Eval(scripts.NodeState)
	if err != nil {
		return st, d.finish(op, err)
	}
	st.Attached = res.Value.Get("attached").Bool()
	st.Visible = res.Value.Get("visible").Bool()
	return st, nil
}

func (d *Driver) IsVisible(ctx context.Context, el locator.Element) (bool, error) {
	st, err := d.state(ctx, "visibility", el)
	if err != nil {
		return false, err
	}
	if !st.Attached {
		return false, locator.ErrStaleElement
	}
	return st.Visible, nil
}

func (d *Driver) IsAttached(ctx context.Context, el locator.Element) (bool, error) {
	st, err := d.state(ctx, "attached", el)
	if err != nil {
		if locator.IsTransient(err) {
			return false, nil
		}
		return false, err
	}
	return st.Attached, nil
}

func (d *Driver) Click(ctx context.Context, el locator.Element) error {
	rel, cancel, err := d.on(ctx, "click", el)
	if err != nil {
		return err
	}
	defer cancel()
	d.logger.Debug("Clicking element.", zap.String("element", el.Describe()))
	return d.finish("click", rel.Click(proto.InputMouseButtonLeft, 1))
}

func (d *Driver) SetText(ctx context.Context, el locator.Element, value string) error {
	rel, cancel, err := d.on(ctx, "type", el)
	if err != nil {
		return err
	}
	defer cancel()
	if _, err := rel.Eval(scripts.NodeClear); err != nil {
		return d.finish("clear", err)
	}
	return d.finish("type", rel.Input(value))
}

func (d *Driver) Text(ctx context.Context, el locator.Element) (string, error) {
	rel, cancel, err := d.on(ctx, "text", el)
	if err != nil {
		return "", err
	}
	defer cancel()
	res, err := rel.Eval(scripts.NodeText)
	if err != nil {
		return "", d.finish("text", err)
	}
	return res.Value.Str(), nil
}

func (d *Driver) Attribute(ctx context.Context, el locator.Element, name string) (string, bool, error) {
	rel, cancel, err := d.on(ctx, "attribute", el)
	if err != nil {
		return "", false, err
	}
	defer cancel()
	res, err := rel.Eval(scripts.NodeAttr, name)
	if err != nil {
		return "", false, d.finish("attribute", err)
	}
	return res.Value.Get("value").Str(), res.Value.Get("ok").Bool(), nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	opCtx, cancel, err := d.bound(ctx, "navigate")
	if err != nil {
		return err
	}
	defer cancel()
	d.logger.Debug("Navigating.", zap.String("url", url))

	page := d.page.Context(opCtx)
	if err := page.Navigate(url); err != nil {
		if ctx.Err() == nil && !isContextErr(err) {
			return locator.NewDriverError("navigate", err)
		}
		return d.finish("navigate", err)
	}
	return d.finish("navigate", page.WaitLoad())
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel, err := d.bound(ctx, "location")
	if err != nil {
		return "", err
	}
	defer cancel()
	info, err := d.page.Context(opCtx).Info()
	if err != nil {
		return "", d.finish("location", err)
	}
	return info.URL, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, res any, args ...any) error {
	expr, err := scripts.Expression(script, args)
	if err != nil {
		return locator.NewDriverError("script", err)
	}
	opCtx, cancel, err := d.bound(ctx, "script")
	if err != nil {
		return err
	}
	defer cancel()

	out, err := d.page.Context(opCtx).Evaluate(rod.Eval("() => " + expr).ByPromise())
	if err != nil {
		return d.finish("script", err)
	}
	if res == nil || out == nil {
		return nil
	}
	raw := out.Value.JSON("", "")
	if err := jsoniter.UnmarshalFromString(raw, res); err != nil {
		return fmt.Errorf("script: decoding result %q: %w", truncate(raw, 200), err)
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel, err := d.bound(ctx, "screenshot")
	if err != nil {
		return nil, err
	}
	defer cancel()
	buf, err := d.page.Context(opCtx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, d.finish("screenshot", err)
	}
	return buf, nil
}

func (d *Driver) ConsoleLogs(ctx context.Context) ([]locator.ConsoleEntry, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, locator.NewDriverError("console", fmt.Errorf("browser session closed: %w", err))
	}
	return d.console.snapshot(), nil
}

func (d *Driver) ClearCookies(ctx context.Context) error {
	opCtx, cancel, err := d.bound(ctx, "clear cookies")
	if err != nil {
		return err
	}
	defer cancel()
	if err := (proto.NetworkClearBrowserCookies{}).Call(d.page.Context(opCtx)); err != nil {
		return d.finish("clear cookies", err)
	}
	d.console.reset()
	return nil
}

// Close closes the page. It is safe to call more than once.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if cerr := d.page.Close(); cerr != nil && !isContextErr(cerr) {
			err = fmt.Errorf("closing page: %w", cerr)
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
