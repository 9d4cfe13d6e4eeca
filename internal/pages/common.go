// internal/pages/common.go
package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

// Named landmarks used by the generic visibility step.
var landmarks = map[string][]locator.Selector{
	"main navigation menu": {locator.CSS("nav")},
	"hero section":         {locator.Text("div", "Global Standard")},
	"login button":         {locator.Text("a", "Login")},
}

var genericErrorMessage = []locator.Selector{
	locator.CSS(".error-message"),
	locator.CSS(".error"),
	locator.CSS(`[class*="error"]`),
}

// ClickButton clicks the button whose text contains label.
func (b *Base) ClickButton(ctx context.Context, label string) error {
	return b.ClickFirst(ctx, b.t.Medium, fmt.Sprintf("%q button", label),
		locator.Text("button", label), locator.Text("vaadin-button", label))
}

// ClickLink clicks the link whose text contains label.
func (b *Base) ClickLink(ctx context.Context, label string) error {
	return b.ClickFirst(ctx, b.t.Medium, fmt.Sprintf("%q link", label), locator.Text("a", label))
}

// WaitForText waits until some element containing text is visible.
func (b *Base) WaitForText(ctx context.Context, text string) error {
	return b.WaitForDisplayed(ctx, b.t.Medium, fmt.Sprintf("text %q", text), locator.Text("", text))
}

// FillField types value into the input named name.
func (b *Base) FillField(ctx context.Context, name, value string) error {
	sel := locator.CSS(fmt.Sprintf(`input[name=%q]`, name))
	return b.SetValue(ctx, b.t.Medium, fmt.Sprintf("%q field", name), value, sel)
}

// FieldValue returns the current value of the input named name.
func (b *Base) FieldValue(ctx context.Context, name string) (string, error) {
	sel := locator.CSS(fmt.Sprintf(`input[name=%q]`, name))
	m, err := b.Locate(ctx, b.t.Medium, fmt.Sprintf("%q field", name), sel)
	if err != nil {
		return "", err
	}
	v, _, err := b.d.Attribute(ctx, m.Element, "value")
	if err != nil {
		return "", fmt.Errorf("failed to read %q field: %w", name, err)
	}
	return v, nil
}

// WaitForLandmark waits for a named page landmark ("hero section"). Unknown
// names fail without touching the browser.
func (b *Base) WaitForLandmark(ctx context.Context, name string) error {
	sels, ok := landmarks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("unknown page element %q", name)
	}
	return b.WaitForDisplayed(ctx, b.t.Medium, name, sels...)
}

// ErrorMessage returns the text of the first visible generic error element.
func (b *Base) ErrorMessage(ctx context.Context) (string, error) {
	return b.TextOf(ctx, b.t.Medium, "error message", genericErrorMessage...)
}

// NoErrorMessage fails when a generic error element is visible right now.
func (b *Base) NoErrorMessage(ctx context.Context) error {
	res, err := locator.Probe(ctx, b.d, genericErrorMessage)
	if err != nil || !res.Found {
		return err
	}
	text, _ := b.d.Text(ctx, res.Match.Element)
	return fmt.Errorf("unexpected error message %q", strings.TrimSpace(text))
}
