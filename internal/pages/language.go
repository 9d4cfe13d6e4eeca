// internal/pages/language.go
package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

var (
	languageSelector = locator.CSS(`vaadin-select-value-button[role="button"]`)
	currentLanguage  = locator.CSS(`vaadin-select-value-button[role="button"] span`)
	backToHome       = locator.Text("button", "Back to Home")
	loginHeading     = locator.CSS("h2")

	// The select renders its options differently per language.
	languageOptions = map[string]locator.Selector{
		"english":    locator.Text(`[role="option"]`, "English"),
		"indonesian": locator.Text("vaadin-select-item", "Indonesian"),
		"malaysian":  locator.Text(`[role="option"]`, "Malaysian"),
	}

	// Navigation labels that only render in a given language.
	navigationLabels = map[string][]string{
		"english":    {"Home", "What we do"},
		"indonesian": {"Beranda", "Apa yang kami lakukan"},
	}
)

// LanguagePage is the language switcher shared by the public pages.
type LanguagePage struct {
	*Base
}

func NewLanguagePage(b *Base) *LanguagePage { return &LanguagePage{Base: b} }

func (p *LanguagePage) OpenSelector(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "language selector", languageSelector)
}

// Select picks language from the open dropdown. Unknown languages fail
// without touching the browser.
func (p *LanguagePage) Select(ctx context.Context, language string) error {
	opt, ok := languageOptions[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return fmt.Errorf("language %q not supported", language)
	}
	return p.ClickFirst(ctx, p.t.Medium, fmt.Sprintf("%s language option", language), opt)
}

// Current returns the language shown on the selector button.
func (p *LanguagePage) Current(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Medium, "current language", currentLanguage)
}

// WaitForLanguage waits until the selector button shows language.
func (p *LanguagePage) WaitForLanguage(ctx context.Context, language string) error {
	var last string
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		res, err := locator.Probe(ctx, p.d, []locator.Selector{currentLanguage})
		if err != nil || !res.Found {
			return false, err
		}
		text, err := p.d.Text(ctx, res.Match.Element)
		if err != nil {
			return false, err
		}
		last = strings.TrimSpace(text)
		return strings.Contains(last, language), nil
	}, p.Wait(p.t.Medium, fmt.Sprintf("language to change to %s", language)), p.opt())
	if err != nil {
		return fmt.Errorf("%w (selector shows %q)", err, last)
	}
	return nil
}

// BackToHome clicks the "Back to Home" button.
func (p *LanguagePage) BackToHome(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "back to home button", backToHome)
}

// WaitForNavigation waits until every navigation label of language is
// visible.
func (p *LanguagePage) WaitForNavigation(ctx context.Context, language string) error {
	labels, ok := navigationLabels[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return fmt.Errorf("no navigation labels known for %q", language)
	}
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		for _, l := range labels {
			shown, err := p.IsDisplayed(ctx, locator.Text("", l))
			if err != nil || !shown {
				return false, err
			}
		}
		return true, nil
	}, p.Wait(p.t.MediumLong, fmt.Sprintf("%s navigation items", language)), p.opt())
}

// NavItemDisplayed checks once for a visible element containing text.
func (p *LanguagePage) NavItemDisplayed(ctx context.Context, text string) (bool, error) {
	return p.IsDisplayed(ctx, locator.Text("", text))
}

// LoginHeading returns the login form heading.
func (p *LanguagePage) LoginHeading(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Short, "login heading", loginHeading)
}

// WaitForLabel waits for a visible element whose text is exactly label and
// returns it.
func (p *LanguagePage) WaitForLabel(ctx context.Context, label string) (string, error) {
	snaps, err := p.WaitForCount(ctx, locator.Text("", label),
		locator.All(locator.VisibleOnly(), locator.TextEquals(label)), 1,
		p.t.Medium, fmt.Sprintf("label %q", label))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(snaps[0].Info.Text), nil
}
