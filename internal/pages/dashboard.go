// internal/pages/dashboard.go
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const DashboardPath = "/vas/dashboard"

// Sidebar entries by their visible label, mapped to the route they link to.
var sidebarRoutes = map[string]string{
	"dashboard":      "dashboard",
	"my vendors":     "myvendors",
	"directory":      "directory",
	"questionnaires": "questionnaire",
	"individuals":    "individuals",
	"top rank":       "toprank",
	"referrals":      "referrals",
	"teams":          "team",
	"team":           "team",
	"billing":        "billing",
	"api":            "apisub",
}

var (
	dashboardTitle   = locator.Text("h1", "Dashboard")
	dashboardHeading = locator.CSS("h1.text-l.m-0")
	pageHeader       = locator.CSS("h1")
	creditsLabel     = locator.Text("h4", "Credits")
	newAssessment    = locator.Text("button", "New Assessment")
	sideNav          = locator.CSS("vaadin-side-nav")

	scoreElements   = locator.CSS(`[class*="score"], [class*="rating"], [class*="credit"]`)
	recentSection   = locator.CSS(`[class*="recent"], [class*="activity"], [class*="rating"]`)
	notifications   = locator.CSS(`[class*="notification"], [class*="alert"], [class*="badge"]`)
	recentActions   = locator.CSS(`vaadin-grid-cell-content, .list-item, li, [class*="item"]`)
	activityEntries = locator.CSS(`vaadin-grid-cell-content, [class*="card"], [class*="item"]`)
)

// The header used to greet the user; it now reads "Dashboard".
var headerAliases = map[string]string{"welcome back": "Dashboard"}

// DashboardPage is the landing page after login, including its sidebar.
type DashboardPage struct {
	*Base
}

func NewDashboardPage(b *Base) *DashboardPage { return &DashboardPage{Base: b} }

// Open navigates to the dashboard unless the browser is already there.
func (p *DashboardPage) Open(ctx context.Context) error {
	here, err := p.URLContains(ctx, DashboardPath)
	if err != nil {
		return err
	}
	if !here {
		if err := p.Base.Open(ctx, DashboardPath); err != nil {
			return err
		}
	}
	return p.WaitForDashboard(ctx)
}

// WaitForDashboard waits for the dashboard route, its title and a loaded
// document, in that order.
func (p *DashboardPage) WaitForDashboard(ctx context.Context) error {
	if err := p.WaitForURLContains(ctx, DashboardPath, p.t.Long); err != nil {
		return err
	}
	if err := p.WaitForDisplayed(ctx, p.t.Long, "dashboard title", dashboardTitle); err != nil {
		return err
	}
	return p.WaitForPageLoad(ctx)
}

// Heading returns the page heading text.
func (p *DashboardPage) Heading(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Medium, "dashboard heading", dashboardHeading)
}

// WaitForHeader waits until the page's h1 contains want.
func (p *DashboardPage) WaitForHeader(ctx context.Context, want string) error {
	if alias, ok := headerAliases[strings.ToLower(strings.TrimSpace(want))]; ok {
		want = alias
	}
	var last string
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		res, err := locator.Probe(ctx, p.d, []locator.Selector{pageHeader})
		if err != nil || !res.Found {
			return false, err
		}
		text, err := p.d.Text(ctx, res.Match.Element)
		if err != nil {
			return false, err
		}
		last = strings.TrimSpace(text)
		return strings.Contains(last, want), nil
	}, p.Wait(p.t.Medium, fmt.Sprintf("header %q", want)), p.opt())
	if err != nil {
		return fmt.Errorf("%w (header shows %q)", err, last)
	}
	return nil
}

func sidebarLink(label string) (locator.Selector, error) {
	route, ok := sidebarRoutes[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return locator.Selector{}, fmt.Errorf("unknown sidebar entry %q", label)
	}
	return locator.CSS(fmt.Sprintf(`a[href="/vas/%s"]`, route)), nil
}

// OpenSidebar clicks the sidebar entry with the given label ("Teams").
func (p *DashboardPage) OpenSidebar(ctx context.Context, label string) error {
	sel, err := sidebarLink(label)
	if err != nil {
		return err
	}
	return p.ClickFirst(ctx, p.t.Medium, fmt.Sprintf("%q sidebar entry", label), sel)
}

// ClickSideNav clicks the side navigation item labelled name, or failing
// that any visible element containing name.
func (p *DashboardPage) ClickSideNav(ctx context.Context, name string) error {
	if err := p.WaitForDisplayed(ctx, p.t.Medium, "side navigation", sideNav); err != nil {
		return err
	}
	return p.ClickFirst(ctx, p.t.Medium, fmt.Sprintf("%q navigation item", name),
		locator.Text("vaadin-side-nav-item", name), locator.Text("", name))
}

// WaitForSection waits until the URL mentions the section or a heading
// names it.
func (p *DashboardPage) WaitForSection(ctx context.Context, name string) error {
	headings := []locator.Selector{locator.Text("h1", name), locator.Text("h2", name), locator.Text("h3", name)}
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		if ok, err := p.URLContains(ctx, strings.ToLower(name)); err != nil || ok {
			return ok, err
		}
		return p.IsDisplayed(ctx, headings...)
	}, p.Wait(p.t.Medium, fmt.Sprintf("section %s", name)), p.opt())
}

// Credits returns the credits label text.
func (p *DashboardPage) Credits(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Medium, "credits", creditsLabel)
}

// CheckWidget verifies that the named dashboard widget renders.
// Notifications only show when there is something to report, so their
// absence is logged rather than failed.
func (p *DashboardPage) CheckWidget(ctx context.Context, name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "security score":
		_, err := p.WaitForCount(ctx, scoreElements, locator.All(), 1, p.t.Medium, "score elements")
		return err
	case "credits":
		text, err := p.Credits(ctx)
		if err != nil {
			return err
		}
		if text == "" {
			return errors.New("credits widget is empty")
		}
		return nil
	case "recent activities":
		return p.WaitForDisplayed(ctx, p.t.Medium, "recent activities", recentSection)
	case "notifications":
		shown, err := p.IsDisplayed(ctx, notifications)
		if err != nil {
			return err
		}
		p.logger.Debug("Notifications widget checked.", zap.Bool("shown", shown))
		return nil
	case "quick actions":
		return p.WaitForDisplayed(ctx, p.t.Medium, "new assessment button", newAssessment)
	default:
		return fmt.Errorf("unknown dashboard widget %q", name)
	}
}

// LookAtWidget waits for a widget by name; names without a dedicated
// rendering are matched by their visible text.
func (p *DashboardPage) LookAtWidget(ctx context.Context, name string) error {
	if strings.EqualFold(strings.TrimSpace(name), "recent activities") {
		return p.WaitForDisplayed(ctx, p.t.Medium, "recent activities", recentSection)
	}
	return p.WaitForDisplayed(ctx, p.t.Medium, fmt.Sprintf("%s widget", name), locator.Text("", name))
}

// RecentActions waits for at least one recent action entry.
func (p *DashboardPage) RecentActions(ctx context.Context) ([]locator.Snapshot, error) {
	return p.WaitForCount(ctx, recentActions, locator.All(), 1, p.t.Medium, "recent actions")
}

// FirstActivity returns the text of the first activity entry, which must
// not be blank.
func (p *DashboardPage) FirstActivity(ctx context.Context) (string, error) {
	snaps, err := p.WaitForCount(ctx, activityEntries, locator.All(), 1, p.t.Medium, "activity entries")
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(snaps[0].Info.Text)
	if text == "" {
		return "", errors.New("first activity entry is blank")
	}
	return text, nil
}
