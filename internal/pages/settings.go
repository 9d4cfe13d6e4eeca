// internal/pages/settings.go
package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const UserSettingsPath = "/vas/usersettings"

var (
	userMenu = []locator.Selector{
		locator.XPath(`//vaadin-menu-bar-item[contains(normalize-space(.), '@')]`),
		locator.Text("menuitem", "@gmail.com"),
	}
	menuItems    = locator.CSS("vaadin-menu-bar-item, menuitem")
	settingsItem = locator.TextContains("Settings")

	userSettingsTitle = locator.Text("h1", "User Settings")
	generalTab        = locator.Text(`[role="tab"]`, "General")

	nicknameDisplay = []locator.Selector{
		locator.CSS("vaadin-horizontal-layout > div:first-child"),
		locator.CSS("vaadin-horizontal-layout div"),
	}
	nicknameInput = []locator.Selector{
		locator.CSS(`vaadin-text-field input`),
		locator.CSS(`input[type="text"]`),
		locator.CSS(`vaadin-horizontal-layout input`),
		locator.CSS(`[contenteditable="true"]`),
	}
	allButtons        = locator.CSS("vaadin-button")
	layoutButtons     = locator.CSS("vaadin-vertical-layout vaadin-button, vaadin-horizontal-layout vaadin-button")
	saveNicknameBtn   = locator.XPath(`//vaadin-button[.//vaadin-icon[contains(@src, "save-solid.svg")]]`)
	cancelNicknameBtn = locator.XPath(`//vaadin-button[.//vaadin-icon[contains(@src, "times-circle-solid.svg")]]`)
)

// The first few icon-only buttons belong to the navbar.
const navbarButtons = 3

// GenerateNickname returns "TestUser" followed by the Unix millisecond
// timestamp of now.
func GenerateNickname(now time.Time) string {
	return fmt.Sprintf("TestUser%d", now.UnixMilli())
}

// OpenUserMenu clicks the signed-in user's email in the navbar.
func (p *DashboardPage) OpenUserMenu(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "user menu", userMenu...)
}

// UserSettingsPage is /vas/usersettings and the navbar menu leading to it.
type UserSettingsPage struct {
	*Base
}

func NewUserSettingsPage(b *Base) *UserSettingsPage { return &UserSettingsPage{Base: b} }

// settingsMenuItem returns the first visible menu entry mentioning Settings.
func (p *UserSettingsPage) settingsMenuItem(ctx context.Context) (locator.Snapshot, bool, error) {
	snaps, err := locator.FindAllMatching(ctx, p.d, menuItems, locator.All(locator.VisibleOnly(), settingsItem))
	if err != nil || len(snaps) == 0 {
		return locator.Snapshot{}, false, err
	}
	return snaps[0], true, nil
}

// WaitForMenu waits until the user menu lists a settings entry.
func (p *UserSettingsPage) WaitForMenu(ctx context.Context) error {
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		_, ok, err := p.settingsMenuItem(ctx)
		return ok, err
	}, p.Wait(p.t.Medium, "user settings menu item"), p.opt())
}

// OpenFromMenu clicks the settings entry of the open user menu.
func (p *UserSettingsPage) OpenFromMenu(ctx context.Context) error {
	if err := p.WaitForMenu(ctx); err != nil {
		return err
	}
	item, ok, err := p.settingsMenuItem(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return &locator.NotFoundError{Message: "user settings menu item", Timeout: p.t.Medium}
	}
	if err := p.d.Click(ctx, item.Element); err != nil {
		return fmt.Errorf("failed to click %q: %w", strings.TrimSpace(item.Info.Text), err)
	}
	return nil
}

// WaitForLoaded waits for the settings route, its title and a loaded
// document.
func (p *UserSettingsPage) WaitForLoaded(ctx context.Context) error {
	if err := p.WaitForURLContains(ctx, UserSettingsPath, p.t.Long); err != nil {
		return err
	}
	if err := p.WaitForDisplayed(ctx, p.t.Long, "user settings title", userSettingsTitle); err != nil {
		return err
	}
	return p.WaitForPageLoad(ctx)
}

func (p *UserSettingsPage) IsOpen(ctx context.Context) (bool, error) {
	return p.IsDisplayed(ctx, userSettingsTitle)
}

// GeneralTabSelected reports whether the General tab carries the selected
// attribute.
func (p *UserSettingsPage) GeneralTabSelected(ctx context.Context) (bool, error) {
	m, err := p.Locate(ctx, p.t.Medium, "general tab", generalTab)
	if err != nil {
		return false, err
	}
	_, selected, err := p.d.Attribute(ctx, m.Element, "selected")
	return selected, err
}

// Nickname returns the displayed nickname.
func (p *UserSettingsPage) Nickname(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Medium, "nickname", nicknameDisplay...)
}

// EditNickname clicks the nickname's edit control: the first visible
// icon-only button past the navbar, or failing that the first icon-only
// button inside the settings layout.
func (p *UserSettingsPage) EditNickname(ctx context.Context) error {
	all, err := locator.FindAllMatching(ctx, p.d, allButtons, locator.All())
	if err != nil {
		return err
	}
	for i, b := range all {
		if i < navbarButtons || !b.Info.Visible || strings.TrimSpace(b.Info.Text) != "" {
			continue
		}
		return p.clickSnapshot(ctx, b, "nickname edit button")
	}

	layout, err := locator.FindAllMatching(ctx, p.d, layoutButtons, locator.All(locator.VisibleOnly(), locator.TextEquals("")))
	if err != nil {
		return err
	}
	if len(layout) == 0 {
		return &locator.NotFoundError{Message: "nickname edit button", Timeout: p.t.Medium}
	}
	return p.clickSnapshot(ctx, layout[0], "nickname edit button")
}

func (p *UserSettingsPage) clickSnapshot(ctx context.Context, s locator.Snapshot, msg string) error {
	if err := p.d.Click(ctx, s.Element); err != nil {
		return fmt.Errorf("failed to click %s: %w", msg, err)
	}
	return nil
}

// EnterNickname replaces the text of the inline nickname editor.
func (p *UserSettingsPage) EnterNickname(ctx context.Context, nickname string) error {
	return p.SetValue(ctx, p.t.Short, "nickname input", nickname, nicknameInput...)
}

func (p *UserSettingsPage) SaveNickname(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "save nickname button", saveNicknameBtn)
}

func (p *UserSettingsPage) CancelNickname(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "cancel nickname button", cancelNicknameBtn)
}

// WaitForNickname waits until the displayed nickname equals want.
func (p *UserSettingsPage) WaitForNickname(ctx context.Context, want string) error {
	var last string
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		res, err := locator.Probe(ctx, p.d, nicknameDisplay)
		if err != nil || !res.Found {
			return false, err
		}
		text, err := p.d.Text(ctx, res.Match.Element)
		if err != nil {
			return false, err
		}
		last = strings.TrimSpace(text)
		return last == want, nil
	}, p.Wait(p.t.Medium, fmt.Sprintf("nickname to become %q", want)), p.opt())
	if err != nil {
		return fmt.Errorf("%w (nickname shows %q)", err, last)
	}
	return nil
}

// -- Report settings --

var (
	reportSettingsButton = locator.ExactText("vaadin-button.dashboard-action-button2", "Settings")
	reportDialog         = locator.CSS(`[role="dialog"]`)
	reportName           = []locator.Selector{
		locator.CSS(`[role="dialog"] input`),
		locator.CSS("input"),
	}
	reportDescription = []locator.Selector{
		locator.CSS("textarea"),
		locator.CSS(`input[placeholder*="Description"]`),
		locator.CSS(`input[name*="description"]`),
	}
	reportSave    = locator.ExactText("vaadin-button", "Save")
	reportHeading = locator.CSS("h1")
	reportTitles  = locator.CSS("h2")

	// Dashboard section headings that are not reports.
	notSectionHeading = locator.Not(locator.Any(
		locator.TextEquals("Dashboard"),
		locator.TextEquals("Recent Ratings"),
		locator.TextEquals("Cyber Rank"),
		locator.TextEquals("Privacy"),
		locator.TextEquals("Security"),
		locator.TextEquals("Compliance"),
		locator.TextEquals("Data Breach"),
	))
)

// GenerateReportName returns "Report_" followed by the Unix millisecond
// timestamp of now.
func GenerateReportName(now time.Time) string {
	return fmt.Sprintf("Report_%d", now.UnixMilli())
}

// GenerateReportDescription returns a description stamped with now.
func GenerateReportDescription(now time.Time) string {
	return fmt.Sprintf("Updated description at %d - This is an automated test description", now.UnixMilli())
}

// ReportSettingsPage is the settings dialog of a report opened from the
// dashboard.
type ReportSettingsPage struct {
	*Base
}

func NewReportSettingsPage(b *Base) *ReportSettingsPage { return &ReportSettingsPage{Base: b} }

// OpenFirstReport makes sure a report is shown. When the page heading is
// still "Dashboard" it opens the first listed report and waits to leave the
// dashboard route. A dashboard that lists no report is ErrElementNotFound.
func (p *ReportSettingsPage) OpenFirstReport(ctx context.Context) error {
	heading, err := p.TextOf(ctx, p.t.Medium, "page heading", reportHeading)
	if err != nil {
		return err
	}
	if heading != "Dashboard" {
		return nil
	}
	reports, err := locator.FindAllMatching(ctx, p.d, reportTitles, locator.All(locator.VisibleOnly(), notSectionHeading))
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return &locator.NotFoundError{Message: "report title on the dashboard", Timeout: p.t.Medium}
	}
	if err := p.d.Click(ctx, reports[0].Element); err != nil {
		return fmt.Errorf("failed to open report %q: %w", strings.TrimSpace(reports[0].Info.Text), err)
	}
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		on, err := p.URLContains(ctx, DashboardPath)
		return !on, err
	}, p.Wait(p.t.Medium, "report to load"), p.opt())
}

func (p *ReportSettingsPage) OpenSettings(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "report settings button", reportSettingsButton)
}

// WaitForDialog waits until the dialog and both of its fields are visible.
func (p *ReportSettingsPage) WaitForDialog(ctx context.Context) error {
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		for _, group := range [][]locator.Selector{{reportDialog}, reportName, reportDescription} {
			shown, err := p.IsDisplayed(ctx, group...)
			if err != nil || !shown {
				return false, err
			}
		}
		return true, nil
	}, p.Wait(p.t.Medium, "report settings dialog"), p.opt())
}

func (p *ReportSettingsPage) EnterName(ctx context.Context, name string) error {
	return p.SetValue(ctx, p.t.Medium, "report name field", name, reportName...)
}

func (p *ReportSettingsPage) EnterDescription(ctx context.Context, desc string) error {
	return p.SetValue(ctx, p.t.Medium, "report description field", desc, reportDescription...)
}

func (p *ReportSettingsPage) Save(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "save button", reportSave)
}

// WaitForDialogClosed treats the dialog closing as a successful save.
func (p *ReportSettingsPage) WaitForDialogClosed(ctx context.Context) error {
	return p.WaitGone(ctx, p.t.Medium, "report settings dialog to close", reportDialog)
}

// WaitForReportName waits for the report heading to show name.
func (p *ReportSettingsPage) WaitForReportName(ctx context.Context, name string) error {
	return p.WaitForDisplayed(ctx, p.t.Short, fmt.Sprintf("report name %q", name), locator.Text("h1", name))
}

// WaitForReportDescription waits for the report subheading to show desc.
func (p *ReportSettingsPage) WaitForReportDescription(ctx context.Context, desc string) error {
	return p.WaitForDisplayed(ctx, p.t.Short, "report description", locator.Text("h3", desc))
}
