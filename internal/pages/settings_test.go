// internal/pages/settings_test.go
package pages_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/fakedriver"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
	"github.com/xkilldash9x/cyberrank-e2e/internal/pages"
)

const (
	saveNickname   = `//vaadin-button[.//vaadin-icon[contains(@src, "save-solid.svg")]]`
	currentLangSel = `vaadin-select-value-button[role="button"] span`
)

func TestLanguagePage(t *testing.T) {
	ctx := context.Background()
	d := fakedriver.New().
		Add(currentLangSel, fakedriver.Node{Text: "English"}).
		Add("*=Home", fakedriver.Node{}).
		Add("*=What we do", fakedriver.Node{})
	d.Add(`vaadin-select-value-button[role="button"]`, fakedriver.Node{Name: "selector", OnClick: func(d *fakedriver.Driver) {
		d.Add("vaadin-select-item*=Indonesian", fakedriver.Node{Name: "indonesian", OnClick: func(d *fakedriver.Driver) {
			d.Remove(currentLangSel)
			d.Add(currentLangSel, fakedriver.Node{Text: " Indonesian "})
			d.Add("*=Beranda", fakedriver.Node{VisibleAt: 30 * time.Millisecond})
			d.Add("*=Apa yang kami lakukan", fakedriver.Node{})
		}})
	}})
	p := pages.NewLanguagePage(newBase(t, d))

	require.NoError(t, p.WaitForNavigation(ctx, "English"))
	err := p.WaitForLanguage(ctx, "Indonesian")
	assert.ErrorIs(t, err, locator.ErrTimeoutExceeded)
	assert.ErrorContains(t, err, `selector shows "English"`)

	require.NoError(t, p.OpenSelector(ctx))
	assert.ErrorContains(t, p.Select(ctx, "Klingon"), "not supported")
	require.NoError(t, p.Select(ctx, "indonesian"))
	require.NoError(t, p.WaitForLanguage(ctx, "Indonesian"))
	require.NoError(t, p.WaitForNavigation(ctx, "Indonesian"))

	lang, err := p.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Indonesian", lang)

	shown, err := p.NavItemDisplayed(ctx, "Beranda")
	require.NoError(t, err)
	assert.True(t, shown)
	assert.Equal(t, []string{"click selector", "click indonesian"}, d.Calls())
}

func TestLanguagePageLabels(t *testing.T) {
	ctx := context.Background()
	d := fakedriver.New().
		Add("h2", fakedriver.Node{Text: "Masuk"}).
		Add("*=Kata Sandi", fakedriver.Node{Text: "Kata Sandi Baru", Name: "hint"}).
		Add("*=Kata Sandi", fakedriver.Node{Text: "Kata Sandi", AppearAt: 20 * time.Millisecond})
	p := pages.NewLanguagePage(newBase(t, d))

	heading, err := p.LoginHeading(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Masuk", heading)

	label, err := p.WaitForLabel(ctx, "Kata Sandi")
	require.NoError(t, err)
	assert.Equal(t, "Kata Sandi", label)

	assert.ErrorContains(t, p.WaitForNavigation(ctx, "Malaysian"), "no navigation labels")
}

func TestUserSettingsNavigation(t *testing.T) {
	ctx := context.Background()
	d := fakedriver.New()
	d.Add(`//vaadin-menu-bar-item[contains(normalize-space(.), '@')]`, fakedriver.Node{Name: "user menu", OnClick: func(d *fakedriver.Driver) {
		d.Add("vaadin-menu-bar-item, menuitem", fakedriver.Node{Name: "logout", Text: "Logout"})
		d.Add("vaadin-menu-bar-item, menuitem", fakedriver.Node{Name: "settings", Text: "User Settings", OnClick: func(d *fakedriver.Driver) {
			d.SetURL(baseURL + pages.UserSettingsPath)
			d.Add("h1*=User Settings", fakedriver.Node{})
			d.Add(`[role="tab"]*=General`, fakedriver.Node{Attrs: map[string]string{"selected": ""}})
		}})
	}})
	dash := pages.NewDashboardPage(newBase(t, d))
	p := pages.NewUserSettingsPage(newBase(t, d))

	require.NoError(t, dash.OpenUserMenu(ctx))
	require.NoError(t, p.WaitForMenu(ctx))
	require.NoError(t, p.OpenFromMenu(ctx))
	require.NoError(t, p.WaitForLoaded(ctx))

	open, err := p.IsOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	selected, err := p.GeneralTabSelected(ctx)
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, []string{"click user menu", "click settings"}, d.Calls())
}

func TestUserSettingsMenuMissing(t *testing.T) {
	d := fakedriver.New().
		Add("vaadin-menu-bar-item, menuitem", fakedriver.Node{Text: "Logout"})
	p := pages.NewUserSettingsPage(newBase(t, d))

	err := p.OpenFromMenu(context.Background())
	assert.ErrorIs(t, err, locator.ErrTimeoutExceeded)
	assert.Empty(t, d.Calls())
}

func TestUserSettingsNickname(t *testing.T) {
	ctx := context.Background()
	nickname := pages.GenerateNickname(time.UnixMilli(1700000000000))
	assert.Equal(t, "TestUser1700000000000", nickname)

	d := fakedriver.New().
		Add("vaadin-horizontal-layout > div:first-child", fakedriver.Node{Text: "OldName"})
	for _, name := range []string{"menu", "bell", "avatar"} {
		d.Add("vaadin-button", fakedriver.Node{Name: name})
	}
	d.Add("vaadin-button", fakedriver.Node{Name: "hidden", Hidden: true})
	d.Add("vaadin-button", fakedriver.Node{Name: "labelled", Text: "New Assessment"})
	d.Add("vaadin-button", fakedriver.Node{Name: "edit", OnClick: func(d *fakedriver.Driver) {
		d.Add(`input[type="text"]`, fakedriver.Node{Name: "nickname input"})
		d.Add(saveNickname, fakedriver.Node{Name: "save", OnClick: func(d *fakedriver.Driver) {
			d.Remove("vaadin-horizontal-layout > div:first-child")
			d.Add("vaadin-horizontal-layout > div:first-child", fakedriver.Node{Text: nickname})
		}})
	}})
	p := pages.NewUserSettingsPage(newBase(t, d))

	current, err := p.Nickname(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OldName", current)

	require.NoError(t, p.EditNickname(ctx))
	require.NoError(t, p.EnterNickname(ctx, nickname))
	require.NoError(t, p.SaveNickname(ctx))
	require.NoError(t, p.WaitForNickname(ctx, nickname))

	assert.Equal(t, nickname, d.Value(`input[type="text"]`))
	assert.Equal(t, []string{"click edit", "type nickname input", "click save"}, d.Calls())
}

func TestUserSettingsEditNicknameFallsBackToLayout(t *testing.T) {
	ctx := context.Background()
	d := fakedriver.New().
		Add("vaadin-button", fakedriver.Node{Name: "menu"}).
		Add("vaadin-vertical-layout vaadin-button, vaadin-horizontal-layout vaadin-button", fakedriver.Node{Name: "save", Text: "Save"}).
		Add("vaadin-vertical-layout vaadin-button, vaadin-horizontal-layout vaadin-button", fakedriver.Node{Name: "pencil"})
	p := pages.NewUserSettingsPage(newBase(t, d))

	require.NoError(t, p.EditNickname(ctx))
	assert.Equal(t, []string{"click pencil"}, d.Calls())

	err := pages.NewUserSettingsPage(newBase(t, fakedriver.New())).EditNickname(ctx)
	assert.ErrorIs(t, err, locator.ErrElementNotFound)
}

func TestReportSettingsFlow(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1700000000000)
	name := pages.GenerateReportName(now)
	desc := pages.GenerateReportDescription(now)
	assert.Equal(t, "Report_1700000000000", name)
	assert.Equal(t, "Updated description at 1700000000000 - This is an automated test description", desc)

	d := fakedriver.New().
		Add("h1", fakedriver.Node{Text: "Acme Corp"}).
		Add("vaadin-button.dashboard-action-button2=Settings", fakedriver.Node{Name: "settings", OnClick: func(d *fakedriver.Driver) {
			d.Add(`[role="dialog"]`, fakedriver.Node{})
			d.Add(`[role="dialog"] input`, fakedriver.Node{Name: "name"})
			d.Add("textarea", fakedriver.Node{Name: "description"})
			d.Add("vaadin-button=Save", fakedriver.Node{Name: "save", OnClick: func(d *fakedriver.Driver) {
				d.Remove(`[role="dialog"]`)
				d.Add("h1*="+name, fakedriver.Node{})
				d.Add("h3*="+desc, fakedriver.Node{})
			}})
		}})
	d.SetURL(baseURL + "/vas/report/42")
	p := pages.NewReportSettingsPage(newBase(t, d))

	require.NoError(t, p.OpenFirstReport(ctx))
	require.NoError(t, p.OpenSettings(ctx))
	require.NoError(t, p.WaitForDialog(ctx))
	require.NoError(t, p.EnterName(ctx, name))
	require.NoError(t, p.EnterDescription(ctx, desc))
	require.NoError(t, p.Save(ctx))
	require.NoError(t, p.WaitForDialogClosed(ctx))
	require.NoError(t, p.WaitForReportName(ctx, name))
	require.NoError(t, p.WaitForReportDescription(ctx, desc))

	assert.Equal(t, name, d.Value(`[role="dialog"] input`))
	assert.Equal(t, desc, d.Value("textarea"))
	assert.Equal(t, []string{"click settings", "type name", "type description", "click save"}, d.Calls())
}

func TestReportSettingsOpensFirstReportFromDashboard(t *testing.T) {
	ctx := context.Background()
	d := fakedriver.New().
		Add("h1", fakedriver.Node{Text: "Dashboard"}).
		Add("h2", fakedriver.Node{Name: "recent", Text: "Recent Ratings"}).
		Add("h2", fakedriver.Node{Name: "acme", Text: "Acme Corp", OnClick: func(d *fakedriver.Driver) {
			d.SetURL(baseURL + "/vas/report/7")
		}})
	d.SetURL(baseURL + pages.DashboardPath)
	p := pages.NewReportSettingsPage(newBase(t, d))

	require.NoError(t, p.OpenFirstReport(ctx))
	assert.Equal(t, []string{"click acme"}, d.Calls())
}

func TestReportSettingsDashboardWithoutReports(t *testing.T) {
	d := fakedriver.New().
		Add("h1", fakedriver.Node{Text: "Dashboard"}).
		Add("h2", fakedriver.Node{Name: "recent", Text: "Recent Ratings"})
	d.SetURL(baseURL + pages.DashboardPath)
	p := pages.NewReportSettingsPage(newBase(t, d))

	err := p.OpenFirstReport(context.Background())
	assert.ErrorIs(t, err, locator.ErrElementNotFound)
	assert.ErrorContains(t, err, "report title")
	assert.Empty(t, d.Calls())
}

func TestReportSettingsDialogIncomplete(t *testing.T) {
	d := fakedriver.New().
		Add(`[role="dialog"]`, fakedriver.Node{}).
		Add(`[role="dialog"] input`, fakedriver.Node{})
	p := pages.NewReportSettingsPage(newBase(t, d))

	err := p.WaitForDialog(context.Background())
	assert.ErrorIs(t, err, locator.ErrTimeoutExceeded)
}
