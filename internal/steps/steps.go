// internal/steps/steps.go
// Package steps binds Gherkin phrases to page objects and wires the scenario
// lifecycle into godog.
package steps

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
	"github.com/xkilldash9x/cyberrank-e2e/internal/pages"
	"github.com/xkilldash9x/cyberrank-e2e/internal/scenario"
)

// TagAuthenticated marks scenarios that start logged in.
const TagAuthenticated = "@authenticated"

// ScenarioContext is the part of *godog.ScenarioContext used here.
type ScenarioContext interface {
	Before(h godog.BeforeScenarioHook)
	After(h godog.AfterScenarioHook)
	Step(expr interface{}, stepFunc interface{})
}

var _ ScenarioContext = (*godog.ScenarioContext)(nil)

// Deps are the collaborators shared by every scenario of a run.
type Deps struct {
	Driver      locator.Driver
	Logger      *zap.Logger
	BaseURL     string
	Timeouts    config.TimeoutConfig
	Credentials config.CredentialsConfig
	Hooks       *scenario.Hooks
	// Now defaults to time.Now; unique emails derive from it.
	Now func() time.Time
}

// suite holds the page objects for one scenario context.
type suite struct {
	logger *zap.Logger
	creds  config.CredentialsConfig
	hooks  *scenario.Hooks
	now    func() time.Time

	base      *pages.Base
	login     *pages.LoginPage
	dashboard *pages.DashboardPage
	team      *pages.TeamPage
	register  *pages.RegistrationPage
	forgot    *pages.ForgotPasswordPage
	language  *pages.LanguagePage

	userSettings   *pages.UserSettingsPage
	reportSettings *pages.ReportSettingsPage
}

// Register installs the lifecycle hooks and every step definition on sc.
func Register(sc ScenarioContext, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	hooks := deps.Hooks
	if hooks == nil {
		hooks = scenario.NewHooks(deps.Driver, logger, deps.BaseURL)
	}
	base := pages.NewBase(deps.Driver, logger, deps.BaseURL, deps.Timeouts)
	s := &suite{
		logger:    logger.Named("steps"),
		creds:     deps.Credentials,
		hooks:     hooks,
		now:       now,
		base:      base,
		login:     pages.NewLoginPage(base),
		dashboard: pages.NewDashboardPage(base),
		team:      pages.NewTeamPage(base),
		register:  pages.NewRegistrationPage(base),
		forgot:    pages.NewForgotPasswordPage(base),
		language:  pages.NewLanguagePage(base),

		userSettings:   pages.NewUserSettingsPage(base),
		reportSettings: pages.NewReportSettingsPage(base),
	}

	sc.Before(s.before)
	sc.After(s.after)

	s.registerCommon(sc)
	s.registerLogin(sc)
	s.registerTeam(sc)
	s.registerDashboard(sc)
	s.registerAccount(sc)
	s.registerLanguage(sc)
	s.registerSettings(sc)
}

// metaFor turns a godog pickle into scenario metadata. The feature name is
// the feature file's base name.
func metaFor(sc *godog.Scenario) scenario.Meta {
	tags := make([]string, 0, len(sc.Tags))
	for _, t := range sc.Tags {
		tags = append(tags, t.Name)
	}
	return scenario.Meta{
		Name:    sc.Name,
		Feature: strings.TrimSuffix(path.Base(sc.Uri), ".feature"),
		Tags:    tags,
	}
}

func (s *suite) before(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	ctx, w, err := s.hooks.Before(ctx, metaFor(sc))
	if err != nil {
		return ctx, err
	}
	if w.HasTag(TagAuthenticated) {
		if err := s.loginWithCredentials(ctx); err != nil {
			return ctx, fmt.Errorf("authenticated scenario setup: %w", err)
		}
	}
	return ctx, nil
}

func (s *suite) after(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
	w, ok := scenario.FromContext(ctx)
	if !ok {
		// Before failed before creating a world; nothing to close out.
		return ctx, nil
	}
	if herr := s.hooks.After(ctx, w, err); herr != nil {
		s.logger.Error("Scenario teardown failed.", zap.String("scenario", w.Name), zap.Error(herr))
		return ctx, herr
	}
	return ctx, nil
}

func (s *suite) loginWithCredentials(ctx context.Context) error {
	if s.creds.Email == "" || s.creds.Password == "" {
		return errors.New("no login credentials configured (set CYBERRANK_USER_EMAIL and CYBERRANK_USER_PASSWORD)")
	}
	if err := s.login.Open(ctx); err != nil {
		return err
	}
	if err := s.login.Login(ctx, s.creds.Email, s.creds.Password); err != nil {
		return err
	}
	return s.dashboard.WaitForDashboard(ctx)
}

func world(ctx context.Context) (*scenario.World, error) {
	w, ok := scenario.FromContext(ctx)
	if !ok {
		return nil, errors.New("step ran outside a scenario")
	}
	return w, nil
}

// expectContains fails unless got contains want, ignoring case.
func expectContains(what, got, want string) error {
	if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
		return fmt.Errorf("expected %s to contain %q, got %q", what, want, got)
	}
	return nil
}
