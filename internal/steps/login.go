// internal/steps/login.go
package steps

import (
	"context"
	"errors"
	"fmt"
)

func (s *suite) registerLogin(sc ScenarioContext) {
	sc.Step(`^I am on the CyberRank login page$`, s.login.Open)
	sc.Step(`^I am logged into CyberRank$`, s.loginWithCredentials)
	sc.Step(`^I enter "([^"]*)" in the email field$`, s.login.EnterEmail)
	sc.Step(`^I enter "([^"]*)" in the password field$`, s.login.EnterPassword)
	sc.Step(`^I click the login page "([^"]*)" button$`, s.login.ClickButton)
	sc.Step(`^I click the "([^"]*)" text link$`, s.login.ClickTextLink)
	sc.Step(`^I login with "([^"]*)" and "([^"]*)"$`, s.login.Login)
	sc.Step(`^I enter valid login credentials$`, s.enterValidCredentials)
	sc.Step(`^I should be logged in successfully$`, s.dashboard.WaitForDashboard)
	sc.Step(`^I should see the user dashboard$`, s.shouldSeeDashboard)
	sc.Step(`^I should see an error message "([^"]*)"$`, s.shouldSeeLoginError)
	sc.Step(`^I should remain on the login page$`, s.shouldRemainOnLogin)
}

func (s *suite) enterValidCredentials(ctx context.Context) error {
	if s.creds.Email == "" || s.creds.Password == "" {
		return errors.New("no login credentials configured")
	}
	if err := s.login.EnterEmail(ctx, s.creds.Email); err != nil {
		return err
	}
	return s.login.EnterPassword(ctx, s.creds.Password)
}

func (s *suite) shouldSeeDashboard(ctx context.Context) error {
	heading, err := s.dashboard.Heading(ctx)
	if err != nil {
		return err
	}
	if heading != "Dashboard" {
		return fmt.Errorf("expected dashboard heading, got %q", heading)
	}
	return nil
}

func (s *suite) shouldSeeLoginError(ctx context.Context, want string) error {
	msg, err := s.login.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	return expectContains("login error", msg, want)
}

func (s *suite) shouldRemainOnLogin(ctx context.Context) error {
	open, err := s.login.IsOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		url, _ := s.base.CurrentURL(ctx)
		return fmt.Errorf("expected to stay on the login page, now at %s", url)
	}
	return nil
}
