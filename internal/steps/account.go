// internal/steps/account.go
package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/cyberrank-e2e/internal/pages"
)

const (
	keyRegisteredEmail = "registered_email"

	resetConfirmation = "password recovery link"
	termsCheckbox     = "Terms and Conditions"
)

func (s *suite) registerAccount(sc ScenarioContext) {
	sc.Step(`^I am on the registration page$`, s.register.Open)
	sc.Step(`^I should be on the registration page$`, s.register.WaitForLoaded)
	sc.Step(`^I register with a unique email and password "([^"]*)"$`, s.registerUnique)
	sc.Step(`^I enter "([^"]*)" in the registration email field$`, s.register.EnterEmail)
	sc.Step(`^I enter a unique email in the registration email field$`, s.enterUniqueRegistrationEmail)
	sc.Step(`^I enter "([^"]*)" in the registration password field$`, s.register.EnterPassword)
	sc.Step(`^I enter "([^"]*)" in the confirm password field$`, s.register.EnterConfirmPassword)
	sc.Step(`^I check the "([^"]*)" checkbox$`, s.checkCheckbox)
	sc.Step(`^I click the "([^"]*)" submit button$`, s.clickSubmit)
	sc.Step(`^I should see (?:the registration notification|a success popup with message) "([^"]*)"$`, s.registrationNotification)
	sc.Step(`^the popup should contain "([^"]*)"$`, s.popupContains)
	sc.Step(`^I should be redirected to the login page$`, s.register.WaitForLoginRedirect)

	sc.Step(`^I am on the forgot password page$`, s.forgot.Open)
	sc.Step(`^I should be on the forgot password page$`, s.onForgotPassword)
	sc.Step(`^I request a password reset for "([^"]*)"$`, s.requestReset)
	sc.Step(`^I request a password reset for the registered email$`, s.requestResetRegistered)
	sc.Step(`^I enter "([^"]*)" in the reset email field$`, s.forgot.EnterEmail)
	sc.Step(`^I enter a registered email in the reset email field$`, s.enterRegisteredResetEmail)
	sc.Step(`^I click the Send Reset Password Link button$`, s.forgot.SendResetLink)
	sc.Step(`^I should see (?:the password reset confirmation|a success popup displayed)$`, s.resetConfirmation)
	sc.Step(`^I should be redirected back to the login page$`, s.register.WaitForLoginRedirect)
}

func (s *suite) enterUniqueRegistrationEmail(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	email := pages.GenerateRegistrationEmail(s.now())
	w.Set(keyRegisteredEmail, email)
	return s.register.EnterEmail(ctx, email)
}

func (s *suite) checkCheckbox(ctx context.Context, name string) error {
	if name != termsCheckbox {
		return fmt.Errorf("unsupported checkbox %q", name)
	}
	return s.register.AcceptTerms(ctx)
}

func (s *suite) clickSubmit(ctx context.Context, label string) error {
	if label != "Register" {
		return fmt.Errorf("unsupported submit button %q", label)
	}
	return s.register.Submit(ctx)
}

func (s *suite) popupContains(ctx context.Context, want string) error {
	text, err := s.register.PopupText(ctx)
	if err != nil {
		return err
	}
	return expectContains("registration notification", text, want)
}

func (s *suite) enterRegisteredResetEmail(ctx context.Context) error {
	if s.creds.RegisteredEmail == "" {
		return errors.New("no registered email configured")
	}
	return s.forgot.EnterEmail(ctx, s.creds.RegisteredEmail)
}

func (s *suite) registerUnique(ctx context.Context, password string) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	email := pages.GenerateRegistrationEmail(s.now())
	w.Set(keyRegisteredEmail, email)
	return s.register.Register(ctx, email, password)
}

func (s *suite) registrationNotification(ctx context.Context, want string) error {
	title, err := s.register.Notification(ctx)
	if err != nil {
		return err
	}
	return expectContains("registration notification", title, want)
}

func (s *suite) onForgotPassword(ctx context.Context) error {
	open, err := s.forgot.IsOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		url, _ := s.base.CurrentURL(ctx)
		return fmt.Errorf("expected the forgot password page, now at %s", url)
	}
	return nil
}

func (s *suite) requestReset(ctx context.Context, email string) error {
	if err := s.forgot.EnterEmail(ctx, email); err != nil {
		return err
	}
	return s.forgot.SendResetLink(ctx)
}

func (s *suite) requestResetRegistered(ctx context.Context) error {
	if s.creds.RegisteredEmail == "" {
		return errors.New("no registered email configured")
	}
	return s.requestReset(ctx, s.creds.RegisteredEmail)
}

func (s *suite) resetConfirmation(ctx context.Context) error {
	msg, err := s.forgot.SuccessMessage(ctx)
	if err != nil {
		return err
	}
	return expectContains("reset confirmation", msg, resetConfirmation)
}
