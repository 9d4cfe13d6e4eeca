// internal/steps/language.go
package steps

import (
	"context"
	"fmt"
)

func (s *suite) registerLanguage(sc ScenarioContext) {
	sc.Step(`^I click the language selector button$`, s.language.OpenSelector)
	sc.Step(`^I select "([^"]*)" from the language dropdown$`, s.language.Select)
	sc.Step(`^the language should be changed to "?([^"]*?)"?$`, s.language.WaitForLanguage)
	sc.Step(`^I navigate to the home page$`, s.language.BackToHome)
	sc.Step(`^I should see (\w+) navigation items$`, s.language.WaitForNavigation)
	sc.Step(`^I should see "([^"]*)" in the navigation$`, s.navItemShown)
	sc.Step(`^I should see "([^"]*)" as the login page heading$`, s.loginHeadingIs)
	sc.Step(`^I should see "([^"]*)" as the (?:email|password) field label$`, s.fieldLabelIs)
}

func (s *suite) navItemShown(ctx context.Context, text string) error {
	shown, err := s.language.NavItemDisplayed(ctx, text)
	if err != nil {
		return err
	}
	if !shown {
		return fmt.Errorf("expected %q in the navigation", text)
	}
	return nil
}

func (s *suite) loginHeadingIs(ctx context.Context, want string) error {
	got, err := s.language.LoginHeading(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected login heading %q, got %q", want, got)
	}
	return nil
}

func (s *suite) fieldLabelIs(ctx context.Context, want string) error {
	_, err := s.language.WaitForLabel(ctx, want)
	return err
}
