// internal/steps/common.go
package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

func (s *suite) registerCommon(sc ScenarioContext) {
	sc.Step(`^I am on the CyberRank homepage$`, s.openHomepage)
	sc.Step(`^I click on the "([^"]*)" button$`, s.base.ClickButton)
	sc.Step(`^I click on the "([^"]*)" link$`, s.base.ClickLink)
	sc.Step(`^I should see "([^"]*)"$`, s.base.WaitForText)
	sc.Step(`^the page title should contain "([^"]*)"$`, s.titleShouldContain)
	sc.Step(`^I should be on the "([^"]*)" page$`, s.shouldBeOnPage)
	sc.Step(`^the URL should contain "([^"]*)"$`, s.urlShouldContain)
	sc.Step(`^I wait for (\d+) seconds?$`, s.waitSeconds)
	sc.Step(`^I take a screenshot named "([^"]*)"$`, s.takeScreenshot)
	sc.Step(`^I enter "([^"]*)" in the "([^"]*)" field$`, s.fillField)
	sc.Step(`^the "([^"]*)" should be visible$`, s.base.WaitForLandmark)
	sc.Step(`^the "([^"]*)" field should be empty$`, s.fieldShouldBeEmpty)
	sc.Step(`^the "([^"]*)" should be displayed$`, s.base.WaitForText)
	sc.Step(`^I should see an error message$`, s.shouldSeeAnyError)
	sc.Step(`^I should not see an error message$`, s.base.NoErrorMessage)
}

func (s *suite) openHomepage(ctx context.Context) error {
	return s.base.Open(ctx, "/")
}

func (s *suite) titleShouldContain(ctx context.Context, want string) error {
	var last string
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		title, err := s.base.Title(ctx)
		if err != nil {
			return false, err
		}
		last = title
		return strings.Contains(strings.ToLower(title), strings.ToLower(want)), nil
	}, s.base.Wait(s.base.Timeouts().Medium, fmt.Sprintf("title to contain %q", want)), s.base.LogOption())
	if err != nil {
		return fmt.Errorf("%w (last title %q)", err, last)
	}
	return nil
}

// shouldBeOnPage maps a page name ("Forgot Password") to its route fragment
// ("forgot-password").
func (s *suite) shouldBeOnPage(ctx context.Context, name string) error {
	fragment := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	return s.base.WaitForURLContains(ctx, fragment, s.base.Timeouts().Long)
}

func (s *suite) urlShouldContain(ctx context.Context, part string) error {
	return s.base.WaitForURLContains(ctx, part, s.base.Timeouts().Medium)
}

func (s *suite) waitSeconds(ctx context.Context, n int) error {
	return s.base.Pause(ctx, time.Duration(n)*time.Second)
}

func (s *suite) takeScreenshot(ctx context.Context, name string) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	shot, err := s.base.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to take screenshot %q: %w", name, err)
	}
	w.Attach(name, "image/png", shot)
	return nil
}

func (s *suite) fillField(ctx context.Context, value, field string) error {
	return s.base.FillField(ctx, field, value)
}

func (s *suite) fieldShouldBeEmpty(ctx context.Context, field string) error {
	v, err := s.base.FieldValue(ctx, field)
	if err != nil {
		return err
	}
	if v != "" {
		return fmt.Errorf("expected the %q field to be empty, it holds %q", field, v)
	}
	return nil
}

func (s *suite) shouldSeeAnyError(ctx context.Context) error {
	msg, err := s.base.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	if msg == "" {
		return errors.New("error element is visible but empty")
	}
	return nil
}
