// internal/steps/settings.go
package steps

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/pages"
)

const (
	keyNickname          = "generated_nickname"
	keyReportName        = "generated_report_name"
	keyReportDescription = "generated_report_description"
)

func (s *suite) registerSettings(sc ScenarioContext) {
	sc.Step(`^I click on the user email in the navbar$`, s.dashboard.OpenUserMenu)
	sc.Step(`^I should see the user settings dropdown$`, s.userSettings.WaitForMenu)
	sc.Step(`^I click on "([^"]*)" in the dropdown$`, s.clickDropdownItem)
	sc.Step(`^I should be on the user settings page$`, s.onUserSettings)
	sc.Step(`^I should see the General tab is selected$`, s.generalTabSelected)
	sc.Step(`^I click on the nickname edit button$`, s.userSettings.EditNickname)
	sc.Step(`^I enter a unique nickname$`, s.enterUniqueNickname)
	sc.Step(`^I click the save nickname button$`, s.userSettings.SaveNickname)
	sc.Step(`^I click the cancel nickname button$`, s.userSettings.CancelNickname)
	sc.Step(`^the nickname should be updated successfully$`, s.nicknameUpdated)

	sc.Step(`^I click on the first report card in the dashboard$`, s.reportSettings.OpenFirstReport)
	sc.Step(`^I click on the settings icon for the report$`, s.reportSettings.OpenSettings)
	sc.Step(`^I should be on the report settings page$`, s.reportSettings.WaitForDialog)
	sc.Step(`^I clear the Name field and enter a unique report name$`, s.enterReportName)
	sc.Step(`^I clear the Description field and enter a unique report description$`, s.enterReportDescription)
	sc.Step(`^I click the Save button$`, s.reportSettings.Save)
	sc.Step(`^I should see a success message$`, s.reportSettings.WaitForDialogClosed)
	sc.Step(`^the Name field should contain the new report name$`, s.reportNameShown)
	sc.Step(`^the Description field should contain the new report description$`, s.reportDescriptionShown)
}

func (s *suite) clickDropdownItem(ctx context.Context, item string) error {
	if item != "User Settings" {
		return fmt.Errorf("unsupported dropdown item %q", item)
	}
	return s.userSettings.OpenFromMenu(ctx)
}

func (s *suite) onUserSettings(ctx context.Context) error {
	if err := s.userSettings.WaitForLoaded(ctx); err != nil {
		return err
	}
	open, err := s.userSettings.IsOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		return errors.New("expected the user settings page")
	}
	return nil
}

func (s *suite) generalTabSelected(ctx context.Context) error {
	selected, err := s.userSettings.GeneralTabSelected(ctx)
	if err != nil {
		return err
	}
	if !selected {
		return errors.New("expected the General tab to be selected")
	}
	return nil
}

func (s *suite) enterUniqueNickname(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	nickname := pages.GenerateNickname(s.now())
	w.Set(keyNickname, nickname)
	s.logger.Debug("Generated nickname.", zap.String("nickname", nickname))
	return s.userSettings.EnterNickname(ctx, nickname)
}

func (s *suite) nicknameUpdated(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	nickname, err := w.GetString(keyNickname)
	if err != nil {
		return err
	}
	return s.userSettings.WaitForNickname(ctx, nickname)
}

func (s *suite) enterReportName(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	name := pages.GenerateReportName(s.now())
	w.Set(keyReportName, name)
	return s.reportSettings.EnterName(ctx, name)
}

func (s *suite) enterReportDescription(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	desc := pages.GenerateReportDescription(s.now())
	w.Set(keyReportDescription, desc)
	return s.reportSettings.EnterDescription(ctx, desc)
}

func (s *suite) reportNameShown(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	name, err := w.GetString(keyReportName)
	if err != nil {
		return err
	}
	return s.reportSettings.WaitForReportName(ctx, name)
}

func (s *suite) reportDescriptionShown(ctx context.Context) error {
	w, err := world(ctx)
	if err != nil {
		return err
	}
	desc, err := w.GetString(keyReportDescription)
	if err != nil {
		return err
	}
	return s.reportSettings.WaitForReportDescription(ctx, desc)
}
