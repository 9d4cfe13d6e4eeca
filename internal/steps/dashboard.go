// internal/steps/dashboard.go
package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
)

func (s *suite) registerDashboard(sc ScenarioContext) {
	sc.Step(`^I am on the dashboard page$`, s.onDashboard)
	sc.Step(`^I should see the dashboard header with "([^"]*)"$`, s.dashboard.WaitForHeader)
	sc.Step(`^I should see the following dashboard widgets:$`, s.dashboardWidgets)
	sc.Step(`^I click on "([^"]*)" in the sidebar$`, s.dashboard.ClickSideNav)
	sc.Step(`^I should see the "([^"]*)" section$`, s.dashboard.WaitForSection)
	sc.Step(`^I look at the "([^"]*)" widget$`, s.dashboard.LookAtWidget)
	sc.Step(`^I should see a list of my recent actions$`, s.recentActions)
	sc.Step(`^each activity should show:$`, s.activityShows)
}

func (s *suite) onDashboard(ctx context.Context) error {
	if err := s.dashboard.Open(ctx); err != nil {
		return err
	}
	return s.dashboard.WaitForHeader(ctx, "Dashboard")
}

// tableColumn returns the cells of the named column, header excluded. A
// table without that header is read by its first column.
func tableColumn(t *godog.Table, name string) ([]string, error) {
	if t == nil || len(t.Rows) < 2 {
		return nil, errors.New("expected a table with a header and at least one row")
	}
	col := 0
	for i, c := range t.Rows[0].Cells {
		if strings.EqualFold(strings.TrimSpace(c.Value), name) {
			col = i
			break
		}
	}
	out := make([]string, 0, len(t.Rows)-1)
	for _, r := range t.Rows[1:] {
		if col >= len(r.Cells) {
			return nil, fmt.Errorf("table row has no %q cell", name)
		}
		out = append(out, strings.TrimSpace(r.Cells[col].Value))
	}
	return out, nil
}

func (s *suite) dashboardWidgets(ctx context.Context, table *godog.Table) error {
	widgets, err := tableColumn(table, "Widget Name")
	if err != nil {
		return err
	}
	for _, w := range widgets {
		if err := s.dashboard.CheckWidget(ctx, w); err != nil {
			return fmt.Errorf("widget %q: %w", w, err)
		}
	}
	return nil
}

func (s *suite) recentActions(ctx context.Context) error {
	_, err := s.dashboard.RecentActions(ctx)
	return err
}

// activityShows checks that the first activity entry has content. The
// listed fields are not rendered as separate elements, so they are only
// logged.
func (s *suite) activityShows(ctx context.Context, table *godog.Table) error {
	fields, err := tableColumn(table, "Field")
	if err != nil {
		return err
	}
	text, err := s.dashboard.FirstActivity(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("Activity entry.", zap.String("text", text), zap.Strings("fields", fields))
	return nil
}
