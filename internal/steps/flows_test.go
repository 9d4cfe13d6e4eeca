// internal/steps/flows_test.go
package steps_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/fakedriver"
	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
)

const (
	candidateRow = "cand@gmail.com (Candidate)\nInvited"
	candTrash    = `//*[@role="row"][contains(., 'cand@gmail.com')]//vaadin-icon[contains(@src, "trash-alt-solid.svg")]`
	confirmBtn   = `[part="confirm-button"] button`
)

const deleteFeature = `
Feature: Delete team member

  @authenticated
  Scenario: Remove a candidate
    When I access "Teams" on the sidebar
    And I check if there are any candidate users
    And I click the trash icon for a candidate user
    Then I should see a confirmation popup
    When I click confirm on the popup
    Then I should see a success message for deletion
    And the team member should be removed from the list
`

// withCandidate lists an owner without a delete icon and one candidate.
func withCandidate(d *fakedriver.Driver) {
	d.Add(`[role="row"]`, fakedriver.Node{Text: "owner@gmail.com\nActive"}).
		Add(`[role="row"]`, fakedriver.Node{Text: candidateRow}).
		Add(candTrash, fakedriver.Node{Name: "cand trash", OnClick: func(d *fakedriver.Driver) {
			d.Add("vaadin-confirm-dialog", fakedriver.Node{})
		}})
}

func TestDeleteMemberScenario(t *testing.T) {
	d := cyberrank()
	withCandidate(d)
	d.Add(confirmBtn, fakedriver.Node{Name: "confirm", OnClick: func(d *fakedriver.Driver) {
		d.Remove("vaadin-confirm-dialog")
		d.Remove(`[role="row"]`)
		d.Add(`[role="row"]`, fakedriver.Node{Text: "User Email\nStatus"})
		d.Add(`[role="row"]`, fakedriver.Node{Text: "owner@gmail.com\nActive"})
	}})
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, deleteFeature)

	require.Equal(t, 0, status)
	require.Len(t, rep.records, 1)
	assert.Equal(t, reporting.StatusPassed, rep.records[0].Status)
	assert.Equal(t, 1, d.Clicks(candTrash))
	assert.Equal(t, 1, d.Clicks(confirmBtn))
}

func TestDeletionThatDidNothingFails(t *testing.T) {
	start := time.Now()
	d := cyberrank()
	withCandidate(d)
	// The grid re-renders empty, then shows the candidate again.
	d.Add(confirmBtn, fakedriver.Node{Name: "confirm", OnClick: func(d *fakedriver.Driver) {
		d.Remove("vaadin-confirm-dialog")
		d.Remove(`[role="row"]`)
		d.Add(`[role="row"]`, fakedriver.Node{Text: "User Email\nStatus"})
		d.Add(`[role="row"]`, fakedriver.Node{Text: candidateRow, AppearAt: time.Since(start) + 40*time.Millisecond})
	}})
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, deleteFeature)

	assert.NotEqual(t, 0, status)
	require.Len(t, rep.records, 1)
	assert.Equal(t, reporting.StatusFailed, rep.records[0].Status)
	assert.Contains(t, rep.records[0].Error, "the member is still listed")
}

func TestDashboardScenario(t *testing.T) {
	d := cyberrank()
	d.Add("h1", fakedriver.Node{Text: "Dashboard"}).
		Add(`[class*="score"], [class*="rating"], [class*="credit"]`, fakedriver.Node{}).
		Add(`[class*="recent"], [class*="activity"], [class*="rating"]`, fakedriver.Node{}).
		Add("button*=New Assessment", fakedriver.Node{}).
		Add("vaadin-side-nav", fakedriver.Node{}).
		Add("vaadin-side-nav-item*=Top Rank", fakedriver.Node{Name: "top rank", OnClick: func(d *fakedriver.Driver) {
			d.Add("h2*=Top Rank", fakedriver.Node{})
		}}).
		Add(`vaadin-grid-cell-content, .list-item, li, [class*="item"]`, fakedriver.Node{Text: "Rated Acme Corp"}).
		Add(`vaadin-grid-cell-content, [class*="card"], [class*="item"]`, fakedriver.Node{Text: "Acme Corp\nB+"})
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, `
Feature: Dashboard

  @authenticated
  Scenario: Overview
    Given I am on the dashboard page
    Then I should see the dashboard header with "Welcome back"
    And I should see the following dashboard widgets:
      | Widget Name       |
      | Security Score    |
      | Recent Activities |
      | Notifications     |
      | Quick Actions     |
    When I look at the "Recent Activities" widget
    Then I should see a list of my recent actions
    And each activity should show:
      | Field  |
      | Vendor |
      | Rating |
    When I click on "Top Rank" in the sidebar
    Then I should see the "Top Rank" section
`)

	require.Equal(t, 0, status)
	require.Len(t, rep.records, 1)
	assert.Equal(t, reporting.StatusPassed, rep.records[0].Status)
	assert.Equal(t, 1, d.Clicks("vaadin-side-nav-item*=Top Rank"))
}

func TestRegistrationStepByStepScenario(t *testing.T) {
	d := cyberrank()
	d.Add(`input[type="email"]`, fakedriver.Node{Name: "reg email"}).
		Add(`input[type="password"]`, fakedriver.Node{Name: "confirm"}).
		Add(`input[name="company"]`, fakedriver.Node{Name: "company"}).
		Add("vaadin-checkbox", fakedriver.Node{Name: "terms"}).
		Add("vaadin-button*=Register", fakedriver.Node{Name: "register", OnClick: func(d *fakedriver.Driver) {
			d.Add("vaadin-notification-container vaadin-notification-card", fakedriver.Node{Text: "Registration successful\nPlease check your email"})
			d.Add("vaadin-notification-card div", fakedriver.Node{Text: "Registration successful"})
			d.SetURL(baseURL + "/login")
		}})
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, `
Feature: Registration

  Scenario: Register step by step
    Given I am on the registration page
    Then I should be on the registration page
    And the "company" field should be empty
    When I enter a unique email in the registration email field
    And I enter "Passw0rd!" in the registration password field
    And I enter "Passw0rd!" in the confirm password field
    And I check the "Terms and Conditions" checkbox
    And I click the "Register" submit button
    Then I should see a success popup with message "Registration successful"
    And the popup should contain "check your email"
    And I should not see an error message
    And I should be redirected to the login page
`)

	require.Equal(t, 0, status)
	assert.Equal(t, "testuser1700000000000@example.com", d.Value(`input[type="email"]`))
	assert.Equal(t, "Passw0rd!", d.Value(`input[type="password"]`))
	assert.Equal(t, 1, d.Clicks("vaadin-checkbox"))
}

func TestFieldShouldBeEmptyFailsWhenFilled(t *testing.T) {
	d := cyberrank()
	d.Add(`input[type="email"]`, fakedriver.Node{Name: "reg email"}).
		Add(`input[name="company"]`, fakedriver.Node{Name: "company"})
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, `
Feature: Registration

  Scenario: A filled field is not empty
    Given I am on the registration page
    When I enter "Acme" in the "company" field
    Then the "company" field should be empty
`)

	assert.NotEqual(t, 0, status)
	require.Len(t, rep.records, 1)
	assert.Contains(t, rep.records[0].Error, `it holds "Acme"`)
}

func TestForgotPasswordScenario(t *testing.T) {
	d := cyberrank()
	d.Add(`input[type="email"]`, fakedriver.Node{Name: "reset email"}).
		Add("vaadin-button*=Send Reset Password Link", fakedriver.Node{Name: "send", OnClick: func(d *fakedriver.Driver) {
			d.Add(`[role="alert"]`, fakedriver.Node{Text: "We sent a password recovery link to your email"})
			d.Add("*=Check your inbox", fakedriver.Node{})
			d.SetURL(baseURL + "/login")
		}})
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, `
Feature: Forgot password

  Scenario: Reset a registered account
    Given I am on the forgot password page
    Then I should be on the forgot password page
    When I enter a registered email in the reset email field
    And I click the Send Reset Password Link button
    Then I should see a success popup displayed
    And the "Check your inbox" should be displayed
    And I should be redirected back to the login page
`)

	require.Equal(t, 0, status)
	assert.Equal(t, "qa@gmail.com", d.Value(`input[type="email"]`))
	assert.Equal(t, 1, d.Clicks("vaadin-button*=Send Reset Password Link"))
}

func TestPageTitleScenario(t *testing.T) {
	d := cyberrank()
	d.SetScriptResult(scripts.Title, "CyberRank | Team")
	rep := &memReporter{}

	status := runSuite(t, d, t.TempDir(), rep, `
Feature: Title

  Scenario: Title names the page
    Given I am on the CyberRank homepage
    Then the page title should contain "team"
    And the page title should contain "Billing"
`)

	assert.NotEqual(t, 0, status)
	require.Len(t, rep.records, 1)
	assert.Contains(t, rep.records[0].Error, `title to contain "Billing"`)
}
