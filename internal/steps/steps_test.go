// internal/steps/steps_test.go
package steps_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/fakedriver"
	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
	"github.com/xkilldash9x/cyberrank-e2e/internal/scenario"
	"github.com/xkilldash9x/cyberrank-e2e/internal/steps"
)

const (
	baseURL     = "https://www.cyberrank.ai"
	inviteEmail = "testuser1700000000000@gmail.com"
)

type memReporter struct {
	records []reporting.ScenarioRecord
}

func (r *memReporter) Write(rec *reporting.ScenarioRecord) error {
	r.records = append(r.records, *rec)
	return nil
}

func (r *memReporter) Close() error { return nil }

func testTimeouts() config.TimeoutConfig {
	return config.TimeoutConfig{
		VeryShort:     20 * time.Millisecond,
		Short:         60 * time.Millisecond,
		Medium:        120 * time.Millisecond,
		MediumLong:    150 * time.Millisecond,
		Long:          200 * time.Millisecond,
		VeryLong:      300 * time.Millisecond,
		ExtraLong:     400 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    10 * time.Millisecond,
	}
}

// cyberrank scripts the parts of the application the features touch.
func cyberrank() *fakedriver.Driver {
	d := fakedriver.New()
	d.Add(`input[type="text"]`, fakedriver.Node{Name: "email"}).
		Add(`input[type="password"]`, fakedriver.Node{Name: "password"}).
		Add("#submit-button", fakedriver.Node{Name: "submit", OnClick: func(d *fakedriver.Driver) {
			d.SetURL(baseURL + "/vas/dashboard")
		}}).
		Add("h1*=Dashboard", fakedriver.Node{}).
		Add("h1*=Team", fakedriver.Node{}).
		Add(`a[href="/vas/team"]`, fakedriver.Node{Name: "teams", OnClick: func(d *fakedriver.Driver) {
			d.SetURL(baseURL + "/vas/team")
		}}).
		Add(`[role="row"]`, fakedriver.Node{Text: "User Email\nStatus"}).
		Add("vaadin-button*=Add Team Member", fakedriver.Node{Name: "add member", OnClick: func(d *fakedriver.Driver) {
			d.Add(`[role="dialog"]`, fakedriver.Node{})
			d.Add(`[role="dialog"] vaadin-text-area textarea`, fakedriver.Node{Name: "invite email"})
			d.Add(`[role="dialog"] button:has(img)`, fakedriver.Node{Name: "send", OnClick: func(d *fakedriver.Driver) {
				d.Remove(`[role="dialog"]`)
				d.Add(`[role="row"]`, fakedriver.Node{Text: inviteEmail + " (Candidate)\nInvited"})
			}})
		}})
	return d
}

func runSuite(t *testing.T, d *fakedriver.Driver, artifacts string, rep reporting.Reporter, feature string) int {
	t.Helper()
	logger := zaptest.NewLogger(t)
	hooks := scenario.NewHooks(d, logger, baseURL,
		scenario.WithArtifactStore(scenario.NewArtifactStore(artifacts)),
		scenario.WithReporter(rep))

	suite := godog.TestSuite{
		Name: "cyberrank",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			steps.Register(sc, steps.Deps{
				Driver:      d,
				Logger:      logger,
				BaseURL:     baseURL,
				Timeouts:    testTimeouts(),
				Credentials: config.CredentialsConfig{Email: "qa@gmail.com", Password: "secret", RegisteredEmail: "qa@gmail.com"},
				Hooks:       hooks,
				Now:         func() time.Time { return time.UnixMilli(1700000000000) },
			})
		},
		Options: &godog.Options{
			Format:          "progress",
			Output:          io.Discard,
			Strict:          true,
			NoColors:        true,
			DefaultContext:  context.Background(),
			FeatureContents: []godog.Feature{{Name: "team.feature", Contents: []byte(feature)}},
		},
	}
	return suite.Run()
}

func TestInviteMemberScenario(t *testing.T) {
	d := cyberrank()
	rep := &memReporter{}
	artifacts := t.TempDir()

	status := runSuite(t, d, artifacts, rep, `
Feature: Team members

  @authenticated
  Scenario: Invite a new member
    When I access "Teams" on the sidebar
    Then I should be on the teams page
    When I click the Add Team Member button
    And I input a random email with gmail.com domain
    And I click the send icon
    Then I should see "Invitations" success message
    And the added email should be displayed in the team list
    And the team member should have "(Candidate)" suffix
    And the member status should be "Invited"
`)

	require.Equal(t, 0, status)
	assert.Equal(t, inviteEmail, d.Value(`[role="dialog"] vaadin-text-area textarea`))
	assert.Equal(t, "qa@gmail.com", d.Value(`input[type="text"]`))
	assert.Equal(t, 1, d.CookieClears())

	require.Len(t, rep.records, 1)
	rec := rep.records[0]
	assert.Equal(t, reporting.StatusPassed, rec.Status)
	assert.Equal(t, "team", rec.Feature)
	assert.Equal(t, []string{"@authenticated"}, rec.Tags)

	entries, err := os.ReadDir(artifacts)
	require.NoError(t, err)
	assert.Empty(t, entries, "passing scenarios leave no artifacts")
}

func TestFailingScenarioCapturesArtifacts(t *testing.T) {
	d := cyberrank()
	d.AddConsole("error", "Uncaught TypeError: grid is null")
	rep := &memReporter{}
	artifacts := t.TempDir()

	status := runSuite(t, d, artifacts, rep, `
Feature: Login

  Scenario: Wrong password
    Given I am on the CyberRank login page
    When I login with "qa@gmail.com" and "wrong"
    Then I should see an error message "Incorrect username or password"
`)

	assert.NotEqual(t, 0, status)
	require.Len(t, rep.records, 1)
	rec := rep.records[0]
	assert.Equal(t, reporting.StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "element not found")
	require.NotEmpty(t, rec.ArtifactsDir)

	assert.FileExists(t, filepath.Join(rec.ArtifactsDir, "01-failure-screenshot.png"))
	assert.FileExists(t, filepath.Join(rec.ArtifactsDir, "02-critical-browser-errors.txt"))
	assert.FileExists(t, filepath.Join(rec.ArtifactsDir, "manifest.json"))
}

func TestInviteSuccessFallbackStillFails(t *testing.T) {
	d := cyberrank()
	rep := &memReporter{}

	// The send click never adds the member, so neither the notification nor
	// the grid confirms the invitation.
	d.Remove("vaadin-button*=Add Team Member")
	d.Add("vaadin-button*=Add Team Member", fakedriver.Node{Name: "add member", OnClick: func(d *fakedriver.Driver) {
		d.Add(`[role="dialog"]`, fakedriver.Node{})
		d.Add(`[role="dialog"] textarea`, fakedriver.Node{Name: "invite email"})
		d.Add(`[role="dialog"] button:last-child`, fakedriver.Node{Name: "send", OnClick: func(d *fakedriver.Driver) {
			d.Remove(`[role="dialog"]`)
		}})
	}})

	status := runSuite(t, d, t.TempDir(), rep, `
Feature: Team members

  @authenticated
  Scenario: Invite without confirmation
    When I access "Teams" on the sidebar
    And I click the Add Team Member button
    And I input a random email with gmail.com domain
    And I click the send icon
    Then I should see "Invitations" success message
`)

	assert.NotEqual(t, 0, status)
	require.Len(t, rep.records, 1)
	assert.Contains(t, rep.records[0].Error, "invited member is not listed")
}

func TestAuthenticatedScenarioNeedsCredentials(t *testing.T) {
	d := cyberrank()
	rep := &memReporter{}
	hooks := scenario.NewHooks(d, zaptest.NewLogger(t), baseURL, scenario.WithReporter(rep))

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			steps.Register(sc, steps.Deps{Driver: d, BaseURL: baseURL, Timeouts: testTimeouts(), Hooks: hooks})
		},
		Options: &godog.Options{
			Format: "progress",
			Output: io.Discard,
			FeatureContents: []godog.Feature{{Name: "auth.feature", Contents: []byte(`
Feature: Auth
  @authenticated
  Scenario: Needs a session
    Then I should be on the teams page
`)}},
		},
	}

	assert.NotEqual(t, 0, suite.Run())
	require.Len(t, rep.records, 1)
	assert.Contains(t, rep.records[0].Error, "no login credentials configured")
}
