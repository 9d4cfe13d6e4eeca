// internal/pages/registration.go
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const (
	RegistrationPath   = "/register"
	ForgotPasswordPath = "/forgot-password"
)

var (
	registerEmail    = []locator.Selector{locator.CSS(`input[type="email"]`), locator.CSS(`input[type="text"]`)}
	passwordFields   = locator.CSS(`input[type="password"]`)
	termsCheckbox    = locator.CSS("vaadin-checkbox")
	registerSubmit   = locator.Text("vaadin-button", "Register")
	registerPopup    = locator.CSS("vaadin-notification-container vaadin-notification-card")
	registerPopupMsg = locator.CSS("vaadin-notification-card div")

	sendResetLink = locator.Text("vaadin-button", "Send Reset Password Link")
	resetAlert    = locator.CSS(`[role="alert"]`)
)

// GenerateUniqueEmail returns a gmail address unique to the millisecond,
// used for team invitations.
func GenerateUniqueEmail(now time.Time) string {
	return fmt.Sprintf("testuser%d@gmail.com", now.UnixMilli())
}

// GenerateRegistrationEmail returns an address unique to the millisecond on
// a domain that never receives mail.
func GenerateRegistrationEmail(now time.Time) string {
	return fmt.Sprintf("testuser%d@example.com", now.UnixMilli())
}

// RegistrationPage is the /register sign-up form.
type RegistrationPage struct {
	*Base
}

func NewRegistrationPage(b *Base) *RegistrationPage { return &RegistrationPage{Base: b} }

func (p *RegistrationPage) Open(ctx context.Context) error {
	if err := p.Base.Open(ctx, RegistrationPath); err != nil {
		return err
	}
	return p.WaitForDisplayed(ctx, p.t.Medium, "registration form", registerEmail...)
}

func (p *RegistrationPage) EnterEmail(ctx context.Context, email string) error {
	return p.SetValue(ctx, p.t.Medium, "registration email field", email, registerEmail...)
}

// WaitForLoaded waits for the registration route and a loaded document.
func (p *RegistrationPage) WaitForLoaded(ctx context.Context) error {
	if err := p.WaitForURLContains(ctx, RegistrationPath, p.t.Medium); err != nil {
		return err
	}
	return p.WaitForPageLoad(ctx)
}

// passwordField types into the i-th visible password input: 0 is the
// password, 1 its confirmation.
func (p *RegistrationPage) passwordField(ctx context.Context, i int, value, msg string) error {
	fields, err := p.WaitForCount(ctx, passwordFields, locator.VisibleOnly(), i+1, p.t.Medium, "password fields")
	if err != nil {
		return err
	}
	if err := p.d.SetText(ctx, fields[i].Element, value); err != nil {
		return fmt.Errorf("failed to type %s: %w", msg, err)
	}
	return nil
}

func (p *RegistrationPage) EnterPassword(ctx context.Context, password string) error {
	return p.passwordField(ctx, 0, password, "password")
}

func (p *RegistrationPage) EnterConfirmPassword(ctx context.Context, confirm string) error {
	return p.passwordField(ctx, 1, confirm, "password confirmation")
}

// EnterPasswords fills the password and its confirmation.
func (p *RegistrationPage) EnterPasswords(ctx context.Context, password, confirm string) error {
	if err := p.EnterPassword(ctx, password); err != nil {
		return err
	}
	return p.EnterConfirmPassword(ctx, confirm)
}

func (p *RegistrationPage) AcceptTerms(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "terms checkbox", termsCheckbox)
}

func (p *RegistrationPage) Submit(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "register button", registerSubmit)
}

// Register fills the whole form and submits it.
func (p *RegistrationPage) Register(ctx context.Context, email, password string) error {
	if err := p.EnterEmail(ctx, email); err != nil {
		return err
	}
	if err := p.EnterPasswords(ctx, password, password); err != nil {
		return err
	}
	if err := p.AcceptTerms(ctx); err != nil {
		return err
	}
	return p.Submit(ctx)
}

// Notification waits for the result notification and returns its title.
// Account creation is slow, hence the extra long timeout.
func (p *RegistrationPage) Notification(ctx context.Context) (string, error) {
	if err := p.WaitForDisplayed(ctx, p.t.ExtraLong, "registration notification", registerPopup); err != nil {
		return "", err
	}
	return p.TextOf(ctx, p.t.Medium, "registration notification title", registerPopupMsg)
}

// PopupText returns the full text of the result notification.
func (p *RegistrationPage) PopupText(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Medium, "registration notification", registerPopup)
}

// WaitForLoginRedirect waits for the post-registration redirect.
func (p *RegistrationPage) WaitForLoginRedirect(ctx context.Context) error {
	return p.WaitForURLContains(ctx, "/login", p.t.Long)
}

// ForgotPasswordPage is the /forgot-password form.
type ForgotPasswordPage struct {
	*Base
}

func NewForgotPasswordPage(b *Base) *ForgotPasswordPage { return &ForgotPasswordPage{Base: b} }

func (p *ForgotPasswordPage) Open(ctx context.Context) error {
	if err := p.Base.Open(ctx, ForgotPasswordPath); err != nil {
		return err
	}
	return p.WaitForDisplayed(ctx, p.t.Medium, "forgot password form", registerEmail...)
}

// IsOpen accepts any of the routes the reset flow is served under.
func (p *ForgotPasswordPage) IsOpen(ctx context.Context) (bool, error) {
	return p.URLContains(ctx, "/forgot", "/reset", "/password")
}

func (p *ForgotPasswordPage) EnterEmail(ctx context.Context, email string) error {
	return p.SetValue(ctx, p.t.Medium, "reset email field", email, registerEmail...)
}

func (p *ForgotPasswordPage) SendResetLink(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "send reset link button", sendResetLink)
}

// SuccessMessage returns the confirmation alert text.
func (p *ForgotPasswordPage) SuccessMessage(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Long, "reset link confirmation", resetAlert)
}
