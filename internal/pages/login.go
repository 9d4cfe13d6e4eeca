// internal/pages/login.go
package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const LoginPath = "/vas/login"

var (
	loginEmail    = locator.CSS(`input[type="text"]`)
	loginPassword = locator.CSS(`input[type="password"]`)
	loginSubmit   = locator.CSS("#submit-button")
	loginErrors   = []locator.Selector{locator.CSS(`[role="alert"]`), locator.CSS("alert")}

	// Buttons and text links reachable from the login form, by label.
	loginButtons = map[string]locator.Selector{
		"login":                  loginSubmit,
		"sign in":                loginSubmit,
		"sign in with google":    locator.Text("button", "Sign in with Google"),
		"sign in with microsoft": locator.Text("button", "Sign in with Microsoft"),
	}
	loginLinks = map[string]locator.Selector{
		"forgot password": locator.Text("vaadin-button", "Forgot Password"),
		"register":        locator.Text("vaadin-button", "Register"),
	}
)

// LoginPage is the /vas/login form.
type LoginPage struct {
	*Base
}

func NewLoginPage(b *Base) *LoginPage { return &LoginPage{Base: b} }

// Open loads the login page and waits for the form.
func (p *LoginPage) Open(ctx context.Context) error {
	if err := p.Base.Open(ctx, LoginPath); err != nil {
		return err
	}
	return p.WaitForDisplayed(ctx, p.t.Medium, "login form", loginEmail)
}

func (p *LoginPage) EnterEmail(ctx context.Context, email string) error {
	return p.SetValue(ctx, p.t.Medium, "login email field", email, loginEmail)
}

func (p *LoginPage) EnterPassword(ctx context.Context, password string) error {
	return p.SetValue(ctx, p.t.Medium, "login password field", password, loginPassword)
}

func (p *LoginPage) Submit(ctx context.Context) error {
	return p.ClickFirst(ctx, p.t.Medium, "login button", loginSubmit)
}

// Login fills in both fields and submits the form.
func (p *LoginPage) Login(ctx context.Context, email, password string) error {
	if err := p.EnterEmail(ctx, email); err != nil {
		return err
	}
	if err := p.EnterPassword(ctx, password); err != nil {
		return err
	}
	return p.Submit(ctx)
}

// ClickButton clicks a login form button by label ("Sign in with Google").
func (p *LoginPage) ClickButton(ctx context.Context, label string) error {
	sel, ok := loginButtons[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return fmt.Errorf("unknown login page button %q", label)
	}
	return p.ClickFirst(ctx, p.t.Medium, fmt.Sprintf("%q button", label), sel)
}

// ClickTextLink clicks a text link below the form ("Forgot Password").
func (p *LoginPage) ClickTextLink(ctx context.Context, label string) error {
	sel, ok := loginLinks[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return fmt.Errorf("unknown login page link %q", label)
	}
	return p.ClickFirst(ctx, p.t.Medium, fmt.Sprintf("%q link", label), sel)
}

// ErrorMessage returns the login error alert text.
func (p *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.MediumLong, "login error message", loginErrors...)
}

// IsOpen reports whether the browser is still on the login page.
func (p *LoginPage) IsOpen(ctx context.Context) (bool, error) {
	return p.URLContains(ctx, "/login")
}
