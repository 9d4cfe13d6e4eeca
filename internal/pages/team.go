// internal/pages/team.go
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const (
	TeamPath = "/vas/team"

	CandidateSuffix = "(Candidate)"
)

var (
	teamTitle    = locator.Text("h1", "Team")
	addMemberBtn = locator.Text("vaadin-button", "Add Team Member")
	inviteDialog = locator.CSS(`[role="dialog"]`)
	inviteEmail  = []locator.Selector{
		locator.CSS(`[role="dialog"] vaadin-text-area textarea`),
		locator.CSS(`[role="dialog"] vaadin-text-field input`),
		locator.CSS(`[role="dialog"] input[type="email"]`),
		locator.CSS(`[role="dialog"] textarea`),
	}
	sendButtons = []locator.Selector{
		locator.CSS(`[role="dialog"] button:has(img)`),
		locator.CSS(`[role="dialog"] vaadin-button:has(img)`),
		locator.CSS(`[role="dialog"] button:last-child`),
		locator.CSS(`[role="dialog"] vaadin-button:last-child`),
	}
	successMessages = []locator.Selector{
		locator.CSS(`[role="alert"]`),
		locator.CSS("vaadin-notification-card"),
		locator.CSS(".notification"),
		locator.Text("div", "Invitations"),
	}

	gridRows   = locator.CSS(`[role="row"]`)
	trashIcons = locator.CSS(`vaadin-grid vaadin-icon[src*="trash-alt-solid.svg"]`)

	confirmPopups = []locator.Selector{
		locator.CSS("section#resizerContainer.resizer-container"),
		locator.CSS(`[role="dialog"]`),
		locator.CSS("vaadin-confirm-dialog"),
		locator.CSS("vaadin-dialog"),
		locator.CSS(".confirmation-dialog"),
		locator.CSS(".confirm-popup"),
		locator.CSS(`div[role="alertdialog"]`),
	}
	confirmButtons = []locator.Selector{
		locator.CSS(`[part="confirm-button"] button`),
		locator.CSS(`[part="confirm-button"] vaadin-button`),
		locator.CSS(`button[class*="confirm"]`),
		locator.CSS(`vaadin-button[class*="confirm"]`),
		locator.CSS(`button[class*="delete"]`),
		locator.CSS(`vaadin-button[class*="delete"]`),
	}
	anyButton = locator.CSS("button, vaadin-button")

	confirmWords  = []string{"confirm", "delete", "remove", "yes"}
	deletionWords = []string{"success", "removed", "deleted"}

	// Grid rows that hold a member: they carry an email and are not the header.
	memberRow = locator.All(locator.TextContains("@"), locator.Not(locator.TextContains("User Email")))
)

// Member is one row of the team grid.
type Member struct {
	Email     string
	Candidate bool
	Status    string
}

// ParseMemberRow reads a grid row's text. Cells are separated by newlines or
// tabs; the first cell holding an '@' is the email, optionally suffixed with
// "(Candidate)", and the cell after it is the status.
func ParseMemberRow(text string) (Member, error) {
	cells := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\t' })
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	for i, c := range cells {
		if !strings.Contains(c, "@") {
			continue
		}
		m := Member{Email: c}
		if strings.HasSuffix(c, CandidateSuffix) {
			m.Candidate = true
			m.Email = strings.TrimSpace(strings.TrimSuffix(c, CandidateSuffix))
		} else if i+1 < len(cells) && cells[i+1] == CandidateSuffix {
			// The suffix may render as its own text node.
			m.Candidate = true
			i++
		}
		for _, next := range cells[i+1:] {
			if next != "" {
				m.Status = next
				break
			}
		}
		return m, nil
	}
	return Member{}, fmt.Errorf("no email in grid row %q", text)
}

// TeamPage is /vas/team: the member grid, the invite dialog and the delete
// confirmation popup.
type TeamPage struct {
	*Base
}

func NewTeamPage(b *Base) *TeamPage { return &TeamPage{Base: b} }

// WaitForLoaded waits for the team route and title.
func (p *TeamPage) WaitForLoaded(ctx context.Context) error {
	if err := p.WaitForURLContains(ctx, TeamPath, p.t.Long); err != nil {
		return err
	}
	return p.WaitForDisplayed(ctx, p.t.Long, "team title", teamTitle)
}

func (p *TeamPage) IsOpen(ctx context.Context) (bool, error) {
	return p.URLContains(ctx, TeamPath)
}

// OpenInviteDialog clicks "Add Team Member" and waits for the dialog.
func (p *TeamPage) OpenInviteDialog(ctx context.Context) error {
	if err := p.ClickFirst(ctx, p.t.Medium, "add team member button", addMemberBtn); err != nil {
		return err
	}
	return p.WaitForInviteDialog(ctx)
}

func (p *TeamPage) WaitForInviteDialog(ctx context.Context) error {
	return p.WaitForDisplayed(ctx, p.t.Medium, "invite dialog", inviteDialog)
}

func (p *TeamPage) EnterInviteEmail(ctx context.Context, email string) error {
	return p.SetValue(ctx, p.t.Medium, "invite email field", email, inviteEmail...)
}

// SendInvite clicks the dialog's send control, trying each known rendering
// of it in turn, then waits until the dialog closes or a confirmation shows.
func (p *TeamPage) SendInvite(ctx context.Context) error {
	if err := p.ClickFirst(ctx, p.t.Medium, "send invite button", sendButtons...); err != nil {
		return err
	}
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		open, err := p.IsDisplayed(ctx, inviteDialog)
		if err != nil {
			return false, err
		}
		if !open {
			return true, nil
		}
		return p.IsDisplayed(ctx, successMessages...)
	}, p.Wait(p.t.Medium, "invite dialog to close"), p.opt())
}

// readMembers parses the grid once. An empty grid is ErrNotReady: right after
// a mutation the grid re-renders without rows for a moment.
func (p *TeamPage) readMembers(ctx context.Context) ([]Member, error) {
	rows, err := locator.FindAllMatching(ctx, p.d, gridRows, memberRow)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("team grid has no member rows: %w", locator.ErrNotReady)
	}
	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		m, err := ParseMemberRow(r.Info.Text)
		if err != nil {
			p.logger.Debug("Skipping unparsable grid row.", zap.Error(err))
			continue
		}
		members = append(members, m)
	}
	return members, nil
}

// Members reads the team grid, retrying while it is still rendering.
func (p *TeamPage) Members(ctx context.Context) ([]Member, error) {
	members, _, err := locator.RetryAction(ctx, p.attempts(), p.retryWait(p.t.Short, "read team grid"), p.readMembers, p.opt())
	return members, err
}

// FindMember looks email up in the grid.
func (p *TeamPage) FindMember(ctx context.Context, email string) (Member, bool, error) {
	members, err := p.Members(ctx)
	if err != nil {
		return Member{}, false, err
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return m, true, nil
		}
	}
	return Member{}, false, nil
}

// WaitForMember waits until email is listed in the grid.
func (p *TeamPage) WaitForMember(ctx context.Context, email string) (Member, error) {
	var found Member
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		members, err := p.readMembers(ctx)
		if err != nil {
			return false, err
		}
		for _, m := range members {
			if strings.EqualFold(m.Email, email) {
				found = m
				return true, nil
			}
		}
		return false, nil
	}, p.Wait(p.t.MediumLong, fmt.Sprintf("member %s to be listed", email)), p.opt())
	return found, err
}

// WaitForMemberGone waits until the grid lists members and email is not
// among them. An empty grid is still re-rendering and proves nothing.
func (p *TeamPage) WaitForMemberGone(ctx context.Context, email string) error {
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		members, err := p.readMembers(ctx)
		if err != nil {
			return false, err
		}
		for _, m := range members {
			if strings.EqualFold(m.Email, email) {
				return false, nil
			}
		}
		return true, nil
	}, p.Wait(p.t.MediumLong, fmt.Sprintf("member %s to be removed", email)), p.opt())
}

// SuccessMessage returns the text of the invitation confirmation. When none
// is shown it returns an error matching locator.ErrElementNotFound; callers
// decide whether a side-effect check can stand in for it.
func (p *TeamPage) SuccessMessage(ctx context.Context) (string, error) {
	return p.TextOf(ctx, p.t.Medium, "invitation success message", successMessages...)
}

// DeletionSuccessMessage waits for a notification mentioning a successful
// removal and returns its text.
func (p *TeamPage) DeletionSuccessMessage(ctx context.Context) (string, error) {
	return p.messageMatching(ctx, p.t.Medium, "deletion success message", deletionWords)
}

func (p *TeamPage) messageMatching(ctx context.Context, timeout time.Duration, msg string, words []string) (string, error) {
	preds := make([]locator.Predicate, 0, len(words))
	for _, w := range words {
		preds = append(preds, locator.TextContainsFold(w))
	}
	pred := locator.All(locator.VisibleOnly(), locator.Any(preds...))

	var text string
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		for _, sel := range successMessages {
			snaps, err := locator.FindAllMatching(ctx, p.d, sel, pred)
			if err != nil {
				return false, err
			}
			if len(snaps) > 0 {
				text = strings.TrimSpace(snaps[0].Info.Text)
				return true, nil
			}
		}
		return false, nil
	}, p.Wait(timeout, msg), p.opt())
	if err != nil {
		var terr *locator.TimeoutError
		if errors.As(err, &terr) {
			return "", &locator.NotFoundError{Message: msg, Timeout: timeout, Passes: terr.Attempts}
		}
		return "", err
	}
	return text, nil
}

// FirstCandidate returns the first member still marked as a candidate.
func (p *TeamPage) FirstCandidate(ctx context.Context) (Member, int, bool, error) {
	members, err := p.Members(ctx)
	if err != nil {
		return Member{}, -1, false, err
	}
	for i, m := range members {
		if m.Candidate {
			return m, i, true, nil
		}
	}
	return Member{}, -1, false, nil
}

// rowTrash selects the delete icon inside the grid row that mentions email.
func rowTrash(email string) locator.Selector {
	return locator.XPath(fmt.Sprintf(`//*[@role="row"][contains(., %s)]//vaadin-icon[contains(@src, "trash-alt-solid.svg")]`, locator.XPathLiteral(email)))
}

// ClickTrash clicks the delete icon of m, whose position among the parsed
// member rows is index. The icon is looked up inside m's own row; when the
// grid does not expose rows that way, the index is used only while every
// member row carries exactly one icon.
func (p *TeamPage) ClickTrash(ctx context.Context, m Member, index int) error {
	var target locator.Element
	var icons, rows int
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		res, err := locator.Probe(ctx, p.d, []locator.Selector{rowTrash(m.Email)})
		if err != nil {
			return false, err
		}
		if res.Found {
			target = res.Match.Element
			return true, nil
		}
		all, err := locator.FindAllMatching(ctx, p.d, trashIcons, locator.VisibleOnly())
		if err != nil {
			return false, err
		}
		members, err := locator.FindAllMatching(ctx, p.d, gridRows, memberRow)
		if err != nil {
			return false, err
		}
		icons, rows = len(all), len(members)
		if icons == 0 || icons != rows || index >= icons {
			return false, nil
		}
		target = all[index].Element
		return true, nil
	}, p.Wait(p.t.Medium, fmt.Sprintf("trash icon for %s", m.Email)), p.opt())
	if err != nil {
		if icons != rows {
			return fmt.Errorf("%w (%d trash icons for %d member rows)", err, icons, rows)
		}
		return err
	}
	if err := p.d.Click(ctx, target); err != nil {
		return fmt.Errorf("failed to click trash icon for %s: %w", m.Email, err)
	}
	return nil
}

// ConfirmationPopupVisible checks the known popup renderings once.
func (p *TeamPage) ConfirmationPopupVisible(ctx context.Context) (bool, error) {
	return p.IsDisplayed(ctx, confirmPopups...)
}

// WaitForConfirmationPopup waits for any known popup rendering.
func (p *TeamPage) WaitForConfirmationPopup(ctx context.Context) error {
	return p.WaitForDisplayed(ctx, p.t.Medium, "delete confirmation popup", confirmPopups...)
}

// ConfirmPopup clicks the popup's confirm control. When none of the known
// confirm selectors resolves, it falls back to the first visible button whose
// label reads like a confirmation.
func (p *TeamPage) ConfirmPopup(ctx context.Context) error {
	err := p.ClickFirst(ctx, p.t.Short, "confirm button", confirmButtons...)
	if err == nil || !errors.Is(err, locator.ErrElementNotFound) {
		return err
	}
	p.logger.Debug("No dedicated confirm button, scanning button labels.")

	preds := make([]locator.Predicate, 0, len(confirmWords))
	for _, w := range confirmWords {
		preds = append(preds, locator.TextContainsFold(w))
	}
	buttons, ferr := locator.FindAllMatching(ctx, p.d, anyButton, locator.All(locator.VisibleOnly(), locator.Any(preds...)))
	if ferr != nil {
		return ferr
	}
	if len(buttons) == 0 {
		return err
	}
	if cerr := p.d.Click(ctx, buttons[0].Element); cerr != nil {
		return fmt.Errorf("failed to click confirm button %q: %w", buttons[0].Info.Text, cerr)
	}
	return nil
}

// WaitForPopupClosed waits until no known popup rendering is visible.
func (p *TeamPage) WaitForPopupClosed(ctx context.Context) error {
	return p.WaitGone(ctx, p.t.Medium, "delete confirmation popup to close", confirmPopups...)
}
