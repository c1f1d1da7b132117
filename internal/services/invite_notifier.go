package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/pkg/mail"
)

// MailInviteNotifier emails the invited user through a mail.Mailer.
type MailInviteNotifier struct {
	mailer  mail.Mailer
	from    string
	baseURL string
}

// NewMailInviteNotifier constructs a MailInviteNotifier. baseURL, when set, is used to
// build a link to the invite in the message body.
func NewMailInviteNotifier(mailer mail.Mailer, from, baseURL string) (*MailInviteNotifier, error) {
	if mailer == nil {
		return nil, errors.New("invite notifier: mailer is required")
	}
	return &MailInviteNotifier{
		mailer:  mailer,
		from:    strings.TrimSpace(from),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// SendInviteEmail renders and sends the invitation.
func (n *MailInviteNotifier) SendInviteEmail(ctx context.Context, user *models.User, project *models.Project, invite *models.Invite) error {
	if user == nil || invite == nil {
		return errors.New("invite notifier: user and invite are required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("invite notifier: user %s has no email address", user.ID)
	}

	projectName := invite.ProjectName
	if projectName == "" && project != nil {
		projectName = project.Name
	}

	return n.mailer.Send(ctx, mail.Message{
		From:    n.from,
		To:      []string{user.Email},
		Subject: fmt.Sprintf("You've been invited to contribute to %s", projectName),
		Body:    n.body(user, projectName, invite),
	})
}

func (n *MailInviteNotifier) body(user *models.User, projectName string, invite *models.Invite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", user.DisplayName())
	fmt.Fprintf(&b, "You have been invited to become a contributor to %s on Endor.\n", projectName)
	if invite.Status == models.InviteOpen {
		fmt.Fprintf(&b, "This invite is open until %s.\n", ComputeExpirationDate(invite.CreatedAt, invite.DaysFromCreationUntilExpiration))
	}
	if n.baseURL != "" {
		fmt.Fprintf(&b, "\nReview the invite here: %s/invites/%s\n", n.baseURL, invite.ID)
	}
	b.WriteString("\nIf you were not expecting this email you can ignore it.\n")
	return b.String()
}
