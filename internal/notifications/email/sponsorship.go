// Package email renders and delivers the outbound notifications for the
// billing flows. Templates are rendered in-process and handed to an
// external provider for transmission.
package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"corporate/internal/billing"
	"corporate/internal/external"
)

// Provider transmits a pre-rendered email.
type Provider interface {
	Send(ctx context.Context, email external.OutboundEmail) (messageID string, err error)
}

// sponsorshipSubject is the subject line for sponsorship notifications.
const sponsorshipSubject = "Sponsorship request for %s"

// sponsorshipBody is the plain-text body sent to the support address.
var sponsorshipBody = template.Must(template.New("sponsorship").Parse(
	`{{.RequestedBy}} ({{.UserRole}}) requested sponsorship for {{.OrganizationStringID}}.

Support: {{.SupportURL}}

Organization type: {{.OrganizationType}}
Website: {{if .Website}}{{.Website}}{{else}}-{{end}}

Description:
{{.Description}}

Expected total users:
{{.ExpectedTotalUsers}}

Paid users:
{{.PaidUsersCount}}
{{if .PaidUsersDescription}}
Paid users description:
{{.PaidUsersDescription}}
{{end}}`))

// SponsorshipMailer sends sponsorship request summaries to the support
// address, with the requester as reply-to.
type SponsorshipMailer struct {
	provider     Provider
	fromAddress  string
	fromName     string
	supportEmail string
	logger       *slog.Logger
}

// NewSponsorshipMailer creates a SponsorshipMailer.
func NewSponsorshipMailer(provider Provider, fromAddress, fromName, supportEmail string, logger *slog.Logger) *SponsorshipMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SponsorshipMailer{
		provider:     provider,
		fromAddress:  fromAddress,
		fromName:     fromName,
		supportEmail: supportEmail,
		logger:       logger,
	}
}

// Compile-time interface assertion.
var _ billing.Notifier = (*SponsorshipMailer)(nil)

// SendSponsorshipRequest renders and transmits the notification.
func (m *SponsorshipMailer) SendSponsorshipRequest(ctx context.Context, n billing.SponsorshipNotification) error {
	var body bytes.Buffer
	if err := sponsorshipBody.Execute(&body, n); err != nil {
		return fmt.Errorf("rendering sponsorship email: %w", err)
	}

	messageID, err := m.provider.Send(ctx, external.OutboundEmail{
		To:       m.supportEmail,
		From:     m.fromAddress,
		FromName: m.fromName,
		ReplyTo:  n.ReplyTo,
		Subject:  fmt.Sprintf(sponsorshipSubject, n.OrganizationStringID),
		BodyText: body.String(),
	})
	if err != nil {
		return err
	}

	m.logger.Info("sponsorship notification sent",
		"organization", n.OrganizationStringID,
		"message_id", messageID,
	)
	return nil
}
