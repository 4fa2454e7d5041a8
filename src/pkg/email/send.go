// Package email delivers catalog digests through Amazon SES, Mailgun or SendGrid.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

type Provider string

const (
	ProviderSES      Provider = "ses"
	ProviderMailgun  Provider = "mailgun"
	ProviderSendgrid Provider = "sendgrid"
)

const sendTimeout = 30 * time.Second

// Attachment is a file attached to the message, e.g. the CSV export of a budget listing.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// message is what every provider implementation receives.
type message struct {
	Sender      string
	Recipients  []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

/*
SendMessage sends one message through provider.

When sendEmails is nil or false the message is only logged, which is how
commands run in dry-run mode. Credentials come from the environment:
AWS_* for ses, MAILGUN_DOMAIN/MAILGUN_API_KEY and SENDGRID_API_KEY.
*/
func SendMessage(
	provider Provider, sendEmails *bool, sender string, recipients []string,
	subject string, text string, html string, attachments []Attachment,
) (e *xerr.Error) {
	msg := message{
		Sender:      strings.TrimSpace(sender),
		Recipients:  cleanRecipients(recipients),
		Subject:     subject,
		Text:        text,
		HTML:        html,
		Attachments: attachments,
	}

	e = validate(provider, msg)
	if e != nil {
		return e
	}

	if sendEmails == nil || !*sendEmails {
		tl.Log(
			tl.Notice, palette.Yellow, "Dry run, %s send '%s' via %s to %s",
			"not going to", msg.Subject, provider, strings.Join(msg.Recipients, ", "),
		)
		tl.Log(tl.Verbose, palette.BlueDim, "Email text:\n```\n%s\n```", msg.Text)
		return e
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	tl.Log(tl.Info, palette.Blue, "Sending '%s' via %s to %d recipients", msg.Subject, provider, len(msg.Recipients))

	var messageID string
	switch provider {
	case ProviderSES:
		messageID, e = sendWithSES(ctx, msg)
	case ProviderMailgun:
		messageID, e = sendWithMailgun(ctx, msg)
	case ProviderSendgrid:
		messageID, e = sendWithSendgrid(ctx, msg)
	}
	if e != nil {
		return e
	}

	tl.Log(tl.Info1, palette.Green, "Sent '%s' via %s, message id '%s'", msg.Subject, provider, messageID)
	return e
}

func validate(provider Provider, msg message) (e *xerr.Error) {
	switch provider {
	case ProviderSES, ProviderMailgun, ProviderSendgrid:
	default:
		e = xerr.NewError(fmt.Errorf("unknown email provider '%s'", provider), "choose email provider", provider)
		return e
	}
	if msg.Sender == "" {
		e = xerr.NewError(fmt.Errorf("sender is empty"), "validate email", msg.Subject)
		return e
	}
	if len(msg.Recipients) == 0 {
		e = xerr.NewError(fmt.Errorf("no recipients"), "validate email", msg.Subject)
		return e
	}
	return e
}

func cleanRecipients(recipients []string) []string {
	cleaned := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		trimmed := strings.TrimSpace(recipient)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
