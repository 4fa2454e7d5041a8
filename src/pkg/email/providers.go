package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// sendWithSES uses the SES v2 simple message. Region and credentials come from the default AWS chain.
func sendWithSES(ctx context.Context, msg message) (messageID string, e *xerr.Error) {
	awsCfg, loadErr := awsconfig.LoadDefaultConfig(ctx)
	if loadErr != nil {
		e = xerr.NewError(loadErr, "load AWS config", "AWS_REGION")
		return "", e
	}
	if len(msg.Attachments) > 0 {
		tl.Log(tl.Warning, palette.Yellow, "%s does not send attachments, %d %s", "ses", len(msg.Attachments), "skipped")
	}

	body := &sestypes.Body{
		Text: &sestypes.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
	}
	if msg.HTML != "" {
		body.Html = &sestypes.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	client := sesv2.NewFromConfig(awsCfg)
	output, sendErr := client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.Sender),
		Destination:      &sestypes.Destination{ToAddresses: msg.Recipients},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if sendErr != nil {
		e = xerr.NewError(sendErr, "send email via SES", msg.Recipients)
		return "", e
	}

	return aws.ToString(output.MessageId), e
}

func sendWithMailgun(ctx context.Context, msg message) (messageID string, e *xerr.Error) {
	domain := os.Getenv("MAILGUN_DOMAIN")
	apiKey := os.Getenv("MAILGUN_API_KEY")
	if domain == "" || apiKey == "" {
		e = xerr.NewError(fmt.Errorf("MAILGUN_DOMAIN or MAILGUN_API_KEY is empty"), "configure mailgun", domain)
		return "", e
	}

	mg := mailgun.NewMailgun(domain, apiKey)
	mailgunMessage := mg.NewMessage(msg.Sender, msg.Subject, msg.Text, msg.Recipients...)
	if msg.HTML != "" {
		mailgunMessage.SetHtml(msg.HTML)
	}
	for _, attachment := range msg.Attachments {
		mailgunMessage.AddBufferAttachment(attachment.Filename, attachment.Content)
	}

	response, id, sendErr := mg.Send(ctx, mailgunMessage)
	if sendErr != nil {
		e = xerr.NewError(sendErr, "send email via mailgun", msg.Recipients)
		return "", e
	}
	tl.Log(tl.Verbose, palette.CyanDim, "Mailgun response: '%s'", response)

	return id, e
}

func sendWithSendgrid(ctx context.Context, msg message) (messageID string, e *xerr.Error) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		e = xerr.NewError(fmt.Errorf("SENDGRID_API_KEY is empty"), "configure sendgrid", nil)
		return "", e
	}

	sendgridMessage := mail.NewV3Mail()
	sendgridMessage.SetFrom(mail.NewEmail("", msg.Sender))
	sendgridMessage.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	for _, recipient := range msg.Recipients {
		personalization.AddTos(mail.NewEmail("", recipient))
	}
	sendgridMessage.AddPersonalizations(personalization)

	sendgridMessage.AddContent(mail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		sendgridMessage.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	for _, attachment := range msg.Attachments {
		sendgridAttachment := mail.NewAttachment()
		sendgridAttachment.SetFilename(attachment.Filename)
		sendgridAttachment.SetType(attachment.ContentType)
		sendgridAttachment.SetContent(base64.StdEncoding.EncodeToString(attachment.Content))
		sendgridAttachment.SetDisposition("attachment")
		sendgridMessage.AddAttachment(sendgridAttachment)
	}

	client := sendgrid.NewSendClient(apiKey)
	response, sendErr := client.SendWithContext(ctx, sendgridMessage)
	if sendErr != nil {
		e = xerr.NewError(sendErr, "send email via sendgrid", msg.Recipients)
		return "", e
	}
	if response.StatusCode >= 300 {
		e = xerr.NewError(fmt.Errorf("status is '%d'", response.StatusCode), "API error from sendgrid", response.Body)
		return "", e
	}

	return sendgridMessageID(response), e
}

// sendgridMessageID is the first X-Message-Id header of an accepted send, or "".
func sendgridMessageID(response *rest.Response) string {
	if response == nil {
		return ""
	}
	messageIDs := response.Headers["X-Message-Id"]
	if len(messageIDs) == 0 {
		return ""
	}
	return messageIDs[0]
}
