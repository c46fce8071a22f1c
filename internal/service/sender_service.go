package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	if fromName == "" {
		fromName = "Trattoria"
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *SendGridMailer) SendEmail(ctx context.Context, toEmail, toName, subject, plainText, htmlBody string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlBody)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: send to %s: %w", toEmail, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	slog.Info("email sent",
		slog.String("to", toEmail),
		slog.String("subject", subject),
		slog.Int("status", resp.StatusCode),
	)
	return nil
}

type TwilioTexter struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioTexter(accountSID, authToken, fromNumber string) *TwilioTexter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSID,
		Password:   authToken,
		AccountSid: accountSID,
	})
	return &TwilioTexter{client: client, fromNumber: fromNumber}
}

func (t *TwilioTexter) SendSMS(_ context.Context, toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "+") {
		return fmt.Errorf("twilio: %q is not in E.164 format", toNumber)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: send to %s: %w", toNumber, err)
	}
	if resp != nil && resp.Sid != nil {
		slog.Info("sms sent", slog.String("to", toNumber), slog.String("sid", *resp.Sid))
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) SendEmail(_ context.Context, toEmail, _, subject, plainText, _ string) error {
	slog.Info("email not sent, no provider configured",
		slog.String("to", toEmail),
		slog.String("subject", subject),
		slog.String("body", plainText),
	)
	return nil
}

// LogTexter writes text messages to the log instead of sending them.
type LogTexter struct{}

func (LogTexter) SendSMS(_ context.Context, toNumber, body string) error {
	slog.Info("sms not sent, no provider configured",
		slog.String("to", toNumber),
		slog.String("body", body),
	)
	return nil
}
