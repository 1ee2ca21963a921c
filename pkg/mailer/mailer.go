package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

// Email is a rendered outbound message.
type Email struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridMailer delivers through the SendGrid v3 API.
type SendgridMailer struct {
	client   sendClient
	from     string
	fromName string
}

// New returns a SendGrid mailer when an API key is configured and a logging
// mailer otherwise.
func New(cfg config.SendgridConfig, logg *logger.Logger) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &LogMailer{logg: logg}
	}
	return &SendgridMailer{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     cfg.DefaultFrom,
		fromName: cfg.FromName,
	}
}

func (m *SendgridMailer) Send(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.To) == "" {
		return errors.New("recipient is required")
	}
	msg := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.from),
		email.Subject,
		mail.NewEmail(email.ToName, email.To),
		email.Text,
		email.HTML,
	)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer records the email instead of sending it. Used when no provider key is set.
type LogMailer struct {
	logg *logger.Logger
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	if m.logg == nil {
		return nil
	}
	ctx = m.logg.WithFields(ctx, map[string]any{
		"email_to":      email.To,
		"email_subject": email.Subject,
	})
	m.logg.Info(ctx, "email delivery disabled, message logged only")
	return nil
}
