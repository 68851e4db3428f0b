// Package notify delivers best-effort buyer notifications.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends a single HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	user     string
	password string
	from     string
	fromName string
}

func NewSMTPMailer(host, port, user, password, from, fromName string) *SMTPMailer {
	if user == "" {
		user = from
	}
	return &SMTPMailer{host: host, port: port, user: user, password: password, from: from, fromName: fromName}
}

func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", m.fromName, m.from)
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.host+":"+m.port, auth)
}

// SendgridMailer sends through the SendGrid v3 API.
type SendgridMailer struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendgridMailer(apiKey, from, fromName string) *SendgridMailer {
	return &SendgridMailer{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

func (m *SendgridMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.from),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if resp.StatusCode >= 300 {
		return errors.Errorf("sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only records that a message would have been sent. It is used when
// no transport is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendEmail(_ context.Context, to, subject, _ string) error {
	m.logger.Info("email transport not configured, message dropped",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
