package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPMailer sends through a plain SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(host string, port int, user, password, sender string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		sender: sender,
	}
}

func (m *SMTPMailer) Name() string { return "smtp" }

// Send delivers one HTML email. gomail has no context support, so ctx is
// only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, event Event) error {
	if event.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.sender, event)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func buildMessage(sender string, event Event) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", sender)
	msg.SetHeader("To", event.To)
	msg.SetHeader("Subject", event.Subject)
	msg.SetBody("text/html", event.HTML)
	return msg
}
