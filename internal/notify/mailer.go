package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/seniorchoi/gigagig/internal/config"
)

// ErrNoRecipient is returned for events without an address
var ErrNoRecipient = errors.New("no recipient address")

// Mailer delivers a rendered event as an email
type Mailer interface {
	Send(ctx context.Context, event Event) error
	Name() string
}

// NewMailer picks Mailgun, then SMTP, then a mailer that only logs
func NewMailer(cfg *config.MailConfig) Mailer {
	switch {
	case cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "":
		return NewMailgunMailer(cfg.MailgunBaseURL, cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.DefaultSender, nil)
	case cfg.SMTPHost != "":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.DefaultSender)
	default:
		log.Warn().Msg("No mail provider configured, emails will only be logged")
		return NopMailer{}
	}
}

// NopMailer drops every email after logging it
type NopMailer struct{}

func (NopMailer) Send(_ context.Context, event Event) error {
	log.Info().
		Str("type", string(event.Type)).
		Str("to", event.To).
		Str("subject", event.Subject).
		Msg("Email skipped, no provider configured")
	return nil
}

func (NopMailer) Name() string { return "none" }
