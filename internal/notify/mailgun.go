package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunMailer sends through the Mailgun messages API
type MailgunMailer struct {
	mg     *mailgun.MailgunImpl
	sender string
}

// NewMailgunMailer creates a Mailgun mailer. An empty baseURL keeps the
// client's default region; httpClient may be nil.
func NewMailgunMailer(baseURL, domain, apiKey, sender string, httpClient *http.Client) *MailgunMailer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	mg := mailgun.NewMailgun(domain, apiKey)
	if baseURL != "" {
		mg.SetAPIBase(strings.TrimRight(baseURL, "/"))
	}
	mg.SetClient(httpClient)
	return &MailgunMailer{mg: mg, sender: sender}
}

func (m *MailgunMailer) Name() string { return "mailgun" }

// Send delivers the event as an HTML message
func (m *MailgunMailer) Send(ctx context.Context, event Event) error {
	if event.To == "" {
		return ErrNoRecipient
	}

	msg := m.mg.NewMessage(m.sender, event.Subject, "", event.To)
	msg.SetHtml(event.HTML)

	if _, _, err := m.mg.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	return nil
}
