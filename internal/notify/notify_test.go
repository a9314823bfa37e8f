package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/seniorchoi/gigagig/internal/config"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingMailer) Send(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingMailer) Name() string { return "recording" }

func TestMailgunMailerPostsForm(t *testing.T) {
	var got *http.Request
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r
		form = map[string]string{
			"from":    r.PostForm.Get("from"),
			"to":      r.PostForm.Get("to"),
			"subject": r.PostForm.Get("subject"),
			"html":    r.PostForm.Get("html"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<20261017.1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	m := NewMailgunMailer(srv.URL+"/", "mg.example.com", "key-123", "Gigagig <noreply@example.com>", nil)
	err := m.Send(context.Background(), Event{Type: EventBookingAccepted, To: "buyer@example.com", Subject: "Your booking has been accepted", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/mg.example.com/messages", got.URL.Path)
	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "api", user)
	assert.Equal(t, "key-123", pass)
	assert.Equal(t, "buyer@example.com", form["to"])
	assert.Equal(t, "Your booking has been accepted", form["subject"])
	assert.Equal(t, "<p>hi</p>", form["html"])
	assert.Equal(t, "Gigagig <noreply@example.com>", form["from"])
}

func TestMailgunMailerReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMailgunMailer(srv.URL, "mg.example.com", "bad", "noreply@example.com", nil)
	err := m.Send(context.Background(), Event{To: "x@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMailersRejectMissingRecipient(t *testing.T) {
	mg := NewMailgunMailer("http://127.0.0.1:0", "d", "k", "s", nil)
	assert.ErrorIs(t, mg.Send(context.Background(), Event{}), ErrNoRecipient)

	sm := NewSMTPMailer("localhost", 1025, "", "", "s@example.com")
	assert.ErrorIs(t, sm.Send(context.Background(), Event{}), ErrNoRecipient)
}

func TestNewMailerSelection(t *testing.T) {
	assert.Equal(t, "mailgun", NewMailer(&config.MailConfig{MailgunAPIKey: "k", MailgunDomain: "d", SMTPHost: "smtp"}).Name())
	assert.Equal(t, "smtp", NewMailer(&config.MailConfig{SMTPHost: "smtp", SMTPPort: 25}).Name())
	assert.Equal(t, "none", NewMailer(&config.MailConfig{}).Name())
}

func TestEventConstructors(t *testing.T) {
	info := BookingInfo{
		Gig:         "Dog <walking>",
		Buyer:       "bob",
		BuyerEmail:  "bob@example.com",
		Seller:      "sally",
		SellerEmail: "sally@example.com",
		Date:        "2026-11-01",
	}

	created, err := BookingCreated(info)
	require.NoError(t, err)
	assert.Equal(t, "sally@example.com", created.To)
	assert.Equal(t, EventBookingCreated, created.Type)
	assert.Contains(t, created.HTML, "Dog &lt;walking&gt;", "gig titles must be escaped")

	accepted, err := BookingAccepted(info)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", accepted.To)
	assert.Equal(t, "Your booking has been accepted", accepted.Subject)

	declined, err := BookingDeclined(info)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", declined.To)

	msg, err := MessageReceived("alice", "bob", "bob@example.com", "hello")
	require.NoError(t, err)
	assert.Equal(t, "New message from alice", msg.Subject)
	assert.Contains(t, msg.HTML, "hello")
}

func TestDecodeEvent(t *testing.T) {
	e, err := DecodeEvent([]byte(`{"type":"booking.accepted","to":"a@example.com","subject":"s","html":"h"}`))
	require.NoError(t, err)
	assert.Equal(t, EventBookingAccepted, e.Type)

	_, err = DecodeEvent([]byte(`{"type":"booking.accepted"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestDirectDispatcherSendsInBackground(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d := NewDirectDispatcher(mailer)

	d.Notify(context.Background(), Event{Type: EventMessageReceived, To: "a@example.com"})
	d.Notify(context.Background(), Event{Type: EventBookingAccepted, To: "b@example.com"})
	require.NoError(t, d.Close())

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Len(t, mailer.events, 2, "failures are logged, not retried")
}

func TestPublisherFallsBackAfterConnectionLoss(t *testing.T) {
	mailer := &recordingMailer{}
	p := &Publisher{
		exchange: "gigagig.events",
		fallback: NewDirectDispatcher(mailer),
		logger:   logging.NewLogger("notify.amqp"),
	}

	closed := make(chan *amqp.Error, 1)
	closed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED"}
	p.watch(closed)
	require.True(t, p.down.Load())

	p.Notify(context.Background(), Event{Type: EventBookingCreated, To: "seller@example.com"})
	require.NoError(t, p.Close())

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.Len(t, mailer.events, 1)
	assert.Equal(t, "seller@example.com", mailer.events[0].To)
}

func TestPublisherWithoutFallbackDropsAfterConnectionLoss(t *testing.T) {
	p := &Publisher{logger: logging.NewLogger("notify.amqp")}
	closed := make(chan *amqp.Error)
	close(closed)
	p.watch(closed)

	assert.NotPanics(t, func() {
		p.Notify(context.Background(), Event{Type: EventMessageReceived, To: "a@example.com"})
	})
	assert.NoError(t, p.Close())
}
