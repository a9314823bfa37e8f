package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// EventType doubles as the AMQP routing key
type EventType string

const (
	EventBookingCreated  EventType = "booking.created"
	EventBookingAccepted EventType = "booking.accepted"
	EventBookingDeclined EventType = "booking.declined"
	EventMessageReceived EventType = "message.received"
)

// Event is one outbound notification, already rendered
type Event struct {
	Type    EventType `json:"type"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
}

// Notifier dispatches events without blocking or failing the caller.
// Implementations log delivery errors and never retry.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

var templates = template.Must(template.New("notify").Parse(`
{{define "booking.created"}}<p>Hi {{.Seller}},</p><p>{{.Buyer}} requested to book <strong>{{.Gig}}</strong> on {{.Date}}.</p>{{end}}
{{define "booking.accepted"}}<p>Hi {{.Buyer}},</p><p>Your booking for <strong>{{.Gig}}</strong> has been accepted. You can now complete payment.</p>{{end}}
{{define "booking.declined"}}<p>Hi {{.Buyer}},</p><p>Your booking for <strong>{{.Gig}}</strong> was declined.</p>{{end}}
{{define "message.received"}}<p>Hi {{.Recipient}},</p><p>You have a new message from {{.Sender}}:</p><blockquote>{{.Body}}</blockquote>{{end}}
`))

func render(name EventType, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(name), data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// BookingInfo carries what booking notifications mention
type BookingInfo struct {
	Gig         string
	Buyer       string
	BuyerEmail  string
	Seller      string
	SellerEmail string
	Date        string
}

// BookingCreated tells the seller about a new request
func BookingCreated(info BookingInfo) (Event, error) {
	html, err := render(EventBookingCreated, info)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    EventBookingCreated,
		To:      info.SellerEmail,
		Subject: "New booking request for " + info.Gig,
		HTML:    html,
	}, nil
}

// BookingAccepted tells the buyer the seller accepted
func BookingAccepted(info BookingInfo) (Event, error) {
	html, err := render(EventBookingAccepted, info)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    EventBookingAccepted,
		To:      info.BuyerEmail,
		Subject: "Your booking has been accepted",
		HTML:    html,
	}, nil
}

// BookingDeclined tells the buyer the seller declined
func BookingDeclined(info BookingInfo) (Event, error) {
	html, err := render(EventBookingDeclined, info)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    EventBookingDeclined,
		To:      info.BuyerEmail,
		Subject: "Your booking has been declined",
		HTML:    html,
	}, nil
}

// MessageReceived tells a user someone wrote to them
func MessageReceived(sender, recipient, recipientEmail, body string) (Event, error) {
	html, err := render(EventMessageReceived, map[string]string{
		"Sender":    sender,
		"Recipient": recipient,
		"Body":      body,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    EventMessageReceived,
		To:      recipientEmail,
		Subject: "New message from " + sender,
		HTML:    html,
	}, nil
}
