package payment

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// CheckoutParams describes a single-item checkout
type CheckoutParams struct {
	BookingID   string
	Name        string
	Description string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Session is the gateway's view of a checkout session
type Session struct {
	ID        string
	URL       string
	Paid      bool
	BookingID string
}

// Gateway creates and inspects hosted checkout sessions
type Gateway interface {
	CreateSession(ctx context.Context, p *CheckoutParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}

// StripeGateway is the Stripe Checkout Gateway
type StripeGateway struct{}

// NewStripeGateway sets the Stripe API key and returns the gateway
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateSession(ctx context.Context, p *CheckoutParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.Name),
						Description: descriptionParam(p.Description),
					},
					UnitAmount: stripe.Int64(p.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.BookingID),
		Metadata: map[string]string{
			"booking_id": p.BookingID,
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripe(sess), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripe(sess), nil
}

func fromStripe(sess *stripe.CheckoutSession) *Session {
	return &Session{
		ID:        sess.ID,
		URL:       sess.URL,
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		BookingID: sess.Metadata["booking_id"],
	}
}

// Stripe rejects empty product descriptions
func descriptionParam(d string) *string {
	if d == "" {
		return nil
	}
	return stripe.String(d)
}
