package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Service errors
var (
	ErrInvalidAmount     = errors.New("invalid payment amount")
	ErrPaymentsDisabled  = errors.New("payments are not configured")
	ErrPaymentProvider   = errors.New("payment provider error")
	ErrInvalidWebhookSig = errors.New("invalid webhook signature")
	ErrMissingBookingID  = errors.New("missing booking_id in session metadata")
	ErrSessionMismatch   = errors.New("checkout session does not belong to this booking")
)

const defaultCurrency = "usd"

// Bookings is the booking lifecycle as payment sees it
type Bookings interface {
	Get(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error)
	Confirm(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error)
	ConfirmPaid(ctx context.Context, bookingID uuid.UUID) (*models.BookingDetail, bool, error)
}

// Gigs looks up the listing being paid for
type Gigs interface {
	Get(ctx context.Context, gigID uuid.UUID) (*models.Gig, error)
}

// Config holds payment settings
type Config struct {
	BaseURL       string
	Currency      string
	WebhookSecret string
}

// Service handles checkout for accepted bookings
type Service struct {
	store    Store
	gateway  Gateway
	bookings Bookings
	gigs     Gigs
	cfg      Config
	logger   zerolog.Logger
}

// NewService creates a new payment service. A nil gateway disables checkout.
func NewService(store Store, gateway Gateway, bookings Bookings, gigs Gigs, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		bookings: bookings,
		gigs:     gigs,
		cfg:      cfg,
		logger:   logging.NewLogger("payment"),
	}
}

// CheckoutResponse represents a created checkout session
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// ToMinorUnits converts a price to whole cents
func ToMinorUnits(price decimal.Decimal) (int64, error) {
	if price.IsNegative() {
		return 0, ErrInvalidAmount
	}
	cents := price.Shift(2).Round(0)
	if !cents.Shift(-2).Equal(price) {
		return 0, fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, price)
	}
	return cents.IntPart(), nil
}

// CreateCheckout opens a hosted checkout session for an Accepted booking
// owned by buyerID and records the session on the booking.
func (s *Service) CreateCheckout(ctx context.Context, buyerID, bookingID uuid.UUID) (*CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	d, err := s.bookings.Get(ctx, buyerID, bookingID)
	if err != nil {
		return nil, err
	}
	if d.BuyerID != buyerID {
		return nil, fmt.Errorf("%w to pay for this booking", booking.ErrNotAuthorized)
	}
	if d.Status != models.BookingStatusAccepted {
		return nil, fmt.Errorf("%w: can only pay for a booking when it is %s", booking.ErrInvalidState, models.BookingStatusAccepted)
	}

	g, err := s.gigs.Get(ctx, d.GigID)
	if err != nil {
		return nil, err
	}
	cents, err := ToMinorUnits(g.Price)
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.CreateSession(ctx, &CheckoutParams{
		BookingID:   bookingID.String(),
		Name:        g.Title,
		Description: g.Description,
		AmountCents: cents,
		Currency:    s.cfg.Currency,
		SuccessURL:  s.successURL(bookingID),
		CancelURL:   fmt.Sprintf("%s/api/v1/bookings/%s", s.cfg.BaseURL, bookingID),
	})
	if err != nil {
		monitoring.RecordCheckoutSession("error")
		s.logger.Error().Err(err).Str("booking_id", bookingID.String()).Msg("Failed to create checkout session")
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}

	if err := s.store.SetCheckoutSession(ctx, bookingID, sess.ID); err != nil {
		return nil, err
	}

	monitoring.RecordCheckoutSession("created")
	logging.LogPayment(bookingID.String(), sess.ID, "created", cents)
	return &CheckoutResponse{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
		AmountCents: cents,
		Currency:    s.cfg.Currency,
	}, nil
}

// The session placeholder must reach Stripe unescaped
func (s *Service) successURL(bookingID uuid.UUID) string {
	q := url.Values{"booking_id": {bookingID.String()}}
	return fmt.Sprintf("%s/api/v1/payments/success?%s&session_id={CHECKOUT_SESSION_ID}", s.cfg.BaseURL, q.Encode())
}

// HandleSuccess confirms a booking when the buyer returns from checkout.
// sessionID must be the session recorded on the booking and the gateway must
// report it paid. A booking the webhook already confirmed is returned as is.
func (s *Service) HandleSuccess(ctx context.Context, buyerID, bookingID uuid.UUID, sessionID string) (*models.BookingDetail, error) {
	d, err := s.bookings.Get(ctx, buyerID, bookingID)
	if err != nil {
		return nil, err
	}
	if d.BuyerID != buyerID {
		return nil, fmt.Errorf("%w to confirm this booking", booking.ErrNotAuthorized)
	}
	if d.Status == models.BookingStatusConfirmed {
		return d, nil
	}
	if d.Status != models.BookingStatusAccepted {
		return nil, fmt.Errorf("%w: can only confirm a booking when it is %s", booking.ErrInvalidState, models.BookingStatusAccepted)
	}
	if sessionID == "" || d.CheckoutSessionID == nil || *d.CheckoutSessionID != sessionID {
		logging.LogSecurityEvent("checkout_session_mismatch", buyerID.String(), "", bookingID.String())
		return nil, ErrSessionMismatch
	}
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to fetch checkout session")
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}
	if !sess.Paid {
		return nil, fmt.Errorf("%w: can only confirm a booking once its checkout is paid", booking.ErrInvalidState)
	}

	d, err = s.bookings.Confirm(ctx, buyerID, bookingID)
	if err != nil {
		return nil, err
	}
	monitoring.RecordPaymentConfirmed("redirect")
	logging.LogPayment(bookingID.String(), sessionID, "confirmed", 0)
	return d, nil
}

// HandleWebhook verifies a Stripe event and confirms the booking named in a
// completed checkout session. Events for unknown or no longer payable
// bookings are acknowledged and logged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		logging.LogSecurityEvent("invalid_webhook_signature", "", "", err.Error())
		return ErrInvalidWebhookSig
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return s.handleCheckoutCompleted(ctx, event)
	default:
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	sessionID := event.GetObjectValue("id")
	if status := event.GetObjectValue("payment_status"); status != "" && status != string(stripe.CheckoutSessionPaymentStatusPaid) {
		s.logger.Info().Str("session_id", sessionID).Str("payment_status", status).Msg("Checkout completed without payment")
		return nil
	}

	raw := event.GetObjectValue("metadata", "booking_id")
	if raw == "" {
		raw = event.GetObjectValue("client_reference_id")
	}
	if raw == "" {
		return ErrMissingBookingID
	}
	bookingID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid booking_id: %w", err)
	}

	return s.confirmPaid(ctx, bookingID, sessionID, "webhook")
}

func (s *Service) confirmPaid(ctx context.Context, bookingID uuid.UUID, sessionID, source string) error {
	_, changed, err := s.bookings.ConfirmPaid(ctx, bookingID)
	switch {
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, booking.ErrInvalidState):
		s.logger.Warn().Err(err).
			Str("booking_id", bookingID.String()).
			Str("session_id", sessionID).
			Str("source", source).
			Msg("Paid session for a booking that cannot be confirmed")
		return nil
	case err != nil:
		return err
	}

	if changed {
		monitoring.RecordPaymentConfirmed(source)
		logging.LogPayment(bookingID.String(), sessionID, "confirmed", 0)
	}
	return nil
}
