package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/booking"
	apierrors "github.com/seniorchoi/gigagig/internal/errors"
	"github.com/seniorchoi/gigagig/internal/geo"
	"github.com/seniorchoi/gigagig/internal/gig"
	"github.com/seniorchoi/gigagig/internal/message"
	"github.com/seniorchoi/gigagig/internal/payment"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apierrors.ErrorCode
	}{
		{"seller check", fmt.Errorf("%w to accept this booking", booking.ErrNotAuthorized), http.StatusForbidden, apierrors.ErrForbidden},
		{"gig owner check", fmt.Errorf("%w to delete this gig", gig.ErrGigNotOwned), http.StatusForbidden, apierrors.ErrForbidden},
		{"wrong state", fmt.Errorf("%w: can only complete a booking when it is Confirmed", booking.ErrInvalidState), http.StatusConflict, apierrors.ErrInvalidState},
		{"second review", booking.ErrAlreadyReviewed, http.StatusConflict, apierrors.ErrDuplicate},
		{"taken username", auth.ErrUsernameTaken, http.StatusConflict, apierrors.ErrDuplicate},
		{"geocoder down", fmt.Errorf("%w: %w", geo.ErrGeocodeFailed, errors.New("timeout")), http.StatusBadGateway, apierrors.ErrExternalService},
		{"stripe down", fmt.Errorf("%w: card_error", payment.ErrPaymentProvider), http.StatusBadGateway, apierrors.ErrExternalService},
		{"no booking", booking.ErrBookingNotFound, http.StatusNotFound, apierrors.ErrBookingNotFound},
		{"no gig for booking", booking.ErrGigNotFound, http.StatusNotFound, apierrors.ErrGigNotFound},
		{"no recipient", message.ErrUserNotFound, http.StatusNotFound, apierrors.ErrUserNotFound},
		{"bad rating", booking.ErrInvalidRating, http.StatusBadRequest, apierrors.ErrInvalidRequest},
		{"long message", message.ErrBodyTooLong, http.StatusBadRequest, apierrors.ErrInvalidRequest},
		{"foreign session", payment.ErrSessionMismatch, http.StatusBadRequest, apierrors.ErrInvalidRequest},
		{"bad signature", payment.ErrInvalidWebhookSig, http.StatusBadRequest, apierrors.ErrInvalidRequest},
		{"bad password", auth.ErrInvalidCredentials, http.StatusUnauthorized, apierrors.ErrInvalidCredentials},
		{"expired token", auth.ErrTokenExpired, http.StatusUnauthorized, apierrors.ErrTokenExpired},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, apierrors.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			assert.Equal(t, tt.status, got.HTTPStatus)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestMapErrorMessages(t *testing.T) {
	got := mapError(fmt.Errorf("%w: can only accept a booking when it is Pending", booking.ErrInvalidState))
	assert.Equal(t, "can only accept a booking when it is Pending", got.Message)

	got = mapError(fmt.Errorf("%w to review this booking", booking.ErrNotAuthorized))
	assert.Equal(t, "not authorized to review this booking", got.Message)

	got = mapError(fmt.Errorf("failed to send: %w", message.ErrUserNotFound))
	assert.Equal(t, "Recipient not found", got.Message)

	got = mapError(errors.New("pq: password authentication failed for user"))
	assert.Equal(t, "Internal server error", got.Message, "internal details never reach the client")
}
