package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/seniorchoi/gigagig/internal/errors"
)

// handleCheckout opens a Stripe checkout session for an Accepted booking
func (s *APIServer) handleCheckout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.payments.CreateCheckout(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, "checkout", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// handlePaymentSuccess is the checkout success redirect target
func (s *APIServer) handlePaymentSuccess(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(c.Query("booking_id"))
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("booking_id is required"))
		return
	}

	d, err := s.payments.HandleSuccess(c.Request.Context(), userID, bookingID, c.Query("session_id"))
	if err != nil {
		handleError(c, "payment_success", err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// handleStripeWebhook verifies and applies a Stripe event
func (s *APIServer) handleStripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("Failed to read request body"))
		return
	}

	if err := s.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		handleError(c, "stripe_webhook", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
