package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/models"
)

// transitionFunc is one of the actor-checked booking transitions
type transitionFunc func(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error)

func (s *APIServer) handleCreateBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req booking.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := s.bookings.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, "create_booking", err)
		return
	}

	c.JSON(http.StatusCreated, d)
}

func (s *APIServer) handleListMyBookings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	resp, err := s.bookings.ListForBuyer(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, "list_my_bookings", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) handleListIncomingBookings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	resp, err := s.bookings.ListForSeller(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, "list_incoming_bookings", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *APIServer) handleGetBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	d, err := s.bookings.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, "get_booking", err)
		return
	}

	c.JSON(http.StatusOK, d)
}

func (s *APIServer) handleAcceptBooking(c *gin.Context) {
	s.runTransition(c, "accept_booking", s.bookings.Accept)
}

func (s *APIServer) handleDeclineBooking(c *gin.Context) {
	s.runTransition(c, "decline_booking", s.bookings.Decline)
}

func (s *APIServer) handleCompleteBooking(c *gin.Context) {
	s.runTransition(c, "complete_booking", s.bookings.Complete)
}

// runTransition applies fn to the booking in the path as the caller
func (s *APIServer) runTransition(c *gin.Context, operation string, fn transitionFunc) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	d, err := fn(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, operation, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

func (s *APIServer) handleReviewBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req booking.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := s.bookings.SubmitReview(c.Request.Context(), userID, id, &req)
	if err != nil {
		handleError(c, "review_booking", err)
		return
	}

	c.JSON(http.StatusCreated, review)
}
