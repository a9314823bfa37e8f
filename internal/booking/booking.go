package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/seniorchoi/gigagig/internal/notify"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service owns the booking lifecycle. Every status change goes through
// transition, which checks the actor and the edge under a row lock.
type Service struct {
	store    Store
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new booking service
func NewService(store Store, notifier notify.Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logging.NewLogger("booking"),
		now:      time.Now,
	}
}

// CreateRequest represents a request to book a gig
type CreateRequest struct {
	GigID       uuid.UUID `json:"gig_id" binding:"required"`
	BookingDate time.Time `json:"booking_date" binding:"required"`
}

// ReviewRequest represents a review of a completed booking
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"max=2000"`
}

// ListResponse represents a paginated list of bookings
type ListResponse struct {
	Bookings   []models.BookingDetail `json:"bookings"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

// party names who may perform a transition
type party int

const (
	partySeller party = iota
	partyBuyer
)

// Create books a gig for buyerID. The booking starts Pending. Overlapping
// dates are not checked.
func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, req *CreateRequest) (*models.BookingDetail, error) {
	if req.BookingDate.IsZero() {
		return nil, ErrInvalidDate
	}

	gig, err := s.store.GetGig(ctx, req.GigID)
	if err != nil {
		return nil, err
	}
	if gig.SellerID == buyerID {
		return nil, fmt.Errorf("%w to book your own gig", ErrNotAuthorized)
	}

	now := s.now().UTC()
	b := &models.Booking{
		ID:          uuid.New(),
		GigID:       gig.ID,
		BuyerID:     buyerID,
		BookingDate: req.BookingDate.UTC(),
		Status:      models.BookingStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}

	detail, err := s.store.Get(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("gig_id", gig.ID.String()).
		Str("buyer_id", buyerID.String()).
		Msg("Booking created")

	s.notify(ctx, detail, notify.BookingCreated)
	return detail, nil
}

// Accept moves a Pending booking to Accepted. Only the gig's seller may accept.
func (s *Service) Accept(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error) {
	detail, err := s.transition(ctx, actorID, bookingID, partySeller, "accept", models.BookingStatusAccepted)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, detail, notify.BookingAccepted)
	return detail, nil
}

// Decline moves a Pending booking to Declined. Only the gig's seller may decline.
func (s *Service) Decline(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error) {
	detail, err := s.transition(ctx, actorID, bookingID, partySeller, "decline", models.BookingStatusDeclined)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, detail, notify.BookingDeclined)
	return detail, nil
}

// Confirm marks an Accepted booking as paid on behalf of its buyer
func (s *Service) Confirm(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error) {
	return s.transition(ctx, actorID, bookingID, partyBuyer, "confirm", models.BookingStatusConfirmed)
}

// ConfirmPaid confirms a booking on the payment gateway's word. A booking
// that is already Confirmed or Completed is returned unchanged so repeated
// gateway notifications are harmless.
func (s *Service) ConfirmPaid(ctx context.Context, bookingID uuid.UUID) (*models.BookingDetail, bool, error) {
	var changed bool
	detail, err := s.store.UpdateStatus(ctx, bookingID, func(b *models.BookingDetail) (models.BookingStatus, error) {
		switch b.Status {
		case models.BookingStatusConfirmed, models.BookingStatusCompleted:
			return b.Status, nil
		}
		if err := checkEdge(b.Status, models.BookingStatusConfirmed, "confirm"); err != nil {
			return "", err
		}
		changed = true
		return models.BookingStatusConfirmed, nil
	})
	if err != nil {
		s.recordError(err)
		return nil, false, err
	}
	if changed {
		s.recordTransition(detail, uuid.Nil, models.BookingStatusAccepted)
	}
	return detail, changed, nil
}

// Complete moves a Confirmed booking to Completed. Only the seller may complete.
func (s *Service) Complete(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error) {
	return s.transition(ctx, actorID, bookingID, partySeller, "complete", models.BookingStatusCompleted)
}

// SubmitReview attaches the single review a buyer may leave on a Completed booking
func (s *Service) SubmitReview(ctx context.Context, actorID, bookingID uuid.UUID, req *ReviewRequest) (*models.Review, error) {
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return nil, ErrInvalidRating
	}

	review, err := s.store.InsertReview(ctx, bookingID, func(b *models.BookingDetail) (*models.Review, error) {
		if b.BuyerID != actorID {
			return nil, fmt.Errorf("%w to review this booking", ErrNotAuthorized)
		}
		if b.Status != models.BookingStatusCompleted {
			return nil, fmt.Errorf("%w: can only review a booking when it is %s", ErrInvalidState, models.BookingStatusCompleted)
		}
		if b.HasReview {
			return nil, ErrAlreadyReviewed
		}
		return &models.Review{
			ID:        uuid.New(),
			GigID:     b.GigID,
			BookingID: b.ID,
			UserID:    actorID,
			Rating:    req.Rating,
			Comment:   strings.TrimSpace(req.Comment),
			CreatedAt: s.now().UTC(),
		}, nil
	})
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", bookingID.String()).
		Int("rating", review.Rating).
		Msg("Review submitted")
	return review, nil
}

// Get returns a booking to one of its two parties
func (s *Service) Get(ctx context.Context, actorID, bookingID uuid.UUID) (*models.BookingDetail, error) {
	d, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if d.BuyerID != actorID && d.SellerID != actorID {
		return nil, fmt.Errorf("%w to view this booking", ErrNotAuthorized)
	}
	return d, nil
}

// ListForBuyer returns the bookings a user made, newest first
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, page, pageSize int) (*ListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, total, err := s.store.ListByBuyer(ctx, buyerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return newListResponse(items, total, page, pageSize), nil
}

// ListForSeller returns bookings made against a user's gigs, newest first
func (s *Service) ListForSeller(ctx context.Context, sellerID uuid.UUID, page, pageSize int) (*ListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, total, err := s.store.ListBySeller(ctx, sellerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return newListResponse(items, total, page, pageSize), nil
}

// ListReviewsForGig returns a gig's reviews, newest first
func (s *Service) ListReviewsForGig(ctx context.Context, gigID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.store.ListReviewsForGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *Service) transition(ctx context.Context, actorID, bookingID uuid.UUID, who party, action string, to models.BookingStatus) (*models.BookingDetail, error) {
	var from models.BookingStatus
	detail, err := s.store.UpdateStatus(ctx, bookingID, func(b *models.BookingDetail) (models.BookingStatus, error) {
		if err := checkActor(b, actorID, who, action); err != nil {
			return "", err
		}
		if err := checkEdge(b.Status, to, action); err != nil {
			return "", err
		}
		from = b.Status
		return to, nil
	})
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.recordTransition(detail, actorID, from)
	return detail, nil
}

func checkActor(b *models.BookingDetail, actorID uuid.UUID, who party, action string) error {
	switch who {
	case partySeller:
		if b.SellerID != actorID {
			return fmt.Errorf("%w to %s this booking", ErrNotAuthorized, action)
		}
	case partyBuyer:
		if b.BuyerID != actorID {
			return fmt.Errorf("%w to %s this booking", ErrNotAuthorized, action)
		}
	}
	return nil
}

// checkEdge rejects any move not in the transition table and names the
// state the action requires.
func checkEdge(from, to models.BookingStatus, action string) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	for _, s := range models.AllBookingStatuses() {
		if s.CanTransitionTo(to) {
			return fmt.Errorf("%w: can only %s a booking when it is %s", ErrInvalidState, action, s)
		}
	}
	return fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidState, action, from)
}

func (s *Service) recordTransition(d *models.BookingDetail, actorID uuid.UUID, from models.BookingStatus) {
	monitoring.RecordBookingTransition(string(from), string(d.Status))
	logging.LogBookingTransition(d.ID.String(), actorID.String(), string(from), string(d.Status))
}

func (s *Service) recordError(err error) {
	kind := "internal"
	switch {
	case errors.Is(err, ErrNotAuthorized):
		kind = "unauthorized"
	case errors.Is(err, ErrInvalidState):
		kind = "invalid_state"
	case errors.Is(err, ErrAlreadyReviewed):
		kind = "duplicate"
	case errors.Is(err, ErrBookingNotFound):
		kind = "not_found"
	}
	monitoring.RecordBookingTransitionError(kind)
}

// notify renders and dispatches an event; failures never reach the caller
func (s *Service) notify(ctx context.Context, d *models.BookingDetail, build func(notify.BookingInfo) (notify.Event, error)) {
	if s.notifier == nil {
		return
	}
	event, err := build(notify.BookingInfo{
		Gig:         d.GigTitle,
		Buyer:       d.BuyerName,
		BuyerEmail:  d.BuyerEmail,
		Seller:      d.SellerName,
		SellerEmail: d.SellerEmail,
		Date:        d.BookingDate.Format("2006-01-02"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", d.ID.String()).Msg("Failed to build notification")
		return
	}
	s.notifier.Notify(ctx, event)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func newListResponse(items []models.BookingDetail, total int64, page, pageSize int) *ListResponse {
	if items == nil {
		items = []models.BookingDetail{}
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &ListResponse{
		Bookings:   items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
