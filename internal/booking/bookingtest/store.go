// Package bookingtest provides an in-memory booking.Store for tests. It
// also records checkout sessions, so it serves as a payment.Store.
package bookingtest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/payment"
)

// User is a party known to the store
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// Store keeps bookings in maps behind one mutex, which stands in for the
// row lock the Postgres store takes.
type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]User
	gigs     map[uuid.UUID]booking.GigRef
	bookings map[uuid.UUID]models.Booking
	reviews  map[uuid.UUID]models.Review // keyed by booking id
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    map[uuid.UUID]User{},
		gigs:     map[uuid.UUID]booking.GigRef{},
		bookings: map[uuid.UUID]models.Booking{},
		reviews:  map[uuid.UUID]models.Review{},
	}
}

// AddUser registers a user and returns its id
func (s *Store) AddUser(username string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = User{ID: id, Username: username, Email: username + "@example.com"}
	return id
}

// AddGig registers a gig owned by sellerID and returns its id
func (s *Store) AddGig(sellerID uuid.UUID, title string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.gigs[id] = booking.GigRef{ID: id, Title: title, SellerID: sellerID}
	return id
}

// Status returns the stored status of a booking
func (s *Store) Status(id uuid.UUID) models.BookingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Status
}

// ReviewCount returns the number of stored reviews
func (s *Store) ReviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

func (s *Store) GetGig(_ context.Context, gigID uuid.UUID) (*booking.GigRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gigs[gigID]
	if !ok {
		return nil, booking.ErrGigNotFound
	}
	return &g, nil
}

func (s *Store) Insert(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gigs[b.GigID]; !ok {
		return booking.ErrGigNotFound
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*models.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail(id)
}

func (s *Store) detail(id uuid.UUID) (*models.BookingDetail, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	g := s.gigs[b.GigID]
	buyer := s.users[b.BuyerID]
	seller := s.users[g.SellerID]
	_, reviewed := s.reviews[id]
	return &models.BookingDetail{
		Booking:     b,
		GigTitle:    g.Title,
		SellerID:    g.SellerID,
		BuyerName:   buyer.Username,
		BuyerEmail:  buyer.Email,
		SellerName:  seller.Username,
		SellerEmail: seller.Email,
		HasReview:   reviewed,
	}, nil
}

func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, decide func(*models.BookingDetail) (models.BookingStatus, error)) (*models.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.detail(id)
	if err != nil {
		return nil, err
	}
	next, err := decide(d)
	if err != nil {
		return nil, err
	}
	b := s.bookings[id]
	b.Status = next
	s.bookings[id] = b
	d.Status = next
	return d, nil
}

func (s *Store) InsertReview(_ context.Context, bookingID uuid.UUID, build func(*models.BookingDetail) (*models.Review, error)) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.detail(bookingID)
	if err != nil {
		return nil, err
	}
	r, err := build(d)
	if err != nil {
		return nil, err
	}
	if _, exists := s.reviews[bookingID]; exists {
		return nil, booking.ErrAlreadyReviewed
	}
	s.reviews[bookingID] = *r
	return r, nil
}

func (s *Store) list(match func(models.BookingDetail) bool, limit, offset int) ([]models.BookingDetail, int64) {
	var all []models.BookingDetail
	for id := range s.bookings {
		d, _ := s.detail(id)
		if match(*d) {
			all = append(all, *d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total
}

func (s *Store) ListByBuyer(_ context.Context, buyerID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, total := s.list(func(d models.BookingDetail) bool { return d.BuyerID == buyerID }, limit, offset)
	return items, total, nil
}

func (s *Store) ListBySeller(_ context.Context, sellerID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, total := s.list(func(d models.BookingDetail) bool { return d.SellerID == sellerID }, limit, offset)
	return items, total, nil
}

func (s *Store) ListReviewsForGig(_ context.Context, gigID uuid.UUID) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Review
	for _, r := range s.reviews {
		if r.GigID == gigID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CheckoutSession returns the session recorded for a booking
func (s *Store) CheckoutSession(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.bookings[id].CheckoutSessionID; p != nil {
		return *p
	}
	return ""
}

func (s *Store) SetCheckoutSession(_ context.Context, bookingID uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	b.CheckoutSessionID = &sessionID
	s.bookings[bookingID] = b
	return nil
}

func (s *Store) ListAwaitingPayment(_ context.Context, limit int) ([]payment.AwaitingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payment.AwaitingPayment
	for id, b := range s.bookings {
		if b.Status != models.BookingStatusAccepted || b.CheckoutSessionID == nil {
			continue
		}
		out = append(out, payment.AwaitingPayment{BookingID: id, SessionID: *b.CheckoutSessionID})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
