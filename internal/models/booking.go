package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusAccepted  BookingStatus = "Accepted"
	BookingStatusDeclined  BookingStatus = "Declined"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCompleted BookingStatus = "Completed"
)

// validTransitions is the complete set of directed edges. Nothing goes backwards.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusAccepted, BookingStatusDeclined},
	BookingStatusAccepted:  {BookingStatusConfirmed},
	BookingStatusConfirmed: {BookingStatusCompleted},
	BookingStatusDeclined:  {},
	BookingStatusCompleted: {},
}

// AllBookingStatuses lists every status in lifecycle order
func AllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusAccepted,
		BookingStatusDeclined,
		BookingStatusConfirmed,
		BookingStatusCompleted,
	}
}

// CanTransitionTo checks if the status can move to target
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition exists
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsValid reports whether s is a known status
func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// ParseBookingStatus converts a string to a BookingStatus
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// Booking is a buyer's reservation request against a gig
type Booking struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	GigID             uuid.UUID     `json:"gig_id" db:"gig_id"`
	BuyerID           uuid.UUID     `json:"buyer_id" db:"buyer_id"`
	BookingDate       time.Time     `json:"booking_date" db:"booking_date"`
	Status            BookingStatus `json:"status" db:"status"`
	CheckoutSessionID *string       `json:"-" db:"checkout_session_id"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// BookingDetail is a booking joined with the parties and gig it concerns,
// loaded explicitly so callers never traverse relations lazily.
type BookingDetail struct {
	Booking
	GigTitle    string    `json:"gig_title"`
	SellerID    uuid.UUID `json:"seller_id"`
	BuyerName   string    `json:"buyer_username"`
	BuyerEmail  string    `json:"-"`
	SellerName  string    `json:"seller_username"`
	SellerEmail string    `json:"-"`
	HasReview   bool      `json:"has_review"`
}
