package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a buyer's one-time rating of a completed booking
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	GigID     uuid.UUID `json:"gig_id" db:"gig_id"`
	BookingID uuid.UUID `json:"booking_id" db:"booking_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
