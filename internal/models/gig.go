package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups gigs; names are unique
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Gig is a service listing offered by a seller
type Gig struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Location     string          `json:"location" db:"location"`
	Latitude     *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64        `json:"longitude,omitempty" db:"longitude"`
	TravelRadius float64         `json:"travel_radius" db:"travel_radius"`
	CategoryID   int64           `json:"category_id" db:"category_id"`
	SellerID     uuid.UUID       `json:"seller_id" db:"seller_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Derived from reviews
	AverageRating *float64 `json:"average_rating,omitempty" db:"-"`
	ReviewCount   int      `json:"review_count" db:"-"`
}

// HasCoordinates reports whether the gig was geocoded
func (g *Gig) HasCoordinates() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// GigSearchResult is a gig annotated with its distance from the search origin
type GigSearchResult struct {
	Gig
	DistanceKm *float64 `json:"distance_km,omitempty"`
}
