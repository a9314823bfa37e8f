package geo

import (
	"context"
	"errors"
	"time"
)

// ErrGeocodeFailed covers every way an address can fail to resolve:
// no results, provider error, breaker open or missing configuration.
var ErrGeocodeFailed = errors.New("could not geocode")

// ErrNoResults means the provider answered but knows no such place.
// It always arrives wrapped in ErrGeocodeFailed.
var ErrNoResults = errors.New("no results for address")

// Point is a coordinate pair in decimal degrees
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves free-text addresses
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// Cache is the byte store used to remember resolved addresses
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
