package booking

import "errors"

// Service errors
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrGigNotFound     = errors.New("gig not found")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrInvalidState    = errors.New("invalid booking state")
	ErrAlreadyReviewed = errors.New("already reviewed")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidDate     = errors.New("booking date is required")
)
