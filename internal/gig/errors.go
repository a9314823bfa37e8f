package gig

import "errors"

// Service errors
var (
	ErrGigNotFound      = errors.New("gig not found")
	ErrGigNotOwned      = errors.New("not authorized")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrInvalidTitle     = errors.New("title must be between 1 and 140 characters")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrInvalidRadius    = errors.New("radius must not be negative")
	ErrInvalidCategory  = errors.New("category name must be between 1 and 64 characters")
)
