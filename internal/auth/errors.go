package auth

import "errors"

// Auth-specific errors
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidUsername    = errors.New("username must be 3-64 letters, digits, dots, dashes or underscores")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrAboutMeTooLong     = errors.New("about me must be at most 140 characters")
	ErrInvalidImageURL    = errors.New("profile image must be an http or https URL")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrUserNotFound       = errors.New("user not found")
)
