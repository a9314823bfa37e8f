package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a marketplace account. Any user can both sell and buy.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AboutMe      string    `json:"about_me" db:"about_me"`
	ProfileImage string    `json:"profile_image" db:"profile_image"`
	LastSeen     time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicProfile is the subset of a user shown to other users
type PublicProfile struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	AboutMe      string    `json:"about_me"`
	ProfileImage string    `json:"profile_image"`
	LastSeen     time.Time `json:"last_seen"`
}

// Public strips private fields
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		Username:     u.Username,
		AboutMe:      u.AboutMe,
		ProfileImage: u.ProfileImage,
		LastSeen:     u.LastSeen,
	}
}
