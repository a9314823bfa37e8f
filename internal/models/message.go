package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a message body in characters
const MaxMessageLength = 500

// Message is a private note between two users
type Message struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SenderID      uuid.UUID `json:"sender_id" db:"sender_id"`
	RecipientID   uuid.UUID `json:"recipient_id" db:"recipient_id"`
	SenderName    string    `json:"sender_username" db:"-"`
	RecipientName string    `json:"recipient_username" db:"-"`
	Body          string    `json:"body" db:"body"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
