package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/models"
)

// AwaitingPayment is an Accepted booking with an open checkout session
type AwaitingPayment struct {
	BookingID uuid.UUID
	SessionID string
}

// Store records checkout sessions against bookings
type Store interface {
	SetCheckoutSession(ctx context.Context, bookingID uuid.UUID, sessionID string) error
	ListAwaitingPayment(ctx context.Context, limit int) ([]AwaitingPayment, error)
}

// PGStore is the Postgres Store
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) SetCheckoutSession(ctx context.Context, bookingID uuid.UUID, sessionID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET checkout_session_id = $2, updated_at = NOW()
		WHERE id = $1
	`, bookingID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (s *PGStore) ListAwaitingPayment(ctx context.Context, limit int) ([]AwaitingPayment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, checkout_session_id
		FROM bookings
		WHERE status = $1 AND checkout_session_id IS NOT NULL
		ORDER BY updated_at
		LIMIT $2
	`, string(models.BookingStatusAccepted), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings awaiting payment: %w", err)
	}
	defer rows.Close()

	var out []AwaitingPayment
	for rows.Next() {
		var a AwaitingPayment
		if err := rows.Scan(&a.BookingID, &a.SessionID); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
