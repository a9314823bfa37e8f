package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seniorchoi/gigagig/internal/database"
	"github.com/seniorchoi/gigagig/internal/models"
)

// GigRef is the part of a gig the lifecycle needs
type GigRef struct {
	ID       uuid.UUID
	Title    string
	SellerID uuid.UUID
}

// Store persists bookings and reviews. UpdateStatus and InsertReview run
// decide/build against a row that stays locked until the write commits.
type Store interface {
	GetGig(ctx context.Context, gigID uuid.UUID) (*GigRef, error)
	Insert(ctx context.Context, b *models.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*models.BookingDetail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, decide func(*models.BookingDetail) (models.BookingStatus, error)) (*models.BookingDetail, error)
	InsertReview(ctx context.Context, bookingID uuid.UUID, build func(*models.BookingDetail) (*models.Review, error)) (*models.Review, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error)
	ListReviewsForGig(ctx context.Context, gigID uuid.UUID) ([]models.Review, error)
}

// PGStore is the Postgres Store
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const detailSelect = `
	SELECT b.id, b.gig_id, b.buyer_id, b.booking_date, b.status, b.checkout_session_id,
	       b.created_at, b.updated_at,
	       g.title, g.seller_id, bu.username, bu.email, su.username, su.email,
	       EXISTS (SELECT 1 FROM reviews r WHERE r.booking_id = b.id)
	FROM bookings b
	JOIN gigs g ON g.id = b.gig_id
	JOIN users bu ON bu.id = b.buyer_id
	JOIN users su ON su.id = g.seller_id`

func scanDetail(row pgx.Row) (*models.BookingDetail, error) {
	var d models.BookingDetail
	err := row.Scan(
		&d.ID, &d.GigID, &d.BuyerID, &d.BookingDate, &d.Status, &d.CheckoutSessionID,
		&d.CreatedAt, &d.UpdatedAt,
		&d.GigTitle, &d.SellerID, &d.BuyerName, &d.BuyerEmail, &d.SellerName, &d.SellerEmail,
		&d.HasReview,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PGStore) GetGig(ctx context.Context, gigID uuid.UUID) (*GigRef, error) {
	var g GigRef
	err := s.db.QueryRow(ctx, `SELECT id, title, seller_id FROM gigs WHERE id = $1`, gigID).
		Scan(&g.ID, &g.Title, &g.SellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gig: %w", err)
	}
	return &g, nil
}

func (s *PGStore) Insert(ctx context.Context, b *models.Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (id, gig_id, buyer_id, booking_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.GigID, b.BuyerID, b.BookingDate, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrGigNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*models.BookingDetail, error) {
	d, err := scanDetail(s.db.QueryRow(ctx, detailSelect+` WHERE b.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return d, nil
}

func (s *PGStore) lockDetail(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.BookingDetail, error) {
	d, err := scanDetail(tx.QueryRow(ctx, detailSelect+` WHERE b.id = $1 FOR UPDATE OF b`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return d, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, decide func(*models.BookingDetail) (models.BookingStatus, error)) (*models.BookingDetail, error) {
	var result *models.BookingDetail
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		d, err := s.lockDetail(ctx, tx, id)
		if err != nil {
			return err
		}

		next, err := decide(d)
		if err != nil {
			return err
		}
		if next != d.Status {
			err = tx.QueryRow(ctx, `
				UPDATE bookings SET status = $2, updated_at = NOW()
				WHERE id = $1
				RETURNING updated_at
			`, id, string(next)).Scan(&d.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to update booking status: %w", err)
			}
			d.Status = next
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PGStore) InsertReview(ctx context.Context, bookingID uuid.UUID, build func(*models.BookingDetail) (*models.Review, error)) (*models.Review, error) {
	var review *models.Review
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		d, err := s.lockDetail(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		r, err := build(d)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO reviews (id, gig_id, booking_id, user_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, r.ID, r.GigID, r.BookingID, r.UserID, r.Rating, r.Comment, r.CreatedAt)
		if database.IsUniqueViolation(err, "reviews_booking_id_key") {
			return ErrAlreadyReviewed
		}
		if err != nil {
			return fmt.Errorf("failed to insert review: %w", err)
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *PGStore) list(ctx context.Context, where string, userID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings b JOIN gigs g ON g.id = b.gig_id WHERE `+where, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	rows, err := s.db.Query(ctx, detailSelect+` WHERE `+where+`
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var out []models.BookingDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return out, total, nil
}

func (s *PGStore) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error) {
	return s.list(ctx, "b.buyer_id = $1", buyerID, limit, offset)
}

func (s *PGStore) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.BookingDetail, int64, error) {
	return s.list(ctx, "g.seller_id = $1", sellerID, limit, offset)
}

func (s *PGStore) ListReviewsForGig(ctx context.Context, gigID uuid.UUID) ([]models.Review, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, gig_id, booking_id, user_id, rating, comment, created_at
		FROM reviews
		WHERE gig_id = $1
		ORDER BY created_at DESC
	`, gigID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.GigID, &r.BookingID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
