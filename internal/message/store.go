package message

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seniorchoi/gigagig/internal/models"
)

// Party is a user as messaging sees them
type Party struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// Store persists messages
type Store interface {
	FindUser(ctx context.Context, id uuid.UUID) (*Party, error)
	FindUserByUsername(ctx context.Context, username string) (*Party, error)
	Insert(ctx context.Context, m *models.Message) error
	ListReceived(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error)
	ListSent(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error)
}

// PGStore is the Postgres Store
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) findUser(ctx context.Context, where string, arg any) (*Party, error) {
	var p Party
	err := s.db.QueryRow(ctx, `SELECT id, username, email FROM users WHERE `+where, arg).
		Scan(&p.ID, &p.Username, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &p, nil
}

func (s *PGStore) FindUser(ctx context.Context, id uuid.UUID) (*Party, error) {
	return s.findUser(ctx, "id = $1", id)
}

func (s *PGStore) FindUserByUsername(ctx context.Context, username string) (*Party, error) {
	return s.findUser(ctx, "LOWER(username) = $1", strings.ToLower(username))
}

func (s *PGStore) Insert(ctx context.Context, m *models.Message) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.SenderID, m.RecipientID, m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

const messageSelect = `
	SELECT m.id, m.sender_id, m.recipient_id, su.username, ru.username, m.body, m.created_at
	FROM messages m
	JOIN users su ON su.id = m.sender_id
	JOIN users ru ON ru.id = m.recipient_id`

func (s *PGStore) list(ctx context.Context, column string, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages m WHERE m.`+column+` = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	rows, err := s.db.Query(ctx, messageSelect+`
		WHERE m.`+column+` = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.SenderName, &m.RecipientName, &m.Body, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return out, total, nil
}

func (s *PGStore) ListReceived(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	return s.list(ctx, "recipient_id", userID, limit, offset)
}

func (s *PGStore) ListSent(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Message, int64, error) {
	return s.list(ctx, "sender_id", userID, limit, offset)
}
