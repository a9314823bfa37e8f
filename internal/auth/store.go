package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seniorchoi/gigagig/internal/database"
	"github.com/seniorchoi/gigagig/internal/models"
)

// Store persists user accounts
type Store interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, aboutMe, profileImage string) (*models.User, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PGStore is the Postgres Store
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, username, email, password_hash, about_me, profile_image, last_seen, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AboutMe,
		&u.ProfileImage, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (s *PGStore) Create(ctx context.Context, u *models.User) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, last_seen)
		VALUES ($1, $2, $3, NOW())
		RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AboutMe,
		&u.ProfileImage, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt)
	switch {
	case database.IsUniqueViolation(err, "users_username_key"):
		return ErrUsernameTaken
	case database.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailAlreadyExists
	case err != nil:
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PGStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *PGStore) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username = $1 OR LOWER(email) = $2
		LIMIT 1`, login, strings.ToLower(login)))
}

func (s *PGStore) UpdateProfile(ctx context.Context, id uuid.UUID, aboutMe, profileImage string) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx, `
		UPDATE users SET about_me = $2, profile_image = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, aboutMe, profileImage))
}

func (s *PGStore) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := s.db.Exec(ctx, `UPDATE users SET last_seen = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}
