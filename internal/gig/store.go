package gig

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

// Store persists gigs and categories
type Store interface {
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)

	Insert(ctx context.Context, g *models.Gig) error
	Get(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	Update(ctx context.Context, g *models.Gig) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f Filter) ([]models.Gig, int64, error)
}

// PGStore is the Postgres Store
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	c := &models.Category{Name: name}
	err := s.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&c.ID)
	if database.IsUniqueViolation(err, "categories_name_key") {
		return nil, ErrCategoryExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (s *PGStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return ok, nil
}

func (s *PGStore) Insert(ctx context.Context, g *models.Gig) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO gigs (id, title, description, price, location, latitude, longitude,
		                  travel_radius, category_id, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, g.ID, g.Title, g.Description, g.Price, g.Location, g.Latitude, g.Longitude,
		g.TravelRadius, g.CategoryID, g.SellerID, g.CreatedAt, g.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert gig: %w", err)
	}
	return nil
}

func scanGig(row pgx.Row) (*models.Gig, error) {
	var g models.Gig
	err := row.Scan(
		&g.ID, &g.Title, &g.Description, &g.Price, &g.Location, &g.Latitude, &g.Longitude,
		&g.TravelRadius, &g.CategoryID, &g.SellerID, &g.CreatedAt, &g.UpdatedAt,
		&g.AverageRating, &g.ReviewCount,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	query, args, err := BuildGetQuery(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build gig query: %w", err)
	}
	g, err := scanGig(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gig: %w", err)
	}
	return g, nil
}

func (s *PGStore) Update(ctx context.Context, g *models.Gig) error {
	err := s.db.QueryRow(ctx, `
		UPDATE gigs
		SET title = $2, description = $3, price = $4, location = $5, latitude = $6,
		    longitude = $7, travel_radius = $8, category_id = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, g.ID, g.Title, g.Description, g.Price, g.Location, g.Latitude, g.Longitude,
		g.TravelRadius, g.CategoryID).Scan(&g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrGigNotFound
	}
	if database.IsForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update gig: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM gigs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gig: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGigNotFound
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, f Filter) ([]models.Gig, int64, error) {
	countSQL, countArgs, err := BuildCountQuery(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count gigs: %w", err)
	}

	query, args, err := BuildSearchQuery(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build search query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search gigs: %w", err)
	}
	defer rows.Close()

	out := []models.Gig{}
	for rows.Next() {
		g, err := scanGig(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan gig: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate gigs: %w", err)
	}
	return out, total, nil
}
