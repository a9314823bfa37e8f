package gig

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/geo"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/shopspring/decimal"
)

const (
	MaxTitleLength        = 140
	MaxCategoryNameLength = 64

	defaultPageSize = 20
	maxPageSize     = 100
)

// Service manages gig listings, categories and search
type Service struct {
	store    Store
	geocoder geo.Geocoder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new gig service. geocoder may be nil, in which case
// gigs are stored without coordinates and radius searches fail.
func NewService(store Store, geocoder geo.Geocoder) *Service {
	return &Service{
		store:    store,
		geocoder: geocoder,
		logger:   logging.NewLogger("gig"),
		now:      time.Now,
	}
}

// GigRequest represents a request to create or update a gig
type GigRequest struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Location     string          `json:"location"`
	TravelRadius float64         `json:"travel_radius"`
	CategoryID   int64           `json:"category_id" binding:"required"`
}

// SearchQuery represents gig search parameters
type SearchQuery struct {
	Keyword    string
	CategoryID *int64
	Location   string
	RadiusKm   float64
	Page       int
	PageSize   int
}

// SearchResponse represents a page of search results
type SearchResponse struct {
	Gigs       []models.GigSearchResult `json:"gigs"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
}

func (s *Service) validate(ctx context.Context, req *GigRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	if req.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if req.TravelRadius < 0 {
		return ErrInvalidRadius
	}
	ok, err := s.store.CategoryExists(ctx, req.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}

// locate resolves a gig location to coordinates. An empty location clears
// them; a location that cannot be geocoded fails with geo.ErrGeocodeFailed.
func (s *Service) locate(ctx context.Context, location string) (lat, lon *float64, err error) {
	if location == "" {
		return nil, nil, nil
	}
	if s.geocoder == nil {
		return nil, nil, geo.ErrGeocodeFailed
	}
	p, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", location).Msg("Rejecting gig with ungeocodable location")
		return nil, nil, err
	}
	return &p.Latitude, &p.Longitude, nil
}

// Create lists a new gig for sellerID
func (s *Service) Create(ctx context.Context, sellerID uuid.UUID, req *GigRequest) (*models.Gig, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(req.Location)
	lat, lon, err := s.locate(ctx, location)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	g := &models.Gig{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price.Round(2),
		Location:     location,
		Latitude:     lat,
		Longitude:    lon,
		TravelRadius: req.TravelRadius,
		CategoryID:   req.CategoryID,
		SellerID:     sellerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Insert(ctx, g); err != nil {
		return nil, err
	}

	monitoring.RecordGigCreated()
	s.logger.Info().
		Str("gig_id", g.ID.String()).
		Str("seller_id", sellerID.String()).
		Bool("geocoded", g.HasCoordinates()).
		Msg("Gig created")
	return g, nil
}

// Update replaces a gig's editable fields. Only the seller may update it and
// the seller never changes.
func (s *Service) Update(ctx context.Context, actorID, gigID uuid.UUID, req *GigRequest) (*models.Gig, error) {
	g, err := s.owned(ctx, actorID, gigID, "update")
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(req.Location)
	if location != g.Location {
		lat, lon, err := s.locate(ctx, location)
		if err != nil {
			return nil, err
		}
		g.Latitude, g.Longitude = lat, lon
	}

	g.Title = strings.TrimSpace(req.Title)
	g.Description = strings.TrimSpace(req.Description)
	g.Price = req.Price.Round(2)
	g.Location = location
	g.TravelRadius = req.TravelRadius
	g.CategoryID = req.CategoryID

	if err := s.store.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes a gig. Only the seller may delete it.
func (s *Service) Delete(ctx context.Context, actorID, gigID uuid.UUID) error {
	if _, err := s.owned(ctx, actorID, gigID, "delete"); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, gigID); err != nil {
		return err
	}
	s.logger.Info().Str("gig_id", gigID.String()).Msg("Gig deleted")
	return nil
}

func (s *Service) owned(ctx context.Context, actorID, gigID uuid.UUID, action string) (*models.Gig, error) {
	g, err := s.store.Get(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if g.SellerID != actorID {
		return nil, fmt.Errorf("%w to %s this gig", ErrGigNotOwned, action)
	}
	return g, nil
}

// Get returns a gig with its review aggregate
func (s *Service) Get(ctx context.Context, gigID uuid.UUID) (*models.Gig, error) {
	return s.store.Get(ctx, gigID)
}

// ListBySeller returns every gig listed by sellerID, newest first
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Gig, error) {
	gigs, _, err := s.store.Search(ctx, Filter{SellerID: &sellerID})
	if err != nil {
		return nil, err
	}
	return gigs, nil
}

// Search filters gigs by keyword and category in SQL, then by distance from
// Location when both Location and RadiusKm are given. Pagination applies to
// the final result set.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*SearchResponse, error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)
	filter := Filter{
		Keyword:    q.Keyword,
		CategoryID: q.CategoryID,
	}

	location := strings.TrimSpace(q.Location)
	byRadius := location != "" && q.RadiusKm > 0
	monitoring.RecordSearch(byRadius)

	if !byRadius {
		filter.Limit = pageSize
		filter.Offset = (page - 1) * pageSize
		gigs, total, err := s.store.Search(ctx, filter)
		if err != nil {
			return nil, err
		}
		results := make([]models.GigSearchResult, len(gigs))
		for i, g := range gigs {
			results[i] = models.GigSearchResult{Gig: g}
		}
		return newSearchResponse(results, total, page, pageSize), nil
	}

	if s.geocoder == nil {
		return nil, geo.ErrGeocodeFailed
	}
	origin, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	filter.WithCoordinates = true
	gigs, _, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	matched := FilterByRadius(gigs, origin, q.RadiusKm)

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return newSearchResponse(matched[start:end], total, page, pageSize), nil
}

// CreateCategory adds a category; names are unique
func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return nil, ErrInvalidCategory
	}
	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories by name
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func newSearchResponse(items []models.GigSearchResult, total int64, page, pageSize int) *SearchResponse {
	if items == nil {
		items = []models.GigSearchResult{}
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &SearchResponse{
		Gigs:       items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
