package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/monitoring"
)

const (
	googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultCacheTTL  = 24 * time.Hour
	defaultTimeout   = 5 * time.Second
)

// GoogleGeocoder resolves addresses with the Google Geocoding API
type GoogleGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// GoogleOptions overrides endpoints and transport, mostly for tests
type GoogleOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
}

// NewGoogleGeocoder creates a geocoder. cache may be nil.
func NewGoogleGeocoder(apiKey string, opts GoogleOptions) *GoogleGeocoder {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = googleGeocodeURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &GoogleGeocoder{
		apiKey:     apiKey,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     logging.NewLogger("geocoder"),
	}
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to the coordinates of the first match
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return Point{}, fmt.Errorf("%w: %w", ErrGeocodeFailed, ErrNoResults)
	}

	key := cacheKey(trimmed)
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, key); err == nil {
			var p Point
			if err := json.Unmarshal(cached, &p); err == nil {
				monitoring.RecordCacheHit("geocode")
				monitoring.RecordGeocode("hit")
				return p, nil
			}
		}
		monitoring.RecordCacheMiss("geocode")
	}

	p, err := g.lookup(ctx, trimmed)
	if err != nil {
		monitoring.RecordGeocode("failed")
		g.logger.Warn().Err(err).Str("address", trimmed).Msg("Geocoding failed")
		return Point{}, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
	}
	monitoring.RecordGeocode("ok")

	if g.cache != nil {
		if payload, err := json.Marshal(p); err == nil {
			if err := g.cache.Set(ctx, key, payload, g.cacheTTL); err != nil {
				g.logger.Debug().Err(err).Msg("Failed to cache geocode result")
			}
		}
	}
	return p, nil
}

func (g *GoogleGeocoder) lookup(ctx context.Context, address string) (Point, error) {
	if g.apiKey == "" {
		return Point{}, fmt.Errorf("google maps api key is not configured")
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Point{}, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var body googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if body.Status == "ZERO_RESULTS" {
		return Point{}, ErrNoResults
	}
	if body.Status != "OK" {
		if body.ErrorMessage != "" {
			return Point{}, fmt.Errorf("geocode status %s: %s", body.Status, body.ErrorMessage)
		}
		return Point{}, fmt.Errorf("geocode status %s", body.Status)
	}
	if len(body.Results) == 0 {
		return Point{}, ErrNoResults
	}

	loc := body.Results[0].Geometry.Location
	return Point{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

func cacheKey(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(address)))
	return "geocode:" + hex.EncodeToString(sum[:])
}
