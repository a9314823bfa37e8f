package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/auth/authtest"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/booking/bookingtest"
	"github.com/seniorchoi/gigagig/internal/config"
	apierrors "github.com/seniorchoi/gigagig/internal/errors"
	"github.com/seniorchoi/gigagig/internal/gig"
	"github.com/seniorchoi/gigagig/internal/middleware"
	"github.com/seniorchoi/gigagig/internal/models"
	"github.com/seniorchoi/gigagig/internal/payment"
	"github.com/seniorchoi/gigagig/internal/server"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testJWT = &config.JWTConfig{
	Secret:             "test-secret-key-for-api-testing-32chars",
	Issuer:             "gigagig-test",
	AccessTokenExpiry:  15 * time.Minute,
	RefreshTokenExpiry: time.Hour,
}

// gigStore is a minimal gig.Store; search ignores keywords
type gigStore struct {
	mu         sync.Mutex
	gigs       map[uuid.UUID]models.Gig
	categories []models.Category
}

func newGigStore() *gigStore {
	return &gigStore{gigs: map[uuid.UUID]models.Gig{}}
}

func (s *gigStore) CreateCategory(_ context.Context, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return nil, gig.ErrCategoryExists
		}
	}
	c := models.Category{ID: int64(len(s.categories) + 1), Name: name}
	s.categories = append(s.categories, c)
	return &c, nil
}

func (s *gigStore) ListCategories(context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category{}, s.categories...), nil
}

func (s *gigStore) CategoryExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *gigStore) Insert(_ context.Context, g *models.Gig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gigs[g.ID] = *g
	return nil
}

func (s *gigStore) Get(_ context.Context, id uuid.UUID) (*models.Gig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gigs[id]
	if !ok {
		return nil, gig.ErrGigNotFound
	}
	return &g, nil
}

func (s *gigStore) Update(_ context.Context, g *models.Gig) error {
	return s.Insert(context.Background(), g)
}

func (s *gigStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gigs, id)
	return nil
}

func (s *gigStore) Search(_ context.Context, f gig.Filter) ([]models.Gig, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Gig{}
	for _, g := range s.gigs {
		if f.CategoryID != nil && g.CategoryID != *f.CategoryID {
			continue
		}
		if f.SellerID != nil && g.SellerID != *f.SellerID {
			continue
		}
		out = append(out, g)
	}
	return out, int64(len(out)), nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (*middleware.RateLimitResult, error) {
	return &middleware.RateLimitResult{Allowed: false, Limit: 1, RetryAfter: time.Second}, nil
}

type stubGateway struct {
	mu   sync.Mutex
	n    int
	paid map[string]bool
}

func newStubGateway() *stubGateway {
	return &stubGateway{paid: map[string]bool{}}
}

func (g *stubGateway) CreateSession(_ context.Context, p *payment.CheckoutParams) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	id := "cs_test_" + strconv.Itoa(g.n)
	g.paid[id] = false
	return &payment.Session{ID: id, URL: "https://checkout.stripe.test/" + id, BookingID: p.BookingID}, nil
}

func (g *stubGateway) GetSession(_ context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paid, ok := g.paid[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return &payment.Session{ID: id, Paid: paid}, nil
}

func (g *stubGateway) pay(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[id] = true
}

type testAPI struct {
	handler  http.Handler
	cfg      *config.Config
	deps     server.Deps
	bookings *bookingtest.Store
	gigs     *gigStore
	seller   uuid.UUID
	buyer    uuid.UUID
	stranger uuid.UUID
	gigID    uuid.UUID
}

type option func(*config.Config, *server.Deps)

func newTestAPI(t *testing.T, opts ...option) *testAPI {
	t.Helper()

	cfg := &config.Config{
		Server:     config.ServerConfig{Env: "test", BaseURL: "http://localhost:8080"},
		JWT:        *testJWT,
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Monitoring: config.MonitoringConfig{Enabled: true},
	}

	users := authtest.NewStore()
	bookingStore := bookingtest.NewStore()
	gigs := newGigStore()

	authSvc := auth.NewService(users, &cfg.JWT, auth.WithHashParams(&argon2id.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	gigSvc := gig.NewService(gigs, nil)
	bookingSvc := booking.NewService(bookingStore, nil)
	paymentSvc := payment.NewService(bookingStore, nil, bookingSvc, gigSvc, payment.Config{
		BaseURL:       cfg.Server.BaseURL,
		WebhookSecret: "whsec_test",
	})

	api := &testAPI{
		bookings: bookingStore,
		gigs:     gigs,
		seller:   bookingStore.AddUser("sally"),
		buyer:    bookingStore.AddUser("bob"),
		stranger: bookingStore.AddUser("mallory"),
	}
	api.gigID = bookingStore.AddGig(api.seller, "Guitar lessons")
	gigs.gigs[api.gigID] = models.Gig{
		ID:         api.gigID,
		Title:      "Guitar lessons",
		Price:      decimal.NewFromInt(40),
		CategoryID: 1,
		SellerID:   api.seller,
	}
	gigs.categories = []models.Category{{ID: 1, Name: "Music"}}

	deps := server.Deps{
		Auth:     authSvc,
		Gigs:     gigSvc,
		Bookings: bookingSvc,
		Payments: paymentSvc,
		Health:   map[string]server.HealthChecker{},
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	api.cfg, api.deps = cfg, deps
	api.handler = server.NewAPIServer(cfg, deps).Router()
	return api
}

// withGateway rebuilds the API with checkout enabled through gw
func (a *testAPI) withGateway(gw payment.Gateway) {
	a.deps.Payments = payment.NewService(a.bookings, gw, a.deps.Bookings, a.deps.Gigs, payment.Config{
		BaseURL:       a.cfg.Server.BaseURL,
		WebhookSecret: "whsec_test",
	})
	a.handler = server.NewAPIServer(a.cfg, a.deps).Router()
}

func tokenFor(t *testing.T, id uuid.UUID) string {
	t.Helper()
	claims := &auth.Claims{
		UserID: id.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "access",
			Issuer:    testJWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)
	return signed
}

func (a *testAPI) do(t *testing.T, method, path string, as uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, as))
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()
	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (a *testAPI) createBooking(t *testing.T) uuid.UUID {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/bookings", a.buyer, gin.H{
		"gig_id":       a.gigID,
		"booking_date": "2026-11-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var d models.BookingDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	return d.ID
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	failing := newTestAPI(t, func(_ *config.Config, d *server.Deps) {
		d.Health["database"] = server.HealthFunc(func(context.Context) error { return errors.New("connection refused") })
	})
	w = failing.do(t, http.MethodGet, "/health", uuid.Nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRegisterLoginAndProfile(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/auth/register", uuid.Nil, gin.H{
		"username": "sally",
		"email":    "sally@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/auth/register", uuid.Nil, gin.H{
		"username": "sally",
		"email":    "other@example.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierrors.ErrDuplicate, decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodPost, "/api/v1/auth/login", uuid.Nil, gin.H{"login": "sally", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierrors.ErrInvalidCredentials, decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodPost, "/api/v1/auth/login", uuid.Nil, gin.H{"login": "sally", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login auth.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = api.do(t, http.MethodPut, "/api/v1/users/me", login.User.ID, gin.H{"about_me": "I teach guitar"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/v1/users/sally", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "I teach guitar")
	assert.NotContains(t, w.Body.String(), "sally@example.com", "public profiles hide the email")

	w = api.do(t, http.MethodGet, "/api/v1/users/nobody", uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.ErrUserNotFound, decodeError(t, w).Error.Code)
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPost, "/api/v1/gigs"},
		{http.MethodGet, "/api/v1/gigs/mine"},
		{http.MethodPost, "/api/v1/bookings"},
		{http.MethodGet, "/api/v1/payments/success"},
		{http.MethodPost, "/api/v1/messages"},
		{http.MethodGet, "/api/v1/messages/inbox"},
	} {
		w := api.do(t, route.method, route.path, uuid.Nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	gw := newStubGateway()
	api.withGateway(gw)
	id := api.createBooking(t)
	base := "/api/v1/bookings/" + id.String()

	w := api.do(t, http.MethodPost, base+"/accept", api.buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, apierrors.ErrForbidden, resp.Error.Code)
	assert.Equal(t, "not authorized to accept this booking", resp.Error.Message)
	assert.Equal(t, models.BookingStatusPending, api.bookings.Status(id))

	w = api.do(t, http.MethodPost, base+"/accept", api.seller, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, base+"/decline", api.seller, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	resp = decodeError(t, w)
	assert.Equal(t, apierrors.ErrInvalidState, resp.Error.Code)
	assert.Equal(t, "can only decline a booking when it is Pending", resp.Error.Message)

	w = api.do(t, http.MethodPost, base+"/review", api.buyer, gin.H{"rating": 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, base+"/checkout", api.buyer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var checkout payment.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
	assert.Equal(t, int64(4000), checkout.AmountCents)

	success := "/api/v1/payments/success?booking_id=" + id.String() + "&session_id="
	w = api.do(t, http.MethodGet, success+checkout.SessionID, api.buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "an unpaid session never confirms")
	assert.Equal(t, models.BookingStatusAccepted, api.bookings.Status(id))

	gw.pay(checkout.SessionID)
	w = api.do(t, http.MethodGet, success+"cs_forged", api.buyer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.BookingStatusAccepted, api.bookings.Status(id))

	w = api.do(t, http.MethodGet, success+checkout.SessionID, api.buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.BookingStatusConfirmed, api.bookings.Status(id))

	w = api.do(t, http.MethodPost, base+"/complete", api.seller, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, base+"/review", api.buyer, gin.H{"rating": 5, "comment": "Great walk"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, base+"/review", api.buyer, gin.H{"rating": 4})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierrors.ErrDuplicate, decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodGet, "/api/v1/gigs/"+api.gigID.String()+"/reviews", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Great walk")
}

func TestBookingVisibility(t *testing.T) {
	api := newTestAPI(t)
	id := api.createBooking(t)

	w := api.do(t, http.MethodGet, "/api/v1/bookings/"+id.String(), api.stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), api.buyer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.ErrBookingNotFound, decodeError(t, w).Error.Code)

	w = api.do(t, http.MethodGet, "/api/v1/bookings/not-a-uuid", api.buyer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/bookings/incoming", api.seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var incoming booking.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &incoming))
	assert.Equal(t, int64(1), incoming.Total)

	w = api.do(t, http.MethodGet, "/api/v1/bookings/mine", api.seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine booking.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Equal(t, int64(0), mine.Total)
}

func TestCheckoutWithoutPaymentProvider(t *testing.T) {
	api := newTestAPI(t)
	id := api.createBooking(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/bookings/"+id.String()+"/accept", api.seller, nil).Code)

	w := api.do(t, http.MethodPost, "/api/v1/bookings/"+id.String()+"/checkout", api.buyer, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, apierrors.ErrExternalService, decodeError(t, w).Error.Code)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrInvalidRequest, decodeError(t, w).Error.Code)
}

func TestGigRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/gigs", api.seller, gin.H{
		"title":       "Piano lessons",
		"price":       "55.00",
		"category_id": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Gig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = api.do(t, http.MethodPost, "/api/v1/gigs", api.seller, gin.H{"title": "Drums", "category_id": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/gigs/"+created.ID.String(), api.buyer, gin.H{"title": "Stolen", "category_id": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not authorized to update this gig", decodeError(t, w).Error.Message)

	w = api.do(t, http.MethodGet, "/api/v1/gigs/mine", api.seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Piano lessons")

	w = api.do(t, http.MethodGet, "/api/v1/gigs?category_id=1", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page gig.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Total)

	w = api.do(t, http.MethodGet, "/api/v1/gigs?category_id=music", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/gigs?location=London&radius=10", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code, "no geocoder configured")
	assert.Contains(t, decodeError(t, w).Error.Message, "could not geocode")

	w = api.do(t, http.MethodDelete, "/api/v1/gigs/"+created.ID.String(), api.seller, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/gigs/"+created.ID.String(), uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.ErrGigNotFound, decodeError(t, w).Error.Code)
}

func TestCategoryRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/categories", api.seller, gin.H{"name": "Tutoring"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/categories", api.seller, gin.H{"name": "music"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/categories", uuid.Nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Tutoring")
}

func TestRateLimitSparesWebhook(t *testing.T) {
	api := newTestAPI(t, func(cfg *config.Config, d *server.Deps) {
		cfg.RateLimit.Enabled = true
		d.Limiter = denyLimiter{}
	})

	w := api.do(t, http.MethodGet, "/api/v1/categories", uuid.Nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = api.do(t, http.MethodPost, "/api/v1/webhooks/stripe", uuid.Nil, gin.H{})
	assert.NotEqual(t, http.StatusTooManyRequests, w.Code)

	w = api.do(t, http.MethodGet, "/health", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
