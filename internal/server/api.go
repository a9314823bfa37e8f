package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/config"
	apierrors "github.com/seniorchoi/gigagig/internal/errors"
	"github.com/seniorchoi/gigagig/internal/gig"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/message"
	"github.com/seniorchoi/gigagig/internal/middleware"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/seniorchoi/gigagig/internal/payment"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker
type HealthFunc func(ctx context.Context) error

// Health calls f
func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// Deps holds the services the API is built from. Limiter and Throttle are
// optional; a nil Limiter disables rate limiting and a nil Throttle touches
// last-seen on every authenticated request.
type Deps struct {
	Auth     *auth.Service
	Gigs     *gig.Service
	Bookings *booking.Service
	Payments *payment.Service
	Messages *message.Service
	Limiter  middleware.Limiter
	Throttle middleware.Throttle
	Health   map[string]HealthChecker
}

// APIServer represents the main API server
type APIServer struct {
	config   *config.Config
	router   *gin.Engine
	auth     *auth.Service
	gigs     *gig.Service
	bookings *booking.Service
	payments *payment.Service
	messages *message.Service
	limiter  middleware.Limiter
	throttle middleware.Throttle
	health   map[string]HealthChecker
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, deps Deps) *APIServer {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware in order
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	srv := &APIServer{
		config:   cfg,
		router:   router,
		auth:     deps.Auth,
		gigs:     deps.Gigs,
		bookings: deps.Bookings,
		payments: deps.Payments,
		messages: deps.Messages,
		throttle: deps.Throttle,
		health:   deps.Health,
	}
	if cfg.RateLimit.Enabled {
		srv.limiter = deps.Limiter
	}

	srv.setupRoutes()
	return srv
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	s.router.NoRoute(func(c *gin.Context) {
		respondError(c, apierrors.NewNotFoundError("Route not found"))
	})
	s.router.GET("/health", s.healthCheck)
	if s.config.Monitoring.Enabled {
		s.router.GET("/metrics", monitoring.GinHandler())
	}

	v1 := s.router.Group("/api/v1")

	// Stripe retries on non-2xx, so the webhook is never rate limited
	v1.POST("/webhooks/stripe", s.handleStripeWebhook)

	public := v1.Group("")
	authed := v1.Group("")
	authed.Use(middleware.JWTAuth(s.auth))
	if s.limiter != nil {
		public.Use(middleware.RateLimit(s.limiter))
		authed.Use(middleware.RateLimit(s.limiter))
	}
	authed.Use(middleware.LastSeen(s.auth, s.throttle))

	// Accounts
	authGroup := public.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
	}
	authed.GET("/users/me", s.handleGetMe)
	authed.PUT("/users/me", s.handleUpdateMe)
	public.GET("/users/:username", s.handleGetProfile)

	// Categories
	public.GET("/categories", s.handleListCategories)
	authed.POST("/categories", s.handleCreateCategory)

	// Gigs
	public.GET("/gigs", s.handleSearchGigs)
	public.GET("/gigs/:id", s.handleGetGig)
	public.GET("/gigs/:id/reviews", s.handleListGigReviews)
	authed.GET("/gigs/mine", s.handleListMyGigs)
	authed.POST("/gigs", s.handleCreateGig)
	authed.PUT("/gigs/:id", s.handleUpdateGig)
	authed.DELETE("/gigs/:id", s.handleDeleteGig)

	// Bookings
	bookings := authed.Group("/bookings")
	{
		bookings.POST("", s.handleCreateBooking)
		bookings.GET("/mine", s.handleListMyBookings)
		bookings.GET("/incoming", s.handleListIncomingBookings)
		bookings.GET("/:id", s.handleGetBooking)
		bookings.POST("/:id/accept", s.handleAcceptBooking)
		bookings.POST("/:id/decline", s.handleDeclineBooking)
		bookings.POST("/:id/complete", s.handleCompleteBooking)
		bookings.POST("/:id/review", s.handleReviewBooking)
		bookings.POST("/:id/checkout", s.handleCheckout)
	}
	authed.GET("/payments/success", s.handlePaymentSuccess)

	// Messages
	messages := authed.Group("/messages")
	{
		messages.POST("", s.handleSendMessage)
		messages.GET("/inbox", s.handleInbox)
		messages.GET("/sent", s.handleSent)
	}
}

// healthCheck pings every registered dependency
func (s *APIServer) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, checker := range s.health {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{"status": "healthy", "service": "api", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}
