package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/booking"
	"github.com/seniorchoi/gigagig/internal/cache"
	"github.com/seniorchoi/gigagig/internal/config"
	"github.com/seniorchoi/gigagig/internal/database"
	"github.com/seniorchoi/gigagig/internal/geo"
	"github.com/seniorchoi/gigagig/internal/gig"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/message"
	"github.com/seniorchoi/gigagig/internal/middleware"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/seniorchoi/gigagig/internal/notify"
	"github.com/seniorchoi/gigagig/internal/payment"
	"github.com/seniorchoi/gigagig/internal/server"
)

// closer is a notifier that owns a connection or goroutines
type closer interface {
	notify.Notifier
	Close() error
}

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(&cfg.Logging, cfg.Server.Env)

	log.Info().
		Str("env", cfg.Server.Env).
		Msg("Starting gigagig API server")

	monitoring.Init()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	db, err := database.New(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	redis, err := cache.NewRedis(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer redis.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go db.ReportStats(ctx, 15*time.Second)

	notifier := newNotifier(cfg)
	defer notifier.Close()

	var geocoder geo.Geocoder
	if cfg.Geocoding.GoogleAPIKey != "" {
		google := geo.NewGoogleGeocoder(cfg.Geocoding.GoogleAPIKey, geo.GoogleOptions{
			BaseURL:    cfg.Geocoding.BaseURL,
			HTTPClient: &http.Client{Timeout: cfg.Geocoding.Timeout},
			Cache:      redis,
			CacheTTL:   cfg.Geocoding.CacheTTL,
		})
		geocoder = geo.NewBreakingGeocoder(google, geo.DefaultBreakerConfig())
	} else {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set, gigs will not be geocoded and radius search is unavailable")
	}

	var gateway payment.Gateway
	if cfg.Stripe.Enabled() {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey)
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, checkout is disabled")
	}

	authService := auth.NewService(auth.NewPGStore(db.Pool), &cfg.JWT)
	gigService := gig.NewService(gig.NewPGStore(db.Pool), geocoder)
	bookingService := booking.NewService(booking.NewPGStore(db.Pool), notifier)
	messageService := message.NewService(message.NewPGStore(db.Pool), notifier)
	paymentService := payment.NewService(payment.NewPGStore(db.Pool), gateway, bookingService, gigService, payment.Config{
		BaseURL:       cfg.Server.BaseURL,
		Currency:      cfg.Stripe.Currency,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})

	if gateway != nil {
		reconciler := payment.NewReconciler(paymentService, cfg.Reconciler.Interval)
		if err := reconciler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start payment reconciler")
		}
		defer reconciler.Stop()
	}

	srv := server.NewAPIServer(cfg, server.Deps{
		Auth:     authService,
		Gigs:     gigService,
		Bookings: bookingService,
		Payments: paymentService,
		Messages: messageService,
		Limiter:  middleware.NewRedisRateLimiter(redis.Client, cfg.RateLimit.RequestsPerMinute, time.Minute),
		Throttle: redis,
		Health: map[string]server.HealthChecker{
			"database": db,
			"redis":    server.HealthFunc(redis.Ping),
		},
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("url", cfg.Server.BaseURL).
			Msg("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().
		Str("signal", sig.String()).
		Msg("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// newNotifier publishes to RabbitMQ when AMQP_URL is set and otherwise
// sends mail from this process
func newNotifier(cfg *config.Config) closer {
	direct := notify.NewDirectDispatcher(notify.NewMailer(&cfg.Mail))
	if cfg.AMQP.URL != "" {
		publisher, err := notify.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, direct)
		if err == nil {
			log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("Publishing notifications to RabbitMQ")
			return publisher
		}
		log.Error().Err(err).Msg("RabbitMQ unavailable, sending notifications directly")
	}
	return direct
}
