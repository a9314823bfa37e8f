package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	BookingTransitions      *prometheus.CounterVec
	BookingTransitionErrors *prometheus.CounterVec
	GigsCreated             prometheus.Counter
	SearchesTotal           *prometheus.CounterVec
	GeocodeLookups          *prometheus.CounterVec
	CheckoutSessions        *prometheus.CounterVec
	PaymentsConfirmed       *prometheus.CounterVec
	EmailsSent              *prometheus.CounterVec
	MessagesSent            prometheus.Counter

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"scope"},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		BookingTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_booking_transitions_total",
				Help: "Booking status transitions applied",
			},
			[]string{"from", "to"},
		),
		BookingTransitionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_booking_transition_errors_total",
				Help: "Booking transitions rejected, by reason",
			},
			[]string{"kind"},
		),
		GigsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gigagig_gigs_created_total",
				Help: "Total number of gigs created",
			},
		),
		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_searches_total",
				Help: "Gig searches, by whether a radius filter was applied",
			},
			[]string{"radius"},
		),
		GeocodeLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_geocode_lookups_total",
				Help: "Geocoding lookups, by result",
			},
			[]string{"result"},
		),
		CheckoutSessions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_checkout_sessions_total",
				Help: "Checkout sessions created, by result",
			},
			[]string{"status"},
		),
		PaymentsConfirmed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_payments_confirmed_total",
				Help: "Bookings confirmed after payment, by channel",
			},
			[]string{"source"},
		),
		EmailsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigagig_emails_sent_total",
				Help: "Notification emails, by provider and result",
			},
			[]string{"provider", "status"},
		),
		MessagesSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gigagig_messages_sent_total",
				Help: "Total number of user messages sent",
			},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 0.5=half-open)",
			},
			[]string{"name"},
		),
	}

	return metrics
}

// Get returns the global metrics instance
func Get() *Metrics {
	if metrics == nil {
		return Init()
	}
	return metrics
}

// GinHandler returns a Gin-compatible handler for Prometheus metrics
func GinHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// MetricsMiddleware is a Gin middleware for collecting HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRateLimitHit records a rate limit hit
func RecordRateLimitHit(scope string) {
	Get().RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit(cacheType string) {
	Get().CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(cacheType string) {
	Get().CacheMisses.WithLabelValues(cacheType).Inc()
}

// SetDBConnections sets database connection metrics
func SetDBConnections(active, idle int) {
	Get().DBConnectionsActive.Set(float64(active))
	Get().DBConnectionsIdle.Set(float64(idle))
}

// RecordBookingTransition records an applied status change
func RecordBookingTransition(from, to string) {
	Get().BookingTransitions.WithLabelValues(from, to).Inc()
}

// RecordBookingTransitionError records a rejected status change
func RecordBookingTransitionError(kind string) {
	Get().BookingTransitionErrors.WithLabelValues(kind).Inc()
}

// RecordGigCreated records a gig creation
func RecordGigCreated() {
	Get().GigsCreated.Inc()
}

// RecordSearch records a gig search
func RecordSearch(withRadius bool) {
	Get().SearchesTotal.WithLabelValues(strconv.FormatBool(withRadius)).Inc()
}

// RecordGeocode records a geocoding lookup result: hit, ok, failed or open
func RecordGeocode(result string) {
	Get().GeocodeLookups.WithLabelValues(result).Inc()
}

// RecordCheckoutSession records a checkout session attempt
func RecordCheckoutSession(status string) {
	Get().CheckoutSessions.WithLabelValues(status).Inc()
}

// RecordPaymentConfirmed records a booking confirmed by payment
func RecordPaymentConfirmed(source string) {
	Get().PaymentsConfirmed.WithLabelValues(source).Inc()
}

// RecordEmail records an outbound email
func RecordEmail(provider, status string) {
	Get().EmailsSent.WithLabelValues(provider, status).Inc()
}

// RecordMessageSent records a user message
func RecordMessageSent() {
	Get().MessagesSent.Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
// state: 0=closed, 1=open, 0.5=half-open
func SetCircuitBreakerState(name string, state float64) {
	Get().CircuitBreakerState.WithLabelValues(name).Set(state)
}
