package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pipeline"

// conversions hash a password and call the billing API; the default
// buckets stop too early for them
var latencyBuckets = []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30}

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   latencyBuckets,
	}, []string{"method", "route"})

	inFlightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_total",
		Help:      "Lead conversion attempts by outcome.",
	}, []string{"outcome"})

	bookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "demo_bookings_total",
		Help:      "Demo booking operations by outcome.",
	}, []string{"outcome"})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Onboarding notifications that could not be delivered, by channel.",
	}, []string{"channel"})

	stuckIntents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "conversion_intents_stuck",
		Help:      "Conversion intents idle in PENDING or PROVISIONED at the last sweep.",
	})

	integrationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integration_errors_total",
		Help:      "Failed calls to external services (billing, whatsapp).",
	}, []string{"service"})
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics labels requests with the chi route pattern so ids do not explode
// the label space.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inFlightRequests.Inc()
		defer inFlightRequests.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
	})
}

// RecordConversion counts a conversion outcome ("converted", "resumed",
// "partial", "provisioning_failed", "conflict" and so on).
func RecordConversion(outcome string) {
	conversionsTotal.WithLabelValues(outcome).Inc()
}

func RecordBooking(outcome string) {
	bookingsTotal.WithLabelValues(outcome).Inc()
}

func RecordNotificationFailure(channel string) {
	notificationFailures.WithLabelValues(channel).Inc()
}

func SetStuckIntents(n int) {
	stuckIntents.Set(float64(n))
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
