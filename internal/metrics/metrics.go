// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "servicemart"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	applicationReviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "reviews_total",
			Help:      "Partner application status changes by resulting status.",
		},
		[]string{"status"},
	)

	trialOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trials",
			Name:      "outcomes_total",
			Help:      "Trial services closed, by outcome.",
		},
		[]string{"status"},
	)

	partnerPromotions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "partners",
			Name:      "promotions_total",
			Help:      "Partners approved automatically after completing enough trials.",
		},
	)

	orderAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "assignments_total",
			Help:      "Order assignment attempts by strategy and result.",
		},
		[]string{"strategy", "result"},
	)

	emailDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "deliveries_total",
			Help:      "Outbound email delivery attempts by result.",
		},
		[]string{"kind", "result"},
	)

	notificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "In-app notifications written by announcement fan-out.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		applicationReviews,
		trialOutcomes,
		partnerPromotions,
		orderAssignments,
		emailDeliveries,
		notificationsCreated,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordApplicationReview(status string) {
	applicationReviews.WithLabelValues(status).Inc()
}

func RecordTrialOutcome(status string) {
	trialOutcomes.WithLabelValues(status).Inc()
}

func RecordPartnerPromotion() {
	partnerPromotions.Inc()
}

// RecordOrderAssignment counts one assignment attempt; assigned is false when
// no eligible partner was found.
func RecordOrderAssignment(strategy string, assigned bool) {
	result := "unassigned"
	if assigned {
		result = "assigned"
	}
	orderAssignments.WithLabelValues(strategy, result).Inc()
}

func RecordEmailDelivery(kind string, err error) {
	if kind == "" {
		kind = "generic"
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	emailDeliveries.WithLabelValues(kind, result).Inc()
}

func RecordNotificationFanout(created, failed int) {
	notificationsCreated.WithLabelValues("created").Add(float64(created))
	notificationsCreated.WithLabelValues("failed").Add(float64(failed))
}
