package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rentflow",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	inviteTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentflow",
			Name:      "invite_transitions_total",
			Help:      "Invite responses set, by response.",
		},
		[]string{"response"},
	)

	screeningResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentflow",
			Name:      "screening_results_total",
			Help:      "Screener outcomes, by screener and result.",
		},
		[]string{"screener", "result"},
	)

	reminderRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentflow",
			Subsystem: "jobs",
			Name:      "reminders_sent_total",
			Help:      "Application reminders sent, by trigger.",
		},
		[]string{"trigger"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		inviteTransitions,
		screeningResults,
		reminderRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route
// pattern so path parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordInviteTransition counts an invite moving to response.
func RecordInviteTransition(response string) {
	inviteTransitions.WithLabelValues(response).Inc()
}

// RecordScreening counts one screener outcome.
func RecordScreening(screener string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	screeningResults.WithLabelValues(screener, result).Inc()
}

// RecordReminder counts a reminder sent by trigger ("manual" or "scheduled").
func RecordReminder(trigger string) {
	reminderRuns.WithLabelValues(trigger).Inc()
}
