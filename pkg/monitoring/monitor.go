package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_sessions_started_total",
			Help: "Assessment sessions started per skill",
		},
		[]string{"skill"},
	)

	AnswersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_answers_total",
			Help: "Accepted answers by correctness",
		},
		[]string{"correct"},
	)

	SessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_sessions_completed_total",
			Help: "Completed sessions per skill and level",
		},
		[]string{"skill", "level"},
	)

	TelemetryEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_events_total",
			Help: "Telemetry events by outcome (accepted or the discard reason)",
		},
		[]string{"outcome"},
	)

	IntegrityFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrity_flags_raised_total",
			Help: "Integrity rules newly triggered on a session",
		},
		[]string{"rule"},
	)

	TrustScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "integrity_trust_score",
			Help:    "Trust score of sessions after each evaluation",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	BadgeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_decisions_total",
			Help: "Badge gate decisions by outcome",
		},
		[]string{"outcome"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionsStarted,
			AnswersSubmitted,
			SessionsCompleted,
			TelemetryEvents,
			IntegrityFlags,
			TrustScore,
			BadgeDecisions,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
