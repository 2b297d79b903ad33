// Package monitoring holds the Prometheus collectors and their gin handlers.
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
			Name: "quizdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizdesk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsGraded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_submissions_graded_total",
		Help: "Quiz submissions graded and stored",
	})

	// FeedbackFailures counts submissions stored without generated feedback.
	FeedbackFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quizdesk_feedback_failures_total",
		Help: "Feedback generations that failed or could not be attached",
	})

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizdesk_quiz_cache_lookups_total",
			Help: "Quiz cache lookups by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, SubmissionsGraded, FeedbackFailures, CacheLookups)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
