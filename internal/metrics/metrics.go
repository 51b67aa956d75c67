package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LoginAttempts counts login attempts by result (success, invalid, inactive, rate_limited).
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	// AuditWriteFailures counts audit entries that could not be persisted, by action.
	AuditWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of audit log writes that failed",
		},
		[]string{"action"},
	)

	// SessionHeartbeats counts heartbeat touches from clients.
	SessionHeartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_heartbeats_total",
			Help: "Total number of session heartbeats",
		},
	)

	// SessionsSwept counts sessions removed by the idle sweep.
	SessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Total number of idle sessions deleted by the sweep",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, LoginAttempts,
			AuditWriteFailures, SessionHeartbeats, SessionsSwept)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /documents/123/pdf -> /documents/{id}/pdf.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncLoginAttempt(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

func IncAuditWriteFailure(action string) {
	AuditWriteFailures.WithLabelValues(action).Inc()
}

func IncHeartbeat() {
	SessionHeartbeats.Inc()
}

// AddSessionsSwept adds n to the swept-sessions counter.
func AddSessionsSwept(n int64) {
	if n > 0 {
		SessionsSwept.Add(float64(n))
	}
}
