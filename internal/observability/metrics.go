package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	loginAttemptsTotal      *prometheus.CounterVec
	lockoutsTotal           prometheus.Counter
	tokenRejectionsTotal    *prometheus.CounterVec
	authorizationDenials    prometheus.Counter
	auditWriteFailuresTotal prometheus.Counter
	requestLatencySeconds   *prometheus.HistogramVec
	securityRequestsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the security core.
func RegisterMetrics() {
	registerOnce.Do(func() {
		loginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of login attempts by outcome.",
		}, []string{"outcome"})

		lockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_lockouts_total",
			Help: "Total number of accounts transitioned into the locked state.",
		})

		tokenRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_rejections_total",
			Help: "Total number of bearer tokens rejected by reason.",
		}, []string{"reason"})

		authorizationDenials = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authorization_denials_total",
			Help: "Total number of authorization engine deny decisions.",
		})

		auditWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of security events that could not be persisted.",
		})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		securityRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			loginAttemptsTotal,
			lockoutsTotal,
			tokenRejectionsTotal,
			authorizationDenials,
			auditWriteFailuresTotal,
			requestLatencySeconds,
			securityRequestsTotal,
		)
	})
}

// LoginAttempts exposes the login outcome counter.
func LoginAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return loginAttemptsTotal
}

// Lockouts exposes the lockout transition counter.
func Lockouts() prometheus.Counter {
	RegisterMetrics()
	return lockoutsTotal
}

// TokenRejections exposes the token rejection counter.
func TokenRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return tokenRejectionsTotal
}

// AuthorizationDenials exposes the deny decision counter.
func AuthorizationDenials() prometheus.Counter {
	RegisterMetrics()
	return authorizationDenials
}

// AuditWriteFailures exposes the audit persistence failure counter.
func AuditWriteFailures() prometheus.Counter {
	RegisterMetrics()
	return auditWriteFailuresTotal
}

// RequestLatency exposes the request latency histogram.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return securityRequestsTotal
}
