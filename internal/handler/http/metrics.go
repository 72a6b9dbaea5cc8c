package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the HTTP layer.
type Metrics struct {
	AuthAttempts    *prometheus.CounterVec
	RateLimitBlocks *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "attempts_total",
			Help:      "Authentication flow outcomes by action.",
		}, []string{"action", "outcome"}),
		RateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "rate_limit_blocks_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"action"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "auth",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(m.AuthAttempts, m.RateLimitBlocks, m.RequestDuration)

	return m
}

func (m *Metrics) observeAttempt(action string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.AuthAttempts.WithLabelValues(action, outcome).Inc()
}
