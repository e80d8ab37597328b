// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"go-video-hub/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "videohub"

// Metrics is safe to use through a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LoginAttemptsTotal  *prometheus.CounterVec
	RegistrationsTotal  *prometheus.CounterVec
	GuardDecisionsTotal *prometheus.CounterVec
	RateLimitedTotal    *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Access-code registrations by result",
			},
			[]string{"result"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_decisions_total",
				Help:      "Route guard outcomes",
			},
			[]string{"guard", "outcome"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"bucket"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.RegistrationsTotal,
		m.GuardDecisionsTotal,
		m.RateLimitedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Guard(guard, outcome string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(guard, outcome).Inc()
}

func (m *Metrics) RateLimited(bucket string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(bucket).Inc()
}

// WatchPool exports connection pool gauges read from stats at scrape time.
func (m *Metrics) WatchPool(stats func() database.PoolStats) {
	if m == nil || stats == nil {
		return
	}
	gauge := func(name, help string, pick func(database.PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: "db_pool", Name: name, Help: help},
			func() float64 { return float64(pick(stats())) },
		)
	}
	m.registry.MustRegister(
		gauge("total_conns", "Open connections in the pool", func(s database.PoolStats) int32 { return s.Total }),
		gauge("idle_conns", "Idle connections in the pool", func(s database.PoolStats) int32 { return s.Idle }),
		gauge("acquired_conns", "Connections currently checked out", func(s database.PoolStats) int32 { return s.Acquired }),
		gauge("max_conns", "Configured pool ceiling", func(s database.PoolStats) int32 { return s.Max }),
	)
}

// WatchAuditFeed exports the number of consoles attached to the live audit feed.
func (m *Metrics) WatchAuditFeed(connected func() int) {
	if m == nil || connected == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "audit_feed_clients", Help: "Consoles attached to the live audit feed"},
		func() float64 { return float64(connected()) },
	))
}
