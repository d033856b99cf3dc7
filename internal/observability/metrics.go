package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the probe's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CheckCount      *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SuccessRate     prometheus.Gauge

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	m := &Metrics{
		CheckCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probe_checks_total",
				Help: "Total number of executed checks by result",
			},
			[]string{"check", "result"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probe_check_duration_seconds",
				Help:    "Check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probe_http_requests_total",
				Help: "Total number of HTTP requests sent to the target",
			},
			[]string{"method", "path", "status_code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probe_http_request_duration_seconds",
				Help:    "HTTP request latency against the target in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		SuccessRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "probe_success_rate",
				Help: "Percentage of passed checks in the last run",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CheckCount,
		m.CheckDuration,
		m.RequestCount,
		m.RequestDuration,
		m.SuccessRate,
	)

	return m
}

// RecordRequest records one HTTP exchange. A statusCode of 0 means the
// request failed before a response arrived.
func (m *Metrics) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}

	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}

	m.RequestCount.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordCheck(name string, passed bool, duration time.Duration) {
	if m == nil {
		return
	}

	result := "fail"
	if passed {
		result = "pass"
	}

	m.CheckCount.WithLabelValues(name, result).Inc()
	m.CheckDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (m *Metrics) SetSuccessRate(rate float64) {
	if m == nil {
		return
	}
	m.SuccessRate.Set(rate)
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
