package metrics

import (
	"time"

	"mercator-hq/chproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeRecorded      = "recorded"
	OutcomeReplayed      = "replayed"
	OutcomeUpstreamError = "upstream_error"
	OutcomeNoRecordings  = "no_recordings"
	OutcomeBadRequest    = "bad_request"
	OutcomeTooLarge      = "too_large"
	OutcomeInternalError = "internal_error"
)

// RequestMetrics tracks the HTTP intercept path.
//
// Metrics:
//   - chproxy_http_requests_total: requests by mode and outcome
//   - chproxy_http_request_duration_seconds: handling latency by mode
//   - chproxy_http_body_size_bytes: request and response body sizes
//   - chproxy_upstream_errors_total: failed upstream exchanges
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bodySize        *prometheus.HistogramVec
	upstreamErrors  prometheus.Counter
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of intercepted HTTP requests",
			},
			[]string{"mode", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of intercepted HTTP requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"mode"},
		),

		bodySize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_body_size_bytes",
				Help:      "Size of request and response bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
			},
			[]string{"direction"},
		),

		upstreamErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream HTTP exchanges",
			},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.bodySize,
		rm.upstreamErrors,
	)

	return rm
}

// RecordRequest records a completed request.
func (rm *RequestMetrics) RecordRequest(mode, outcome string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(mode, outcome).Inc()
	rm.requestDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordSize records the size of a request or response body.
func (rm *RequestMetrics) RecordSize(direction string, sizeBytes int) {
	rm.bodySize.WithLabelValues(direction).Observe(float64(sizeBytes))
}

// RecordUpstreamError counts a failed upstream exchange.
func (rm *RequestMetrics) RecordUpstreamError() {
	rm.upstreamErrors.Inc()
}
