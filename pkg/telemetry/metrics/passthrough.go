package metrics

import (
	"mercator-hq/chproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PassthroughMetrics tracks the raw TCP forwarder.
//
// Metrics:
//   - chproxy_passthrough_connections_total: accepted connections
//   - chproxy_passthrough_active_connections: connections currently open
//   - chproxy_passthrough_bytes_total: bytes copied by direction
type PassthroughMetrics struct {
	connectionsTotal  prometheus.Counter
	activeConnections prometheus.Gauge
	bytesTotal        *prometheus.CounterVec
}

// NewPassthroughMetrics creates and registers pass-through metrics.
func NewPassthroughMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PassthroughMetrics {
	pm := &PassthroughMetrics{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "passthrough_connections_total",
			Help:      "Total number of accepted pass-through connections",
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "passthrough_active_connections",
			Help:      "Number of open pass-through connections",
		}),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "passthrough_bytes_total",
				Help:      "Total bytes copied by the pass-through",
			},
			[]string{"direction"},
		),
	}

	registry.MustRegister(pm.connectionsTotal, pm.activeConnections, pm.bytesTotal)

	return pm
}
