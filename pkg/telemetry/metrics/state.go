package metrics

import (
	"mercator-hq/chproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StateMetrics tracks the transcript, the mode and the control plane.
//
// Metrics:
//   - chproxy_transcript_records: records in the transcript
//   - chproxy_mode: 0 for record, 1 for replay
//   - chproxy_control_commands_total: control datagrams by command
type StateMetrics struct {
	records         prometheus.Gauge
	mode            prometheus.Gauge
	controlCommands *prometheus.CounterVec
}

// NewStateMetrics creates and registers state metrics with the provided registry.
func NewStateMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StateMetrics {
	sm := &StateMetrics{
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "transcript_records",
			Help:      "Number of records in the transcript",
		}),
		mode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "mode",
			Help:      "Current proxy mode (0 = record, 1 = replay)",
		}),
		controlCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "control_commands_total",
				Help:      "Total number of control datagrams by command",
			},
			[]string{"command"},
		),
	}

	registry.MustRegister(sm.records, sm.mode, sm.controlCommands)

	return sm
}
