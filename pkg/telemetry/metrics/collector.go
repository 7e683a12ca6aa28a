package metrics

import (
	"time"

	"mercator-hq/chproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Pass-through directions used as the "direction" label.
const (
	DirectionUpstream   = "client_to_upstream"
	DirectionDownstream = "upstream_to_client"
)

// Collector owns every chproxy metric. All methods are safe on a nil
// *Collector and do nothing, so components can run without metrics.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics     *RequestMetrics
	stateMetrics       *StateMetrics
	passthroughMetrics *PassthroughMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "chproxy"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = append([]float64(nil), config.DefaultRequestDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		requestMetrics:     NewRequestMetrics(cfg, registry),
		stateMetrics:       NewStateMetrics(cfg, registry),
		passthroughMetrics: NewPassthroughMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records a completed HTTP request.
//
// Parameters:
//   - mode: "record" or "replay"
//   - outcome: one of the Outcome constants
//   - duration: time spent in the handler
//   - requestBytes, responseBytes: body sizes (negative values are skipped)
func (c *Collector) RecordRequest(mode, outcome string, duration time.Duration, requestBytes, responseBytes int) {
	if !c.enabled() {
		return
	}

	c.requestMetrics.RecordRequest(mode, outcome, duration)
	if requestBytes >= 0 {
		c.requestMetrics.RecordSize("request", requestBytes)
	}
	if responseBytes >= 0 {
		c.requestMetrics.RecordSize("response", responseBytes)
	}
}

// RecordUpstreamError counts a failed upstream exchange.
func (c *Collector) RecordUpstreamError() {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordUpstreamError()
}

// SetTranscriptRecords sets the transcript length gauge.
func (c *Collector) SetTranscriptRecords(n int) {
	if !c.enabled() {
		return
	}
	c.stateMetrics.records.Set(float64(n))
}

// SetReplayMode sets the mode gauge.
func (c *Collector) SetReplayMode(replay bool) {
	if !c.enabled() {
		return
	}
	if replay {
		c.stateMetrics.mode.Set(1)
	} else {
		c.stateMetrics.mode.Set(0)
	}
}

// RecordControlCommand counts a control datagram. Unknown commands should be
// reported as "invalid" to keep label cardinality fixed.
func (c *Collector) RecordControlCommand(command string) {
	if !c.enabled() {
		return
	}
	c.stateMetrics.controlCommands.WithLabelValues(command).Inc()
}

// ConnectionOpened counts an accepted pass-through connection.
func (c *Collector) ConnectionOpened() {
	if !c.enabled() {
		return
	}
	c.passthroughMetrics.connectionsTotal.Inc()
	c.passthroughMetrics.activeConnections.Inc()
}

// ConnectionClosed marks a pass-through connection as finished.
func (c *Collector) ConnectionClosed() {
	if !c.enabled() {
		return
	}
	c.passthroughMetrics.activeConnections.Dec()
}

// RecordBytes adds copied bytes for one pass-through direction.
func (c *Collector) RecordBytes(direction string, n int64) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.passthroughMetrics.bytesTotal.WithLabelValues(direction).Add(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
