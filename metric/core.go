package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector metric.
const Namespace = "sensorstreams"

// Source state gauge values.
const (
	SourceDisconnected = 0
	SourceConnecting   = 1
	SourcePolling      = 2
)

// Metrics holds the collector's domain metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Ingest
	SourceState     *prometheus.GaugeVec
	BytesReceived   *prometheus.CounterVec
	RecordsAccepted *prometheus.CounterVec
	RecordsRejected *prometheus.CounterVec
	Overflows       *prometheus.CounterVec
	Reconnects      *prometheus.CounterVec
	ConnectDuration *prometheus.HistogramVec

	// Persistence
	SinkWrites        prometheus.Counter
	SinkErrors        prometheus.Counter
	SinkWriteDuration prometheus.Histogram

	// Mirror
	MirrorPublished prometheus.Counter
	MirrorFailures  prometheus.Counter
	NATSConnected   prometheus.Gauge

	// Health
	HealthStatus *prometheus.GaugeVec
}

// NewMetrics creates unregistered collector metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SourceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "state",
				Help:      "Ingest worker state (0=disconnected, 1=connecting, 2=polling)",
			},
			[]string{"source"},
		),
		BytesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "bytes_received_total",
				Help:      "Raw bytes received from a source",
			},
			[]string{"source"},
		),
		RecordsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "records",
				Name:      "accepted_total",
				Help:      "Records that passed validation",
			},
			[]string{"source", "schema"},
		),
		RecordsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "records",
				Name:      "rejected_total",
				Help:      "Candidate windows rejected during resynchronization",
			},
			[]string{"source", "reason"},
		),
		Overflows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "accumulator_overflows_total",
				Help:      "Times the pending byte accumulator was cleared at its ceiling",
			},
			[]string{"source"},
		),
		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "reconnects_total",
				Help:      "Connection attempts after a failure",
			},
			[]string{"source"},
		),
		ConnectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "connect_duration_seconds",
				Help:      "Time to dial, authenticate and flush a source connection",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		SinkWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sink",
				Name:      "writes_total",
				Help:      "Lines appended to the output file",
			},
		),
		SinkErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sink",
				Name:      "errors_total",
				Help:      "Failed writes or flushes of the output file",
			},
		),
		SinkWriteDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "sink",
				Name:      "write_duration_seconds",
				Help:      "Time to append and flush one line",
				Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		MirrorPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "mirror",
				Name:      "published_total",
				Help:      "Lines published to NATS",
			},
		),
		MirrorFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "mirror",
				Name:      "failures_total",
				Help:      "Lines that could not be published to NATS",
			},
		),
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Component health (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"component"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.SourceState,
		c.BytesReceived,
		c.RecordsAccepted,
		c.RecordsRejected,
		c.Overflows,
		c.Reconnects,
		c.ConnectDuration,
		c.SinkWrites,
		c.SinkErrors,
		c.SinkWriteDuration,
		c.MirrorPublished,
		c.MirrorFailures,
		c.NATSConnected,
		c.HealthStatus,
	}
}

// RecordSourceState sets the worker state gauge for a source
func (c *Metrics) RecordSourceState(source string, state int) {
	if c == nil {
		return
	}
	c.SourceState.WithLabelValues(source).Set(float64(state))
}

// RecordBytes counts raw bytes received from a source
func (c *Metrics) RecordBytes(source string, n int) {
	if c == nil {
		return
	}
	c.BytesReceived.WithLabelValues(source).Add(float64(n))
}

// RecordAccepted counts an accepted record
func (c *Metrics) RecordAccepted(source, schema string) {
	if c == nil {
		return
	}
	c.RecordsAccepted.WithLabelValues(source, schema).Inc()
}

// RecordRejected counts a rejected window by reason label
func (c *Metrics) RecordRejected(source, reason string) {
	if c == nil {
		return
	}
	c.RecordsRejected.WithLabelValues(source, reason).Inc()
}

// RecordOverflow counts an accumulator overflow
func (c *Metrics) RecordOverflow(source string) {
	if c == nil {
		return
	}
	c.Overflows.WithLabelValues(source).Inc()
}

// RecordReconnect counts a reconnect attempt
func (c *Metrics) RecordReconnect(source string) {
	if c == nil {
		return
	}
	c.Reconnects.WithLabelValues(source).Inc()
}

// RecordConnectDuration observes a successful connect
func (c *Metrics) RecordConnectDuration(source string, d time.Duration) {
	if c == nil {
		return
	}
	c.ConnectDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordSinkWrite observes a successful append
func (c *Metrics) RecordSinkWrite(d time.Duration) {
	if c == nil {
		return
	}
	c.SinkWrites.Inc()
	c.SinkWriteDuration.Observe(d.Seconds())
}

// RecordSinkError counts a failed append or flush
func (c *Metrics) RecordSinkError() {
	if c == nil {
		return
	}
	c.SinkErrors.Inc()
}

// RecordMirror counts a mirror publish outcome
func (c *Metrics) RecordMirror(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.MirrorPublished.Inc()
	} else {
		c.MirrorFailures.Inc()
	}
}

// RecordNATSStatus sets the NATS connection gauge
func (c *Metrics) RecordNATSStatus(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

// RecordHealth sets the health gauge for a component from its state string
func (c *Metrics) RecordHealth(component, state string) {
	if c == nil {
		return
	}
	value := 0.0
	switch state {
	case "healthy":
		value = 2
	case "degraded":
		value = 1
	}
	c.HealthStatus.WithLabelValues(component).Set(value)
}
