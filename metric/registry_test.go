package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstreams/errors"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
	assert.Same(t, registry.CoreMetrics(), registry.CoreMetrics())
	assert.True(t, gatheredNames(t, registry)["go_goroutines"], "runtime collectors registered")
}

func TestMetricsRegistry_RegisterKinds(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "c"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "h"})
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "cv"}, []string{"l"})
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "gv"}, []string{"l"})

	require.NoError(t, registry.Register("svc", "counter", counter))
	require.NoError(t, registry.Register("svc", "gauge", gauge))
	require.NoError(t, registry.Register("svc", "histogram", histogram))
	require.NoError(t, registry.Register("svc", "counter_vec", counterVec))
	require.NoError(t, registry.Register("svc", "gauge_vec", gaugeVec))

	counter.Inc()
	gauge.Set(1)
	histogram.Observe(1)
	counterVec.WithLabelValues("x").Inc()
	gaugeVec.WithLabelValues("x").Set(1)

	names := gatheredNames(t, registry)
	for _, name := range []string{"test_counter", "test_gauge", "test_histogram", "test_counter_vec", "test_gauge_vec"} {
		assert.True(t, names[name], "%s registered", name)
	}
}

func TestMetricsRegistry_DuplicateKey(t *testing.T) {
	registry := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_a", Help: "a"})
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_b", Help: "b"})

	require.NoError(t, registry.Register("svc", "dup", c1))
	err := registry.Register("svc", "dup", c2)

	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "duplicate metric registration")
}

func TestMetricsRegistry_PrometheusConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "conflict_counter", Help: "same"})
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "conflict_counter", Help: "same"})

	require.NoError(t, registry.Register("svc1", "conflict_counter", c1))
	err := registry.Register("svc2", "conflict_counter", c2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "unregister_counter", Help: "u"})

	require.NoError(t, registry.Register("svc", "unregister_counter", counter))
	assert.True(t, gatheredNames(t, registry)["unregister_counter"])

	assert.True(t, registry.Unregister("svc", "unregister_counter"))
	assert.False(t, gatheredNames(t, registry)["unregister_counter"])
	assert.False(t, registry.Unregister("svc", "unregister_counter"))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	const workers = 10
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "concurrent",
			})
			assert.NoError(t, registry.Register("svc", fmt.Sprintf("counter_%d", id), counter))
		}(i)
	}
	wg.Wait()

	count := 0
	for name := range gatheredNames(t, registry) {
		if strings.HasPrefix(name, "concurrent_counter_") {
			count++
		}
	}
	assert.Equal(t, workers, count)
}

func TestMetricsRegistry_InconsistentCollector(t *testing.T) {
	registry := NewMetricsRegistry()

	// same fully-qualified name, different label dimensions
	a := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mixed_total", Help: "m"}, []string{"source"})
	b := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mixed_total", Help: "m"}, []string{"schema"})

	require.NoError(t, registry.Register("queue", "a", a))
	err := registry.Register("queue", "b", b)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordSourceState("5123", SourcePolling)
	m.RecordBytes("5123", 30)
	m.RecordAccepted("5123", "climate")
	m.RecordAccepted("5123", "climate")
	m.RecordRejected("5123", "checksum")
	m.RecordOverflow("5123")
	m.RecordReconnect("5123")
	m.RecordConnectDuration("5123", 20*time.Millisecond)
	m.RecordSinkWrite(time.Millisecond)
	m.RecordSinkError()
	m.RecordMirror(true)
	m.RecordMirror(false)
	m.RecordNATSStatus(true)
	m.RecordHealth("sink", "degraded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SourceState.WithLabelValues("5123")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.BytesReceived.WithLabelValues("5123")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsAccepted.WithLabelValues("5123", "climate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsRejected.WithLabelValues("5123", "checksum")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overflows.WithLabelValues("5123")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconnects.WithLabelValues("5123")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirrorPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirrorFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthStatus.WithLabelValues("sink")))

	names := gatheredNames(t, registry)
	for _, name := range []string{
		"sensorstreams_source_state",
		"sensorstreams_source_bytes_received_total",
		"sensorstreams_records_accepted_total",
		"sensorstreams_records_rejected_total",
		"sensorstreams_source_accumulator_overflows_total",
		"sensorstreams_source_reconnects_total",
		"sensorstreams_source_connect_duration_seconds",
		"sensorstreams_sink_writes_total",
		"sensorstreams_sink_write_duration_seconds",
		"sensorstreams_mirror_published_total",
		"sensorstreams_nats_connected",
		"sensorstreams_health_status",
	} {
		assert.True(t, names[name], "%s exported", name)
	}
}

func TestCoreMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSourceState("x", SourceConnecting)
		m.RecordBytes("x", 1)
		m.RecordAccepted("x", "motion")
		m.RecordRejected("x", "bounds")
		m.RecordOverflow("x")
		m.RecordReconnect("x")
		m.RecordConnectDuration("x", time.Second)
		m.RecordSinkWrite(time.Second)
		m.RecordSinkError()
		m.RecordMirror(true)
		m.RecordNATSStatus(false)
		m.RecordHealth("x", "healthy")
	})
}
