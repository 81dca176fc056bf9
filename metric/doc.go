// Package metric provides Prometheus metrics and the HTTP endpoint that
// exposes them together with aggregate collector health.
//
// # Architecture
//
//  1. Collector metrics: source state, bytes, accepted and rejected records,
//     reconnects, sink writes and mirror publishes (Metrics type)
//  2. Component registry: extra metrics registered per component
//     (Registerer interface), used for example by the delivery queue
//  3. HTTP server: /metrics in Prometheus text format and /health as JSON
//     (Server type)
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	monitor := health.NewMonitor()
//	server := metric.NewServer(":9090", "/metrics", registry, monitor, logger)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(5 * time.Second)
//
//	m := registry.CoreMetrics()
//	m.RecordAccepted("5123", "climate")
//	m.RecordRejected("5123", "checksum")
//
// # Nil Metrics
//
// Every Record* method is safe on a nil *Metrics, so components accept an
// optional *Metrics and call it unconditionally:
//
//	var m *metric.Metrics // metrics disabled
//	m.RecordReconnect("5124") // no-op
//
// # Component Metrics
//
//	pushes := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: metric.Namespace,
//	    Subsystem: "queue",
//	    Name:      "pushes_total",
//	    Help:      "Records pushed to the queue",
//	})
//	if err := registry.Register("queue", "pushes", pushes); err != nil {
//	    return err
//	}
//
// Registering the same component/name twice returns an invalid-class
// error; a Prometheus name collision across keys is reported the same way.
//
// # Health Endpoint
//
// /health answers 200 for healthy and degraded aggregate status and 503 when
// any component is unhealthy. Without a HealthReporter it always reports
// healthy.
package metric
