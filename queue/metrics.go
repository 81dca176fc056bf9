package queue

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sensorstreams/metric"
)

// queueMetrics holds Prometheus metrics for queue operations.
type queueMetrics struct {
	pushes prometheus.Counter
	pops   prometheus.Counter
	depth  prometheus.Gauge
}

// newQueueMetrics creates and registers queue metrics with the provided registry.
func newQueueMetrics(registry metric.Registerer, prefix string) (*queueMetrics, error) {
	m := &queueMetrics{
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "queue",
			Name:        "pushes_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of items pushed onto the delivery queue",
		}),
		pops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "queue",
			Name:        "pops_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of items handed to the consumer",
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "queue",
			Name:        "depth",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of pending items",
		}),
	}

	if err := registry.Register(prefix, "queue_pushes", m.pushes); err != nil {
		return nil, err
	}
	if err := registry.Register(prefix, "queue_pops", m.pops); err != nil {
		return nil, err
	}
	if err := registry.Register(prefix, "queue_depth", m.depth); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *queueMetrics) recordPush(size int) {
	m.pushes.Inc()
	m.depth.Set(float64(size))
}

func (m *queueMetrics) recordPop(size int) {
	m.pops.Inc()
	m.depth.Set(float64(size))
}
