package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/sensorstreams/errors"
)

// Registerer accepts component metrics beyond the collector's own.
type Registerer interface {
	Register(component, name string, c prometheus.Collector) error
	Unregister(component, name string) bool
}

// MetricsRegistry owns the Prometheus registry: the collector metrics,
// Go runtime and process collectors, and any component metrics keyed by
// component and name.
type MetricsRegistry struct {
	prom *prometheus.Registry
	core *Metrics

	mu         sync.Mutex
	components map[string]prometheus.Collector
}

var _ Registerer = (*MetricsRegistry)(nil)

// NewMetricsRegistry creates a registry with the collector metrics and
// runtime collectors already registered.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prom:       prometheus.NewRegistry(),
		core:       NewMetrics(),
		components: make(map[string]prometheus.Collector),
	}

	r.prom.MustRegister(r.core.collectors()...)
	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying registry for exposition.
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// CoreMetrics returns the collector metrics.
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.core
}

func componentKey(component, name string) string {
	return component + "." + name
}

// Register adds c under component/name. Reusing a key, or colliding with an
// already exported metric name, is an invalid-class error.
func (r *MetricsRegistry) Register(component, name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := componentKey(component, name)
	if _, exists := r.components[key]; exists {
		return errors.WrapInvalid(fmt.Errorf("metric %s already registered", key),
			"MetricsRegistry", "Register", "duplicate metric registration")
	}

	if err := r.prom.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register",
				fmt.Sprintf("prometheus conflict for %s", key))
		}
		return errors.WrapInvalid(err, "MetricsRegistry", "Register", fmt.Sprintf("describe %s", key))
	}

	r.components[key] = c
	return nil
}

// Unregister removes the metric at component/name and reports whether it
// was present.
func (r *MetricsRegistry) Unregister(component, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := componentKey(component, name)
	c, exists := r.components[key]
	if !exists || !r.prom.Unregister(c) {
		return false
	}
	delete(r.components, key)
	return true
}
