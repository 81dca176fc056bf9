package queue

import (
	"github.com/c360/sensorstreams/metric"
)

// Option configures queue behavior using the functional options pattern.
type Option[T any] func(*queueOptions[T])

// queueOptions holds internal configuration for queue instances.
// Stats are ALWAYS collected; metrics are optional via WithMetrics().
type queueOptions[T any] struct {
	initialCapacity int

	// metricsReg is optional - if provided, queue stats are also exposed as Prometheus metrics
	metricsReg metric.Registerer

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string
}

// WithInitialCapacity preallocates room for n items. The queue still grows without bound.
func WithInitialCapacity[T any](n int) Option[T] {
	return func(opts *queueOptions[T]) {
		if n > 0 {
			opts.initialCapacity = n
		}
	}
}

// WithMetrics enables Prometheus metrics export for queue statistics.
// If registry is nil, this option is ignored.
func WithMetrics[T any](registry metric.Registerer, prefix string) Option[T] {
	return func(opts *queueOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions[T any](options ...Option[T]) *queueOptions[T] {
	opts := &queueOptions[T]{
		initialCapacity: 64,
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
