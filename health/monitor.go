package health

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"
)

// Monitor holds the latest Status of every named component of the
// collector: one entry per source, the sink and the NATS mirror.
type Monitor struct {
	mu        sync.RWMutex
	statuses  map[string]Status
	listeners []func(Status)
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// OnChange registers fn to be called, outside the lock, when a component is
// first reported or its state changes. Message-only updates are recorded
// without notifying.
func (m *Monitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Update records status under name, overriding status.Component.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	prev, known := m.statuses[name]
	m.statuses[name] = status
	var notify []func(Status)
	if !known || prev.Status != status.Status {
		notify = slices.Clone(m.listeners)
	}
	m.mu.Unlock()

	for _, fn := range notify {
		fn(status)
	}
}

// UpdateHealthy marks name healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateDegraded marks name degraded.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// UpdateUnhealthy marks name unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Get returns the latest status of name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns a snapshot of every status.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.statuses)
}

// Remove stops tracking name.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
}

// AggregateHealth combines every tracked status under systemName, with
// sub-statuses ordered by component name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subs := slices.Collect(maps.Values(m.statuses))
	m.mu.RUnlock()

	slices.SortFunc(subs, func(a, b Status) int {
		return cmp.Compare(a.Component, b.Component)
	})
	return Aggregate(systemName, subs)
}

// Count returns the number of tracked components.
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses)
}
