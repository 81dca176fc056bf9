// Package health tracks the health of collector components.
//
// Each ingest worker reports healthy while polling and degraded while it is
// reconnecting; the persistence sink reports unhealthy when its destination
// cannot be opened. The metrics server exposes the aggregate on /health.
//
// # States
//
//   - healthy: operating normally
//   - degraded: working to recover (for example reconnecting to a source)
//   - unhealthy: not functioning until an operator intervenes
//
// # Usage
//
//	monitor := health.NewMonitor()
//	monitor.UpdateDegraded("source.5123", "reconnecting")
//	monitor.Update("sink", health.FromError("sink", err))
//
//	overall := monitor.AggregateHealth("sensorstreams")
//	if overall.IsUnhealthy() {
//	    // surface to the operator
//	}
//
// Messages built with FromError are sanitized: URLs, file paths, IP
// addresses, ports and credentials are replaced with placeholders.
//
// Monitor is safe for concurrent use. OnChange listeners run synchronously,
// outside the monitor's lock, when a component first appears or changes
// state; updates that only change the message do not notify.
package health
