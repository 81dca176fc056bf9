// Package sensorstreams collects binary telemetry from TCP sources and
// persists it as human-readable text.
//
// # Architecture
//
// Each source speaks a minimal request/response protocol: the collector
// connects, sends a credential, discards whatever the source sent before it
// was ready, then repeatedly sends a poll command and reads whatever bytes
// come back. Responses are unframed; fixed-size records are recovered by
// sliding a window over the received bytes until one validates.
//
//	┌──────────┐   ┌──────────┐   ┌──────────┐
//	│ source   │   │ source   │   │ source   │   one worker per source
//	│ climate  │   │ motion   │   │  ...     │   (transport + framer)
//	└────┬─────┘   └────┬─────┘   └────┬─────┘
//	     └──────────────┼──────────────┘
//	                    ↓
//	          ┌──────────────────┐
//	          │  delivery queue  │   unbounded, FIFO
//	          └────────┬─────────┘
//	                   ↓
//	          ┌──────────────────┐
//	          │    file sink     │──→ NATS mirror (optional)
//	          └──────────────────┘
//	            sensor_data.txt
//
// A persisted line looks like:
//
//	2024-05-01 12:00:00 | Source: 5123 | Temp: 21.50 | Pressure: 1013
//	2024-05-01 12:00:00 | Source: 5124 | X: 1 | Y: 2 | Z: 3
//
// # Packages
//
//   - record: schemas, codec, validation and line formatting
//   - framer: recovers records from an unframed byte stream
//   - transport: one TCP session to a source
//   - ingest: the per-source connect/poll/reconnect loop
//   - queue: the unbounded delivery queue
//   - output/file: the append-only persistence sink
//   - output/nats: best-effort NATS mirror of persisted lines
//   - collector: builds and runs the pipeline from configuration
//   - config: layered JSON/YAML configuration with environment overrides
//   - metric, health: Prometheus metrics and component health
//   - natsclient: NATS connection with circuit breaker
//   - errors: classified errors (transient, invalid, fatal)
//   - pkg/retry, pkg/timestamp: shared utilities
//
// # Binary
//
//	go build ./cmd/sensorstreams
//	./sensorstreams --config collector.yaml
//
// Without a configuration file the collector polls the two default sources
// and writes to sensor_data.txt in the working directory.
package sensorstreams
