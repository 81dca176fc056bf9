// Package natsclient wraps a nats.go connection with circuit breaker
// protection and connection lifecycle tracking.
//
// The collector uses it to mirror every persisted line onto a NATS subject.
// Mirroring is best effort: the file is the system of record and a NATS
// outage never blocks persistence.
//
// # Circuit Breaker
//
// After a threshold of consecutive connect failures (default 5) the circuit
// opens and Connect fails fast with ErrCircuitOpen. The circuit half-opens
// after the current backoff, which starts at one second and doubles on every
// opening up to the configured maximum (default one minute). A successful
// connect or reconnect resets it.
//
// # Connection Lifecycle
//
// Status moves Disconnected → Connecting → Connected, then Reconnecting and
// back to Connected as nats.go recovers a dropped connection. Callbacks
// registered with WithDisconnectCallback, WithReconnectCallback and
// WithHealthChangeCallback run on their own goroutines.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("sensorstreams"),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Publish(ctx, "sensors.5123", []byte(line))
//
// # Shutdown
//
// Close unsubscribes, drains the connection within the drain timeout or the
// context deadline (whichever is shorter) and clears stored credentials.
// Calling Close twice is safe.
//
// # Testing
//
// NewTestClient starts a NATS container via testcontainers and returns a
// connected client. Tests that use it carry the integration build tag:
//
//	go test -tags integration ./natsclient/...
package natsclient
