// Package testutil provides test helpers for sensorstreams packages.
//
// # Frames
//
// ClimateFrame and MotionFrame build wire frames with correct checksums;
// CorruptChecksum, Concat and Split shape them into noisy, fragmented streams:
//
//	stream := testutil.Concat(testutil.GarbagePrefix,
//	    testutil.MotionFrame(t, testutil.ValidTimestamp, 10, -20, 30))
//
// # Fake telemetry source
//
// Server listens on a loopback port and speaks the source protocol: it reads
// the credential, optionally sends stale bytes, then answers each poll
// command with the next queued chunk:
//
//	srv := testutil.NewServer(t, testutil.WithStale([]byte("old")))
//	srv.Enqueue(frame1, frame2)
//	srv.EnqueueDrop() // close the connection on the following poll
//
// Real sockets are preferred over mocks; the server is cheap to start and
// exercises deadlines and reconnects the way production does.
//
// # NATS
//
// MockNATSClient records publishes in memory for unit tests of the NATS
// mirror. Integration tests use a real server via testcontainers instead.
package testutil
