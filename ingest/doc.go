// Package ingest runs the per-source loop that moves bytes from a transport
// session through a framer onto the delivery queue.
//
// A Worker cycles through three states:
//
//	Disconnected -> Connecting -> Polling -> Disconnected
//
// Connecting retries forever with a fixed delay and ends only on cancellation.
// A successful connect clears the framer, since a partial record from the old
// connection can never be completed by the new one. Polling sends the poll
// command, reads what is available, appends it to the framer and pushes every
// extracted record onto the queue in stream order. Any send or receive
// failure closes the session and reconnects.
//
// Cancellation is checked once per iteration. A receive in flight completes or
// times out on its own; Stop closes the session only if the timeout it was
// given runs out first.
//
//	w, err := ingest.NewWorker(ingest.WorkerDeps{
//	    Config:  ingest.Config{Source: "5123"},
//	    Session: session,
//	    Framer:  f,
//	    Queue:   q,
//	    Metrics: registry.CoreMetrics(),
//	})
//	if err != nil {
//	    return err
//	}
//	if err := w.Initialize(); err != nil {
//	    return err
//	}
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop(5 * time.Second)
package ingest
