// Package file provides the persistence sink: the single consumer of the
// delivery queue, appending every message as one line to a file.
//
// # Overview
//
// The sink opens its destination once, in append mode, and never truncates
// it. Each message is written as its line plus "\n" in a single write before
// the next message is taken from the queue; with Sync enabled the file is also
// fsynced after every line.
//
// # Quick Start
//
//	sink, err := file.NewSink(file.SinkDeps{
//	    Config:  file.Config{Path: "sensor_data.txt"},
//	    Queue:   q,
//	    Metrics: registry.CoreMetrics(),
//	})
//	if err != nil {
//	    return err
//	}
//	if err := sink.Initialize(); err != nil {
//	    return err
//	}
//	if err := sink.Start(ctx); err != nil {
//	    // errors.IsFatal(err): the destination could not be opened
//	}
//
//	// shutdown
//	q.Shutdown()
//	_ = sink.Stop(10 * time.Second)
//
// # Error Handling
//
// Failing to open the destination is fatal and not retried: Start returns a
// fatal classified error, Err keeps it and Done is closed. The ingest side is
// unaffected and keeps queueing. Write errors after a successful open are
// counted, logged and reported as degraded health; the loop continues with
// the next message.
//
// # Mirrors
//
// Mirrors receive every line after it has been written. A mirror failure is
// counted and logged at debug level and never delays the next write.
//
// # Shutdown
//
// The drain loop ends when Pop reports the queue finished and empty. Stop only
// waits for that; the owner shuts the queue down first so nothing queued is
// lost.
package file
