// Package collector wires the telemetry pipeline together.
//
// Each configured source gets its own transport session, framer and ingest
// worker. All workers push onto one unbounded delivery queue that a single
// file sink drains, so lines from one source keep their stream order while
// lines from different sources interleave by arrival. The sink optionally
// mirrors each line to NATS.
//
//	cfg, _ := config.NewLoader().LoadFile("collector.yaml")
//	c, err := collector.New(cfg, collector.Deps{
//	    Logger:   logger,
//	    Registry: metric.NewMetricsRegistry(),
//	})
//	if err != nil {
//	    return err
//	}
//	return c.Run(ctx)
//
// Shutdown on ctx cancellation runs in a fixed order: stop workers, shut the
// queue down, wait for the sink to drain whatever is left, close NATS, stop
// the metrics endpoint. Nothing accepted before cancellation is lost.
package collector
