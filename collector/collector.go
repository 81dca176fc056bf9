package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/sensorstreams/config"
	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/framer"
	"github.com/c360/sensorstreams/health"
	"github.com/c360/sensorstreams/ingest"
	"github.com/c360/sensorstreams/metric"
	"github.com/c360/sensorstreams/natsclient"
	"github.com/c360/sensorstreams/output/file"
	natsout "github.com/c360/sensorstreams/output/nats"
	"github.com/c360/sensorstreams/pkg/retry"
	"github.com/c360/sensorstreams/queue"
	"github.com/c360/sensorstreams/record"
	"github.com/c360/sensorstreams/transport"
)

// DefaultShutdownTimeout bounds each shutdown phase.
const DefaultShutdownTimeout = 10 * time.Second

// Deps holds runtime dependencies for the collector
type Deps struct {
	Logger          *slog.Logger            // optional
	Registry        *metric.MetricsRegistry // optional, enables metrics
	Health          *health.Monitor         // optional, created when nil
	Dialer          transport.Dialer        // optional, used by every session
	Mirror          natsout.Client          // optional, replaces the configured NATS client
	ShutdownTimeout time.Duration           // optional
}

// SourceStats pairs a source id with its worker counters.
type SourceStats struct {
	Source string
	Schema string
	ingest.Stats
}

// Collector runs one ingest worker per configured source, a single sink and
// the optional NATS mirror and metrics endpoint.
type Collector struct {
	cfg             *config.Config
	logger          *slog.Logger
	registry        *metric.MetricsRegistry
	metrics         *metric.Metrics
	health          *health.Monitor
	shutdownTimeout time.Duration

	queue   *queue.Queue[record.Message]
	sink    *file.Sink
	workers []*ingest.Worker
	schemas []string

	natsClient *natsclient.Client
	publisher  *natsout.Publisher
	server     *metric.Server

	mu      sync.Mutex
	running bool
}

// New builds every component from cfg. Nothing is started.
func New(cfg *config.Config, deps Deps) (*Collector, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Collector", "New", "config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	monitor := deps.Health
	if monitor == nil {
		monitor = health.NewMonitor()
	}
	timeout := deps.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	c := &Collector{
		cfg:             cfg,
		logger:          logger.With("component", "collector"),
		registry:        deps.Registry,
		health:          monitor,
		shutdownTimeout: timeout,
	}
	var queueOpts []queue.Option[record.Message]
	if deps.Registry != nil {
		c.metrics = deps.Registry.CoreMetrics()
		queueOpts = append(queueOpts, queue.WithMetrics[record.Message](deps.Registry, "delivery"))
		monitor.OnChange(func(s health.Status) {
			c.metrics.RecordHealth(s.Component, s.Status)
		})
	}

	q, err := queue.New(queueOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Collector", "New", "create queue")
	}
	c.queue = q

	if err := c.buildWorkers(logger, deps.Dialer); err != nil {
		return nil, err
	}

	mirrors, err := c.buildMirror(logger, deps.Mirror)
	if err != nil {
		return nil, err
	}

	mode, _ := cfg.Output.FileMode() // checked by Validate
	c.sink, err = file.NewSink(file.SinkDeps{
		Config: file.Config{
			Path: cfg.Output.Path,
			Sync: cfg.Output.Sync,
			Mode: mode,
		},
		Queue:   q,
		Mirrors: mirrors,
		Logger:  logger.With("component", "file-sink"),
		Metrics: c.metrics,
		Health:  monitor,
	})
	if err != nil {
		return nil, err
	}

	if deps.Registry != nil && cfg.Metrics.Port > 0 {
		addr := net.JoinHostPort("", strconv.Itoa(cfg.Metrics.Port))
		c.server = metric.NewServer(addr, cfg.Metrics.Path, deps.Registry, monitor,
			logger.With("component", "metrics-server"))
	}

	return c, nil
}

func (c *Collector) buildWorkers(logger *slog.Logger, dialer transport.Dialer) error {
	minUs, maxUs, _ := c.cfg.Validation.TimestampRange() // checked by Validate

	for _, src := range c.cfg.Sources {
		id := src.SourceID()
		srcLogger := logger.With("source", id)

		schema, err := record.SchemaByName(src.Schema)
		if err != nil {
			return err
		}
		validator := record.NewValidator(schema, record.WithTimestampRange(minUs, maxUs))

		fr, err := framer.New(validator,
			framer.WithCeiling(c.cfg.Session.Ceiling()),
			framer.WithLogger(srcLogger.With("component", "framer")))
		if err != nil {
			return errors.Wrap(err, "Collector", "New", fmt.Sprintf("create framer for %s", id))
		}

		opts := []transport.Option{transport.WithLogger(srcLogger.With("component", "session"))}
		if dialer != nil {
			opts = append(opts, transport.WithDialer(dialer))
		}
		session, err := transport.NewSession(c.cfg.TransportConfig(src), opts...)
		if err != nil {
			return errors.Wrap(err, "Collector", "New", fmt.Sprintf("create session for %s", id))
		}

		worker, err := ingest.NewWorker(ingest.WorkerDeps{
			Config: ingest.Config{
				Source:         id,
				ReconnectDelay: c.cfg.Session.ReconnectDelay.D(),
				ReadBufferSize: c.cfg.Session.BufferSize(),
			},
			Session: session,
			Framer:  fr,
			Queue:   c.queue,
			Logger:  srcLogger.With("component", "ingest"),
			Metrics: c.metrics,
			Health:  c.health,
		})
		if err != nil {
			return err
		}
		if err := worker.Initialize(); err != nil {
			return err
		}

		c.workers = append(c.workers, worker)
		c.schemas = append(c.schemas, schema.Name)
	}
	return nil
}

func (c *Collector) buildMirror(logger *slog.Logger, client natsout.Client) ([]file.Mirror, error) {
	if client == nil {
		if !c.cfg.NATS.Enabled() {
			return nil, nil
		}
		nc, err := c.newNATSClient(logger)
		if err != nil {
			return nil, err
		}
		c.natsClient = nc
		client = nc
	}

	pub, err := natsout.NewPublisher(natsout.PublisherDeps{
		Config: c.cfg.NATS.PublisherConfig(),
		Client: client,
		Logger: logger.With("component", "nats-mirror"),
	})
	if err != nil {
		return nil, err
	}
	c.publisher = pub
	return []file.Mirror{pub}, nil
}

func (c *Collector) newNATSClient(logger *slog.Logger) (*natsclient.Client, error) {
	n := c.cfg.NATS
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger.With("component", "natsclient")),
		natsclient.WithMaxReconnects(n.MaxReconnects),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			c.metrics.RecordNATSStatus(healthy)
			if healthy {
				c.health.UpdateHealthy("nats", "connected")
			} else {
				c.health.UpdateDegraded("nats", "disconnected")
			}
		}),
	}
	if n.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(n.ReconnectWait.D()))
	}
	if n.Name != "" {
		opts = append(opts, natsclient.WithName(n.Name))
	}
	if n.Username != "" {
		opts = append(opts, natsclient.WithCredentials(n.Username, n.Password))
	}
	if n.Token != "" {
		opts = append(opts, natsclient.WithToken(n.Token))
	}
	return natsclient.NewClient(n.URL, opts...)
}

// Health returns the monitor the collector reports into.
func (c *Collector) Health() *health.Monitor {
	return c.health
}

// Sink returns the persistence sink.
func (c *Collector) Sink() *file.Sink {
	return c.sink
}

// MetricsAddress returns the metrics endpoint URL, or "" when disabled or not started.
func (c *Collector) MetricsAddress() string {
	if c.server == nil {
		return ""
	}
	return c.server.Address()
}

// Stats returns per-source worker counters in configuration order.
func (c *Collector) Stats() []SourceStats {
	out := make([]SourceStats, len(c.workers))
	for i, w := range c.workers {
		out[i] = SourceStats{Source: w.Source(), Schema: c.schemas[i], Stats: w.Stats()}
	}
	return out
}

// Run starts everything and blocks until ctx is cancelled, then shuts down in
// order: workers, queue, sink drain, NATS, metrics endpoint. A sink that could
// not open its file does not stop the workers; its fatal error is returned
// once Run ends.
func (c *Collector) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Collector", "Run", "check running state")
	}
	c.running = true
	c.mu.Unlock()

	if c.server != nil {
		if err := c.server.Start(); err != nil {
			return errors.WrapFatal(err, "Collector", "Run", "start metrics server")
		}
	}

	sinkErr := c.sink.Initialize()
	if sinkErr == nil {
		sinkErr = c.sink.Start(ctx)
	}
	if sinkErr != nil {
		c.logger.Error("Persistence unavailable, sources keep running", "path", c.cfg.Output.Path, "error", sinkErr)
	}

	natsDone := make(chan struct{})
	natsCtx, natsCancel := context.WithCancel(ctx)
	go func() {
		defer close(natsDone)
		c.connectNATS(natsCtx)
	}()

	for _, w := range c.workers {
		if err := w.Start(ctx); err != nil {
			c.logger.Error("Failed to start worker", "source", w.Source(), "error", err)
		}
	}
	c.logger.Info("Collector running",
		"sources", len(c.workers),
		"output", c.cfg.Output.Path,
		"mirror", c.publisher != nil)

	<-ctx.Done()
	c.logger.Info("Shutting down collector")

	var stopErrs []error
	if err := c.stopWorkers(); err != nil {
		stopErrs = append(stopErrs, err)
	}

	c.queue.Shutdown()
	if err := c.sink.Stop(c.shutdownTimeout); err != nil {
		stopErrs = append(stopErrs, err)
	}

	natsCancel()
	<-natsDone
	if c.natsClient != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
		if err := c.natsClient.Close(closeCtx); err != nil {
			stopErrs = append(stopErrs, err)
		}
		cancel()
	}

	if c.server != nil {
		if err := c.server.Stop(c.shutdownTimeout); err != nil {
			stopErrs = append(stopErrs, err)
		}
	}

	if err := stderrors.Join(stopErrs...); err != nil {
		c.logger.Warn("Shutdown incomplete", "error", err)
	}

	sinkStats := c.sink.Stats()
	c.logger.Info("Collector stopped",
		"messages_written", sinkStats.MessagesWritten,
		"write_errors", sinkStats.WriteErrors,
		"mirror_errors", sinkStats.MirrorErrors)

	return sinkErr
}

// stopWorkers stops every worker concurrently so one slow source does not
// add its timeout to the others.
func (c *Collector) stopWorkers() error {
	var g errgroup.Group
	for _, w := range c.workers {
		g.Go(func() error {
			return w.Stop(c.shutdownTimeout)
		})
	}
	return g.Wait()
}

// connectNATS keeps trying to establish the mirror connection until it
// succeeds or ctx ends. Once connected, nats.go handles reconnects.
func (c *Collector) connectNATS(ctx context.Context) {
	if c.natsClient == nil {
		return
	}

	c.health.UpdateDegraded("nats", "connecting")
	cfg := retry.Exponential(time.Second, time.Minute)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Warn("NATS connect failed", "attempt", attempt, "retry_in", delay, "error", err)
	}
	if err := retry.Do(ctx, cfg, func() error { return c.natsClient.Connect(ctx) }); err != nil {
		c.logger.Debug("NATS connect loop ended", "error", err)
	}
}
