package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/framer"
	"github.com/c360/sensorstreams/health"
	"github.com/c360/sensorstreams/metric"
	"github.com/c360/sensorstreams/pkg/retry"
	"github.com/c360/sensorstreams/record"
)

// Defaults for worker configuration.
const (
	DefaultReconnectDelay = time.Second
	DefaultReadBufferSize = 4096
)

// Rejected windows are logged at most this often per worker; the metrics
// count every one.
const (
	rejectLogInterval = time.Second
	rejectLogBurst    = 5
)

// Transport is the connection a worker pumps. *transport.Session implements it.
type Transport interface {
	Connect(ctx context.Context) error
	RequestMore() error
	Receive(buf []byte) (int, error)
	Close() error
	ID() string
}

// Queue receives accepted messages. *queue.Queue[record.Message] implements it.
type Queue interface {
	Push(msg record.Message)
}

// Config holds per-source worker settings.
type Config struct {
	// Source identifies the source in persisted lines and metrics.
	Source string `json:"source"`
	// ReconnectDelay is the fixed pause between failed connect attempts.
	ReconnectDelay time.Duration `json:"reconnect_delay"`
	// ReadBufferSize is the size of the receive buffer.
	ReadBufferSize int `json:"read_buffer_size"`
}

// WorkerDeps holds the runtime dependencies of a Worker.
type WorkerDeps struct {
	Config  Config
	Session Transport
	Framer  *framer.Framer
	Queue   Queue
	Logger  *slog.Logger    // optional
	Metrics *metric.Metrics // optional
	Health  *health.Monitor // optional
}

// Stats is a snapshot of worker counters.
type Stats struct {
	State          State
	BytesReceived  uint64
	RecordsEmitted uint64
	Rejected       uint64
	Reconnects     uint64
	Overflows      uint64
}

// Worker moves bytes from one source through a framer onto the queue. It owns
// its session and framer exclusively.
type Worker struct {
	cfg     Config
	session Transport
	framer  *framer.Framer
	queue   Queue
	logger  *slog.Logger
	metrics *metric.Metrics
	health  *health.Monitor

	rejectLog *rate.Limiter

	state atomic.Int32

	// Lifecycle management
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool

	bytesReceived  atomic.Uint64
	recordsEmitted atomic.Uint64
	rejected       atomic.Uint64
	reconnects     atomic.Uint64
	overflows      atomic.Uint64
	lastError      atomic.Pointer[failure]
}

type failure struct {
	err error
}

// NewWorker creates a worker in the Disconnected state.
func NewWorker(deps WorkerDeps) (*Worker, error) {
	if deps.Session == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Worker", "NewWorker", "session required")
	}
	if deps.Framer == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Worker", "NewWorker", "framer required")
	}
	if deps.Queue == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Worker", "NewWorker", "queue required")
	}

	cfg := deps.Config
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "ingest", "source", cfg.Source)
	}

	return &Worker{
		cfg:     cfg,
		session: deps.Session,
		framer:  deps.Framer,
		queue:   deps.Queue,
		logger:  logger,
		metrics: deps.Metrics,
		health:  deps.Health,

		rejectLog: rate.NewLimiter(rate.Every(rejectLogInterval), rejectLogBurst),
	}, nil
}

// Source returns the source identifier.
func (w *Worker) Source() string {
	return w.cfg.Source
}

// Initialize validates the configuration.
func (w *Worker) Initialize() error {
	if w.cfg.Source == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Worker", "Initialize", "source id check")
	}
	if w.cfg.ReconnectDelay < 0 {
		return errors.WrapInvalid(fmt.Errorf("negative reconnect delay %v", w.cfg.ReconnectDelay),
			"Worker", "Initialize", "reconnect delay check")
	}
	if w.cfg.ReadBufferSize < 0 {
		return errors.WrapInvalid(fmt.Errorf("negative read buffer size %d", w.cfg.ReadBufferSize),
			"Worker", "Initialize", "read buffer check")
	}
	w.setState(Disconnected)
	return nil
}

// Start runs the worker in the background until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Worker", "Start", "start worker")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)

	done := w.done
	go func() {
		defer close(done)
		defer w.running.Store(false)
		if err := w.Run(runCtx); err != nil {
			w.logger.Error("Worker stopped with error", "error", err)
		}
	}()

	return nil
}

// Stop cancels the worker and waits for the in-flight iteration to finish.
// If it does not finish within timeout the session is closed to unblock it.
func (w *Worker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}

	_ = w.session.Close()
	<-done
	return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
		"Worker", "Stop", "graceful shutdown")
}

// Run drives the state machine until ctx is cancelled. Cancellation is
// observed once per iteration, never in the middle of a record.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		_ = w.session.Close()
		w.setState(Disconnected)
	}()

	for ctx.Err() == nil {
		if err := w.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.recordFailure(err)
			w.reconnects.Add(1)
			w.metrics.RecordReconnect(w.cfg.Source)
			w.logger.Warn("Source connection failed, reconnecting",
				"session_id", w.session.ID(), "error", err)
			_ = w.session.Close()
			w.setState(Disconnected)
		}
	}
	return nil
}

func (w *Worker) connect(ctx context.Context) error {
	w.setState(Connecting)

	cfg := retry.Forever(w.cfg.ReconnectDelay)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		w.recordFailure(err)
		w.reconnects.Add(1)
		w.metrics.RecordReconnect(w.cfg.Source)
		w.logger.Warn("Connect failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
	}

	start := time.Now()
	if err := retry.Do(ctx, cfg, func() error { return w.session.Connect(ctx) }); err != nil {
		return err
	}
	w.metrics.RecordConnectDuration(w.cfg.Source, time.Since(start))

	// Bytes from a previous connection cannot be aligned with the new stream.
	w.framer.Reset()
	w.setState(Polling)
	w.logger.Info("Source connected", "session_id", w.session.ID())
	return nil
}

// poll runs the request/receive/extract cycle until a transport failure or
// cancellation. It returns nil only on cancellation.
func (w *Worker) poll(ctx context.Context) error {
	buf := make([]byte, w.cfg.ReadBufferSize)

	for ctx.Err() == nil {
		if err := w.session.RequestMore(); err != nil {
			return err
		}

		n, err := w.session.Receive(buf)
		if err != nil {
			return err
		}

		w.bytesReceived.Add(uint64(n))
		w.metrics.RecordBytes(w.cfg.Source, n)

		w.framer.Append(buf[:n])
		w.drain()
	}
	return nil
}

// drain pushes every record the framer can extract, in stream order.
func (w *Worker) drain() {
	overflows := w.framer.Stats().Overflows
	defer func() {
		if n := w.framer.Stats().Overflows - overflows; n > 0 {
			w.overflows.Add(n)
			for range n {
				w.metrics.RecordOverflow(w.cfg.Source)
			}
		}
	}()

	for {
		res := w.framer.Step()
		switch res.Verdict {
		case record.Accepted:
			w.queue.Push(record.NewMessage(w.cfg.Source, res.Record))
			w.recordsEmitted.Add(1)
			w.metrics.RecordAccepted(w.cfg.Source, res.Record.Schema)
		case record.Rejected:
			w.rejected.Add(1)
			w.metrics.RecordRejected(w.cfg.Source, record.ReasonLabel(res.Reason))
			if w.rejectLog.Allow() {
				w.logger.Debug("Discarding invalid window",
					"reason", record.ReasonLabel(res.Reason),
					"rejected", w.rejected.Load(),
					"error", res.Reason)
			}
		default:
			return
		}
	}
}

// State returns the current state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() Stats {
	return Stats{
		State:          w.State(),
		BytesReceived:  w.bytesReceived.Load(),
		RecordsEmitted: w.recordsEmitted.Load(),
		Rejected:       w.rejected.Load(),
		Reconnects:     w.reconnects.Load(),
		Overflows:      w.overflows.Load(),
	}
}

// Health reports the worker status: healthy while polling, degraded while
// connecting, unhealthy when disconnected.
func (w *Worker) Health() health.Status {
	name := w.healthName()
	switch w.State() {
	case Polling:
		return health.NewHealthy(name, "polling")
	case Connecting:
		if err := w.lastErr(); err != nil {
			return health.NewDegraded(name, health.FromError(name, err).Message)
		}
		return health.NewDegraded(name, "connecting")
	default:
		if err := w.lastErr(); err != nil {
			return health.FromError(name, err)
		}
		return health.NewUnhealthy(name, "disconnected")
	}
}

func (w *Worker) healthName() string {
	return "source." + w.cfg.Source
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	w.metrics.RecordSourceState(w.cfg.Source, int(s))
	if w.health != nil {
		w.health.Update(w.healthName(), w.Health())
	}
	w.logger.Debug("Worker state changed", "state", s.String())
}

func (w *Worker) recordFailure(err error) {
	if err != nil {
		w.lastError.Store(&failure{err: err})
	}
}

func (w *Worker) lastErr() error {
	if f := w.lastError.Load(); f != nil {
		return f.err
	}
	return nil
}
