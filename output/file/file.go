// Package file provides the append-only persistence sink for formatted lines
package file

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/health"
	"github.com/c360/sensorstreams/metric"
	"github.com/c360/sensorstreams/record"
)

// Source is the queue the sink drains. *queue.Queue[record.Message] implements it.
type Source interface {
	Pop() (record.Message, bool)
}

// Mirror receives a copy of every persisted line. Failures are counted and
// logged; they never hold back persistence.
type Mirror interface {
	Publish(ctx context.Context, msg record.Message) error
}

// SinkDeps holds runtime dependencies for the sink
type SinkDeps struct {
	Config  Config
	Queue   Source
	Mirrors []Mirror        // optional
	Logger  *slog.Logger    // optional
	Metrics *metric.Metrics // optional
	Health  *health.Monitor // optional
}

// Stats is a snapshot of sink counters.
type Stats struct {
	MessagesWritten int64
	BytesWritten    int64
	WriteErrors     int64
	MirrorErrors    int64
}

// Sink drains the queue and appends one line per message, flushing each before
// taking the next.
type Sink struct {
	cfg     Config
	queue   Source
	mirrors []Mirror
	logger  *slog.Logger
	metrics *metric.Metrics
	health  *health.Monitor

	// File handling
	file *os.File

	// Lifecycle management
	lifecycleMu sync.Mutex
	started     bool
	done        chan struct{}
	err         error // fatal error, set before done is closed

	// Metrics
	messagesWritten atomic.Int64
	bytesWritten    atomic.Int64
	writeErrors     atomic.Int64
	mirrorErrors    atomic.Int64
	lastActivity    atomic.Int64 // unix nanoseconds
	storageFull     atomic.Bool
}

// NewSink creates a sink. The file is not opened until Start.
func NewSink(deps SinkDeps) (*Sink, error) {
	if deps.Queue == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Sink", "NewSink", "queue required")
	}

	cfg := deps.Config
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Mode == 0 {
		cfg.Mode = DefaultMode
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "file-sink")
	}

	return &Sink{
		cfg:     cfg,
		queue:   deps.Queue,
		mirrors: deps.Mirrors,
		logger:  logger,
		metrics: deps.Metrics,
		health:  deps.Health,
		done:    make(chan struct{}),
	}, nil
}

// Initialize validates configuration and creates the parent directory
func (s *Sink) Initialize() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(s.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapFatal(err, "Sink", "Initialize", "create output directory")
		}
	}
	return nil
}

// Start opens the output file and begins draining. An open failure is fatal:
// it is returned, kept for Err, and Done is closed. ctx is used only for
// mirror publishes; the drain ends when the queue is shut down and empty.
func (s *Sink) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Sink", "Start", "check running state")
	}
	s.started = true

	f, err := os.OpenFile(s.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, s.cfg.Mode)
	if err != nil {
		s.err = errors.WrapFatal(err, "Sink", "Start", "open output file")
		s.logger.Error("Cannot open output file", "path", s.cfg.Path, "error", err)
		s.updateHealth(health.FromError("sink", s.err))
		close(s.done)
		return s.err
	}
	s.file = f

	s.updateHealth(health.NewHealthy("sink", "writing"))
	s.logger.Info("File sink started", "path", s.cfg.Path, "sync", s.cfg.Sync, "mirrors", len(s.mirrors))

	go s.run(ctx)
	return nil
}

// run is the single consumer loop.
func (s *Sink) run(ctx context.Context) {
	defer close(s.done)

	for {
		msg, ok := s.queue.Pop()
		if !ok {
			break
		}
		s.write(msg)
		s.mirror(ctx, msg)
	}

	if err := s.file.Close(); err != nil {
		s.logger.Warn("Failed to close output file", "path", s.cfg.Path, "error", err)
	}
	s.logger.Info("File sink drained",
		"messages_written", s.messagesWritten.Load(),
		"write_errors", s.writeErrors.Load())
}

func (s *Sink) write(msg record.Message) {
	start := time.Now()
	line := make([]byte, 0, len(msg.Line)+1)
	line = append(line, msg.Line...)
	line = append(line, '\n')

	n, err := s.file.Write(line)
	if err == nil && s.cfg.Sync {
		err = s.file.Sync()
	}
	if err != nil {
		if stderrors.Is(err, syscall.ENOSPC) {
			err = fmt.Errorf("%w: %w", errors.ErrStorageFull, err)
			s.storageFull.Store(true)
		}
		s.writeErrors.Add(1)
		s.metrics.RecordSinkError()
		s.logger.Error("Failed to write line", "source", msg.Source, "error", err)
		s.updateHealth(health.NewDegraded("sink", s.writeErrorSummary()))
		return
	}

	s.messagesWritten.Add(1)
	s.bytesWritten.Add(int64(n))
	s.lastActivity.Store(time.Now().UnixNano())
	s.metrics.RecordSinkWrite(time.Since(start))
}

func (s *Sink) mirror(ctx context.Context, msg record.Message) {
	for _, m := range s.mirrors {
		err := m.Publish(ctx, msg)
		s.metrics.RecordMirror(err == nil)
		if err != nil {
			s.mirrorErrors.Add(1)
			s.logger.Debug("Mirror publish failed", "source", msg.Source, "error", err)
		}
	}
}

// Stop waits for the drain loop to finish. The loop ends only after the queue
// is shut down and empty, so callers shut the queue down first.
func (s *Sink) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	started := s.started
	s.lifecycleMu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("drain timeout after %v", timeout), "Sink", "Stop", "wait for drain")
	}
}

// Done is closed when the sink has drained or failed to start.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Err returns the fatal start error, if any.
func (s *Sink) Err() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	return s.err
}

// Path returns the output file path.
func (s *Sink) Path() string {
	return s.cfg.Path
}

// Stats returns current counters.
func (s *Sink) Stats() Stats {
	return Stats{
		MessagesWritten: s.messagesWritten.Load(),
		BytesWritten:    s.bytesWritten.Load(),
		WriteErrors:     s.writeErrors.Load(),
		MirrorErrors:    s.mirrorErrors.Load(),
	}
}

// LastActivity returns the time of the last successful write.
func (s *Sink) LastActivity() time.Time {
	ns := s.lastActivity.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Health returns the current health status
func (s *Sink) Health() health.Status {
	if err := s.Err(); err != nil {
		return health.FromError("sink", err)
	}
	select {
	case <-s.done:
		return health.NewDegraded("sink", "drained")
	default:
	}
	if s.writeErrors.Load() > 0 {
		return health.NewDegraded("sink", s.writeErrorSummary())
	}
	return health.NewHealthy("sink", "writing")
}

func (s *Sink) writeErrorSummary() string {
	summary := fmt.Sprintf("%d write errors", s.writeErrors.Load())
	if s.storageFull.Load() {
		return errors.ErrStorageFull.Error() + ", " + summary
	}
	return summary
}

func (s *Sink) updateHealth(status health.Status) {
	if s.health != nil {
		s.health.Update("sink", status)
	}
	s.metrics.RecordHealth("sink", status.Status)
}
