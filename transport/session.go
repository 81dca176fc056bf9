package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/sensorstreams/errors"
)

// Dialer opens connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContext calls f.
func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces the default TCP dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session owns one TCP connection to a telemetry source. It is driven by a
// single worker; Close may be called from any goroutine.
type Session struct {
	cfg    Config
	dialer Dialer
	logger *slog.Logger

	mu   sync.Mutex // protects conn and id
	conn net.Conn
	id   string

	poll []byte
}

// NewSession creates a disconnected session.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Session", "NewSession", "config validation")
	}

	s := &Session{
		cfg: cfg,
		dialer: &net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		},
		logger: slog.Default().With("component", "transport", "address", cfg.Address),
		poll:   []byte(cfg.PollCommand),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Connect replaces any existing connection: dial, send the credential, wait
// for the settle delay, then discard bytes that arrive before the first poll.
func (s *Session) Connect(ctx context.Context) error {
	_ = s.Close()

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	conn, err := s.dialer.DialContext(dialCtx, "tcp", s.cfg.Address)
	cancel()
	if err != nil {
		return errors.WrapTransient(err, "Session", "Connect", fmt.Sprintf("dial %s", s.cfg.Address))
	}

	if err := s.writeAll(conn, []byte(s.cfg.Credential)); err != nil {
		conn.Close()
		return errors.WrapTransient(err, "Session", "Connect", "send credential")
	}

	if s.cfg.SettleDelay > 0 {
		timer := time.NewTimer(s.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			conn.Close()
			return errors.WrapTransient(ctx.Err(), "Session", "Connect", "settle")
		case <-timer.C:
		}
	}

	stale, err := s.flush(conn)
	if err != nil {
		conn.Close()
		return errors.WrapTransient(err, "Session", "Connect", "flush stale data")
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.conn = conn
	s.id = id
	s.mu.Unlock()

	s.logger.Debug("Session connected", "session_id", id, "stale_bytes", stale)
	return nil
}

// flush reads until one read of FlushWindow times out. The drain stops after
// Timeout in total so a source that never pauses cannot hold the connect.
func (s *Session) flush(conn net.Conn) (int, error) {
	buf := make([]byte, 4096)
	limit := time.Now().Add(s.cfg.Timeout)
	discarded := 0

	for time.Now().Before(limit) {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.FlushWindow)); err != nil {
			return discarded, err
		}
		n, err := conn.Read(buf)
		discarded += n
		if err != nil {
			if isTimeout(err) {
				return discarded, nil
			}
			if stderrors.Is(err, io.EOF) {
				return discarded, errors.ErrConnectionLost
			}
			return discarded, err
		}
	}
	return discarded, nil
}

// RequestMore sends the poll command once.
func (s *Session) RequestMore() error {
	conn := s.current()
	if conn == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "Session", "RequestMore", "connection check")
	}
	if err := s.writeAll(conn, s.poll); err != nil {
		return errors.WrapTransient(err, "Session", "RequestMore", "send poll command")
	}
	return nil
}

// Receive performs one read of whatever is available, waiting at most Timeout.
// A closed peer is reported as ErrConnectionLost and a quiet one as
// ErrConnectionTimeout.
func (s *Session) Receive(buf []byte) (int, error) {
	conn := s.current()
	if conn == nil {
		return 0, errors.WrapTransient(errors.ErrNoConnection, "Session", "Receive", "connection check")
	}

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		return 0, errors.WrapTransient(err, "Session", "Receive", "set read deadline")
	}

	n, err := conn.Read(buf)
	if n > 0 {
		return n, nil
	}
	switch {
	case err == nil, stderrors.Is(err, io.EOF):
		return 0, errors.WrapTransient(errors.ErrConnectionLost, "Session", "Receive", "read")
	case isTimeout(err):
		return 0, errors.WrapTransient(errors.ErrConnectionTimeout, "Session", "Receive", "read")
	default:
		return 0, errors.WrapTransient(err, "Session", "Receive", "read")
	}
}

// Close drops the current connection. Safe to call when not connected.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.id = ""
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return errors.WrapTransient(err, "Session", "Close", "close connection")
	}
	return nil
}

// ID returns the identifier of the current connection, empty when disconnected.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Connected reports whether a connection is established.
func (s *Session) Connected() bool {
	return s.current() != nil
}

func (s *Session) current() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Session) writeAll(conn net.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		return err
	}
	n, err := conn.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: wrote %d of %d bytes", errors.ErrShortWrite, n, len(data))
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
