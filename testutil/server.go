package testutil

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Server is a loopback telemetry source. It expects the credential once per
// connection, optionally sends stale bytes right after it, and answers every
// poll command with the next queued chunk. Queued drop markers close the
// connection instead of answering.
type Server struct {
	ln          net.Listener
	credential  string
	pollCommand string
	stale       []byte

	mu          sync.Mutex
	queue       []reply
	conns       map[net.Conn]struct{}
	credentials []string
	closed      bool

	accepted atomic.Int64
	polls    atomic.Int64
	wg       sync.WaitGroup
}

type reply struct {
	data []byte
	drop bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCredential sets the credential the server reads after accept.
func WithCredential(credential string) ServerOption {
	return func(s *Server) {
		s.credential = credential
	}
}

// WithPollCommand sets the poll command the server expects.
func WithPollCommand(cmd string) ServerOption {
	return func(s *Server) {
		s.pollCommand = cmd
	}
}

// WithStale makes the server send data immediately after authentication.
func WithStale(data []byte) ServerOption {
	return func(s *Server) {
		s.stale = data
	}
}

// NewServer starts a Server on 127.0.0.1 and registers cleanup with tb.
func NewServer(tb testing.TB, opts ...ServerOption) *Server {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}

	s := &Server{
		ln:          ln,
		credential:  "isu_pt",
		pollCommand: "get",
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.acceptLoop()

	tb.Cleanup(s.Close)
	return s
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Enqueue queues chunks answered one per poll.
func (s *Server) Enqueue(chunks ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.queue = append(s.queue, reply{data: c})
	}
}

// EnqueueDrop queues a marker that closes the connection on the next poll.
func (s *Server) EnqueueDrop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, reply{drop: true})
}

// Pending returns the number of queued replies not yet served.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// DropConnections closes every open client connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Accepted returns the number of accepted connections.
func (s *Server) Accepted() int {
	return int(s.accepted.Load())
}

// Polls returns the number of poll commands received.
func (s *Server) Polls() int {
	return int(s.polls.Load())
}

// Credentials returns every credential received, in order.
func (s *Server) Credentials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.credentials))
	copy(out, s.credentials)
	return out
}

// Close stops the listener and closes all connections.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ln.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.accepted.Add(1)
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	cred := make([]byte, len(s.credential))
	if _, err := io.ReadFull(conn, cred); err != nil {
		return
	}
	s.mu.Lock()
	s.credentials = append(s.credentials, string(cred))
	s.mu.Unlock()

	if len(s.stale) > 0 {
		if _, err := conn.Write(s.stale); err != nil {
			return
		}
	}

	cmd := make([]byte, len(s.pollCommand))
	for {
		if _, err := io.ReadFull(conn, cmd); err != nil {
			return
		}
		s.polls.Add(1)

		r, ok := s.next()
		if !ok {
			continue
		}
		if r.drop {
			return
		}
		if _, err := conn.Write(r.data); err != nil {
			return
		}
	}
}

func (s *Server) next() (reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return reply{}, false
	}
	r := s.queue[0]
	s.queue = s.queue[1:]
	return r, true
}

// Eventually polls cond every 10ms until it holds or timeout elapses.
func Eventually(tb testing.TB, timeout time.Duration, cond func() bool, msg string) {
	tb.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	tb.Fatalf("condition not met within %v: %s", timeout, msg)
}
