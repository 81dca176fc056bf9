package transport

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/testutil"
)

func testConfig(addr string) Config {
	return Config{
		Address:     addr,
		Timeout:     500 * time.Millisecond,
		SettleDelay: 20 * time.Millisecond,
		FlushWindow: 50 * time.Millisecond,
	}
}

func newTestSession(t *testing.T, cfg Config, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// readN reads from the session until n bytes arrive.
func readN(t *testing.T, s *Session, n int) []byte {
	t.Helper()
	out := make([]byte, 0, n)
	buf := make([]byte, 256)
	for len(out) < n {
		got, err := s.Receive(buf)
		require.NoError(t, err)
		out = append(out, buf[:got]...)
	}
	return out
}

func TestSession_ConnectSendsCredential(t *testing.T) {
	srv := testutil.NewServer(t)
	s := newTestSession(t, testConfig(srv.Addr()))

	require.NoError(t, s.Connect(context.Background()))

	assert.True(t, s.Connected())
	assert.NotEmpty(t, s.ID())
	testutil.Eventually(t, time.Second, func() bool {
		return len(srv.Credentials()) == 1
	}, "credential received")
	assert.Equal(t, []string{DefaultCredential}, srv.Credentials())
}

func TestSession_CustomCredentialAndPoll(t *testing.T) {
	srv := testutil.NewServer(t, testutil.WithCredential("secret"), testutil.WithPollCommand("more"))
	frame := testutil.ClimateFrame(t, testutil.ValidTimestamp, 21.5, 1013)
	srv.Enqueue(frame)

	cfg := testConfig(srv.Addr())
	cfg.Credential = "secret"
	cfg.PollCommand = "more"
	s := newTestSession(t, cfg)

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.RequestMore())

	assert.Equal(t, frame, readN(t, s, len(frame)))
	assert.Equal(t, []string{"secret"}, srv.Credentials())
	assert.Equal(t, 1, srv.Polls())
}

func TestSession_ConnectDiscardsStaleBytes(t *testing.T) {
	stale := testutil.Concat(testutil.GarbagePrefix, testutil.GarbagePrefix)
	srv := testutil.NewServer(t, testutil.WithStale(stale))
	frame := testutil.MotionFrame(t, testutil.ValidTimestamp, 10, -20, 30)
	srv.Enqueue(frame)

	s := newTestSession(t, testConfig(srv.Addr()))
	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.RequestMore())

	assert.Equal(t, frame, readN(t, s, len(frame)), "stale bytes never reach the caller")
}

func TestSession_ReceiveTimeout(t *testing.T) {
	srv := testutil.NewServer(t)
	cfg := testConfig(srv.Addr())
	cfg.Timeout = 100 * time.Millisecond
	s := newTestSession(t, cfg)
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.RequestMore())
	n, err := s.Receive(make([]byte, 64))

	assert.Zero(t, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConnectionTimeout)
	assert.True(t, errors.IsTransient(err))
}

func TestSession_ReceiveConnectionLost(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.EnqueueDrop()
	s := newTestSession(t, testConfig(srv.Addr()))
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.RequestMore())
	n, err := s.Receive(make([]byte, 64))

	assert.Zero(t, n)
	assert.ErrorIs(t, err, errors.ErrConnectionLost)
	assert.True(t, errors.IsTransient(err))
}

func TestSession_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := newTestSession(t, testConfig(addr))
	err = s.Connect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.False(t, s.Connected())
	assert.Empty(t, s.ID())
}

func TestSession_NotConnected(t *testing.T) {
	s := newTestSession(t, testConfig("127.0.0.1:1"))

	assert.ErrorIs(t, s.RequestMore(), errors.ErrNoConnection)
	_, err := s.Receive(make([]byte, 8))
	assert.ErrorIs(t, err, errors.ErrNoConnection)
	assert.NoError(t, s.Close())
}

func TestSession_ReconnectReplacesConnection(t *testing.T) {
	srv := testutil.NewServer(t)
	s := newTestSession(t, testConfig(srv.Addr()))

	require.NoError(t, s.Connect(context.Background()))
	first := s.ID()
	require.NoError(t, s.Connect(context.Background()))
	second := s.ID()

	assert.NotEqual(t, first, second)
	testutil.Eventually(t, time.Second, func() bool {
		return srv.Accepted() == 2
	}, "second connection accepted")
	testutil.Eventually(t, time.Second, func() bool {
		return len(srv.Credentials()) == 2
	}, "credential sent on every connect")
}

func TestSession_ConnectCancelledDuringSettle(t *testing.T) {
	srv := testutil.NewServer(t)
	cfg := testConfig(srv.Addr())
	cfg.SettleDelay = 5 * time.Second
	s := newTestSession(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := s.Connect(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, s.Connected())
}

func TestSession_WithDialer(t *testing.T) {
	srv := testutil.NewServer(t)
	var dials atomic.Int32
	dialer := DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		dials.Add(1)
		var d net.Dialer
		return d.DialContext(ctx, network, address)
	})

	s := newTestSession(t, testConfig(srv.Addr()), WithDialer(dialer))
	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, int32(1), dials.Load())
}

func TestConfig_Defaults(t *testing.T) {
	s, err := NewSession(Config{Address: "127.0.0.1:5123"})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig("127.0.0.1:5123"), s.Config())
}

func TestConfig_NegativeSettleDisablesSleep(t *testing.T) {
	cfg := Config{Address: "127.0.0.1:5123", SettleDelay: -1}.withDefaults()
	assert.Zero(t, cfg.SettleDelay)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", DefaultConfig("95.163.237.76:5123"), false},
		{"missing address", Config{Timeout: time.Second}, true},
		{"address without port", Config{Address: "localhost", Timeout: time.Second}, true},
		{"negative timeout", Config{Address: "localhost:1", Timeout: -time.Second}, true},
		{"negative flush window", Config{Address: "localhost:1", FlushWindow: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
