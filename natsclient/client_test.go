package natsclient

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstreams/errors"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewClient_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  ClientOption
	}{
		{"zero threshold", WithCircuitBreakerThreshold(0)},
		{"tiny max backoff", WithMaxBackoff(time.Millisecond)},
		{"max reconnects below -1", WithMaxReconnects(-2)},
		{"negative reconnect wait", WithReconnectWait(-time.Second)},
		{"zero timeout", WithTimeout(0)},
		{"negative drain timeout", WithDrainTimeout(-time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient("nats://localhost:4222", tt.opt)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client, err := NewClient("nats://invalid:4222")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		client.recordFailure()
	}
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(5), client.Failures())
}

func TestCircuitBreaker_CustomThreshold(t *testing.T) {
	client, err := NewClient("nats://invalid:4222", WithCircuitBreakerThreshold(2))
	require.NoError(t, err)

	client.recordFailure()
	assert.NotEqual(t, StatusCircuitOpen, client.Status())
	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, StatusCircuitOpen, client.Status())

	client.resetCircuit()
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, time.Second, client.Backoff())
	assert.NotEqual(t, StatusCircuitOpen, client.Status())
}

func TestCircuitBreaker_ExponentialBackoff(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithMaxBackoff(10*time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 2*time.Second, client.Backoff())

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 4*time.Second, client.Backoff())

	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			client.recordFailure()
		}
	}
	assert.Equal(t, 10*time.Second, client.Backoff())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	client.setStatus(StatusCircuitOpen)
	client.halfOpen()
	assert.Equal(t, StatusDisconnected, client.Status())

	client.setStatus(StatusConnected)
	client.halfOpen()
	assert.Equal(t, StatusConnected, client.Status(), "half-open only leaves the open state")
}

func TestConnect_FailsFastWhenCircuitOpen(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	client.setStatus(StatusCircuitOpen)
	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestConnect_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, err := NewClient("nats://"+addr,
		WithTimeout(200*time.Millisecond),
		WithMaxReconnects(0),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Equal(t, int32(1), client.Failures())
}

func TestConnect_AfterClose(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, client.Close(context.Background()))
	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusCircuitOpen, "circuit_open"},
		{ConnectionStatus(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestIsHealthy(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for _, status := range []ConnectionStatus{StatusDisconnected, StatusConnecting, StatusReconnecting, StatusCircuitOpen} {
		client.setStatus(status)
		assert.False(t, client.IsHealthy(), status.String())
	}

	client.setStatus(StatusConnected)
	assert.True(t, client.IsHealthy())
}

func TestWaitForConnection(t *testing.T) {
	t.Run("already connected", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)
		client.setStatus(StatusConnected)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		assert.NoError(t, client.WaitForConnection(ctx))
	})

	t.Run("becomes connected", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)

		go func() {
			time.Sleep(30 * time.Millisecond)
			client.setStatus(StatusConnected)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, client.WaitForConnection(ctx))
	})

	t.Run("timeout", func(t *testing.T) {
		client, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err = client.WaitForConnection(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNotConnectedOperations(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, client.Publish(ctx, "sensors.5123", []byte("line")), ErrNotConnected)
	assert.ErrorIs(t, client.Subscribe(ctx, "sensors.>", func(context.Context, []byte) {}), ErrNotConnected)
	assert.ErrorIs(t, client.Flush(ctx), ErrNotConnected)

	_, err = client.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPublish_DoneContext(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = client.Publish(ctx, "sensors.5123", []byte("line"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNotConnected)
}

func TestClose_Idempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithCredentials("user", "secret"), WithToken("tok"))
	require.NoError(t, err)

	require.NoError(t, client.Close(context.Background()))
	require.NoError(t, client.Close(context.Background()))
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Empty(t, client.password)
	assert.Empty(t, client.token)
}

func TestConnectionOptions(t *testing.T) {
	plain, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	named, err := NewClient("nats://localhost:4222",
		WithName("sensorstreams"),
		WithCredentials("user", "pass"),
		WithToken("tok"),
	)
	require.NoError(t, err)

	assert.Len(t, named.ConnectionOptions(), len(plain.ConnectionOptions())+3)
}

func TestCallbacks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	client, err := NewClient("nats://localhost:4222",
		WithDisconnectCallback(func(error) { record("disconnect") }),
		WithReconnectCallback(func() { record("reconnect") }),
		WithHealthChangeCallback(func(healthy bool) {
			if healthy {
				record("healthy")
			} else {
				record("unhealthy")
			}
		}),
	)
	require.NoError(t, err)

	client.handleDisconnect(nil, assert.AnError)
	assert.Equal(t, StatusReconnecting, client.Status())

	client.handleReconnect(nil)
	assert.Equal(t, StatusConnected, client.Status())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 4
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"disconnect", "unhealthy", "reconnect", "healthy"}, events)
}

func TestConcurrentSafety(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithMaxBackoff(2*time.Second))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				client.recordFailure()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = client.Status()
				_ = client.IsHealthy()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				client.resetCircuit()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, client.Backoff(), 2*time.Second)
}
