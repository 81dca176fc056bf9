//go:build integration

package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_ConnectToRealNATS(t *testing.T) {
	tc := NewTestClient(t)

	assert.True(t, tc.Client.IsHealthy())
	assert.Equal(t, StatusConnected, tc.Client.Status())

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	var mu sync.Mutex
	var received []string
	err := tc.Client.Subscribe(ctx, "sensors.>", func(_ context.Context, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(data))
	})
	require.NoError(t, err)
	require.NoError(t, tc.Client.Flush(ctx))

	lines := []string{
		"2023-11-14 22:13:20 | Source: 5123 | Temp: 21.50 | Pressure: 1013",
		"2023-11-14 22:13:21 | Source: 5124 | X: 1 | Y: 2 | Z: 3",
	}
	require.NoError(t, tc.Client.Publish(ctx, "sensors.5123", []byte(lines[0])))
	require.NoError(t, tc.Client.Publish(ctx, "sensors.5124", []byte(lines[1])))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, lines, received)
}

func TestIntegration_CloseDrains(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	sub := tc.Subscriber(t)
	ch := make(chan string, 10)
	_, err := sub.Subscribe("sensors.5124", func(m *gonats.Msg) { ch <- string(m.Data) })
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	require.NoError(t, tc.Client.Publish(ctx, "sensors.5124", []byte("last")))

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, tc.Client.Close(closeCtx))
	assert.Equal(t, StatusDisconnected, tc.Client.Status())

	select {
	case got := <-ch:
		assert.Equal(t, "last", got)
	case <-time.After(5 * time.Second):
		t.Fatal("message published before close was not delivered")
	}

	assert.ErrorIs(t, tc.Client.Publish(ctx, "sensors.5124", []byte("after")), ErrNotConnected)
}
