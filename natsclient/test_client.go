package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultTestImage   = "nats:2.11.7-alpine"
	natsClientPort     = "4222/tcp"
	natsMonitoringPort = "8222/tcp"
)

// TestClient pairs a throwaway NATS server container with a connected
// Client. Both are torn down by the test's cleanup.
type TestClient struct {
	Client *Client
	URL    string
}

type testServerConfig struct {
	image          string
	connectTimeout time.Duration
	startTimeout   time.Duration
}

// TestOption configures NewTestClient.
type TestOption func(*testServerConfig)

// WithNATSVersion selects the nats image tag, for example "2.10-alpine".
func WithNATSVersion(version string) TestOption {
	return func(cfg *testServerConfig) { cfg.image = "nats:" + version }
}

// WithTestTimeout bounds the client connect.
func WithTestTimeout(d time.Duration) TestOption {
	return func(cfg *testServerConfig) { cfg.connectTimeout = d }
}

// WithStartTimeout bounds container startup.
func WithStartTimeout(d time.Duration) TestOption {
	return func(cfg *testServerConfig) { cfg.startTimeout = d }
}

// NewTestClient starts a NATS container and connects a Client to it with
// reconnects disabled, so a broken server fails the test quickly.
func NewTestClient(tb testing.TB, opts ...TestOption) *TestClient {
	tb.Helper()

	cfg := testServerConfig{
		image:          defaultTestImage,
		connectTimeout: 5 * time.Second,
		startTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()
	url, err := startNATSContainer(ctx, tb, cfg)
	if err != nil {
		tb.Fatalf("start NATS container: %v", err)
	}

	client, err := NewClient(url, WithTimeout(cfg.connectTimeout), WithMaxReconnects(0), WithName(tb.Name()))
	if err != nil {
		tb.Fatalf("create NATS client: %v", err)
	}
	tb.Cleanup(func() { _ = client.Close(context.Background()) })

	connectCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		tb.Fatalf("connect to %s: %v", url, err)
	}

	return &TestClient{Client: client, URL: url}
}

func startNATSContainer(ctx context.Context, tb testing.TB, cfg testServerConfig) (string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.image,
			ExposedPorts: []string{natsClientPort, natsMonitoringPort},
			Cmd:          []string{"--port", "4222", "--http_port", "8222"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(natsClientPort),
				wait.ForHTTP("/healthz").WithPort(natsMonitoringPort),
			).WithDeadline(cfg.startTimeout),
		},
		Started: true,
	})
	if container != nil {
		tb.Cleanup(func() { _ = container.Terminate(context.Background()) })
	}
	if err != nil {
		return "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, natsClientPort)
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}
	return fmt.Sprintf("nats://%s:%s", host, port.Port()), nil
}

// Subscriber opens an independent raw connection for observing what the
// Client publishes.
func (tc *TestClient) Subscriber(tb testing.TB) *gonats.Conn {
	tb.Helper()
	conn, err := gonats.Connect(tc.URL, gonats.Name(tb.Name()+"-subscriber"))
	if err != nil {
		tb.Fatalf("open subscriber connection: %v", err)
	}
	tb.Cleanup(conn.Close)
	return conn
}
