package nats

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/natsclient"
	"github.com/c360/sensorstreams/output/file"
	"github.com/c360/sensorstreams/record"
	"github.com/c360/sensorstreams/testutil"
)

var (
	_ file.Mirror = (*Publisher)(nil)
	_ Client      = (*natsclient.Client)(nil)
	_ Client      = (*testutil.MockNATSClient)(nil)
)

func climateMessage() record.Message {
	return record.Message{
		Source:    "5123",
		Schema:    "climate",
		Timestamp: 1700000000000000,
		Line:      "2023-11-14 22:13:20 | Source: 5123 | Temp: 21.50 | Pressure: 1013",
	}
}

func newTestPublisher(t *testing.T, cfg Config) (*Publisher, *testutil.MockNATSClient) {
	t.Helper()
	client := testutil.NewMockNATSClient()
	p, err := NewPublisher(PublisherDeps{Config: cfg, Client: client})
	require.NoError(t, err)
	return p, client
}

func TestPublisher_PublishesLine(t *testing.T) {
	p, client := newTestPublisher(t, Config{})
	msg := climateMessage()

	require.NoError(t, p.Publish(context.Background(), msg))

	got := client.GetMessages("sensors.5123")
	require.Len(t, got, 1)
	assert.Equal(t, msg.Line, string(got[0]))
	assert.Equal(t, Stats{Published: 1}, p.Stats())
}

func TestPublisher_PreservesOrderAcrossSources(t *testing.T) {
	p, client := newTestPublisher(t, Config{})
	ctx := context.Background()

	first := climateMessage()
	second := record.Message{Source: "5124", Schema: "motion", Timestamp: first.Timestamp,
		Line: "2023-11-14 22:13:20 | Source: 5124 | X: 1 | Y: 2 | Z: 3"}
	third := climateMessage()
	third.Line = "2023-11-14 22:13:21 | Source: 5123 | Temp: -3.25 | Pressure: 998"

	for _, msg := range []record.Message{first, second, third} {
		require.NoError(t, p.Publish(ctx, msg))
	}

	published := client.Published()
	require.Len(t, published, 3)
	assert.Equal(t, "sensors.5123", published[0].Subject)
	assert.Equal(t, "sensors.5124", published[1].Subject)
	assert.Equal(t, third.Line, string(published[2].Data))
}

func TestPublisher_JSONFormat(t *testing.T) {
	p, client := newTestPublisher(t, Config{SubjectPrefix: "plant.telemetry", Format: FormatJSON})
	msg := climateMessage()

	require.NoError(t, p.Publish(context.Background(), msg))

	got := client.GetMessages("plant.telemetry.5123")
	require.Len(t, got, 1)

	var payload jsonPayload
	require.NoError(t, json.Unmarshal(got[0], &payload))
	assert.Equal(t, "5123", payload.Source)
	assert.Equal(t, "climate", payload.Schema)
	assert.Equal(t, msg.Timestamp, payload.Timestamp)
	assert.Equal(t, "2023-11-14T22:13:20Z", payload.Time)
	assert.Equal(t, msg.Line, payload.Line)
}

func TestPublisher_Subject(t *testing.T) {
	p, _ := newTestPublisher(t, Config{})

	tests := []struct {
		source   string
		expected string
	}{
		{"5124", "sensors.5124"},
		{"lab.north", "sensors.lab_north"},
		{"a b", "sensors.a_b"},
		{"*", "sensors._"},
		{"", "sensors._"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Subject(tt.source))
		})
	}
}

func TestPublisher_FailuresAreCounted(t *testing.T) {
	p, client := newTestPublisher(t, Config{})
	ctx := context.Background()

	client.FailWith(stderrors.New("nats: connection closed"))
	for i := 0; i < 3; i++ {
		err := p.Publish(ctx, climateMessage())
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
	}
	assert.Equal(t, Stats{Failures: 3}, p.Stats())

	client.FailWith(nil)
	require.NoError(t, p.Publish(ctx, climateMessage()))
	assert.Equal(t, Stats{Published: 1, Failures: 3}, p.Stats())
	assert.Equal(t, 1, client.GetMessageCount("sensors.5123"))
}

func TestPublisher_CallerContextIsHonoured(t *testing.T) {
	p, client := newTestPublisher(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, climateMessage())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Stats{Failures: 1}, p.Stats())
	assert.Zero(t, client.GetMessageCount("sensors.5123"))
}

func TestNewPublisher_RequiresClient(t *testing.T) {
	_, err := NewPublisher(PublisherDeps{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"dotted prefix", Config{SubjectPrefix: "a.b", Format: FormatLine}, false},
		{"json", Config{SubjectPrefix: "s", Format: FormatJSON}, false},
		{"wildcard prefix", Config{SubjectPrefix: "sensors.*", Format: FormatLine}, true},
		{"trailing dot", Config{SubjectPrefix: "sensors.", Format: FormatLine}, true},
		{"unknown format", Config{SubjectPrefix: "s", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
