package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		state   string
		healthy bool
	}{
		{"healthy", NewHealthy("sink", "ok"), StateHealthy, true},
		{"degraded", NewDegraded("source.5123", "reconnecting"), StateDegraded, false},
		{"unhealthy", NewUnhealthy("sink", "open failed"), StateUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, tt.status.Status)
			assert.Equal(t, tt.healthy, tt.status.Healthy)
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
			assert.False(t, tt.status.Timestamp.IsZero())
		})
	}

	assert.True(t, NewDegraded("x", "").IsDegraded())
	assert.True(t, NewUnhealthy("x", "").IsUnhealthy())
}

func TestFromError(t *testing.T) {
	ok := FromError("sink", nil)
	assert.True(t, ok.IsHealthy())

	bad := FromError("sink", errors.New("open /var/lib/sensor_data.txt: permission denied"))
	assert.True(t, bad.IsUnhealthy())
	assert.Equal(t, "open [PATH]: permission denied", bad.Message)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		subs     []Status
		expected string
	}{
		{"empty", nil, StateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StateHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate("collector", tt.subs)
			assert.Equal(t, tt.expected, agg.Status)
			assert.Len(t, agg.SubStatuses, len(tt.subs))
		})
	}
}

func TestAggregate_DoesNotShareInput(t *testing.T) {
	subs := []Status{NewHealthy("a", "")}
	agg := Aggregate("collector", subs)

	subs[0].Message = "changed"

	require.Len(t, agg.SubStatuses, 1)
	assert.Equal(t, "", agg.SubStatuses[0].Message)
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"file path", "failed to open /srv/data/sensor_data.txt", "failed to open [PATH]"},
		{"nats url", "cannot connect to nats://localhost:4222", "cannot connect to [URL]"},
		{"ip address", "dial tcp 95.163.237.76 refused", "dial tcp [IP] refused"},
		{"port", "failed to bind to :9090", "failed to bind to [PORT]"},
		{"credential", "auth failed credential=isu_pt", "auth failed [REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeErrorMessage(tt.input))
		})
	}
}
