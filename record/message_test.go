package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		rec      Record
		expected string
	}{
		{
			name:   "climate",
			source: "5123",
			rec: Record{
				Schema:    "climate",
				Timestamp: 1700000000000000,
				Fields:    ClimateFields{Temperature: 21.5, Pressure: 1013},
			},
			expected: "2023-11-14 22:13:20 | Source: 5123 | Temp: 21.50 | Pressure: 1013",
		},
		{
			name:   "climate rounds to two places",
			source: "5123",
			rec: Record{
				Schema:    "climate",
				Timestamp: 1700000000999999,
				Fields:    ClimateFields{Temperature: -3.14159, Pressure: 7},
			},
			expected: "2023-11-14 22:13:20 | Source: 5123 | Temp: -3.14 | Pressure: 7",
		},
		{
			name:   "motion",
			source: "5124",
			rec: Record{
				Schema:    "motion",
				Timestamp: 1700000000000000,
				Fields:    MotionFields{X: 10, Y: -20, Z: 30},
			},
			expected: "2023-11-14 22:13:20 | Source: 5124 | X: 10 | Y: -20 | Z: 30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatLine(tt.source, tt.rec))
		})
	}
}

func TestNewMessage(t *testing.T) {
	rec := Record{
		Schema:    "motion",
		Timestamp: 1700000000000000,
		Fields:    MotionFields{X: 1, Y: 2, Z: 3},
	}

	msg := NewMessage("east", rec)

	assert.Equal(t, "east", msg.Source)
	assert.Equal(t, "motion", msg.Schema)
	assert.Equal(t, rec.Timestamp, msg.Timestamp)
	assert.Equal(t, "2023-11-14 22:13:20 | Source: east | X: 1 | Y: 2 | Z: 3", msg.Line)
}
