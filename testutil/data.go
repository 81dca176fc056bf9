package testutil

import (
	"testing"

	"github.com/c360/sensorstreams/record"
)

// ValidTimestamp is 2023-11-14 22:13:20 UTC, inside the default validity window.
const ValidTimestamp = int64(1700000000000000)

// GarbagePrefix is line noise. Every byte has its high bit set, so a window
// starting inside it decodes a negative timestamp and is always rejected.
var GarbagePrefix = []byte{0xAA, 0xBB, 0xCC}

// ClimateFrame encodes a Climate record with a correct checksum.
func ClimateFrame(tb testing.TB, ts int64, temperature float32, pressure int16) []byte {
	tb.Helper()
	return mustEncode(tb, record.Climate, record.Record{
		Timestamp: ts,
		Fields:    record.ClimateFields{Temperature: temperature, Pressure: pressure},
	})
}

// MotionFrame encodes a Motion record with a correct checksum.
func MotionFrame(tb testing.TB, ts int64, x, y, z int32) []byte {
	tb.Helper()
	return mustEncode(tb, record.Motion, record.Record{
		Timestamp: ts,
		Fields:    record.MotionFields{X: x, Y: y, Z: z},
	})
}

// CorruptChecksum returns a copy of frame with its checksum byte altered.
func CorruptChecksum(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-1]++
	return out
}

// Concat joins byte slices into one stream.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Split cuts data into chunks of at most size bytes.
func Split(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	return chunks
}

func mustEncode(tb testing.TB, schema *record.Schema, rec record.Record) []byte {
	tb.Helper()
	frame, err := schema.Encode(rec)
	if err != nil {
		tb.Fatalf("encode %s frame: %v", schema.Name, err)
	}
	return frame
}
