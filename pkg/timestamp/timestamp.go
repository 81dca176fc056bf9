// Package timestamp provides Unix timestamp handling in microseconds.
//
// Telemetry records carry int64 microseconds since the Unix epoch (UTC) and
// this package is the single place that converts them to time.Time, renders
// them for log lines and parses them from configuration.
//
// Usage Examples:
//
//	// Current time
//	now := timestamp.Now()
//
//	// Convert to time.Time
//	t := timestamp.FromMicros(us)
//
//	// Render for a persisted line ("2024-05-01 12:00:00")
//	display := timestamp.Format(us)
//
//	// Parse configuration values
//	us := timestamp.Parse("2020-01-01T00:00:00Z")
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// DisplayLayout is the layout of timestamps in persisted lines.
const DisplayLayout = "2006-01-02 15:04:05"

const microsPerSecond = int64(time.Second / time.Microsecond)

// Now returns the current time as Unix microseconds.
func Now() int64 {
	return time.Now().UnixMicro()
}

// ToMicros converts a time.Time to Unix microseconds.
// Returns 0 for the zero time.
func ToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// FromMicros converts Unix microseconds to a UTC time.Time.
func FromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// Seconds floors a microsecond timestamp to whole seconds.
func Seconds(us int64) int64 {
	s := us / microsPerSecond
	if us%microsPerSecond < 0 {
		s--
	}
	return s
}

// Format renders microseconds as "YYYY-MM-DD HH:MM:SS" in UTC.
// Sub-second precision is dropped, not rounded.
func Format(us int64) string {
	return time.Unix(Seconds(us), 0).UTC().Format(DisplayLayout)
}

// FormatRFC3339 renders microseconds as RFC3339 for logs.
// Returns empty string if timestamp is 0.
func FormatRFC3339(us int64) string {
	if us == 0 {
		return ""
	}
	return FromMicros(us).Format(time.RFC3339Nano)
}

// Parse converts configuration values to Unix microseconds.
// Supports:
//   - int64 / int (taken as microseconds)
//   - float64 (taken as microseconds, truncated)
//   - string (RFC3339, "YYYY-MM-DD HH:MM:SS" in UTC, or an integer string)
//   - time.Time
//
// Returns an error for unsupported types or unparseable strings.
func Parse(input any) (int64, error) {
	switch v := input.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case time.Time:
		return ToMicros(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ToMicros(t), nil
		}
		if t, err := time.ParseInLocation(DisplayLayout, v, time.UTC); err == nil {
			return ToMicros(t), nil
		}
		if us, err := strconv.ParseInt(v, 10, 64); err == nil {
			return us, nil
		}
		return 0, fmt.Errorf("unrecognized timestamp %q", v)
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", input)
	}
}

// InRange reports whether us lies within [minUs, maxUs], both inclusive.
func InRange(us, minUs, maxUs int64) bool {
	return us >= minUs && us <= maxUs
}
