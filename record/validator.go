package record

import (
	"errors"
	"fmt"

	pkgerrors "github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/pkg/timestamp"
)

const (
	// DefaultMinTimestamp is 2020-01-01T00:00:00Z in microseconds.
	DefaultMinTimestamp int64 = 1577836800000000
	// DefaultMaxTimestamp is 2030-01-01T00:00:00Z in microseconds.
	DefaultMaxTimestamp int64 = 1893456000000000
)

// Rejection reasons besides a checksum mismatch.
var (
	ErrTimestampOutOfRange = fmt.Errorf("timestamp out of range: %w", pkgerrors.ErrInvalidData)
	ErrValueOutOfRange     = fmt.Errorf("value out of physical range: %w", pkgerrors.ErrInvalidData)
)

// Verdict is the outcome of validating one window.
type Verdict int

const (
	// Insufficient means the window is shorter than the schema size.
	Insufficient Verdict = iota
	// Accepted means the window holds a trusted record.
	Accepted
	// Rejected means the window failed a check.
	Rejected
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Insufficient:
		return "insufficient"
	default:
		return "unknown"
	}
}

// Result of a single validation.
type Result struct {
	Verdict Verdict
	Record  Record
	// Reason is set for Rejected results. It is informational only.
	Reason error
}

// Validator decides whether a window at the front of a byte stream is a real record.
// It is safe for concurrent use once constructed.
type Validator struct {
	schema *Schema
	minTS  int64
	maxTS  int64
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimestampRange overrides the accepted timestamp window (inclusive, microseconds).
func WithTimestampRange(minUs, maxUs int64) Option {
	return func(v *Validator) {
		v.minTS = minUs
		v.maxTS = maxUs
	}
}

// NewValidator creates a validator for schema.
func NewValidator(schema *Schema, opts ...Option) *Validator {
	v := &Validator{
		schema: schema,
		minTS:  DefaultMinTimestamp,
		maxTS:  DefaultMaxTimestamp,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Schema returns the schema this validator checks.
func (v *Validator) Schema() *Schema {
	return v.schema
}

// Validate inspects the first Size bytes of window. Checks short-circuit in
// order: checksum, timestamp range, physical bounds.
func (v *Validator) Validate(window []byte) Result {
	size := v.schema.Size
	if len(window) < size {
		return Result{Verdict: Insufficient}
	}
	w := window[:size]

	if Checksum(w[:size-1]) != w[size-1] {
		return Result{Verdict: Rejected, Reason: pkgerrors.ErrChecksumFailed}
	}

	rec := v.schema.Decode(w)
	if !timestamp.InRange(rec.Timestamp, v.minTS, v.maxTS) {
		return Result{
			Verdict: Rejected,
			Reason:  fmt.Errorf("%d: %w", rec.Timestamp, ErrTimestampOutOfRange),
		}
	}

	if err := v.schema.check(rec.Fields); err != nil {
		return Result{Verdict: Rejected, Reason: err}
	}

	return Result{Verdict: Accepted, Record: rec}
}

// ReasonLabel maps a rejection reason to a short metric label.
func ReasonLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, pkgerrors.ErrChecksumFailed):
		return "checksum"
	case errors.Is(err, ErrTimestampOutOfRange):
		return "timestamp"
	case errors.Is(err, ErrValueOutOfRange):
		return "bounds"
	default:
		return "other"
	}
}
