// Package framer recovers fixed-size records from an unframed byte stream.
//
// A Framer owns the bytes received from one source that have not yet been
// consumed. Each Step evaluates the window at the front of those bytes: an
// accepted window consumes a whole record, a rejected window consumes exactly
// one byte, and a short window consumes nothing. Sliding one byte at a time
// guarantees that a valid record anywhere in the stream is eventually found
// and aligned.
//
// Pathological noise is bounded by a ceiling. Once a ceiling's worth of bytes
// has been rejected without a record being accepted, the accumulator is
// cleared entirely. Callers keep the accumulator itself under the ceiling by
// appending chunks no larger than the ceiling minus one record.
//
// A Framer is not safe for concurrent use; each ingest worker owns one.
package framer

import (
	"fmt"
	"log/slog"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/record"
)

// DefaultCeiling bounds the pending bytes per source.
const DefaultCeiling = 64 * 1024

// Stats counts framer activity since construction.
type Stats struct {
	Accepted       uint64
	Rejected       uint64
	DiscardedBytes uint64
	Overflows      uint64
}

// Framer slides a validator over a byte accumulator.
type Framer struct {
	validator *record.Validator
	size      int
	ceiling   int
	onReject  func(error)
	logger    *slog.Logger

	buf   []byte
	off   int
	noise int // bytes rejected since the last accepted record

	stats Stats
}

// Option configures a Framer.
type Option func(*Framer)

// WithCeiling sets how many bytes may be rejected in a row before the
// accumulator is cleared.
func WithCeiling(n int) Option {
	return func(f *Framer) {
		f.ceiling = n
	}
}

// WithRejectHook registers a callback invoked with the reason of every rejected window.
func WithRejectHook(fn func(reason error)) Option {
	return func(f *Framer) {
		f.onReject = fn
	}
}

// WithLogger sets the logger used for overflow diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Framer) {
		f.logger = logger
	}
}

// New creates a Framer for the validator's schema.
func New(validator *record.Validator, opts ...Option) (*Framer, error) {
	if validator == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Framer", "New", "validator required")
	}

	f := &Framer{
		validator: validator,
		size:      validator.Schema().Size,
		ceiling:   DefaultCeiling,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.ceiling < f.size {
		return nil, errors.WrapInvalid(
			fmt.Errorf("ceiling %d smaller than record size %d: %w", f.ceiling, f.size, errors.ErrInvalidConfig),
			"Framer", "New", "validate ceiling")
	}
	if f.logger == nil {
		f.logger = slog.Default().With("component", "framer", "schema", validator.Schema().Name)
	}

	f.buf = make([]byte, 0, min(f.ceiling, 4*1024))
	return f, nil
}

// Append adds received bytes to the end of the accumulator.
func (f *Framer) Append(chunk []byte) {
	f.compact()
	f.buf = append(f.buf, chunk...)
}

// Step evaluates the window at the front of the accumulator and consumes
// Size bytes on acceptance, one byte on rejection, nothing when short.
func (f *Framer) Step() record.Result {
	res := f.validator.Validate(f.buf[f.off:])
	switch res.Verdict {
	case record.Accepted:
		f.off += f.size
		f.noise = 0
		f.stats.Accepted++
	case record.Rejected:
		f.off++
		f.noise++
		f.stats.Rejected++
		f.stats.DiscardedBytes++
		if f.onReject != nil {
			f.onReject(res.Reason)
		}
		if f.noise >= f.ceiling {
			f.overflow()
		}
	}

	if f.off == len(f.buf) {
		f.buf = f.buf[:0]
		f.off = 0
	}
	return res
}

// Next steps until a record is accepted or the accumulator runs short.
func (f *Framer) Next() (record.Record, bool) {
	for {
		res := f.Step()
		switch res.Verdict {
		case record.Accepted:
			return res.Record, true
		case record.Insufficient:
			return record.Record{}, false
		}
	}
}

// Len returns the number of pending bytes.
func (f *Framer) Len() int {
	return len(f.buf) - f.off
}

// Reset discards all pending bytes. Called after a reconnect.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.off = 0
	f.noise = 0
}

func (f *Framer) overflow() {
	dropped := f.Len()
	scanned := f.noise
	f.Reset()

	f.stats.Overflows++
	f.stats.DiscardedBytes += uint64(dropped)
	f.logger.Warn("No record within ceiling, accumulator cleared",
		"rejected_bytes", scanned,
		"dropped_bytes", dropped,
		"ceiling", f.ceiling)
}

// Stats returns a copy of the counters.
func (f *Framer) Stats() Stats {
	return f.stats
}

// Schema returns the schema being framed.
func (f *Framer) Schema() *record.Schema {
	return f.validator.Schema()
}

func (f *Framer) compact() {
	if f.off == 0 {
		return
	}
	n := copy(f.buf, f.buf[f.off:])
	f.buf = f.buf[:n]
	f.off = 0
}

