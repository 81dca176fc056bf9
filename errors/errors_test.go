package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		invalid   bool
		fatal     bool
	}{
		{name: "nil"},
		{name: "read timeout", err: ErrConnectionTimeout, transient: true},
		{name: "peer closed", err: ErrConnectionLost, transient: true},
		{name: "not connected", err: ErrNoConnection, transient: true},
		{name: "short poll write", err: fmt.Errorf("%w: wrote 1 of 3 bytes", ErrShortWrite), transient: true},
		{name: "deadline", err: context.DeadlineExceeded, transient: true},
		{name: "cancelled", err: context.Canceled, transient: true},
		{name: "dial refused", err: fmt.Errorf("dial tcp 127.0.0.1:5123: connect: connection refused"), transient: true},
		{name: "i/o timeout", err: fmt.Errorf("read tcp: i/o timeout"), transient: true},
		{name: "broken pipe", err: fmt.Errorf("write: broken pipe"), transient: true},
		{name: "bad checksum", err: ErrChecksumFailed, invalid: true},
		{name: "wrapped checksum", err: fmt.Errorf("window at 3: %w", ErrChecksumFailed), invalid: true},
		{name: "bad data", err: ErrInvalidData, invalid: true},
		{name: "bad config", err: ErrInvalidConfig, fatal: true},
		{name: "missing config", err: ErrMissingConfig, fatal: true},
		{name: "disk full", err: ErrStorageFull, fatal: true},
		{name: "open denied", err: fmt.Errorf("open /var/lib/sensor_data.txt: permission denied"), fatal: true},
		{name: "no space", err: fmt.Errorf("write sensor_data.txt: no space left on device"), fatal: true},
		{name: "unrecognised", err: fmt.Errorf("something odd")},
		{name: "classified wins over sentinel", err: &ClassifiedError{Class: ErrorInvalid, Err: ErrConnectionLost}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err), "IsTransient")
			assert.Equal(t, tt.invalid, IsInvalid(tt.err), "IsInvalid")
			assert.Equal(t, tt.fatal, IsFatal(tt.err), "IsFatal")
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil defaults to transient", nil, ErrorTransient},
		{"unrecognised defaults to transient", fmt.Errorf("something odd"), ErrorTransient},
		{"timeout", ErrConnectionTimeout, ErrorTransient},
		{"checksum", ErrChecksumFailed, ErrorInvalid},
		{"config", ErrInvalidConfig, ErrorFatal},
		{"classified", WrapFatal(fmt.Errorf("boom"), "Sink", "Start", "open"), ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "Session", "Connect", "dial"))

	err := Wrap(fmt.Errorf("reset"), "Session", "Connect", "send credential")
	require.Error(t, err)
	assert.Equal(t, "Session.Connect: send credential failed: reset", err.Error())

	// Wrap keeps the class of what it wraps.
	inner := WrapInvalid(ErrInvalidData, "Validator", "Validate", "decode")
	assert.True(t, IsInvalid(Wrap(inner, "Framer", "Step", "validate")))
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("base")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.wrap(nil, "c", "m", "a"))

			err := tt.wrap(base, "Session", "Receive", "read")

			var ce *ClassifiedError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "Session", ce.Component)
			assert.Equal(t, "Receive", ce.Operation)
			assert.Equal(t, "Session.Receive: read failed: base", err.Error())
			assert.ErrorIs(t, err, base)
			assert.Equal(t, tt.class, Classify(err))
		})
	}
}

func TestClassifiedError_MessageFallback(t *testing.T) {
	ce := &ClassifiedError{Class: ErrorTransient, Err: ErrConnectionLost}
	assert.Equal(t, ErrConnectionLost.Error(), ce.Error())
	assert.ErrorIs(t, ce, ErrConnectionLost)
}
