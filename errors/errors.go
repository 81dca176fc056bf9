package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass tells a caller what to do with an error.
type ErrorClass int

const (
	// ErrorTransient errors go away on their own: reconnect or retry.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid errors come from bad input: drop the input and continue.
	ErrorInvalid
	// ErrorFatal errors stop the component that hit them.
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Lifecycle
var (
	ErrAlreadyStarted = errors.New("component already started")
	ErrAlreadyStopped = errors.New("component already stopped")
)

// Source connections
var (
	ErrNoConnection      = errors.New("no connection available")
	ErrConnectionLost    = errors.New("connection lost")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrShortWrite        = errors.New("short write")
)

// Record data
var (
	ErrInvalidData    = errors.New("invalid data format")
	ErrChecksumFailed = errors.New("checksum validation failed")
)

// Configuration and persistence
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
	ErrStorageFull   = errors.New("storage full")
)

var sentinelClasses = []struct {
	err   error
	class ErrorClass
}{
	{ErrConnectionTimeout, ErrorTransient},
	{ErrConnectionLost, ErrorTransient},
	{ErrNoConnection, ErrorTransient},
	{ErrShortWrite, ErrorTransient},
	{context.DeadlineExceeded, ErrorTransient},
	{context.Canceled, ErrorTransient},
	{ErrInvalidData, ErrorInvalid},
	{ErrChecksumFailed, ErrorInvalid},
	{ErrInvalidConfig, ErrorFatal},
	{ErrMissingConfig, ErrorFatal},
	{ErrStorageFull, ErrorFatal},
}

// Substrings of unclassified errors, typically from net and os.
var (
	transientPatterns = []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
		"refused",
		"reset by peer",
		"broken pipe",
	}
	fatalPatterns = []string{
		"fatal",
		"panic",
		"permission denied",
		"read-only file system",
		"disk full",
		"no space left",
	}
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// lookup resolves the class of err from, in order, an explicit
// ClassifiedError, a known sentinel in the chain, or a message pattern.
func lookup(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}

	for _, sc := range sentinelClasses {
		if errors.Is(err, sc.err) {
			return sc.class, true
		}
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, transientPatterns) {
		return ErrorTransient, true
	}
	if containsAny(msg, fatalPatterns) {
		return ErrorFatal, true
	}
	return ErrorTransient, false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func is(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	c, ok := lookup(err)
	return ok && c == class
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool { return is(err, ErrorTransient) }

// IsFatal reports whether err should stop processing.
func IsFatal(err error) bool { return is(err, ErrorFatal) }

// IsInvalid reports whether err was caused by bad input.
func IsInvalid(err error) bool { return is(err, ErrorInvalid) }

// Classify returns the class of err. Unrecognised errors, and nil, are
// treated as transient so callers keep going.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	c, _ := lookup(err)
	return c
}

// Wrap adds context in the form "component.method: action failed: err".
// The class of err, if any, is preserved.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps err with context and marks it transient.
func WrapTransient(err error, component, method, action string) error {
	return wrapClassified(ErrorTransient, err, component, method, action)
}

// WrapInvalid wraps err with context and marks it invalid.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClassified(ErrorInvalid, err, component, method, action)
}

// WrapFatal wraps err with context and marks it fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapClassified(ErrorFatal, err, component, method, action)
}

func wrapClassified(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}
