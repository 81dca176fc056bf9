// Package errors provides standardized error handling patterns for sensorstreams components.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input, skip and continue) and Fatal (unrecoverable, stop the component).
// Ingest workers retry transient failures by reconnecting, the framer treats
// invalid windows as a reason to advance by one byte, and the persistence sink
// reports fatal failures to the collector.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions attach a class while wrapping:
//
//	errors.WrapTransient(err, "Session", "Connect", "dial")
//	errors.WrapInvalid(err, "Validator", "Validate", "checksum")
//	errors.WrapFatal(err, "Sink", "Start", "open output file")
//
// The generic Wrap() keeps whatever class the wrapped error already has.
//
// # Classification
//
// Classification looks at ClassifiedError first, then at the standard error
// variables, then at common message patterns ("connection refused",
// "broken pipe", "permission denied", "no space left"):
//
//	if errors.IsTransient(err) {
//	    // reconnect after the configured delay
//	} else if errors.IsFatal(err) {
//	    // give up and surface the error
//	}
//
// All helpers work through errors.Is and errors.As, so wrapped chains keep
// their classification.
package errors
