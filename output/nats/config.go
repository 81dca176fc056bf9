package nats

import (
	"fmt"
	"strings"

	"github.com/c360/sensorstreams/errors"
)

// Payload formats
const (
	FormatLine = "line"
	FormatJSON = "json"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "sensors"

// Config configures the NATS mirror.
type Config struct {
	// SubjectPrefix is prepended to the source id: "<prefix>.<source>".
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`

	// Format is "line" (the persisted text) or "json".
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the mirror defaults.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix: DefaultSubjectPrefix,
		Format:        FormatLine,
	}
}

func (c Config) withDefaults() Config {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Format == "" {
		c.Format = FormatLine
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.ContainsAny(c.SubjectPrefix, "*> \t") {
		return errors.WrapInvalid(
			fmt.Errorf("%w: subject prefix %q contains wildcards or whitespace", errors.ErrInvalidConfig, c.SubjectPrefix),
			"Config", "Validate", "subject prefix")
	}
	if strings.HasPrefix(c.SubjectPrefix, ".") || strings.HasSuffix(c.SubjectPrefix, ".") {
		return errors.WrapInvalid(
			fmt.Errorf("%w: subject prefix %q has an empty token", errors.ErrInvalidConfig, c.SubjectPrefix),
			"Config", "Validate", "subject prefix")
	}
	switch c.Format {
	case FormatLine, FormatJSON:
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown format %q", errors.ErrInvalidConfig, c.Format),
			"Config", "Validate", "format")
	}
	return nil
}
