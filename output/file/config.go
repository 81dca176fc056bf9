package file

import (
	"fmt"
	"os"

	"github.com/c360/sensorstreams/errors"
)

// Defaults for the persistence sink.
const (
	DefaultPath = "sensor_data.txt"
	DefaultMode = os.FileMode(0o644)
)

// Config holds configuration for the persistence sink
type Config struct {
	// Path of the append-only output file.
	Path string `json:"path" yaml:"path"`
	// Sync calls fsync after every line.
	Sync bool `json:"sync" yaml:"sync"`
	// Mode is the permission used when the file is created.
	Mode os.FileMode `json:"mode" yaml:"mode"`
}

// DefaultConfig returns default configuration for the sink
func DefaultConfig() Config {
	return Config{
		Path: DefaultPath,
		Mode: DefaultMode,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "path is required")
	}
	if c.Mode&^os.ModePerm != 0 {
		return errors.WrapInvalid(fmt.Errorf("mode %v has non-permission bits", c.Mode),
			"Config", "Validate", "mode check")
	}
	return nil
}
