package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/c360/sensorstreams/errors"
)

// Defaults for a telemetry source session.
const (
	DefaultCredential  = "isu_pt"
	DefaultPollCommand = "get"
	DefaultTimeout     = 5 * time.Second
	DefaultSettleDelay = 200 * time.Millisecond
	DefaultFlushWindow = 10 * time.Millisecond
)

// Config holds connection parameters for one source.
type Config struct {
	// Address is the host:port of the source.
	Address string `json:"address" yaml:"address"`
	// Credential is sent as raw bytes right after connect. No reply is expected.
	Credential string `json:"credential" yaml:"credential"`
	// PollCommand is sent before every receive.
	PollCommand string `json:"poll_command" yaml:"poll_command"`
	// Timeout bounds dial, every write and every read.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// SettleDelay is slept after the credential is sent.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`
	// FlushWindow is the read deadline used while draining stale bytes.
	FlushWindow time.Duration `json:"flush_window" yaml:"flush_window"`
}

// DefaultConfig returns the session defaults for address.
func DefaultConfig(address string) Config {
	return Config{
		Address:     address,
		Credential:  DefaultCredential,
		PollCommand: DefaultPollCommand,
		Timeout:     DefaultTimeout,
		SettleDelay: DefaultSettleDelay,
		FlushWindow: DefaultFlushWindow,
	}
}

// withDefaults fills zero values. A negative SettleDelay disables the settle sleep.
func (c Config) withDefaults() Config {
	if c.Credential == "" {
		c.Credential = DefaultCredential
	}
	if c.PollCommand == "" {
		c.PollCommand = DefaultPollCommand
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.FlushWindow == 0 {
		c.FlushWindow = DefaultFlushWindow
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "address check")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "address parsing")
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(fmt.Errorf("negative timeout %v", c.Timeout),
			"Config", "Validate", "timeout check")
	}
	if c.FlushWindow < 0 {
		return errors.WrapInvalid(fmt.Errorf("negative flush window %v", c.FlushWindow),
			"Config", "Validate", "flush window check")
	}
	return nil
}
