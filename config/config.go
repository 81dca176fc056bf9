package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/c360/sensorstreams/errors"
	"github.com/c360/sensorstreams/framer"
	"github.com/c360/sensorstreams/ingest"
	natsout "github.com/c360/sensorstreams/output/nats"
	"github.com/c360/sensorstreams/pkg/timestamp"
	"github.com/c360/sensorstreams/record"
	"github.com/c360/sensorstreams/transport"
)

// Defaults for the stock two-source deployment.
const (
	DefaultHost        = "95.163.237.76"
	DefaultOutputPath  = "sensor_data.txt"
	DefaultOutputMode  = "0644"
	DefaultMetricsPath = "/metrics"
)

// Config represents the complete collector configuration
type Config struct {
	Host        string           `json:"host" yaml:"host"`
	Credential  string           `json:"credential" yaml:"credential"`
	PollCommand string           `json:"poll_command" yaml:"poll_command"`
	Sources     []SourceConfig   `json:"sources" yaml:"sources"`
	Session     SessionConfig    `json:"session" yaml:"session"`
	Validation  ValidationConfig `json:"validation" yaml:"validation"`
	Output      OutputConfig     `json:"output" yaml:"output"`
	Metrics     MetricsConfig    `json:"metrics" yaml:"metrics"`
	NATS        NATSConfig       `json:"nats" yaml:"nats"`
}

// SourceConfig describes one telemetry source
type SourceConfig struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`     // defaults to the port
	Host   string `json:"host,omitempty" yaml:"host,omitempty"` // overrides Config.Host
	Port   int    `json:"port" yaml:"port"`
	Schema string `json:"schema" yaml:"schema"`
}

// SessionConfig holds connection timing shared by all sources
type SessionConfig struct {
	Timeout        Duration `json:"timeout" yaml:"timeout"`
	SettleDelay    Duration `json:"settle_delay" yaml:"settle_delay"`
	FlushWindow    Duration `json:"flush_window" yaml:"flush_window"`
	ReconnectDelay Duration `json:"reconnect_delay" yaml:"reconnect_delay"`
	ReadBufferSize int      `json:"read_buffer_size" yaml:"read_buffer_size"`
	MaxPending     int      `json:"max_pending" yaml:"max_pending"` // framer ceiling in bytes, 0 uses framer.DefaultCeiling
}

// Ceiling returns the framer ceiling in effect.
func (s SessionConfig) Ceiling() int {
	if s.MaxPending == 0 {
		return framer.DefaultCeiling
	}
	return s.MaxPending
}

// BufferSize returns the receive buffer size in effect.
func (s SessionConfig) BufferSize() int {
	if s.ReadBufferSize == 0 {
		return ingest.DefaultReadBufferSize
	}
	return s.ReadBufferSize
}

// ValidationConfig bounds accepted record timestamps. Values accept RFC3339,
// "YYYY-MM-DD HH:MM:SS" (UTC) or integer microseconds. Empty keeps the default.
type ValidationConfig struct {
	MinTimestamp string `json:"min_timestamp,omitempty" yaml:"min_timestamp,omitempty"`
	MaxTimestamp string `json:"max_timestamp,omitempty" yaml:"max_timestamp,omitempty"`
}

// OutputConfig configures the persisted text file
type OutputConfig struct {
	Path string `json:"path" yaml:"path"`
	Sync bool   `json:"sync" yaml:"sync"`
	Mode string `json:"mode" yaml:"mode"` // octal, e.g. "0644"
}

// MetricsConfig configures the metrics and health endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int    `json:"port" yaml:"port"`
	Path string `json:"path" yaml:"path"`
}

// NATSConfig configures the optional mirror. An empty URL disables it.
type NATSConfig struct {
	URL           string   `json:"url,omitempty" yaml:"url,omitempty"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Username      string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string   `json:"password,omitempty" yaml:"password,omitempty"`
	Token         string   `json:"token,omitempty" yaml:"token,omitempty"`
	MaxReconnects int      `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	SubjectPrefix string   `json:"subject_prefix" yaml:"subject_prefix"`
	Format        string   `json:"format" yaml:"format"`
}

// Default returns the built-in configuration: two sources on the default
// host, climate on 5123 and motion on 5124, writing to sensor_data.txt.
func Default() *Config {
	return &Config{
		Host:        DefaultHost,
		Credential:  transport.DefaultCredential,
		PollCommand: transport.DefaultPollCommand,
		Sources: []SourceConfig{
			{Port: 5123, Schema: record.Climate.Name},
			{Port: 5124, Schema: record.Motion.Name},
		},
		Session: SessionConfig{
			Timeout:        Duration(transport.DefaultTimeout),
			SettleDelay:    Duration(transport.DefaultSettleDelay),
			FlushWindow:    Duration(transport.DefaultFlushWindow),
			ReconnectDelay: Duration(ingest.DefaultReconnectDelay),
			ReadBufferSize: ingest.DefaultReadBufferSize,
			MaxPending:     framer.DefaultCeiling,
		},
		Output: OutputConfig{
			Path: DefaultOutputPath,
			Mode: DefaultOutputMode,
		},
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath,
		},
		NATS: NATSConfig{
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
			SubjectPrefix: natsout.DefaultSubjectPrefix,
			Format:        natsout.FormatLine,
		},
	}
}

// SourceID returns the configured id, or the port when none is set.
func (s SourceConfig) SourceID() string {
	if s.ID != "" {
		return s.ID
	}
	return strconv.Itoa(s.Port)
}

// Address returns host:port for src.
func (c *Config) Address(src SourceConfig) string {
	host := src.Host
	if host == "" {
		host = c.Host
	}
	return net.JoinHostPort(host, strconv.Itoa(src.Port))
}

// TransportConfig builds the session configuration for src.
func (c *Config) TransportConfig(src SourceConfig) transport.Config {
	return transport.Config{
		Address:     c.Address(src),
		Credential:  c.Credential,
		PollCommand: c.PollCommand,
		Timeout:     c.Session.Timeout.D(),
		SettleDelay: c.Session.SettleDelay.D(),
		FlushWindow: c.Session.FlushWindow.D(),
	}
}

// TimestampRange resolves the accepted timestamp window in microseconds.
func (v ValidationConfig) TimestampRange() (int64, int64, error) {
	minUs, maxUs := record.DefaultMinTimestamp, record.DefaultMaxTimestamp
	if v.MinTimestamp != "" {
		us, err := timestamp.Parse(v.MinTimestamp)
		if err != nil {
			return 0, 0, fmt.Errorf("min_timestamp: %w", err)
		}
		minUs = us
	}
	if v.MaxTimestamp != "" {
		us, err := timestamp.Parse(v.MaxTimestamp)
		if err != nil {
			return 0, 0, fmt.Errorf("max_timestamp: %w", err)
		}
		maxUs = us
	}
	if minUs > maxUs {
		return 0, 0, fmt.Errorf("min_timestamp %d is after max_timestamp %d", minUs, maxUs)
	}
	return minUs, maxUs, nil
}

// FileMode parses the octal output mode.
func (o OutputConfig) FileMode() (os.FileMode, error) {
	if o.Mode == "" {
		return 0o644, nil
	}
	mode, err := strconv.ParseUint(o.Mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", o.Mode, err)
	}
	if os.FileMode(mode)&^os.ModePerm != 0 {
		return 0, fmt.Errorf("mode %q has non-permission bits", o.Mode)
	}
	return os.FileMode(mode), nil
}

// PublisherConfig builds the mirror publisher configuration.
func (n NATSConfig) PublisherConfig() natsout.Config {
	return natsout.Config{
		SubjectPrefix: n.SubjectPrefix,
		Format:        n.Format,
	}
}

// Enabled reports whether the NATS mirror is configured.
func (n NATSConfig) Enabled() bool {
	return n.URL != ""
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return invalid("sources", "at least one source is required")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Host == "" && c.Host == "" {
			return invalid("sources", fmt.Sprintf("source %d has no host and no default host is set", i))
		}
		if src.Port < 1 || src.Port > 65535 {
			return invalid("sources", fmt.Sprintf("source %d: port %d out of range", i, src.Port))
		}
		if _, err := record.SchemaByName(src.Schema); err != nil {
			return invalid("sources", fmt.Sprintf("source %d: unknown schema %q", i, src.Schema))
		}
		id := src.SourceID()
		if seen[id] {
			return invalid("sources", fmt.Sprintf("duplicate source id %q", id))
		}
		seen[id] = true
	}

	if c.Session.Timeout <= 0 {
		return invalid("session", "timeout must be positive")
	}
	if c.Session.SettleDelay < 0 || c.Session.FlushWindow < 0 || c.Session.ReconnectDelay < 0 {
		return invalid("session", "durations must not be negative")
	}
	if c.Session.ReadBufferSize < 0 || c.Session.MaxPending < 0 {
		return invalid("session", "sizes must not be negative")
	}
	// One full read on top of a partial record must fit under the ceiling.
	largest := 0
	for _, schema := range record.Schemas() {
		largest = max(largest, schema.Size)
	}
	if need := c.Session.BufferSize() + largest; c.Session.Ceiling() < need {
		return invalid("session", fmt.Sprintf("max_pending %d must be at least read_buffer_size plus the largest record (%d)",
			c.Session.Ceiling(), need))
	}

	if _, _, err := c.Validation.TimestampRange(); err != nil {
		return invalid("validation", err.Error())
	}

	if c.Output.Path == "" {
		return invalid("output", "path is required")
	}
	if _, err := c.Output.FileMode(); err != nil {
		return invalid("output", err.Error())
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return invalid("metrics", fmt.Sprintf("port %d out of range", c.Metrics.Port))
	}

	if c.NATS.Enabled() {
		if c.NATS.MaxReconnects < -1 {
			return invalid("nats", fmt.Sprintf("max_reconnects %d must be -1 or more", c.NATS.MaxReconnects))
		}
		if c.NATS.ReconnectWait < 0 {
			return invalid("nats", "reconnect_wait must not be negative")
		}
		if err := c.NATS.PublisherConfig().Validate(); err != nil {
			return err
		}
	}

	return nil
}

func invalid(section, reason string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s: %s", errors.ErrInvalidConfig, section, reason),
		"Config", "Validate", section)
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return writeConfigFile(path, data)
}

// String returns a JSON representation of the config with secrets redacted
func (c *Config) String() string {
	redacted := *c
	if redacted.NATS.Password != "" {
		redacted.NATS.Password = "***"
	}
	if redacted.NATS.Token != "" {
		redacted.NATS.Token = "***"
	}
	data, _ := json.MarshalIndent(&redacted, "", "  ")
	return string(data)
}
