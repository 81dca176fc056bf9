package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SENSORSTREAMS_CONFIG", ""),
		"Path to a JSON or YAML configuration file; built-in defaults when empty (env: SENSORSTREAMS_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("SENSORSTREAMS_CONFIG", ""),
		"Path to configuration file (env: SENSORSTREAMS_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SENSORSTREAMS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SENSORSTREAMS_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SENSORSTREAMS_LOG_FORMAT", "text"),
		"Log format: json, text (env: SENSORSTREAMS_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SENSORSTREAMS_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout per phase (env: SENSORSTREAMS_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs.Output(), fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - telemetry collector

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Collect from the default sources into sensor_data.txt
  %s

  # Run with a site configuration and debug logging
  %s --config=/etc/sensorstreams/collector.yaml --log-level=debug

  # Override single settings from the environment
  export SENSORSTREAMS_HOST=10.0.0.5
  export SENSORSTREAMS_OUTPUT_PATH=/var/lib/sensorstreams/sensor_data.txt
  %s

  # Validate configuration only
  %s --config=collector.yaml --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
