// Package main implements the entry point for the sensorstreams collector.
// It polls the configured telemetry sources and appends every valid record
// to a text file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/sensorstreams/collector"
	"github.com/c360/sensorstreams/config"
	"github.com/c360/sensorstreams/health"
	"github.com/c360/sensorstreams/metric"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sensorstreams"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid", "sources", len(cfg.Sources), "output", cfg.Output.Path)
		slog.Debug("Effective configuration", "config", cfg.String())
		return nil
	}

	slog.Info("Starting sensorstreams",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	c, err := collector.New(cfg, collector.Deps{
		Logger:          logger,
		Registry:        metric.NewMetricsRegistry(),
		Health:          health.NewMonitor(),
		ShutdownTimeout: cliCfg.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create collector: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Run(ctx); err != nil {
		return fmt.Errorf("collector: %w", err)
	}

	slog.Info("sensorstreams shutdown complete")
	return nil
}

// loadConfig layers the optional file over the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	loader.EnableValidation(true)
	return loader.Load()
}
