package config

import (
	"fmt"
	"strings"
)

// ObservabilityConfig contains observability-related configuration
type ObservabilityConfig struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Format      string `json:"format" yaml:"format"`
	Output      string `json:"output" yaml:"output"`
	Development bool   `json:"development" yaml:"development"`
}

// MetricsConfig controls the Prometheus registry. TextfilePath, when set,
// receives the registry in text exposition format after every run.
type MetricsConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	TextfilePath string `json:"textfile_path" yaml:"textfile_path"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Version     string `json:"version" yaml:"version"`
	Environment string `json:"environment" yaml:"environment"`
}

// DefaultObservabilityConfig returns default observability configuration
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Logging: DefaultLoggingConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "go-api-probe",
			Version:     "1.0.0",
			Environment: "local",
		},
	}
}

// DefaultLoggingConfig returns default logging configuration.
// Logs go to stderr so stdout carries only the check transcript.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:       "warn",
		Format:      "console",
		Output:      "stderr",
		Development: false,
	}
}

// Validate validates the observability configuration
func (o *ObservabilityConfig) Validate() error {
	if err := o.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if o.Tracing.Enabled && o.Tracing.ServiceName == "" {
		return fmt.Errorf("tracing: service_name cannot be empty when tracing is enabled")
	}
	return nil
}

// Validate validates the logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("invalid level: %s, must be one of: debug, info, warn, error", l.Level)
	}

	validFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validFormats[strings.ToLower(l.Format)] {
		return fmt.Errorf("invalid format: %s, must be one of: json, console", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	return nil
}
