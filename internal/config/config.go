package config

import (
	"errors"
	"fmt"
)

// Config represents the unified configuration structure
type Config struct {
	Target        TargetConfig        `json:"target" yaml:"target"`
	Readiness     ReadinessConfig     `json:"readiness" yaml:"readiness"`
	Checks        ChecksConfig        `json:"checks" yaml:"checks"`
	Contract      ContractConfig      `json:"contract" yaml:"contract"`
	Report        ReportConfig        `json:"report" yaml:"report"`
	History       HistoryConfig       `json:"history" yaml:"history"`
	Watch         WatchConfig         `json:"watch" yaml:"watch"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Target:        DefaultTargetConfig(),
		Readiness:     DefaultReadinessConfig(),
		Checks:        DefaultChecksConfig(),
		Contract:      ContractConfig{},
		Report:        DefaultReportConfig(),
		History:       DefaultHistoryConfig(),
		Watch:         DefaultWatchConfig(),
		Observability: DefaultObservabilityConfig(),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []error

	if err := c.Target.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}
	if err := c.Readiness.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("readiness: %w", err))
	}
	if err := c.Checks.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("checks: %w", err))
	}
	if err := c.Contract.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("contract: %w", err))
	}
	if err := c.Report.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("report: %w", err))
	}
	if err := c.History.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("history: %w", err))
	}
	if err := c.Watch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("watch: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WatchedFiles returns the files whose changes should trigger a new run in watch mode.
func (c *Config) WatchedFiles(configFile string) []string {
	var files []string
	if configFile != "" {
		files = append(files, configFile)
	}
	if c.Contract.File != "" {
		files = append(files, c.Contract.File)
	}
	return files
}
