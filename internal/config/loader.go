package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// LoadConfig loads configuration with precedence:
// 1. Explicit CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	// Start with default configuration
	config := DefaultConfig()

	// Load from configuration file if provided
	if configFile != "" {
		if err := loadFromFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Load from environment variables
	loadFromEnv(config)

	// Override with explicitly set CLI flags
	if cliFlags != nil {
		overrideWithCLI(config, cliFlags)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// DefaultConfigFile returns the XDG config file path if one exists, or "".
func DefaultConfigFile() string {
	path, err := xdg.SearchConfigFile(filepath.Join(constants.AppName, "config.yaml"))
	if err != nil {
		return ""
	}
	return path
}

// CLIFlags contains CLI flag values that can override configuration.
// A nil field is ignored. When Changed is set, only flags it reports as
// explicitly given on the command line override other sources.
type CLIFlags struct {
	BaseURL     *string
	Timeout     *time.Duration
	Format      *string
	Output      *string
	Extended    *bool
	Skip        *[]string
	Watch       *bool
	History     *bool
	LogLevel    *string
	MetricsFile *string
	Trace       *bool

	Changed func(name string) bool
}

func (f *CLIFlags) changed(name string) bool {
	if f.Changed == nil {
		return true
	}
	return f.Changed(name)
}

// loadFromFile decodes a YAML or JSON file on top of the given configuration,
// so keys absent from the file keep their current values.
func loadFromFile(filePath string, config *Config) error {
	// Normalize path to absolute for consistency
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	if err := validateFilePath(filePath); err != nil {
		return fmt.Errorf("invalid config file path %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath) // #nosec G304 - file path validated by validateFilePath()
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
// Values that fail to parse are ignored.
func loadFromEnv(config *Config) {
	if val := os.Getenv(constants.EnvBaseURL); val != "" {
		config.Target.BaseURL = val
	}
	if val := os.Getenv(constants.EnvAPIKey); val != "" {
		config.Target.APIKey = val
	}
	if val := os.Getenv(constants.EnvRequestTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Target.Timeout = duration
		}
	}
	if val := os.Getenv(constants.EnvCacheTTL); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Target.CacheTTL = duration
		}
	}
	if val := os.Getenv(constants.EnvReadinessAttempts); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Readiness.Attempts = n
		}
	}
	if val := os.Getenv(constants.EnvReadinessInterval); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Readiness.Interval = duration
		}
	}
	if val := os.Getenv(constants.EnvResponseTimeLimit); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Checks.ResponseTimeLimit = duration
		}
	}
	if val := os.Getenv(constants.EnvConcurrentRequests); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Checks.ConcurrentRequests = n
		}
	}
	if val := os.Getenv(constants.EnvExtended); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Checks.Extended = enabled
		}
	}
	if val := os.Getenv(constants.EnvContractFile); val != "" {
		config.Contract.File = val
	}
	if val := os.Getenv(constants.EnvReportFormat); val != "" {
		config.Report.Format = val
	}
	if val := os.Getenv(constants.EnvReportOutput); val != "" {
		config.Report.Output = val
	}
	if val := os.Getenv(constants.EnvHistoryEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.History.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvHistoryPath); val != "" {
		config.History.Path = val
	}
	if val := os.Getenv(constants.EnvLogLevel); val != "" {
		config.Observability.Logging.Level = val
	}
	if val := os.Getenv(constants.EnvMetricsFile); val != "" {
		config.Observability.Metrics.TextfilePath = val
	}
	if val := os.Getenv(constants.EnvTracingEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Observability.Tracing.Enabled = enabled
		}
	}
}

// overrideWithCLI overrides configuration with CLI flag values
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags.BaseURL != nil && flags.changed("base-url") {
		config.Target.BaseURL = *flags.BaseURL
	}
	if flags.Timeout != nil && flags.changed("timeout") {
		config.Target.Timeout = *flags.Timeout
	}
	if flags.Format != nil && flags.changed("format") {
		config.Report.Format = *flags.Format
	}
	if flags.Output != nil && flags.changed("output") {
		config.Report.Output = *flags.Output
	}
	if flags.Extended != nil && flags.changed("extended") {
		config.Checks.Extended = *flags.Extended
	}
	if flags.Skip != nil && flags.changed("skip") {
		config.Checks.Skip = append(config.Checks.Skip, *flags.Skip...)
	}
	if flags.Watch != nil && flags.changed("watch") {
		config.Watch.Enabled = *flags.Watch
	}
	if flags.History != nil && flags.changed("history") {
		config.History.Enabled = *flags.History
	}
	if flags.LogLevel != nil && flags.changed("log-level") {
		config.Observability.Logging.Level = *flags.LogLevel
	}
	if flags.MetricsFile != nil && flags.changed("metrics-file") {
		config.Observability.Metrics.TextfilePath = *flags.MetricsFile
	}
	if flags.Trace != nil && flags.changed("trace") {
		config.Observability.Tracing.Enabled = *flags.Trace
	}
}

// validateFilePath checks that the path names a regular file. Names
// containing dots, such as "my..config.yaml", are fine.
func validateFilePath(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	return nil
}
