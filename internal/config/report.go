package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// ContractConfig points at an OpenAPI document that replaces the built-in contract
type ContractConfig struct {
	File string `json:"file" yaml:"file"`
}

// ReportConfig controls the end-of-run summary
type ReportConfig struct {
	Format string `json:"format" yaml:"format"`
	// Output is a file path; empty means stdout.
	Output string `json:"output" yaml:"output"`
}

// HistoryConfig controls persisting run results to SQLite
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// WatchConfig controls re-running the suite when watched files change
type WatchConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// DefaultReportConfig returns default report configuration
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Format: constants.FormatText,
	}
}

// DefaultHistoryConfig returns default history configuration
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled: false,
		Path:    filepath.Join(xdg.DataHome, constants.AppName, "history.db"),
	}
}

// DefaultWatchConfig returns default watch configuration
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Enabled:  false,
		Debounce: constants.DefaultWatchDebounce,
	}
}

// Validate validates the report configuration
func (r *ReportConfig) Validate() error {
	switch strings.ToLower(r.Format) {
	case constants.FormatText, constants.FormatJSON, constants.FormatMarkdown:
		return nil
	default:
		return fmt.Errorf("invalid format: %s, must be one of: text, json, markdown", r.Format)
	}
}

// Validate validates the history configuration
func (h *HistoryConfig) Validate() error {
	if h.Enabled && h.Path == "" {
		return errors.New("path cannot be empty when history is enabled")
	}
	return nil
}

// Validate validates the watch configuration
func (w WatchConfig) Validate() error {
	if w.Debounce < 0 {
		return fmt.Errorf("debounce time must be non-negative")
	}
	return nil
}

// Validate checks that a configured contract file exists
func (c ContractConfig) Validate() error {
	if c.File == "" {
		return nil
	}
	if _, err := os.Stat(c.File); err != nil {
		return fmt.Errorf("contract file %s: %w", c.File, err)
	}
	return nil
}
