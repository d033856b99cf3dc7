package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// TargetConfig describes the server under test and how requests reach it
type TargetConfig struct {
	BaseURL   string        `json:"base_url" yaml:"base_url"`
	APIKey    string        `json:"api_key" yaml:"api_key"`
	UserAgent string        `json:"user_agent" yaml:"user_agent"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	// CacheTTL enables memoization of plain GET responses. Zero disables it.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// ReadinessConfig controls the initial wait for the server to come up
type ReadinessConfig struct {
	Attempts int           `json:"attempts" yaml:"attempts"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// DefaultTargetConfig returns default target configuration
func DefaultTargetConfig() TargetConfig {
	return TargetConfig{
		BaseURL:   constants.DefaultBaseURL,
		UserAgent: constants.DefaultUserAgent,
		Timeout:   constants.DefaultRequestTimeout,
	}
}

// DefaultReadinessConfig returns default readiness configuration
func DefaultReadinessConfig() ReadinessConfig {
	return ReadinessConfig{
		Attempts: constants.DefaultReadinessAttempts,
		Interval: constants.DefaultReadinessInterval,
	}
}

// Validate validates the target configuration
func (t *TargetConfig) Validate() error {
	var errs []error

	if t.BaseURL == "" {
		errs = append(errs, errors.New("base_url cannot be empty"))
	} else if u, err := url.Parse(t.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("base_url is not a valid URL: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme))
	} else if u.Host == "" {
		errs = append(errs, errors.New("base_url must include a host"))
	}

	if strings.TrimSpace(t.UserAgent) == "" {
		errs = append(errs, errors.New("user_agent cannot be empty"))
	}
	if t.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if t.CacheTTL < 0 {
		errs = append(errs, errors.New("cache_ttl must be non-negative"))
	}

	return errors.Join(errs...)
}

// Validate validates the readiness configuration
func (r *ReadinessConfig) Validate() error {
	if r.Attempts < 1 {
		return errors.New("attempts must be at least 1")
	}
	if r.Interval < 0 {
		return errors.New("interval must be non-negative")
	}
	return nil
}
