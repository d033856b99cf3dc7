package config

import (
	"errors"
	"strings"
	"time"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

// ChecksConfig tunes the individual checks
type ChecksConfig struct {
	ResponseTimeLimit  time.Duration `json:"response_time_limit" yaml:"response_time_limit"`
	ConcurrentRequests int           `json:"concurrent_requests" yaml:"concurrent_requests"`
	SequentialRequests int           `json:"sequential_requests" yaml:"sequential_requests"`
	SequentialInterval time.Duration `json:"sequential_interval" yaml:"sequential_interval"`
	NotFoundPath       string        `json:"not_found_path" yaml:"not_found_path"`

	KeepAliveRequests     int           `json:"keep_alive_requests" yaml:"keep_alive_requests"`
	KeepAliveInterval     time.Duration `json:"keep_alive_interval" yaml:"keep_alive_interval"`
	LoadWorkers           int           `json:"load_workers" yaml:"load_workers"`
	LoadRequestsPerWorker int           `json:"load_requests_per_worker" yaml:"load_requests_per_worker"`
	// LoadMinSuccessRate is the fraction of load requests that must succeed.
	LoadMinSuccessRate float64 `json:"load_min_success_rate" yaml:"load_min_success_rate"`

	// Extended adds the contract, keep-alive, load and chat completions checks.
	Extended bool     `json:"extended" yaml:"extended"`
	Skip     []string `json:"skip" yaml:"skip"`
}

// DefaultChecksConfig returns default checks configuration
func DefaultChecksConfig() ChecksConfig {
	return ChecksConfig{
		ResponseTimeLimit:  constants.DefaultResponseTimeLimit,
		ConcurrentRequests: constants.DefaultConcurrentRequests,
		SequentialRequests: constants.DefaultSequentialRequests,
		SequentialInterval: constants.DefaultSequentialInterval,
		NotFoundPath:       constants.PathNotFound,

		KeepAliveRequests:     constants.DefaultKeepAliveRequests,
		KeepAliveInterval:     constants.DefaultKeepAliveInterval,
		LoadWorkers:           constants.DefaultLoadWorkers,
		LoadRequestsPerWorker: constants.DefaultLoadRequestsPerWorker,
		LoadMinSuccessRate:    constants.DefaultLoadMinSuccessRate,
	}
}

// Validate validates the checks configuration
func (c *ChecksConfig) Validate() error {
	var errs []error

	if c.ResponseTimeLimit <= 0 {
		errs = append(errs, errors.New("response_time_limit must be positive"))
	}
	if c.ConcurrentRequests < 1 {
		errs = append(errs, errors.New("concurrent_requests must be at least 1"))
	}
	if c.SequentialRequests < 1 {
		errs = append(errs, errors.New("sequential_requests must be at least 1"))
	}
	if c.SequentialInterval < 0 {
		errs = append(errs, errors.New("sequential_interval must be non-negative"))
	}
	if c.KeepAliveRequests < 1 {
		errs = append(errs, errors.New("keep_alive_requests must be at least 1"))
	}
	if c.KeepAliveInterval < 0 {
		errs = append(errs, errors.New("keep_alive_interval must be non-negative"))
	}
	if c.LoadWorkers < 1 || c.LoadRequestsPerWorker < 1 {
		errs = append(errs, errors.New("load_workers and load_requests_per_worker must be at least 1"))
	}
	if c.LoadMinSuccessRate < 0 || c.LoadMinSuccessRate > 1 {
		errs = append(errs, errors.New("load_min_success_rate must be between 0 and 1"))
	}
	if !strings.HasPrefix(c.NotFoundPath, "/") {
		errs = append(errs, errors.New("not_found_path must start with /"))
	}

	return errors.Join(errs...)
}

// Skipped reports whether the check with the given name was disabled.
// Names are compared case-insensitively.
func (c *ChecksConfig) Skipped(name string) bool {
	for _, s := range c.Skip {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}
