package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions for pointers
func stringPtr(s string) *string                 { return &s }
func boolPtr(b bool) *bool                       { return &b }
func durationPtr(d time.Duration) *time.Duration { return &d }

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name           string
		configFile     string
		fileName       string
		fileContent    string
		envVars        map[string]string
		cliFlags       *CLIFlags
		expectedConfig *Config
		wantErr        bool
	}{
		{
			name:           "Default Config Only",
			expectedConfig: DefaultConfig(),
		},
		{
			name:        "Load from YAML file",
			fileContent: "target:\n  base_url: http://127.0.0.1:5000\n  timeout: 2s\n",
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5000"
				cfg.Target.Timeout = 2 * time.Second
				return cfg
			}(),
		},
		{
			name:        "Load from JSON file",
			fileName:    "config.json",
			fileContent: `{"target": {"base_url": "http://127.0.0.1:5001"}, "checks": {"extended": true}}`,
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5001"
				cfg.Checks.Extended = true
				return cfg
			}(),
		},
		{
			name:        "Dots inside the file name",
			fileName:    "my..config.yaml",
			fileContent: "target:\n  base_url: http://127.0.0.1:5004\n",
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5004"
				return cfg
			}(),
		},
		{
			name:       "Directory instead of file",
			configFile: os.TempDir(),
			wantErr:    true,
		},
		{
			name:       "File not found",
			configFile: "nonexistent.yaml",
			wantErr:    true,
		},
		{
			name:        "Invalid file content",
			fileContent: `target: {base_url: "http://x"`,
			wantErr:     true,
		},
		{
			name:        "Unsupported extension",
			fileName:    "config.toml",
			fileContent: `base_url = "http://x"`,
			wantErr:     true,
		},
		{
			name: "Load from Environment Variables",
			envVars: map[string]string{
				"GO_API_PROBE_BASE_URL":        "http://127.0.0.1:5002",
				"GO_API_PROBE_REQUEST_TIMEOUT": "3s",
				"GO_API_PROBE_EXTENDED":        "true",
			},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5002"
				cfg.Target.Timeout = 3 * time.Second
				cfg.Checks.Extended = true
				return cfg
			}(),
		},
		{
			name: "Unparseable env values are ignored",
			envVars: map[string]string{
				"GO_API_PROBE_REQUEST_TIMEOUT":     "soon",
				"GO_API_PROBE_CONCURRENT_REQUESTS": "many",
			},
			expectedConfig: DefaultConfig(),
		},
		{
			name: "Override with CLI Flags",
			cliFlags: &CLIFlags{
				BaseURL: stringPtr("http://127.0.0.1:5003"),
				Format:  stringPtr("json"),
			},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5003"
				cfg.Report.Format = "json"
				return cfg
			}(),
		},
		{
			name: "Unchanged CLI flags do not override",
			envVars: map[string]string{
				"GO_API_PROBE_BASE_URL": "http://127.0.0.1:5004",
			},
			cliFlags: &CLIFlags{
				BaseURL: stringPtr("http://localhost:4891"),
				Changed: func(string) bool { return false },
			},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5004"
				return cfg
			}(),
		},
		{
			name:        "Precedence: CLI > Env > File > Default",
			fileContent: "target: {base_url: \"http://127.0.0.1:5005\"}",
			envVars: map[string]string{
				"GO_API_PROBE_BASE_URL": "http://127.0.0.1:5006",
			},
			cliFlags: &CLIFlags{
				BaseURL: stringPtr("http://127.0.0.1:5007"),
			},
			expectedConfig: func() *Config {
				cfg := DefaultConfig()
				cfg.Target.BaseURL = "http://127.0.0.1:5007"
				return cfg
			}(),
		},
		{
			name: "Validation Error from CLI",
			cliFlags: &CLIFlags{
				Timeout: durationPtr(0),
			},
			wantErr: true,
		},
		{
			name:        "Validation Error from File",
			fileContent: `report: {format: "xml"}`,
			wantErr:     true,
		},
		{
			name: "Validation Error from Env",
			envVars: map[string]string{
				"GO_API_PROBE_BASE_URL": "ftp://localhost:4891",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			var actualConfigFile string
			if tt.fileContent != "" {
				filename := tt.fileName
				if filename == "" {
					filename = "config.yaml"
				}
				actualConfigFile = filepath.Join(t.TempDir(), filename)
				require.NoError(t, os.WriteFile(actualConfigFile, []byte(tt.fileContent), 0o644))
			} else if tt.configFile != "" {
				actualConfigFile = tt.configFile
			}

			cfg, err := LoadConfig(actualConfigFile, tt.cliFlags)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedConfig, cfg)
		})
	}
}

func TestLoadConfig_SkipFlagAppends(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("checks:\n  skip: [\"Sequential requests\"]\n"), 0o644))

	skip := []string{"Response time < 100ms"}
	cfg, err := LoadConfig(file, &CLIFlags{Skip: &skip, Watch: boolPtr(true)})
	require.NoError(t, err)

	assert.Equal(t, []string{"Sequential requests", "Response time < 100ms"}, cfg.Checks.Skip)
	assert.True(t, cfg.Watch.Enabled)
	assert.True(t, cfg.Checks.Skipped("sequential REQUESTS"))
	assert.False(t, cfg.Checks.Skipped("Health endpoint functionality"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.Target.BaseURL = "" }, wantErr: "base_url cannot be empty"},
		{name: "missing host", mutate: func(c *Config) { c.Target.BaseURL = "http://" }, wantErr: "base_url must include a host"},
		{name: "zero readiness attempts", mutate: func(c *Config) { c.Readiness.Attempts = 0 }, wantErr: "attempts must be at least 1"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Checks.ConcurrentRequests = 0 }, wantErr: "concurrent_requests"},
		{name: "zero load workers", mutate: func(c *Config) { c.Checks.LoadWorkers = 0 }, wantErr: "load_workers"},
		{name: "success rate above one", mutate: func(c *Config) { c.Checks.LoadMinSuccessRate = 1.5 }, wantErr: "load_min_success_rate"},
		{name: "relative not found path", mutate: func(c *Config) { c.Checks.NotFoundPath = "missing" }, wantErr: "not_found_path"},
		{name: "missing contract file", mutate: func(c *Config) { c.Contract.File = "/does/not/exist.yaml" }, wantErr: "contract file"},
		{name: "history without path", mutate: func(c *Config) { c.History = HistoryConfig{Enabled: true} }, wantErr: "path cannot be empty"},
		{name: "negative debounce", mutate: func(c *Config) { c.Watch.Debounce = -time.Second }, wantErr: "debounce"},
		{name: "bad log level", mutate: func(c *Config) { c.Observability.Logging.Level = "trace" }, wantErr: "invalid level"},
		{
			name: "tracing without service name",
			mutate: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.ServiceName = ""
			},
			wantErr: "service_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_WatchedFiles(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.WatchedFiles(""))

	cfg.Contract.File = "contract.yaml"
	assert.Equal(t, []string{"probe.yaml", "contract.yaml"}, cfg.WatchedFiles("probe.yaml"))
}
