package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leslieo2/go-api-probe/internal/app"
	"github.com/leslieo2/go-api-probe/internal/config"
	"github.com/leslieo2/go-api-probe/internal/constants"
)

// errChecksFailed signals exit status 1 after the transcript already
// explained what failed.
var errChecksFailed = errors.New("checks failed")

const shutdownTimeout = 5 * time.Second

type rootOptions struct {
	configFile  string
	baseURL     string
	timeout     time.Duration
	format      string
	output      string
	extended    bool
	skip        []string
	watch       bool
	history     bool
	logLevel    string
	metricsFile string
	trace       bool
}

// NewRootCmd creates the root command. Running it without a subcommand runs
// the suite.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "Integration tests for OpenAI-compatible local API servers",
		Long: `go-api-probe waits for a local API server to become ready and runs a fixed
suite of HTTP checks against it: health, model listing, 404 handling, CORS,
OPTIONS preflight, JSON content type, latency, concurrency, sequential load
and OpenAI response shape.

It exits 0 when every check passes and 1 otherwise.`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, opts)
		},
	}

	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flags.StringVar(&opts.baseURL, "base-url", defaults.Target.BaseURL, "Base URL of the server under test")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Target.Timeout, "Per-request timeout")
	flags.StringVar(&opts.format, "format", defaults.Report.Format, "Report format: text, json, markdown")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	flags.BoolVar(&opts.extended, "extended", false, "Also run the contract and malformed-request checks")
	flags.StringSliceVar(&opts.skip, "skip", nil, "Check names to skip (repeatable)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Re-run when the config or contract file changes")
	flags.BoolVar(&opts.history, "history", false, "Record the run in the history database")
	flags.StringVar(&opts.logLevel, "log-level", defaults.Observability.Logging.Level, "Log level: debug, info, warn, error")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")
	flags.BoolVar(&opts.trace, "trace", false, "Export OpenTelemetry spans to stderr")

	cmd.AddCommand(NewHistoryCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig resolves the config file and merges flags the user actually set.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, *config.CLIFlags, string, error) {
	configFile := opts.configFile
	if configFile == "" {
		configFile = config.DefaultConfigFile()
	}

	cliFlags := &config.CLIFlags{
		BaseURL:     &opts.baseURL,
		Timeout:     &opts.timeout,
		Format:      &opts.format,
		Output:      &opts.output,
		Extended:    &opts.extended,
		Skip:        &opts.skip,
		Watch:       &opts.watch,
		History:     &opts.history,
		LogLevel:    &opts.logLevel,
		MetricsFile: &opts.metricsFile,
		Trace:       &opts.trace,
		Changed:     flagChanged(cmd.Flags()),
	}

	cfg, err := config.LoadConfig(configFile, cliFlags)
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, cliFlags, configFile, nil
}

// flagChanged reports whether a flag was given explicitly, so flag defaults
// never mask file or environment values.
func flagChanged(fs *pflag.FlagSet) func(string) bool {
	return func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
}

func runProbe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, cliFlags, configFile, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.Options{
		ConfigFile: configFile,
		Flags:      cliFlags,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "shutdown: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ok bool
	if cfg.Watch.Enabled {
		ok, err = a.Watch(ctx)
	} else {
		ok, err = a.RunOnce(ctx)
	}
	if err != nil {
		return err
	}
	if !ok {
		return errChecksFailed
	}
	return nil
}

// Execute runs the root command and exits with the probe's status.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintln(os.Stderr, "Test suite error:", err)
		}
		os.Exit(1)
	}
}
