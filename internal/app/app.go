// Package app wires configuration, observability, the runner, reporting and
// history into one probe run cycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/leslieo2/go-api-probe/internal/config"
	"github.com/leslieo2/go-api-probe/internal/constants"
	"github.com/leslieo2/go-api-probe/internal/history"
	"github.com/leslieo2/go-api-probe/internal/observability"
	"github.com/leslieo2/go-api-probe/internal/report"
	"github.com/leslieo2/go-api-probe/internal/runner"
	"github.com/leslieo2/go-api-probe/internal/watch"
)

// ErrNothingToWatch is returned by Watch when neither a config file nor a
// contract file is in use.
var ErrNothingToWatch = errors.New("watch mode needs a config file or a contract file")

type Options struct {
	// ConfigFile and Flags are reused to reload configuration in watch mode.
	ConfigFile string
	Flags      *config.CLIFlags

	Stdout io.Writer
	Stderr io.Writer
}

type App struct {
	mu   sync.Mutex
	cfg  *config.Config
	opts Options

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	history *history.Store
}

func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{cfg: cfg, opts: opts, logger: logger}

	if cfg.Observability.Metrics.Enabled {
		a.metrics = observability.NewMetrics()
	}

	a.tracer, err = observability.NewTracerWithWriter(cfg.Observability.Tracing, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	if cfg.History.Enabled {
		a.history, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		logger.Debug("History enabled", zap.String("path", cfg.History.Path))
	}

	return a, nil
}

// Config returns the configuration the next run will use.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Metrics returns the collectors, nil when metrics are disabled.
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// RunOnce executes one run and reports whether every check passed. A server
// that never becomes ready is a failed run, not an error.
func (a *App) RunOnce(ctx context.Context) (bool, error) {
	cfg := a.Config()

	format := strings.ToLower(cfg.Report.Format)
	documentOnStdout := format != constants.FormatText && cfg.Report.Output == ""

	// Keep stdout clean for a JSON or Markdown document.
	transcript := a.opts.Stdout
	if documentOnStdout {
		transcript = a.opts.Stderr
	}

	r, err := runner.New(cfg,
		runner.WithObserver(report.NewConsole(transcript)),
		runner.WithLogger(a.logger),
		runner.WithMetrics(a.metrics),
		runner.WithTracer(a.tracer),
	)
	if err != nil {
		return false, err
	}

	summary, err := r.Run(ctx)
	if errors.Is(err, runner.ErrServerNotReady) {
		a.writeMetrics(cfg)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := a.writeReport(cfg, summary, documentOnStdout); err != nil {
		return false, err
	}

	if a.history != nil {
		if err := a.history.SaveRun(ctx, summary); err != nil {
			a.logger.Warn("Failed to save run history", zap.String("run_id", summary.RunID), zap.Error(err))
		}
	}

	a.writeMetrics(cfg)

	return summary.OK(), nil
}

func (a *App) writeReport(cfg *config.Config, summary *runner.Summary, toStdout bool) error {
	switch {
	case cfg.Report.Output != "":
		if err := report.WriteFile(cfg.Report.Output, cfg.Report.Format, summary); err != nil {
			return err
		}
		a.logger.Info("Report written", zap.String("path", cfg.Report.Output), zap.String("format", cfg.Report.Format))
		return nil
	case toStdout:
		w, err := report.NewWriter(cfg.Report.Format, a.opts.Stdout)
		if err != nil {
			return err
		}
		return w.Write(summary)
	default:
		// The console transcript is the text report.
		return nil
	}
}

func (a *App) writeMetrics(cfg *config.Config) {
	path := cfg.Observability.Metrics.TextfilePath
	if path == "" || a.metrics == nil {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("Failed to write metrics textfile", zap.String("path", path), zap.Error(err))
	}
}

// Watch runs once, then again after every debounced change to the config or
// contract file, until ctx is done. It returns the result of the last run.
func (a *App) Watch(ctx context.Context) (bool, error) {
	cfg := a.Config()
	files := cfg.WatchedFiles(a.opts.ConfigFile)
	if len(files) == 0 {
		return false, ErrNothingToWatch
	}

	w, err := watch.NewWatcher(a.logger)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if err := w.Add(f); err != nil {
			w.Stop()
			return false, err
		}
	}

	ok, err := a.RunOnce(ctx)
	if err != nil && ctx.Err() == nil {
		w.Stop()
		return false, err
	}
	fmt.Fprintf(a.opts.Stderr, "\n👀 Watching %s for changes (Ctrl+C to stop)\n", strings.Join(files, ", "))

	coordinator := watch.NewCoordinator(w, cfg.Watch.Debounce, func(ctx context.Context, _ []watch.Event) {
		a.reload()
		fmt.Fprintf(a.opts.Stderr, "\n🔄 Change detected, re-running\n")
		ok, err = a.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			a.logger.Error("Run failed", zap.Error(err))
			fmt.Fprintf(a.opts.Stderr, "❌ Run failed: %v\n", err)
		}
	}, a.logger)

	if err := coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return ok, err
	}
	return ok, nil
}

// reload re-reads configuration. An invalid file keeps the previous
// configuration in place. Logging, metrics and history stay as configured at
// startup.
func (a *App) reload() {
	if a.opts.ConfigFile == "" {
		return
	}

	cfg, err := config.LoadConfig(a.opts.ConfigFile, a.opts.Flags)
	if err != nil {
		a.logger.Error("Failed to reload configuration, keeping previous", zap.Error(err))
		fmt.Fprintf(a.opts.Stderr, "⚠️  Configuration reload failed, keeping previous: %v\n", err)
		return
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	a.logger.Info("Configuration reloaded", zap.String("file", a.opts.ConfigFile))
}

// Close flushes traces and releases the history database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer: %w", err))
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("history: %w", err))
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
