package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/leslieo2/go-api-probe/internal/checks"
	"github.com/leslieo2/go-api-probe/internal/client"
	"github.com/leslieo2/go-api-probe/internal/config"
	"github.com/leslieo2/go-api-probe/internal/constants"
	"github.com/leslieo2/go-api-probe/internal/contract"
	"github.com/leslieo2/go-api-probe/internal/observability"
)

// ErrServerNotReady aborts a run when /health never answered 200 during the
// readiness window.
var ErrServerNotReady = errors.New("server did not become ready")

type Runner struct {
	cfg    *config.Config
	client *client.Client
	env    *checks.Env
	checks []checks.Check

	observer Observer
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

type Option func(*Runner)

func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

func WithLogger(logger *observability.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = metrics }
}

func WithTracer(tracer *observability.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithChecks replaces the checks selected from configuration.
func WithChecks(cs []checks.Check) Option {
	return func(r *Runner) { r.checks = cs }
}

// New wires a client, the optional contract and the selected checks.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:      cfg,
		checks:   checks.Select(cfg.Checks),
		observer: NopObserver{},
		logger:   observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer, _ = observability.NewTracer(config.TracingConfig{})
	}

	c, err := client.New(cfg.Target,
		client.WithLogger(r.logger),
		client.WithMetrics(r.metrics),
		client.WithTracer(r.tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	r.client = c

	var ct *contract.Contract
	if cfg.Checks.Extended {
		ct, err = loadContract(cfg.Contract)
		if err != nil {
			return nil, err
		}
	}

	r.env = &checks.Env{Client: c, Config: cfg.Checks, Contract: ct}
	return r, nil
}

func loadContract(cfg config.ContractConfig) (*contract.Contract, error) {
	if cfg.File != "" {
		ct, err := contract.Load(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load contract %s: %w", cfg.File, err)
		}
		return ct, nil
	}
	ct, err := contract.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in contract: %w", err)
	}
	return ct, nil
}

// Checks returns the checks this runner executes, in order.
func (r *Runner) Checks() []checks.Check {
	return r.checks
}

// WaitForServer polls /health until it answers 200 or the configured
// attempts are exhausted.
func (r *Runner) WaitForServer(ctx context.Context) error {
	attempts := r.cfg.Readiness.Attempts
	var lastErr error

	for i := 1; i <= attempts; i++ {
		resp, err := r.client.GetFresh(ctx, constants.PathHealth)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			r.logger.Info("Server ready", zap.Int("attempt", i))
			return nil
		default:
			lastErr = fmt.Errorf("health returned status %d", resp.StatusCode)
		}

		r.logger.Debug("Server not ready yet",
			zap.Int("attempt", i),
			zap.Int("attempts", attempts),
			zap.Error(lastErr),
		)

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.Readiness.Interval):
		}
	}

	return fmt.Errorf("%w within %d attempts: %v", ErrServerNotReady, attempts, lastErr)
}

// Run waits for the server and then runs every check. It returns
// ErrServerNotReady without a summary when the server never came up.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	ctx, span := r.tracer.StartSpan(ctx, "probe.run",
		attribute.String("probe.target", r.client.BaseURL()),
	)
	defer span.End()

	r.observer.RunStarted(r.client.BaseURL())
	r.observer.WaitingForServer()

	if err := r.WaitForServer(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("Server not responding, aborting run", zap.Error(err))
		r.observer.ServerNotReady(err)
		return nil, err
	}
	r.observer.ServerReady()

	summary := r.RunChecks(ctx)
	span.SetAttributes(
		attribute.String("probe.run_id", summary.RunID),
		attribute.Int("probe.passed", summary.Passed),
		attribute.Int("probe.failed", summary.Failed),
	)
	if !summary.OK() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d checks failed", summary.Failed))
	}

	return summary, ctx.Err()
}

// RunChecks runs the checks sequentially without the readiness wait. A
// failing or panicking check never stops the remaining ones; only context
// cancellation does.
func (r *Runner) RunChecks(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Target:    r.client.BaseURL(),
		StartedAt: time.Now(),
	}

	for _, c := range r.checks {
		if ctx.Err() != nil {
			break
		}
		r.observer.CheckStarted(c.Name)
		result := r.runCheck(ctx, c)
		summary.add(result)
		r.observer.CheckFinished(result)
	}

	summary.Duration = time.Since(summary.StartedAt)
	r.metrics.SetSuccessRate(summary.SuccessRate())
	r.logger.Info("Run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	r.observer.RunFinished(summary)

	return summary
}

func (r *Runner) runCheck(ctx context.Context, c checks.Check) (result Result) {
	ctx, span := r.tracer.StartSpan(ctx, "probe.check", attribute.String("check.name", c.Name))
	start := time.Now()

	result = Result{Name: c.Name, Extended: c.Extended}

	defer func() {
		if p := recover(); p != nil {
			result.Err = fmt.Errorf("panic: %v", p)
			result.Passed = false
		}
		result.Duration = time.Since(start)

		if result.Passed {
			r.logger.Debug("Check passed", zap.String("check", c.Name), zap.Duration("duration", result.Duration))
		} else {
			span.SetStatus(codes.Error, result.Reason())
			r.logger.Warn("Check failed",
				zap.String("check", c.Name),
				zap.Duration("duration", result.Duration),
				zap.Error(result.Err),
			)
		}
		r.metrics.RecordCheck(c.Name, result.Passed, result.Duration)
		span.End()
	}()

	if err := c.Run(ctx, r.env); err != nil {
		result.Err = err
		return result
	}
	result.Passed = true
	return result
}
