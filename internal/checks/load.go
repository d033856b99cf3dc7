package checks

import (
	"context"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/leslieo2/go-api-probe/internal/constants"
)

func checkResponseTime(ctx context.Context, env *Env) error {
	resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if resp.Duration >= env.Config.ResponseTimeLimit {
		return failf("took %s, limit %s", resp.Duration.Round(time.Microsecond), env.Config.ResponseTimeLimit)
	}
	return nil
}

// fanOut sends total GET /health requests with at most workers in flight
// and waits for all of them. It returns how many failed and the first
// failure, so one failure never hides the others.
func fanOut(ctx context.Context, env *Env, total, workers int) (int, error) {
	var failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < total; i++ {
		g.Go(func() error {
			resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
			if err == nil {
				err = expectStatus(resp, http.StatusOK)
			}
			if err != nil {
				failed.Add(1)
			}
			return err
		})
	}
	err := g.Wait()
	return int(failed.Load()), err
}

// checkConcurrentRequests fires all requests at once.
func checkConcurrentRequests(ctx context.Context, env *Env) error {
	n := env.Config.ConcurrentRequests
	if failed, err := fanOut(ctx, env, n, n); failed > 0 {
		return failf("%d of %d concurrent requests failed, first: %v", failed, n, err)
	}
	return nil
}

// checkLargeConcurrentLoad keeps LoadWorkers requests in flight until every
// worker has sent its share, and tolerates failures down to
// LoadMinSuccessRate.
func checkLargeConcurrentLoad(ctx context.Context, env *Env) error {
	cfg := env.Config
	total := cfg.LoadWorkers * cfg.LoadRequestsPerWorker

	failed, err := fanOut(ctx, env, total, cfg.LoadWorkers)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	succeeded := total - failed
	need := int(math.Ceil(cfg.LoadMinSuccessRate * float64(total)))
	if succeeded < need {
		return failf("%d of %d requests succeeded under load, need %d, first failure: %v", succeeded, total, need, err)
	}
	return nil
}

// checkPersistentConnection reuses the client's keep-alive connection for a
// short series of spaced requests.
func checkPersistentConnection(ctx context.Context, env *Env) error {
	n := env.Config.KeepAliveRequests
	limiter := newPacer(env.Config.KeepAliveInterval)

	for i := 1; i <= n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return failf("request %d of %d on the same connection: expected status 200, got %d", i, n, resp.StatusCode)
		}
	}
	return nil
}

// newPacer lets one request through immediately and the rest every interval.
func newPacer(interval time.Duration) *rate.Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return rate.NewLimiter(limit, 1)
}

// checkSequentialRequests paces requests so consecutive ones start at least
// SequentialInterval apart.
func checkSequentialRequests(ctx context.Context, env *Env) error {
	n := env.Config.SequentialRequests

	limiter := newPacer(env.Config.SequentialInterval)

	for i := 1; i <= n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := env.Client.GetFresh(ctx, constants.PathHealth)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return failf("request %d of %d: expected status 200, got %d", i, n, resp.StatusCode)
		}
	}
	return nil
}
