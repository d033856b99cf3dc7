package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-api-probe/internal/observability"
)

// ChangeFunc handles one debounced batch of events.
type ChangeFunc func(ctx context.Context, events []Event)

// Coordinator debounces watcher events and invokes a ChangeFunc once per
// quiet period. Invocations never overlap.
type Coordinator struct {
	watcher  *Watcher
	debounce time.Duration
	onChange ChangeFunc
	logger   *observability.Logger
}

func NewCoordinator(watcher *Watcher, debounce time.Duration, onChange ChangeFunc, logger *observability.Logger) *Coordinator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Coordinator{
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run starts the watcher and blocks until ctx is done, then stops it.
func (c *Coordinator) Run(ctx context.Context) error {
	c.watcher.Start()
	defer c.watcher.Stop()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending []Event
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-c.watcher.Events():
			if !ok {
				return nil
			}
			pending = append(pending, event)
			if timer == nil {
				timer = time.NewTimer(c.debounce)
			} else {
				timer.Reset(c.debounce)
			}
			fire = timer.C

		case <-fire:
			events := pending
			pending = nil
			timer, fire = nil, nil

			c.logger.Info("Watched files changed, re-running", zap.Int("events", len(events)))
			for _, e := range events {
				c.logger.Debug("Change triggered by", zap.String("path", e.Path), zap.String("operation", e.Op.String()))
			}
			c.onChange(ctx, events)
		}
	}
}
