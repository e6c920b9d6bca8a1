package resilience

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
)

// TaskRunnerConfig configures a supervised long-lived loop.
type TaskRunnerConfig struct {
	Name                  string
	InitialRetryDelay     time.Duration
	MaxRetryDelay         time.Duration
	MaxConsecutiveFailures int
}

// TaskRunner wraps a long-lived loop body that returns success-or-error. On
// error it backs off exponentially and retries; after MaxConsecutiveFailures
// in a row it calls the configured fatal hook instead of retrying further,
// per spec §4.9.
type TaskRunner struct {
	cfg    TaskRunnerConfig
	logger zerolog.Logger
	onFatal func(lastErr error)
}

// NewTaskRunner constructs a TaskRunner. onFatal is invoked (not os.Exit
// directly) once the consecutive-failure budget is exhausted, so callers
// control process-abort policy.
func NewTaskRunner(cfg TaskRunnerConfig, logger zerolog.Logger, onFatal func(lastErr error)) *TaskRunner {
	return &TaskRunner{cfg: cfg, logger: logger.With().Str("task", cfg.Name).Logger(), onFatal: onFatal}
}

// Run executes body in a loop until ctx is cancelled or the failure budget
// is exhausted. body should itself respect ctx for cancellation.
func (r *TaskRunner) Run(ctx context.Context, body func(ctx context.Context) error) {
	b := &backoff.Backoff{
		Min:    r.cfg.InitialRetryDelay,
		Max:    r.cfg.MaxRetryDelay,
		Factor: 2,
	}

	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := body(ctx)
		if err == nil {
			consecutiveFailures = 0
			b.Reset()
			continue
		}

		if ctx.Err() != nil {
			return
		}

		consecutiveFailures++
		r.logger.Error().Err(err).Int("consecutive_failures", consecutiveFailures).Msg("task failed")

		if r.cfg.MaxConsecutiveFailures > 0 && consecutiveFailures >= r.cfg.MaxConsecutiveFailures {
			r.logger.Error().Msg("consecutive failure budget exhausted, aborting")
			if r.onFatal != nil {
				r.onFatal(err)
			}
			return
		}

		delay := b.Duration()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}
