// Package retry re-runs per-agreement writes that lost a lock race.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bibbank/leasing/internal/domain/model"
)

// Config bounds the retry budget.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Retrier retries model.ReconciliationConflictError with exponential
// backoff. Every other error is returned immediately.
type Retrier struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Retrier. Zero fields fall back to sane defaults.
func New(cfg Config, logger *slog.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{cfg: cfg, logger: logger}
}

func (r *Retrier) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.cfg.InitialInterval
	exp.MaxInterval = r.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.cfg.MaxAttempts-1)), ctx)
}

// Do runs op until it succeeds, fails permanently, exhausts the attempt
// budget or ctx is done.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := op(ctx)
			if err == nil || model.IsConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		},
		r.policy(ctx),
		func(err error, wait time.Duration) {
			r.logger.Debug("retrying after conflict", "attempt", attempt, "wait", wait, "error", err)
		},
	)
}
