package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tune pool creation.
type Options struct {
	// ConnectRetries is the number of extra ping attempts before giving up.
	ConnectRetries uint64
	// RetryInterval is the initial delay between attempts.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// New creates a new PostgreSQL connection pool, retrying the initial ping
// with exponential backoff.
func New(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := Ping(ctx, pool.Ping, opts); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Ping calls ping until it succeeds or the retry budget is spent.
func Ping(ctx context.Context, ping func(context.Context) error, opts Options) error {
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := ping(ctx)
		if err != nil && opts.Logger != nil {
			opts.Logger.Warn("database ping failed", slog.Int("attempt", attempt), slog.Any("error", err))
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, opts.ConnectRetries), ctx))
	if err != nil {
		return fmt.Errorf("platform/db: ping: %w", err)
	}
	return nil
}
