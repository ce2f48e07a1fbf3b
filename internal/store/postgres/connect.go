package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

// ConnectOptions defines the pool and its startup retry behavior.
type ConnectOptions struct {
	DSN            string
	MaxConns       int32
	ConnectTimeout time.Duration // total time allowed for connection attempts
	RetryInterval  time.Duration // initial wait between attempts, doubled up to MaxWait
	MaxWait        time.Duration
	PingTimeout    time.Duration
}

const (
	defaultMinConns          = int32(1)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = time.Minute

	defaultConnectTimeout = 30 * time.Second
	defaultRetryInterval  = 2 * time.Second
	defaultMaxWait        = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
)

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.MaxWait < o.RetryInterval {
		o.MaxWait = max(defaultMaxWait, o.RetryInterval)
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	return o
}

// Connect opens a pool and waits until the database answers a ping or
// ConnectTimeout elapses.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MinConns = min(defaultMinConns, cfg.MaxConns)
	cfg.MaxConnLifetime = defaultMaxConnLifetime
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := waitReady(ctx, pool, opts, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitReady(ctx context.Context, pool *pgxpool.Pool, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	host := pool.Config().ConnConfig.Host
	log.Info("connecting to postgres",
		logger.String("host", host),
		logger.Duration("timeout", opts.ConnectTimeout))

	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := pool.Ping(pingCtx)
		pingCancel()
		if err == nil {
			log.Info("connected to postgres",
				logger.String("host", host),
				logger.Int("attempts", attempt))
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("postgres unavailable - failed to connect after timeout",
				logger.String("host", host),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("postgres unavailable at %s after %d attempts: %w", host, attempt, err)
		case <-timer.C:
			log.Warn("postgres connection failed, retrying",
				logger.String("host", host),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			wait = min(wait*2, opts.MaxWait)
		}
	}
}
