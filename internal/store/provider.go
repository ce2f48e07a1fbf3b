package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/bookshare/internal/config"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
	redisconn "github.com/MrSnakeDoc/bookshare/internal/redis"
	"github.com/MrSnakeDoc/bookshare/internal/store/memory"
	"github.com/MrSnakeDoc/bookshare/internal/store/postgres"
	storeredis "github.com/MrSnakeDoc/bookshare/internal/store/redis"
)

// Table is what every backend offers: the ledger contract plus a health check.
type Table interface {
	ledger.Table
	ledger.Pinger
}

// Provider creates the configured backend on first use and keeps it for the
// life of the process. It is safe for concurrent use.
type Provider struct {
	cfg    *config.Config
	logger logger.Logger

	once    sync.Once
	table   Table
	err     error
	closers []func()
}

func NewProvider(cfg *config.Config, log logger.Logger) *Provider {
	return &Provider{cfg: cfg, logger: log}
}

// Kind is the configured backend name.
func (p *Provider) Kind() string {
	return p.cfg.Store
}

// Table returns the shared table, connecting on the first call. A failed
// connection is remembered; the process is expected to exit.
func (p *Provider) Table(ctx context.Context) (Table, error) {
	p.once.Do(func() {
		p.table, p.err = p.open(ctx)
		if p.err == nil {
			p.logger.Info("ledger store ready", logger.String("store", p.cfg.Store))
		}
	})
	return p.table, p.err
}

func (p *Provider) open(ctx context.Context) (Table, error) {
	switch p.cfg.Store {
	case config.StoreMemory:
		return memory.NewTable(), nil

	case config.StoreRedis:
		client, err := redisconn.New(ctx, redisconn.OptionsFromConfig(p.cfg), p.logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() {
			if err := client.Close(); err != nil {
				p.logger.Warn("failed to close redis", logger.Error(err))
			}
		})
		return storeredis.NewTable(client, p.cfg.RedisKeyPrefix), nil

	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, postgres.ConnectOptions{
			DSN:            p.cfg.PostgresDSN,
			MaxConns:       int32(p.cfg.PostgresMaxConns), //nolint:gosec // small config value
			ConnectTimeout: p.cfg.PostgresConnectTimeout,
		}, p.logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, pool.Close)

		table := postgres.NewTable(pool, p.cfg.PostgresTable)
		if err := table.EnsureSchema(ctx); err != nil {
			pool.Close()
			p.closers = nil
			return nil, err
		}
		return table, nil

	default:
		return nil, fmt.Errorf("unknown store %q", p.cfg.Store)
	}
}

// Close releases the backend client, if one was opened.
func (p *Provider) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}
