package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookshare/internal/config"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

func TestProviderCreatesTableOnce(t *testing.T) {
	p := NewProvider(&config.Config{Store: config.StoreMemory}, logger.NewNop())
	defer p.Close()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tables []Table
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := p.Table(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			tables = append(tables, table)
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, table := range tables[1:] {
		assert.Same(t, tables[0], table)
	}
	assert.Equal(t, config.StoreMemory, p.Kind())
}

func TestProviderRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Store:               config.StoreRedis,
		RedisAddr:           mr.Addr(),
		RedisKeyPrefix:      "provider-test:",
		RedisDT:             time.Second,
		RedisRT:             time.Second,
		RedisWT:             time.Second,
		RedisPoolSize:       2,
		RedisConnectTimeout: time.Second,
		RedisRetryInterval:  50 * time.Millisecond,
		RedisMaxWait:        100 * time.Millisecond,
		RedisPingTimeout:    100 * time.Millisecond,
	}
	p := NewProvider(cfg, logger.NewNop())
	defer p.Close()

	table, err := p.Table(context.Background())
	require.NoError(t, err)
	require.NoError(t, table.Ping(context.Background()))

	_, ok := table.(ledger.ConditionalTable)
	assert.True(t, ok, "redis table must support conditional writes")

	require.NoError(t, table.Append(context.Background(), ledger.Row{ISBN: "111", Title: "A", Stock: "1"}))
	assert.True(t, mr.Exists("provider-test:rows"))
}

func TestProviderRemembersFailure(t *testing.T) {
	p := NewProvider(&config.Config{Store: "sheets"}, logger.NewNop())

	_, err := p.Table(context.Background())
	require.Error(t, err)
	_, again := p.Table(context.Background())
	assert.Equal(t, err, again)
}
