package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

func newTestTable(t *testing.T) (*Table, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTable(client, "test"), mr
}

func TestScanEmpty(t *testing.T) {
	table, _ := newTestTable(t)

	rows, err := table.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestAppendAndScanKeepOrder(t *testing.T) {
	ctx := context.Background()
	table, mr := newTestTable(t)

	first := ledger.Row{ISBN: "111", Title: "Algorithms", Author: "Cormen", Thumbnail: "t", Stock: "2"}
	second := ledger.Row{ISBN: "222", Title: "Patterns", Author: "Gamma", Stock: "1"}
	require.NoError(t, table.Append(ctx, first))
	require.NoError(t, table.Append(ctx, second))

	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Row{first, second}, rows)

	assert.True(t, mr.Exists("test:rows"))
	assert.True(t, mr.Exists("test:isbn-index"))
}

func TestUpdateStock(t *testing.T) {
	ctx := context.Background()
	table, _ := newTestTable(t)
	require.NoError(t, table.Append(ctx, ledger.Row{ISBN: "111", Title: "A", Stock: "2"}))
	require.NoError(t, table.Append(ctx, ledger.Row{ISBN: "222", Title: "B", Stock: "1"}))

	require.NoError(t, table.UpdateStock(ctx, ledger.RowPosition(1), 5))

	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", rows[0].Stock)
	assert.Equal(t, ledger.Row{ISBN: "222", Title: "B", Stock: "5"}, rows[1])

	assert.ErrorIs(t, table.UpdateStock(ctx, ledger.RowPosition(2), 1), ledger.ErrRowOutOfRange)
	assert.ErrorIs(t, table.UpdateStock(ctx, 1, 1), ledger.ErrRowOutOfRange)
}

func TestAppendIfAbsent(t *testing.T) {
	ctx := context.Background()
	table, _ := newTestTable(t)

	require.NoError(t, table.AppendIfAbsent(ctx, ledger.Row{ISBN: "111", Title: "A", Stock: "1"}))
	assert.ErrorIs(t, table.AppendIfAbsent(ctx, ledger.Row{ISBN: "111", Title: "B", Stock: "1"}), ledger.ErrConflict)

	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Title)
}

func TestCompareAndSwapStock(t *testing.T) {
	ctx := context.Background()
	table, _ := newTestTable(t)
	read := ledger.Row{ISBN: "111", Title: "A", Stock: "1"}
	require.NoError(t, table.Append(ctx, read))
	pos := ledger.RowPosition(0)

	require.NoError(t, table.CompareAndSwapStock(ctx, pos, read, 0))
	assert.ErrorIs(t, table.CompareAndSwapStock(ctx, pos, read, 0), ledger.ErrConflict)

	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", rows[0].Stock)
}

func TestCompareAndSwapStockMissingStockField(t *testing.T) {
	ctx := context.Background()
	table, mr := newTestTable(t)
	require.NoError(t, table.Append(ctx, ledger.Row{ISBN: "111", Title: "A", Stock: "3"}))

	ids, err := mr.List("test:rows")
	require.NoError(t, err)
	mr.HDel("test:row:"+ids[0], fieldStock)

	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", rows[0].Stock)
	assert.NoError(t, table.CompareAndSwapStock(ctx, ledger.RowPosition(0), rows[0], 1))
}

func TestLedgerOverRedisNeverOversells(t *testing.T) {
	ctx := context.Background()
	table, _ := newTestTable(t)
	require.NoError(t, table.Append(ctx, ledger.Row{ISBN: "111", Title: "A", Stock: "3"}))

	// Two ledgers share the table, like two service instances.
	policy := ledger.RetryPolicy{MaxAttempts: 50, BaseDelay: 0}
	ledgers := []*ledger.Ledger{
		ledger.New(table, logger.NewNop(), ledger.WithRetryPolicy(policy)),
		ledger.New(table, logger.NewNop(), ledger.WithRetryPolicy(policy)),
	}

	var (
		wg   sync.WaitGroup
		sold atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(l *ledger.Ledger) {
			defer wg.Done()
			if _, err := l.Receive(ctx, "111"); err == nil {
				sold.Add(1)
			}
		}(ledgers[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(3), sold.Load())
	rows, err := table.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", rows[0].Stock)
}

func TestNewKeysNormalizesPrefix(t *testing.T) {
	assert.Equal(t, "bookshare:rows", newKeys("").rows())
	assert.Equal(t, "shop:row:abc", newKeys("shop").row("abc"))
	assert.Equal(t, "shop:isbn-index", newKeys("shop:").isbnIndex())
}
