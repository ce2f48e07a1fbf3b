package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
)

// Table stores the ledger in Redis. Row order is the order of the rows list;
// each row lives in its own hash so a stock write touches a single field.
//
// Conditional writes use WATCH/MULTI, so concurrent processes sharing the
// same Redis see each other's conflicts.
type Table struct {
	client redis.UniversalClient
	keys   keys
}

// NewTable creates a table over client using keyPrefix (DefaultKeyPrefix when empty).
func NewTable(client redis.UniversalClient, keyPrefix string) *Table {
	return &Table{client: client, keys: newKeys(keyPrefix)}
}

// Scan reads every row in list order.
func (t *Table) Scan(ctx context.Context) ([]ledger.Row, error) {
	ids, err := t.client.LRange(ctx, t.keys.rows(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	if len(ids) == 0 {
		return []ledger.Row{}, nil
	}

	pipe := t.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, t.keys.row(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	rows := make([]ledger.Row, len(ids))
	for i, cmd := range cmds {
		rows[i] = rowFromHash(cmd.Val())
	}
	return rows, nil
}

// Append adds row at the end of the ledger without checking for duplicates.
func (t *Table) Append(ctx context.Context, row ledger.Row) error {
	id := newRowID()
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		t.queueAppend(ctx, pipe, id, row)
		if row.ISBN != "" {
			pipe.HSetNX(ctx, t.keys.isbnIndex(), row.ISBN, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// UpdateStock overwrites the stock field of the row at position.
func (t *Table) UpdateStock(ctx context.Context, position int, stock int) error {
	id, err := t.rowID(ctx, t.client, position)
	if err != nil {
		return err
	}
	if err := t.client.HSet(ctx, t.keys.row(id), fieldStock, strconv.Itoa(stock)).Err(); err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return nil
}

// AppendIfAbsent appends row unless its ISBN is already indexed.
func (t *Table) AppendIfAbsent(ctx context.Context, row ledger.Row) error {
	id := newRowID()

	err := t.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, t.keys.isbnIndex(), row.ISBN).Result()
		if err != nil {
			return fmt.Errorf("failed to check isbn index: %w", err)
		}
		if exists {
			return ledger.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			t.queueAppend(ctx, pipe, id, row)
			pipe.HSet(ctx, t.keys.isbnIndex(), row.ISBN, id)
			return nil
		})
		return err
	}, t.keys.isbnIndex())

	return translateTxErr("append row", err)
}

// CompareAndSwapStock sets the stock of the row at position if its ISBN and
// raw stock field still equal expected.
func (t *Table) CompareAndSwapStock(ctx context.Context, position int, expected ledger.Row, stock int) error {
	id, err := t.rowID(ctx, t.client, position)
	if err != nil {
		return err
	}
	key := t.keys.row(id)

	err = t.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, fieldISBN, fieldStock).Result()
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		if str(vals[0]) != expected.ISBN || str(vals[1]) != expected.Stock {
			return ledger.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldStock, strconv.Itoa(stock))
			return nil
		})
		return err
	}, key)

	return translateTxErr("swap stock", err)
}

// Ping checks the Redis connection.
func (t *Table) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *Table) queueAppend(ctx context.Context, pipe redis.Pipeliner, id string, row ledger.Row) {
	pipe.HSet(ctx, t.keys.row(id),
		fieldISBN, row.ISBN,
		fieldTitle, row.Title,
		fieldAuthor, row.Author,
		fieldThumbnail, row.Thumbnail,
		fieldStock, row.Stock,
	)
	pipe.RPush(ctx, t.keys.rows(), id)
}

func (t *Table) rowID(ctx context.Context, c redis.Cmdable, position int) (string, error) {
	i := ledger.DataIndex(position)
	if i < 0 {
		return "", fmt.Errorf("%w: %d", ledger.ErrRowOutOfRange, position)
	}
	id, err := c.LIndex(ctx, t.keys.rows(), int64(i)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %d", ledger.ErrRowOutOfRange, position)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve row %d: %w", position, err)
	}
	return id, nil
}

func translateTxErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrConflict):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return ledger.ErrConflict
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func rowFromHash(h map[string]string) ledger.Row {
	return ledger.Row{
		ISBN:      h[fieldISBN],
		Title:     h[fieldTitle],
		Author:    h[fieldAuthor],
		Thumbnail: h[fieldThumbnail],
		Stock:     h[fieldStock],
	}
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func newRowID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
