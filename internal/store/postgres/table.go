package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
)

// DefaultTableName is used when no table name is configured.
const DefaultTableName = "ledger_rows"

// DB is the subset of *pgxpool.Pool used by Table.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Table stores the ledger in a PostgreSQL table. Every write is a single
// statement; conditional writes report ErrConflict when no row was affected.
type Table struct {
	db      DB
	queries queries
}

// NewTable creates a table named name (DefaultTableName when empty) over db.
func NewTable(db DB, name string) *Table {
	if name == "" {
		name = DefaultTableName
	}
	return &Table{db: db, queries: newQueries(name)}
}

// EnsureSchema creates the table and its isbn index when missing.
func (t *Table) EnsureSchema(ctx context.Context) error {
	for _, stmt := range t.queries.schema() {
		if _, err := t.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ledger schema: %w", err)
		}
	}
	return nil
}

type record struct {
	ISBN      string `db:"isbn"`
	Title     string `db:"title"`
	Author    string `db:"author"`
	Thumbnail string `db:"thumbnail"`
	Stock     string `db:"stock"`
}

// Scan reads every row in id order.
func (t *Table) Scan(ctx context.Context) ([]ledger.Row, error) {
	sql, args, err := t.queries.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan query: %w", err)
	}

	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[record])
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger rows: %w", err)
	}

	out := make([]ledger.Row, len(records))
	for i, r := range records {
		out[i] = ledger.Row(r)
	}
	return out, nil
}

// Append inserts row. The isbn index rejects a second non-blank ISBN, so a
// duplicate append surfaces as a driver error.
func (t *Table) Append(ctx context.Context, row ledger.Row) error {
	_, err := t.exec(ctx, "append row", func() (string, []interface{}, error) {
		return t.queries.insert(row, false)
	})
	return err
}

// UpdateStock overwrites the stock of the row at position.
func (t *Table) UpdateStock(ctx context.Context, position int, stock int) error {
	if ledger.DataIndex(position) < 0 {
		return fmt.Errorf("%w: %d", ledger.ErrRowOutOfRange, position)
	}
	affected, err := t.exec(ctx, "update stock", func() (string, []interface{}, error) {
		return t.queries.updateStock(position, stock, nil)
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ledger.ErrRowOutOfRange, position)
	}
	return nil
}

// AppendIfAbsent inserts row unless its ISBN already exists.
func (t *Table) AppendIfAbsent(ctx context.Context, row ledger.Row) error {
	affected, err := t.exec(ctx, "append row", func() (string, []interface{}, error) {
		return t.queries.insert(row, true)
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// CompareAndSwapStock updates the stock of the row at position only if its
// isbn and raw stock still equal expected. A missing row is a conflict too,
// the caller re-reads either way.
func (t *Table) CompareAndSwapStock(ctx context.Context, position int, expected ledger.Row, stock int) error {
	if ledger.DataIndex(position) < 0 {
		return fmt.Errorf("%w: %d", ledger.ErrRowOutOfRange, position)
	}
	affected, err := t.exec(ctx, "swap stock", func() (string, []interface{}, error) {
		return t.queries.updateStock(position, stock, &expected)
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// Ping checks the database connection.
func (t *Table) Ping(ctx context.Context) error {
	return t.db.Ping(ctx)
}

func (t *Table) exec(ctx context.Context, op string, build func() (string, []interface{}, error)) (int64, error) {
	sql, args, err := build()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	tag, err := t.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}
