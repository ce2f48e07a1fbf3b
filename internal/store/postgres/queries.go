package postgres

import (
	"fmt"
	"strconv"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
)

const (
	dialectPostgres = "postgres"

	colID        = "id"
	colISBN      = "isbn"
	colTitle     = "title"
	colAuthor    = "author"
	colThumbnail = "thumbnail"
	colStock     = "stock"
)

// queries builds the SQL for one ledger table. Statements are prepared so
// cell values always travel as arguments.
type queries struct {
	table   string
	builder goqu.DialectWrapper
}

func newQueries(table string) queries {
	return queries{table: table, builder: goqu.Dialect(dialectPostgres)}
}

// schema returns the DDL creating the table and its isbn index. Positions
// follow the id sequence, so row order is insertion order.
func (q queries) schema() []string {
	ident := pgx.Identifier{q.table}.Sanitize()
	index := pgx.Identifier{q.table + "_isbn_key"}.Sanitize()
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	isbn text NOT NULL,
	title text NOT NULL DEFAULT '',
	author text NOT NULL DEFAULT '',
	thumbnail text NOT NULL DEFAULT '',
	stock text NOT NULL DEFAULT ''
)`, ident),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (isbn) WHERE isbn <> ''`, index, ident),
	}
}

func (q queries) scan() (string, []interface{}, error) {
	return q.builder.
		From(q.table).
		Select(colISBN, colTitle, colAuthor, colThumbnail, colStock).
		Order(goqu.I(colID).Asc()).
		Prepared(true).
		ToSQL()
}

func (q queries) insert(row ledger.Row, ifAbsent bool) (string, []interface{}, error) {
	stmt := q.builder.
		Insert(q.table).
		Rows(goqu.Record{
			colISBN:      row.ISBN,
			colTitle:     row.Title,
			colAuthor:    row.Author,
			colThumbnail: row.Thumbnail,
			colStock:     row.Stock,
		})
	if ifAbsent {
		stmt = stmt.OnConflict(goqu.DoNothing())
	}
	return stmt.Prepared(true).ToSQL()
}

// updateStock targets the row at position by its rank in id order. When
// expected is non-nil the update also requires the row's isbn and raw
// stock to be unchanged.
func (q queries) updateStock(position int, stock int, expected *ledger.Row) (string, []interface{}, error) {
	rowID := q.builder.
		From(q.table).
		Select(colID).
		Order(goqu.I(colID).Asc()).
		Offset(uint(ledger.DataIndex(position))).
		Limit(1)

	where := []goqu.Expression{goqu.C(colID).Eq(rowID)}
	if expected != nil {
		where = append(where,
			goqu.C(colISBN).Eq(expected.ISBN),
			goqu.C(colStock).Eq(expected.Stock),
		)
	}

	return q.builder.
		Update(q.table).
		Set(goqu.Record{colStock: strconv.Itoa(stock)}).
		Where(where...).
		Prepared(true).
		ToSQL()
}
