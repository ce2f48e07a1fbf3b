package ledger

import (
	"context"
	"errors"
)

var (
	// ErrConflict is returned by conditional writes when the row changed
	// since it was read. The ledger retries the whole operation on it.
	ErrConflict = errors.New("ledger row changed concurrently")

	// ErrRowOutOfRange is returned when a position does not address a data row.
	ErrRowOutOfRange = errors.New("row position out of range")
)

// Table is the contract every backing store offers the ledger.
//
// Scan must reflect every committed write at call time. Append does not
// check for duplicate ISBNs. UpdateStock overwrites only the stock column of
// the row at position (see RowPosition) and leaves the other columns intact.
type Table interface {
	Scan(ctx context.Context) ([]Row, error)
	Append(ctx context.Context, row Row) error
	UpdateStock(ctx context.Context, position int, stock int) error
}

// ConditionalTable is implemented by stores that can make a write depend on
// the state previously read. Both methods are a single atomic store write.
type ConditionalTable interface {
	Table

	// AppendIfAbsent appends row unless a row with the same ISBN exists,
	// in which case it returns ErrConflict.
	AppendIfAbsent(ctx context.Context, row Row) error

	// CompareAndSwapStock sets the stock of the row at position only if that
	// row still has expected.ISBN and the raw stock cell expected.Stock.
	// Otherwise it returns ErrConflict.
	CompareAndSwapStock(ctx context.Context, position int, expected Row, stock int) error
}

// Pinger is implemented by stores that can report their liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
