package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
)

// Table is an in-process ledger table. It keeps rows in insertion order and
// supports conditional writes, so it behaves like a shared store within a
// single process.
type Table struct {
	mu   sync.RWMutex
	rows []ledger.Row
}

// NewTable creates a table holding a copy of rows.
func NewTable(rows ...ledger.Row) *Table {
	t := &Table{rows: make([]ledger.Row, len(rows))}
	copy(t.rows, rows)
	return t
}

// Scan returns a snapshot of all rows.
func (t *Table) Scan(_ context.Context) ([]ledger.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := make([]ledger.Row, len(t.rows))
	copy(rows, t.rows)
	return rows, nil
}

// Append adds row at the end.
func (t *Table) Append(_ context.Context, row ledger.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = append(t.rows, row)
	return nil
}

// UpdateStock overwrites the stock cell of the row at position.
func (t *Table) UpdateStock(_ context.Context, position int, stock int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.indexLocked(position)
	if err != nil {
		return err
	}
	t.rows[i].Stock = strconv.Itoa(stock)
	return nil
}

// AppendIfAbsent appends row unless its ISBN is already present.
func (t *Table) AppendIfAbsent(_ context.Context, row ledger.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.rows {
		if r.ISBN == row.ISBN {
			return ledger.ErrConflict
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// CompareAndSwapStock updates the stock only if the row still matches expected.
func (t *Table) CompareAndSwapStock(_ context.Context, position int, expected ledger.Row, stock int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.indexLocked(position)
	if err != nil {
		return err
	}
	current := t.rows[i]
	if current.ISBN != expected.ISBN || current.Stock != expected.Stock {
		return ledger.ErrConflict
	}
	t.rows[i].Stock = strconv.Itoa(stock)
	return nil
}

// Ping always succeeds.
func (t *Table) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func (t *Table) indexLocked(position int) (int, error) {
	i := ledger.DataIndex(position)
	if i < 0 || i >= len(t.rows) {
		return 0, fmt.Errorf("%w: %d", ledger.ErrRowOutOfRange, position)
	}
	return i, nil
}
