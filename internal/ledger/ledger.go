package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

// ChangeKind identifies the mutation that produced a Change.
type ChangeKind string

const (
	ChangeDonate  ChangeKind = "donate"
	ChangeReceive ChangeKind = "receive"
)

// Change describes a committed mutation. Entry carries the post-write state.
type Change struct {
	Kind  ChangeKind
	Entry domain.BookEntry
}

// Notifier receives every committed change. Publish must not block.
type Notifier interface {
	Publish(change Change)
}

// DonateRequest is one donated copy.
type DonateRequest struct {
	ISBN      string
	Title     string
	Author    string
	Thumbnail string
}

// DonateResult is returned after a successful donation.
type DonateResult struct {
	ISBN  string `json:"isbn"`
	Stock int    `json:"stock"`
}

// Ledger owns the donate/receive protocol over a Table.
//
// Mutations on the same ISBN are serialized in-process. When the table is a
// ConditionalTable the final write is also conditioned on the row that was
// read, so concurrent writers in other processes are detected and the
// operation is re-run under the retry policy.
type Ledger struct {
	table    Table
	cond     ConditionalTable
	locks    *keyedMutex
	retry    RetryPolicy
	notifier Notifier
	logger   logger.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(l *Ledger) { l.retry = p }
}

// WithNotifier registers the receiver of committed changes.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// New creates a ledger over table.
func New(table Table, log logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		table:  table,
		locks:  newKeyedMutex(),
		retry:  DefaultRetryPolicy(),
		logger: log,
	}
	if cond, ok := table.(ConditionalTable); ok {
		l.cond = cond
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.cond == nil {
		l.logger.Warn("ledger table has no conditional writes, concurrent writers in other processes may lose updates")
	}

	return l
}

// Conditional reports whether writes are compare-and-set.
func (l *Ledger) Conditional() bool {
	return l.cond != nil
}

// Rows returns the raw row set, in store order.
func (l *Ledger) Rows(ctx context.Context) ([]Row, error) {
	rows, err := l.table.Scan(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: "scan", Err: err}
	}
	return rows, nil
}

// Entries returns every entry with an ISBN, in store order, depleted ones included.
func (l *Ledger) Entries(ctx context.Context) ([]domain.BookEntry, error) {
	rows, err := l.Rows(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.BookEntry, 0, len(rows))
	for _, r := range rows {
		if r.ISBN == "" {
			continue
		}
		entries = append(entries, EntryFromRow(r))
	}
	return entries, nil
}

// Donate adds one copy of a book, registering it on first donation.
// An existing entry keeps the metadata of its first donation.
func (l *Ledger) Donate(ctx context.Context, req DonateRequest) (DonateResult, error) {
	isbn := strings.TrimSpace(req.ISBN)
	title := strings.TrimSpace(req.Title)
	if isbn == "" {
		return DonateResult{}, &domain.ValidationError{Field: "isbn"}
	}
	if title == "" {
		return DonateResult{}, &domain.ValidationError{Field: "title"}
	}

	fresh := domain.BookEntry{
		ISBN:      isbn,
		Title:     title,
		Author:    strings.TrimSpace(req.Author),
		Thumbnail: strings.TrimSpace(req.Thumbnail),
		Stock:     1,
	}
	if fresh.Author == "" {
		fresh.Author = domain.UnknownAuthor
	}

	entry, err := l.mutate(ctx, ChangeDonate, isbn, func(ctx context.Context) (domain.BookEntry, error) {
		return l.donateOnce(ctx, fresh)
	})
	if err != nil {
		return DonateResult{}, err
	}

	l.logger.Info("book donated",
		logger.String("isbn", isbn),
		logger.Int("stock", entry.Stock))

	return DonateResult{ISBN: isbn, Stock: entry.Stock}, nil
}

func (l *Ledger) donateOnce(ctx context.Context, fresh domain.BookEntry) (domain.BookEntry, error) {
	rows, err := l.table.Scan(ctx)
	if err != nil {
		return domain.BookEntry{}, &domain.StoreError{Op: "scan", ISBN: fresh.ISBN, Err: err}
	}

	idx, row, found := findRow(rows, fresh.ISBN)
	if !found {
		newRow := RowFromEntry(fresh)
		if l.cond != nil {
			err = l.cond.AppendIfAbsent(ctx, newRow)
		} else {
			err = l.table.Append(ctx, newRow)
		}
		if err != nil {
			return domain.BookEntry{}, storeWriteError("append", fresh.ISBN, err)
		}
		return fresh, nil
	}

	entry := EntryFromRow(row)
	entry.Stock++
	if err := l.writeStock(ctx, idx, row, entry.Stock); err != nil {
		return domain.BookEntry{}, err
	}
	return entry, nil
}

// Receive takes one copy of an in-stock book and returns the updated entry.
func (l *Ledger) Receive(ctx context.Context, isbn string) (domain.BookEntry, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return domain.BookEntry{}, &domain.ValidationError{Field: "isbn"}
	}

	entry, err := l.mutate(ctx, ChangeReceive, isbn, func(ctx context.Context) (domain.BookEntry, error) {
		return l.receiveOnce(ctx, isbn)
	})
	if err != nil {
		return domain.BookEntry{}, err
	}

	l.logger.Info("book received",
		logger.String("isbn", isbn),
		logger.Int("stock", entry.Stock))

	return entry, nil
}

func (l *Ledger) receiveOnce(ctx context.Context, isbn string) (domain.BookEntry, error) {
	rows, err := l.table.Scan(ctx)
	if err != nil {
		return domain.BookEntry{}, &domain.StoreError{Op: "scan", ISBN: isbn, Err: err}
	}

	idx, row, found := findRow(rows, isbn)
	if !found {
		return domain.BookEntry{}, &domain.NotFoundError{ISBN: isbn}
	}

	entry := EntryFromRow(row)
	if entry.Stock <= 0 {
		return domain.BookEntry{}, &domain.DepletedError{ISBN: isbn, Title: entry.Title}
	}

	entry.Stock--
	if err := l.writeStock(ctx, idx, row, entry.Stock); err != nil {
		return domain.BookEntry{}, err
	}
	return entry, nil
}

// writeStock issues the single stock write for the row read at idx.
func (l *Ledger) writeStock(ctx context.Context, idx int, read Row, stock int) error {
	pos := RowPosition(idx)

	var err error
	if l.cond != nil {
		err = l.cond.CompareAndSwapStock(ctx, pos, read, stock)
	} else {
		err = l.table.UpdateStock(ctx, pos, stock)
	}
	if err != nil {
		return storeWriteError("update", read.ISBN, err)
	}
	return nil
}

// mutate runs op under the ISBN lock and the retry policy, and publishes the
// committed entry before releasing the lock so subscribers see the changes of
// one ISBN in commit order. A conflict that survives every attempt stays
// wrapped in its StoreError; a context error raised while waiting is wrapped
// into one.
func (l *Ledger) mutate(ctx context.Context, kind ChangeKind, isbn string, op func(ctx context.Context) (domain.BookEntry, error)) (domain.BookEntry, error) {
	name := string(kind)
	unlock, err := l.locks.Lock(ctx, isbn)
	if err != nil {
		return domain.BookEntry{}, &domain.StoreError{Op: name, ISBN: isbn, Err: err}
	}
	defer unlock()

	var entry domain.BookEntry
	err = l.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		var err error
		entry, err = op(ctx)
		if errors.Is(err, ErrConflict) {
			l.logger.Debug("ledger write conflict, retrying",
				logger.String("op", name),
				logger.String("isbn", isbn),
				logger.Int("attempt", attempt))
		}
		return err
	})

	if err == nil {
		l.publish(kind, entry)
		return entry, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if !errors.Is(err, domain.ErrStore) {
			err = &domain.StoreError{Op: name, ISBN: isbn, Err: err}
		}
	}

	if errors.Is(err, domain.ErrStore) {
		l.logger.Error("ledger operation failed",
			logger.String("op", name),
			logger.String("isbn", isbn),
			logger.Error(err))
	}
	return domain.BookEntry{}, err
}

func (l *Ledger) publish(kind ChangeKind, entry domain.BookEntry) {
	if l.notifier == nil {
		return
	}
	l.notifier.Publish(Change{Kind: kind, Entry: entry})
}

func storeWriteError(op, isbn string, err error) error {
	return &domain.StoreError{Op: op, ISBN: isbn, Err: err}
}
