package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

// Result summarizes an import.
type Result struct {
	Added   int
	Present int
	Invalid int
}

// Import appends every seed book whose ISBN is not yet in the ledger.
// Existing rows are never modified, so running it twice is harmless.
func Import(ctx context.Context, table ledger.Table, f File, log logger.Logger) (Result, error) {
	rows, err := table.Scan(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to scan ledger before seeding: %w", err)
	}

	known := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.ISBN != "" {
			known[r.ISBN] = struct{}{}
		}
	}

	cond, conditional := table.(ledger.ConditionalTable)

	var res Result
	for i, b := range f.Books {
		entry, ok := toEntry(b)
		if !ok {
			res.Invalid++
			log.Warn("skipping invalid seed book",
				logger.Int("index", i),
				logger.String("isbn", b.ISBN))
			continue
		}
		if _, exists := known[entry.ISBN]; exists {
			res.Present++
			continue
		}

		row := ledger.RowFromEntry(entry)
		if conditional {
			err = cond.AppendIfAbsent(ctx, row)
		} else {
			err = table.Append(ctx, row)
		}
		switch {
		case err == nil:
			res.Added++
		case conditional && errors.Is(err, ledger.ErrConflict):
			// another instance seeded it first
			res.Present++
		default:
			return res, fmt.Errorf("failed to seed isbn %s: %w", entry.ISBN, err)
		}
		known[entry.ISBN] = struct{}{}
	}

	log.Info("ledger seeded",
		logger.Int("added", res.Added),
		logger.Int("present", res.Present),
		logger.Int("invalid", res.Invalid))
	return res, nil
}

func toEntry(b Book) (domain.BookEntry, bool) {
	e := domain.BookEntry{
		ISBN:      strings.TrimSpace(b.ISBN),
		Title:     strings.TrimSpace(b.Title),
		Author:    strings.TrimSpace(b.Author),
		Thumbnail: strings.TrimSpace(b.Thumbnail),
		Stock:     1,
	}
	if e.ISBN == "" || e.Title == "" {
		return domain.BookEntry{}, false
	}
	if e.Author == "" {
		e.Author = domain.UnknownAuthor
	}
	if b.Stock != nil {
		e.Stock = max(*b.Stock, 0)
	}
	return e, true
}
