package catalog

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
)

// Source yields every ledger entry in store order.
type Source interface {
	Entries(ctx context.Context) ([]domain.BookEntry, error)
}

// Searcher filters in-stock entries by a free text query.
type Searcher struct {
	source Source
}

func NewSearcher(source Source) *Searcher {
	return &Searcher{source: source}
}

// Search returns the in-stock entries whose title or author contains q
// (case-insensitive) or whose ISBN contains q verbatim. A blank query
// returns every in-stock entry. The result is never nil.
func (s *Searcher) Search(ctx context.Context, q string) ([]domain.BookEntry, error) {
	entries, err := s.source.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(entries, q), nil
}

// Filter applies the search rules to entries without touching the store.
func Filter(entries []domain.BookEntry, q string) []domain.BookEntry {
	q = strings.TrimSpace(q)
	folded := fold(q)

	out := make([]domain.BookEntry, 0, len(entries))
	for _, e := range entries {
		if !e.InStock() {
			continue
		}
		if q != "" && !matches(e, q, folded) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matches(e domain.BookEntry, raw, folded string) bool {
	return strings.Contains(fold(e.Title), folded) ||
		strings.Contains(fold(e.Author), folded) ||
		strings.Contains(e.ISBN, raw)
}

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
