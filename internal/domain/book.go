package domain

import "strings"

// UnknownAuthor is stored when a book is first donated without an author.
const UnknownAuthor = "Unknown Author"

// BookEntry is one ISBN's record in the ledger.
//
// The ledger holds at most one entry per ISBN. An entry is never deleted:
// once its stock reaches zero it is depleted, hidden from search, and can be
// replenished by a later donation.
type BookEntry struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ISBN is the natural key. Matching is exact and case-sensitive.
	ISBN string

	// ─────────────────────────────
	// Metadata
	// (set by the first donation, never overwritten)
	// ─────────────────────────────

	// Title is required on creation.
	Title string

	// Author defaults to UnknownAuthor when absent on creation.
	Author string

	// Thumbnail is an optional cover image URI.
	Thumbnail string

	// ─────────────────────────────
	// Inventory
	// ─────────────────────────────

	// Stock is the number of copies available. Always >= 0.
	Stock int
}

// InStock reports whether at least one copy can be received.
func (b BookEntry) InStock() bool {
	return b.Stock > 0
}

// SecureThumbnail returns the thumbnail with http:// upgraded to https://
// so covers can be embedded in pages served over TLS.
func (b BookEntry) SecureThumbnail() string {
	if strings.HasPrefix(b.Thumbnail, "http://") {
		return "https://" + strings.TrimPrefix(b.Thumbnail, "http://")
	}
	return b.Thumbnail
}
