package redis

import "strings"

// DefaultKeyPrefix namespaces every ledger key.
const DefaultKeyPrefix = "bookshare:"

const (
	fieldISBN      = "isbn"
	fieldTitle     = "title"
	fieldAuthor    = "author"
	fieldThumbnail = "thumbnail"
	fieldStock     = "stock"
)

// keys builds the ledger key layout under a prefix:
//
//	<prefix>rows         list of row ids in ledger order
//	<prefix>row:<id>     hash holding one row
//	<prefix>isbn-index   hash isbn -> row id of the first row for that isbn
type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return keys{prefix: prefix}
}

func (k keys) rows() string { return k.prefix + "rows" }

func (k keys) row(id string) string { return k.prefix + "row:" + id }

func (k keys) isbnIndex() string { return k.prefix + "isbn-index" }
