package ledger

import (
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
)

// Column order of a ledger row.
const (
	ColISBN = iota
	ColTitle
	ColAuthor
	ColThumbnail
	ColStock

	NumColumns
)

// HeaderRows is the number of header rows preceding data in the table.
const HeaderRows = 1

// Row is the flat positional representation of one ledger line.
// Stock is kept as the raw cell text so legacy values survive a round trip
// and conditional writes can compare against exactly what was read.
type Row struct {
	ISBN      string
	Title     string
	Author    string
	Thumbnail string
	Stock     string
}

// RowFromCells maps positional cells to a Row. Missing trailing cells are
// treated as empty; extra cells are ignored.
func RowFromCells(cells []string) Row {
	cell := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return Row{
		ISBN:      cell(ColISBN),
		Title:     cell(ColTitle),
		Author:    cell(ColAuthor),
		Thumbnail: cell(ColThumbnail),
		Stock:     cell(ColStock),
	}
}

// Cells returns the row in column order.
func (r Row) Cells() []string {
	return []string{r.ISBN, r.Title, r.Author, r.Thumbnail, r.Stock}
}

// RowFromEntry builds the row written for an entry.
func RowFromEntry(e domain.BookEntry) Row {
	return Row{
		ISBN:      e.ISBN,
		Title:     e.Title,
		Author:    e.Author,
		Thumbnail: e.Thumbnail,
		Stock:     strconv.Itoa(e.Stock),
	}
}

// EntryFromRow maps a row to a BookEntry, normalizing the stock cell.
func EntryFromRow(r Row) domain.BookEntry {
	return domain.BookEntry{
		ISBN:      r.ISBN,
		Title:     r.Title,
		Author:    r.Author,
		Thumbnail: r.Thumbnail,
		Stock:     ParseStock(r.Stock),
	}
}

// ParseStock reads a stock cell. Missing, blank, non-numeric and negative
// values all count as 0 so partially populated rows read as "no stock".
func ParseStock(cell string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// stockMalformed reports whether ParseStock had to normalize the cell.
// A blank cell is a legitimate "no stock" and is not malformed.
func stockMalformed(cell string) bool {
	s := strings.TrimSpace(cell)
	if s == "" {
		return false
	}
	n, err := strconv.Atoi(s)
	return err != nil || n < 0
}

// RowPosition converts a 0-based data index from Scan into the 1-based,
// header-offset position a Table addresses rows by.
func RowPosition(dataIndex int) int {
	return dataIndex + HeaderRows + 1
}

// DataIndex is the inverse of RowPosition.
func DataIndex(position int) int {
	return position - HeaderRows - 1
}

// findRow returns the data index and row of the first row whose ISBN equals
// isbn exactly. Blank ISBNs never match.
func findRow(rows []Row, isbn string) (int, Row, bool) {
	if isbn == "" {
		return -1, Row{}, false
	}
	for i, r := range rows {
		if r.ISBN == isbn {
			return i, r, true
		}
	}
	return -1, Row{}, false
}
