package ledger

import "time"

// AuditReport summarizes a ledger scan and the anomalies found in it.
// Positions are table positions (see RowPosition).
type AuditReport struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	Rows      int       `json:"rows"`
	InStock   int       `json:"in_stock"`
	Depleted  int       `json:"depleted"`
	Units     int       `json:"units"`
	BlankISBN []int     `json:"blank_isbn,omitempty"`
	Malformed []int     `json:"malformed_stock,omitempty"`

	// Duplicates maps an ISBN to the positions of every row after the
	// first one carrying it. Lookups only ever see the first row.
	Duplicates map[string][]int `json:"duplicates,omitempty"`
}

// Healthy reports whether the scan found no anomaly.
func (r AuditReport) Healthy() bool {
	return len(r.BlankISBN) == 0 && len(r.Malformed) == 0 && len(r.Duplicates) == 0
}

// Audit inspects rows without modifying anything. Duplicate rows are not
// counted as entries; their stock is invisible to the ledger.
func Audit(rows []Row) AuditReport {
	report := AuditReport{Rows: len(rows)}
	seen := make(map[string]bool, len(rows))

	for i, r := range rows {
		pos := RowPosition(i)

		if r.ISBN == "" {
			report.BlankISBN = append(report.BlankISBN, pos)
			continue
		}
		if seen[r.ISBN] {
			if report.Duplicates == nil {
				report.Duplicates = make(map[string][]int)
			}
			report.Duplicates[r.ISBN] = append(report.Duplicates[r.ISBN], pos)
			continue
		}
		seen[r.ISBN] = true

		if stockMalformed(r.Stock) {
			report.Malformed = append(report.Malformed, pos)
		}

		stock := ParseStock(r.Stock)
		if stock > 0 {
			report.InStock++
			report.Units += stock
		} else {
			report.Depleted++
		}
	}

	return report
}
