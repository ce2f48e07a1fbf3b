package ledger

import "testing"

func TestAudit(t *testing.T) {
	rows := []Row{
		{ISBN: "111", Title: "A", Stock: "2"},
		{ISBN: "222", Title: "B", Stock: "0"},
		{ISBN: "", Title: "orphan", Stock: "1"},
		{ISBN: "333", Title: "C", Stock: "lots"},
		{ISBN: "111", Title: "A again", Stock: "5"},
		{ISBN: "444", Title: "D", Stock: "1"},
	}

	report := Audit(rows)

	if report.Rows != 6 || report.InStock != 2 || report.Depleted != 2 || report.Units != 3 {
		t.Errorf("Audit() counts = %+v", report)
	}
	if len(report.BlankISBN) != 1 || report.BlankISBN[0] != 4 {
		t.Errorf("BlankISBN = %v, want [4]", report.BlankISBN)
	}
	if len(report.Malformed) != 1 || report.Malformed[0] != 5 {
		t.Errorf("Malformed = %v, want [5]", report.Malformed)
	}
	if dup := report.Duplicates["111"]; len(dup) != 1 || dup[0] != 6 {
		t.Errorf("Duplicates = %v", report.Duplicates)
	}
	if report.Healthy() {
		t.Error("report with anomalies must not be healthy")
	}
	if !Audit(rows[:2]).Healthy() {
		t.Error("clean rows must be healthy")
	}
}
