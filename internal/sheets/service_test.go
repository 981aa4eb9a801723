package sheets

import "testing"

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "1AbC-d_9" {
		t.Errorf("got %q", id)
	}

	if _, err := extractSpreadsheetID("https://example.com/sheet"); err == nil {
		t.Error("expected error for non-sheets URL")
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 13: "M", 26: "Z", 27: "AA", 52: "AZ"}
	for n, want := range tests {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}
