package fileid

import (
	"strings"
	"testing"
)

func TestSourceID(t *testing.T) {
	id1 := SourceID("/docs/report.pdf")
	id2 := SourceID("/docs/report.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if SourceID("/docs/other.pdf") == id1 {
		t.Error("different paths should give different IDs")
	}
}

func TestSourceID_normalized(t *testing.T) {
	if SourceID("/foo/bar") != SourceID("/foo/./bar/") {
		t.Error("paths should normalize before hashing")
	}
}

func TestSourceKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report"},
		{"reports/q3.pdf", "reports-q3"},
		{"./a/b/c.txt", "a-b-c"},
		{"annual report.docx", "annual_report"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SourceKey(tt.in); got != tt.want {
				t.Errorf("SourceKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
