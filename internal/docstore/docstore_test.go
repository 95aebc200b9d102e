package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "uploads"), filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestSaveUploadAndReadFile(t *testing.T) {
	store := newTestStore(t)

	path, err := store.SaveUpload("order.pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}

	data, err := store.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "content" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestSaveUpload_SanitizesName(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"../../etc/passwd", "passwd"},
		{"..\\..\\evil.pdf", "evil.pdf"},
		{"..", "upload"},
		{"", "upload"},
		{"plain.pdf", "plain.pdf"},
	}

	for _, tt := range tests {
		path, err := store.SaveUpload(tt.name, strings.NewReader("x"))
		if err != nil {
			t.Fatalf("SaveUpload(%q) error = %v", tt.name, err)
		}
		if got := filepath.Base(path); got != tt.want {
			t.Errorf("SaveUpload(%q) stored as %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestListReports(t *testing.T) {
	store := newTestStore(t)

	names := []string{
		"TRANSTAR_Audit_20250115_090000.xlsx",
		"TRANSTAR_Audit_20250220_090000.xlsx",
	}
	for _, name := range names {
		if err := os.WriteFile(store.ReportPath(name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	// Non-workbook files are skipped.
	if err := os.WriteFile(store.ReportPath("notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reports, err := store.ListReports()
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("ListReports() = %v, want the two workbooks", reports)
	}
	if reports[0] != "TRANSTAR_Audit_20250220_090000.xlsx" {
		t.Errorf("ListReports() not newest first: %v", reports)
	}
}

func TestNewReportName(t *testing.T) {
	ts := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	if got := NewReportName(ts); got != "TRANSTAR_Audit_20250115_093000.xlsx" {
		t.Errorf("NewReportName() = %q", got)
	}
}
