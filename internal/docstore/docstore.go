// Package docstore keeps the uploaded documents and generated report
// workbooks on the local filesystem, one directory for each.
package docstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store is the filesystem layout for one service instance. Uploads and
// reports live in separate directories so report listing never has to
// filter out raw documents.
type Store struct {
	uploadDir string
	reportDir string
}

// New creates both directories if they are missing.
func New(uploadDir, reportDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, reportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("docstore: create %s: %w", dir, err)
		}
	}
	return &Store{uploadDir: uploadDir, reportDir: reportDir}, nil
}

// SaveUpload writes one uploaded document under a sanitized name and
// returns the stored path.
func (s *Store) SaveUpload(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, sanitize(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("docstore: create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("docstore: write upload: %w", err)
	}
	return path, nil
}

// ReadFile returns the contents of a stored file by its full path.
func (s *Store) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", path, err)
	}
	return data, nil
}

// ReportPath returns the full path a report with the given file name
// would be written to. The name is sanitized, so handler input can be
// passed straight through.
func (s *Store) ReportPath(name string) string {
	return filepath.Join(s.reportDir, sanitize(name))
}

// NewReportName builds a timestamped workbook file name.
func NewReportName(now time.Time) string {
	return fmt.Sprintf("TRANSTAR_Audit_%s.xlsx", now.Format("20060102_150405"))
}

// ListReports returns the report file names, newest first.
func (s *Store) ListReports() ([]string, error) {
	entries, err := os.ReadDir(s.reportDir)
	if err != nil {
		return nil, fmt.Errorf("docstore: list reports: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// sanitize strips path separators so an uploaded name can never escape
// the store directory.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "" {
		return "upload"
	}
	return name
}
