package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/jobs"
	"github.com/transtar/freight-audit/internal/jobs/inmemory"
)

// mockPublisher records published jobs instead of running them.
type mockPublisher struct {
	published []*jobs.AuditJob
	err       error
}

func (m *mockPublisher) PublishAudit(ctx context.Context, job *jobs.AuditJob) error {
	if m.err != nil {
		return m.err
	}
	if job.JobID == "" {
		job.JobID = "test-job"
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func testStore(t *testing.T) *docstore.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := docstore.New(filepath.Join(dir, "uploads"), filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("docstore.New() error = %v", err)
	}
	return store
}

func multipartBody(t *testing.T, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			if err != nil {
				t.Fatalf("CreateFormFile() error = %v", err)
			}
			io.WriteString(part, "TRN-2501 01\nDatum: 15.01.2025\n")
		}
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestCreateAudit(t *testing.T) {
	publisher := &mockPublisher{}
	h := NewAuditsHandler(testStore(t), publisher, zerolog.Nop())

	body, contentType := multipartBody(t, map[string][]string{
		"orders": {"order1.txt", "order2.txt"},
		"notes":  {"note1.txt"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.CreateAudit(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["job_id"] != "test-job" {
		t.Errorf("job_id = %v", resp["job_id"])
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(publisher.published))
	}
	job := publisher.published[0]
	if len(job.OrderFiles) != 2 || len(job.NoteFiles) != 1 {
		t.Errorf("job files = %d orders, %d notes", len(job.OrderFiles), len(job.NoteFiles))
	}
	for _, path := range job.OrderFiles {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("uploaded file not stored: %v", err)
		}
	}
}

func TestCreateAudit_RequiresDocuments(t *testing.T) {
	h := NewAuditsHandler(testStore(t), &mockPublisher{}, zerolog.Nop())

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.CreateAudit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateAudit_RejectsNonMultipart(t *testing.T) {
	h := NewAuditsHandler(testStore(t), &mockPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/audits", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.CreateAudit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetJob(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	store.SaveJob(ctx, &jobs.AuditJob{JobID: "job-1", Status: jobs.JobStatusCompleted, ReportFile: "report.xlsx"})

	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil), "job-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var job jobs.AuditJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if job.ReportFile != "report.xlsx" {
		t.Errorf("ReportFile = %q", job.ReportFile)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	store.SaveJob(ctx, &jobs.AuditJob{JobID: "a", Status: jobs.JobStatusCompleted})
	store.SaveJob(ctx, &jobs.AuditJob{JobID: "b", Status: jobs.JobStatusPending})

	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=pending", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Jobs  []*jobs.AuditJob `json:"jobs"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Count != 1 || len(resp.Jobs) != 1 || resp.Jobs[0].JobID != "b" {
		t.Errorf("filtered list = %+v", resp)
	}
}

func TestGetReport(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.ReportPath("r.xlsx"), []byte("workbook-bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	h := NewReportsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/reports/r.xlsx", nil), "r.xlsx")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "workbook-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="r.xlsx"` {
		t.Errorf("Content-Disposition = %q", got)
	}

	rec = httptest.NewRecorder()
	h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/reports/missing.xlsx", nil), "missing.xlsx")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing report status = %d, want 404", rec.Code)
	}
}

func TestListReports(t *testing.T) {
	store := testStore(t)
	for _, name := range []string{"TRANSTAR_Audit_20250101_100000.xlsx", "TRANSTAR_Audit_20250201_100000.xlsx"} {
		if err := os.WriteFile(store.ReportPath(name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	h := NewReportsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListReports(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Reports []string `json:"reports"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("Count = %d, want 2", resp.Count)
	}
	if resp.Reports[0] != "TRANSTAR_Audit_20250201_100000.xlsx" {
		t.Errorf("reports not newest first: %v", resp.Reports)
	}
}
