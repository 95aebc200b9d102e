package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/transtar/freight-audit/internal/config"
	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/jobs"
)

const orderFixture = `TRANSTAR Transportauftrag TRN-2501 01
Datum: 15.01.2025
LKW-Kennzeichen: SB-TR 123
Tour: //50 LEERKM //450 LAST KM
Ladestellen lt. Plan:
NAGEL LOGISTIK, Industriestr. 5, D 64521 GROSS-GERAU Tor 4
(Die vorgegebenen Zeiten sind einzuhalten)
Empfänger:
EDEKA ZENTRALLAGER, Lagerstr. 2, D 46485 WESEL Rampe 12
Frachtpreis:            Maut:
800,00 EUR   45,50 EUR
Zahlungsziel: 45 Tage
`

const noteFixture = `NAGEL GROUP Gutschrift
Nr.: 4711
vom: 31.01.2025
Leistungszeitraum: 01.01.2025 - 31.01.2025
Fracht ST 1,00 800,00
Mautkosten ST 1,00 45,50
Gesamtbetrag: 845,50 EUR
Anzahl der Transportaufträge gesamt: 1

Transp.A. Datum Kennzeichen
Beleg 1
250101 15.01.2025 SB-TR 123
Fracht D 1,00 800,00 EUR
Mautkosten D 1,00 45,50 EUR
Summe 845,50 EUR
`

func testRunner(t *testing.T) (*Runner, *docstore.Store) {
	t.Helper()

	dir := t.TempDir()
	store, err := docstore.New(filepath.Join(dir, "uploads"), filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("docstore.New() error = %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return NewRunner(store, cfg.ReportBuilder(), 2, zerolog.Nop()), store
}

func saveFixture(t *testing.T, store *docstore.Store, name, text string) string {
	t.Helper()
	path, err := store.SaveUpload(name, strings.NewReader(text))
	if err != nil {
		t.Fatalf("SaveUpload(%s) error = %v", name, err)
	}
	return path
}

func TestRunnerRun(t *testing.T) {
	r, store := testRunner(t)

	job := &jobs.AuditJob{
		JobID:      "job-1",
		OrderFiles: []string{saveFixture(t, store, "order.txt", orderFixture)},
		NoteFiles:  []string{saveFixture(t, store, "note.txt", noteFixture)},
		Status:     jobs.JobStatusRunning,
		CreatedAt:  time.Now(),
	}

	if err := r.Run(context.Background(), job); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if job.OrderCount != 1 {
		t.Errorf("OrderCount = %d, want 1", job.OrderCount)
	}
	if job.NoteCount != 1 {
		t.Errorf("NoteCount = %d, want 1", job.NoteCount)
	}
	if job.MatchedCount != 1 {
		t.Errorf("MatchedCount = %d, want 1", job.MatchedCount)
	}
	if job.FailureCount != 0 {
		t.Errorf("FailureCount = %d, want 0", job.FailureCount)
	}
	if job.ReportFile == "" {
		t.Fatal("ReportFile not set")
	}
	if _, err := os.Stat(store.ReportPath(job.ReportFile)); err != nil {
		t.Errorf("report workbook missing: %v", err)
	}
}

func TestRunnerRun_CountsFailures(t *testing.T) {
	r, store := testRunner(t)

	job := &jobs.AuditJob{
		JobID: "job-2",
		OrderFiles: []string{
			saveFixture(t, store, "good.txt", orderFixture),
			saveFixture(t, store, "broken.txt", "no order number here"),
		},
		Status:    jobs.JobStatusRunning,
		CreatedAt: time.Now(),
	}

	if err := r.Run(context.Background(), job); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if job.OrderCount != 1 {
		t.Errorf("OrderCount = %d, want 1", job.OrderCount)
	}
	if job.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", job.FailureCount)
	}
	// Without a credit note nothing matches, but the workbook is still
	// produced so the dispatcher sees the unmatched rows.
	if job.MatchedCount != 0 {
		t.Errorf("MatchedCount = %d, want 0", job.MatchedCount)
	}
	if _, err := os.Stat(store.ReportPath(job.ReportFile)); err != nil {
		t.Errorf("report workbook missing: %v", err)
	}
}

func TestRunnerHandle_RejectsUnknownJob(t *testing.T) {
	r, _ := testRunner(t)

	var notAuditJob fakeJob
	if err := r.Handle(context.Background(), notAuditJob); err == nil {
		t.Error("Handle() expected error for unknown job type")
	}
}

type fakeJob struct{}

func (fakeJob) GetID() string             { return "fake" }
func (fakeJob) GetType() jobs.JobType     { return "fake" }
func (fakeJob) GetStatus() jobs.JobStatus { return jobs.JobStatusPending }
