// Package audit glues the stages of one reconciliation run together:
// stored uploads in, finished workbook out.
package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/jobs"
	"github.com/transtar/freight-audit/internal/pdftext"
	"github.com/transtar/freight-audit/internal/pipeline"
	"github.com/transtar/freight-audit/internal/xlsxreport"
)

// Runner executes audit jobs pulled off the queue.
type Runner struct {
	store   *docstore.Store
	builder *pipeline.ReportBuilder
	workers int
	log     zerolog.Logger
}

// NewRunner creates a runner. workers bounds the per-batch parse
// fan-out.
func NewRunner(store *docstore.Store, builder *pipeline.ReportBuilder, workers int, log zerolog.Logger) *Runner {
	return &Runner{
		store:   store,
		builder: builder,
		workers: workers,
		log:     log,
	}
}

// Handle is the jobs.JobHandler for the queue.
func (r *Runner) Handle(ctx context.Context, job jobs.Job) error {
	auditJob, ok := job.(*jobs.AuditJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}
	return r.Run(ctx, auditJob)
}

// Run loads the job's documents, executes the pipeline and writes the
// workbook. The job's summary fields are filled in place so the store
// shows them once the queue saves the finished job.
func (r *Runner) Run(ctx context.Context, job *jobs.AuditJob) error {
	orderDocs, err := r.loadDocuments(job.OrderFiles)
	if err != nil {
		return err
	}
	noteDocs, err := r.loadDocuments(job.NoteFiles)
	if err != nil {
		return err
	}

	state := &pipeline.AuditState{
		OrderDocs: orderDocs,
		NoteDocs:  noteDocs,
	}
	if err := pipeline.NewAuditPipeline(r.builder, r.workers).Execute(ctx, state); err != nil {
		return err
	}

	for _, failure := range state.Failures {
		r.log.Warn().
			Str("job_id", job.JobID).
			Str("document", failure.Document).
			Err(failure.Err).
			Msg("Document excluded from batch")
	}

	reportName := docstore.NewReportName(time.Now())
	if err := xlsxreport.Write(r.store.ReportPath(reportName), state.Report); err != nil {
		return err
	}

	job.ReportFile = reportName
	job.OrderCount = len(state.Orders)
	job.NoteCount = len(state.Notes)
	job.MatchedCount = state.MatchedCount
	job.FailureCount = len(state.Failures)

	r.log.Info().
		Str("job_id", job.JobID).
		Str("report", reportName).
		Int("orders", job.OrderCount).
		Int("notes", job.NoteCount).
		Int("matched", job.MatchedCount).
		Int("failed", job.FailureCount).
		Msg("Audit completed")

	return nil
}

// loadDocuments reads each stored file and extracts its text. PDFs go
// through the extractor; anything else is treated as plain text, which
// keeps the CLI usable on pre-extracted dumps.
func (r *Runner) loadDocuments(paths []string) ([]pipeline.Document, error) {
	var docs []pipeline.Document
	for _, path := range paths {
		var text string
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			t, err := pdftext.ExtractFile(path)
			if err != nil {
				return nil, err
			}
			text = t
		} else {
			data, err := r.store.ReadFile(path)
			if err != nil {
				return nil, err
			}
			text = string(data)
		}
		docs = append(docs, pipeline.Document{ID: filepath.Base(path), Text: text})
	}
	return docs, nil
}
