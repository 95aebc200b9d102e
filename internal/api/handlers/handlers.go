package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/transtar/freight-audit/internal/api/middleware"
	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/jobs"
)

// maxUploadBytes bounds one audit upload; a month's worth of scanned
// documents stays well below this.
const maxUploadBytes = 256 << 20

// AuditsHandler accepts document uploads and enqueues reconciliation
// jobs.
type AuditsHandler struct {
	store     *docstore.Store
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAuditsHandler creates a new audits handler.
func NewAuditsHandler(store *docstore.Store, publisher jobs.Publisher, log zerolog.Logger) *AuditsHandler {
	return &AuditsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// CreateAudit handles POST /api/audits. The request is a multipart form
// with the transport order PDFs under "orders" and the credit note PDFs
// under "notes". The documents are stored and a job is enqueued; the
// caller polls /api/jobs/{id} for the result.
func (h *AuditsHandler) CreateAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	orderFiles, err := h.saveAll(r, "orders")
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to store order uploads")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store uploads")
		return
	}
	noteFiles, err := h.saveAll(r, "notes")
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to store note uploads")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store uploads")
		return
	}

	if len(orderFiles) == 0 && len(noteFiles) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "At least one document is required")
		return
	}

	job := &jobs.AuditJob{
		OrderFiles: orderFiles,
		NoteFiles:  noteFiles,
	}

	if err := h.publisher.PublishAudit(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue audit job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue audit job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Int("orders", len(orderFiles)).
		Int("notes", len(noteFiles)).
		Msg("Audit job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": string(job.Status),
		"orders": len(orderFiles),
		"notes":  len(noteFiles),
	})
}

func (h *AuditsHandler) saveAll(r *http.Request, field string) ([]string, error) {
	var paths []string
	for _, header := range r.MultipartForm.File[field] {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		path, err := h.store.SaveUpload(header.Filename, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ReportsHandler serves finished report workbooks.
type ReportsHandler struct {
	store *docstore.Store
	log   zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(store *docstore.Store, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		store: store,
		log:   log,
	}
}

// reportHistoryLimit caps the history listing; the office only ever
// looks at the most recent runs.
const reportHistoryLimit = 10

// ListReports handles GET /api/reports
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListReports()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list reports")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}
	if len(reports) > reportHistoryLimit {
		reports = reports[:reportHistoryLimit]
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetReport handles GET /api/reports/{name} and streams the workbook.
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request, name string) {
	path := h.store.ReportPath(name)
	data, err := h.store.ReadFile(path)
	if err != nil {
		h.log.Error().Err(err).Str("report", name).Msg("Failed to read report")
		middleware.WriteError(w, http.StatusNotFound, "Report not found")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
