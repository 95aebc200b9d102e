package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/transtar/freight-audit/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.AuditJob{
		JobID:      "job-1",
		OrderFiles: []string{"a.pdf"},
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Now(),
	}

	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.JobID != "job-1" || got.Status != jobs.JobStatusPending {
		t.Errorf("GetJob() = %+v", got)
	}

	// The store hands out copies; mutations must not leak back.
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status != jobs.JobStatusPending {
		t.Error("mutating a returned job changed the stored copy")
	}
}

func TestStore_SaveJobRequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.AuditJob{}); err == nil {
		t.Error("SaveJob() without ID must fail")
	}
}

func TestStore_GetJobNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "missing"); err == nil {
		t.Error("GetJob() for unknown ID must fail")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	for i, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusCompleted, jobs.JobStatusCompleted} {
		job := &jobs.AuditJob{
			JobID:     string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}

	all, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListJobs() = %d jobs, want 3", len(all))
	}
	if all[0].JobID != "c" {
		t.Errorf("ListJobs() not newest first: %v", all[0].JobID)
	}

	completed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("status filter returned %d jobs, want 2", len(completed))
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(limited) != 1 || limited[0].JobID != "b" {
		t.Errorf("limit/offset returned %v", limited)
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.AuditJob{JobID: "job-1", Status: jobs.JobStatusPending}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "job-1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	got, _ := store.GetJob(ctx, "job-1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job after update = %+v", got)
	}

	if err := store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); err == nil {
		t.Error("UpdateJobStatus() for unknown ID must fail")
	}
}
