package handlers

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-pages/internal/project"
	"github.com/kozaktomas/photo-pages/internal/render"
)

// ExportJobsHandler runs PDF exports in the background and reports their
// progress per rendered page.
type ExportJobsHandler struct {
	service    *project.Service
	jobManager *JobManager
}

// NewExportJobsHandler creates a new export jobs handler
func NewExportJobsHandler(svc *project.Service, jm *JobManager) *ExportJobsHandler {
	return &ExportJobsHandler{
		service:    svc,
		jobManager: jm,
	}
}

// Start starts an export of the project into the export directory
func (h *ExportJobsHandler) Start(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	detail, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, err, "failed to get project")
		return
	}
	if len(detail.Pages) == 0 {
		respondServiceError(w, render.ErrNoPages, "PDF generation failed")
		return
	}

	job := h.jobManager.CreateJob(uuid.New().String(), projectID, detail.Project.Name, len(detail.Pages))

	// the request context ends with this handler
	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	go h.runExportJob(ctx, cancel, job)

	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

// List returns all known export jobs
func (h *ExportJobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobManager.ListJobs()
	result := make([]ExportJobState, len(jobs))
	for i, job := range jobs {
		result[i] = job.Snapshot()
	}
	respondJSON(w, http.StatusOK, result)
}

// Status returns the current state of an export job
func (h *ExportJobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE
func (h *ExportJobsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*ExportJob).Snapshot()
		},
	)
}

// Cancel cancels a running export job
func (h *ExportJobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// Delete cancels the job if still running and forgets it
func (h *ExportJobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	job.Cancel()
	h.jobManager.DeleteJob(job.ID)
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *ExportJobsHandler) lookup(w http.ResponseWriter, r *http.Request) *ExportJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

// runExportJob runs the export in the background
func (h *ExportJobsHandler) runExportJob(ctx context.Context, cancel context.CancelFunc, job *ExportJob) {
	defer cancel()

	job.mu.Lock()
	if job.Status != JobStatusPending {
		job.mu.Unlock()
		return
	}
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Export started"})

	ctx = render.ContextWithPageHook(ctx, func(page render.ReportPage) {
		progress := job.pageDone()
		job.SendEvent(JobEvent{Type: "page", Data: map[string]any{
			"page_number": page.PageNumber,
			"drawn":       page.Drawn(),
			"progress":    progress,
		}})
	})

	path, report, err := h.service.Export(ctx, job.ProjectID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancel already updated the job
			return
		}
		h.failJob(job, err.Error())
		return
	}

	completeJob(job, path, report)
}

// completeJob marks a running job as completed. A job cancelled while its file
// was being finalized stays cancelled and its file is removed.
func completeJob(job *ExportJob, path string, report *render.Report) {
	now := time.Now()
	job.mu.Lock()
	if job.Status != JobStatusRunning {
		job.mu.Unlock()
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("WARNING: failed to remove export of cancelled job %s: %v", job.ID, err)
		}
		return
	}
	job.Status = JobStatusCompleted
	job.Progress = 100
	job.Path = path
	job.Report = report
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: eventCompleted, Message: path, Data: report})
}

func (h *ExportJobsHandler) failJob(job *ExportJob, message string) {
	now := time.Now()
	job.mu.Lock()
	if job.Status != JobStatusRunning {
		job.mu.Unlock()
		return
	}
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: eventJobError, Message: message})
}
