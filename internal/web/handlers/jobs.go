package handlers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/photo-pages/internal/constants"
	"github.com/kozaktomas/photo-pages/internal/render"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ExportJobState is the serializable part of an export job.
type ExportJobState struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"project_id"`
	ProjectName   string         `json:"project_name"`
	Status        JobStatus      `json:"status"`
	Progress      int            `json:"progress"`
	TotalPages    int            `json:"total_pages"`
	RenderedPages int            `json:"rendered_pages"`
	Error         string         `json:"error,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Path          string         `json:"path,omitempty"`
	Report        *render.Report `json:"report,omitempty"`
}

// ExportJob represents an async PDF export of one project.
type ExportJob struct {
	EventBroadcaster
	ExportJobState
}

// GetStatus returns the current job status (implements SSEJob).
func (j *ExportJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Snapshot returns a copy of the job state safe to serialize.
func (j *ExportJob) Snapshot() ExportJobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ExportJobState
}

// Cancel cancels the export job. Finished jobs are left as they are.
func (j *ExportJob) Cancel() {
	j.mu.Lock()
	if isJobTerminal(j.Status) {
		j.mu.Unlock()
		return
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.mu.Unlock()
	j.EventBroadcaster.Cancel()
}

// pageDone records a rendered page and returns the new progress percentage.
func (j *ExportJob) pageDone() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RenderedPages++
	if j.TotalPages > 0 {
		j.Progress = min(100, j.RenderedPages*100/j.TotalPages)
	}
	return j.Progress
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: eventCancelled, Message: "Job cancelled by user"})
}

// setCancel stores the function that aborts the running job.
func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs.
type JobManager struct {
	jobs      map[string]*ExportJob
	retention time.Duration
	now       func() time.Time
	mu        sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*ExportJob),
		retention: constants.FinishedJobRetention,
		now:       time.Now,
	}
}

// CreateJob creates a new export job and drops finished jobs past retention.
func (m *JobManager) CreateJob(id, projectID, projectName string, totalPages int) *ExportJob {
	job := &ExportJob{ExportJobState: ExportJobState{
		ID:          id,
		ProjectID:   projectID,
		ProjectName: projectName,
		Status:      JobStatusPending,
		TotalPages:  totalPages,
		StartedAt:   m.now(),
	}}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	m.jobs[id] = job
	return job
}

// prune removes finished jobs older than the retention. Callers hold m.mu.
func (m *JobManager) prune() {
	cutoff := m.now().Add(-m.retention)
	for id, job := range m.jobs {
		snap := job.Snapshot()
		if snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs, oldest first.
func (m *JobManager) ListJobs() []*ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*ExportJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *ExportJob) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return jobs
}
