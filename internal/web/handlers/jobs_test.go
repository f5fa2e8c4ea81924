package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEventBroadcaster_SendsToAllListeners(t *testing.T) {
	var b EventBroadcaster
	first := b.AddListener()
	second := b.AddListener()

	b.SendEvent(JobEvent{Type: "page"})

	for i, ch := range []chan JobEvent{first, second} {
		select {
		case ev := <-ch:
			if ev.Type != "page" {
				t.Errorf("listener %d got event %q", i, ev.Type)
			}
		default:
			t.Errorf("listener %d got no event", i)
		}
	}

	b.RemoveListener(first)
	if _, ok := <-first; ok {
		t.Error("expected removed listener to be closed")
	}
}

func TestEventBroadcaster_FullBufferDoesNotBlock(t *testing.T) {
	var b EventBroadcaster
	b.AddListener()

	done := make(chan struct{})
	go func() {
		for range 1000 {
			b.SendEvent(JobEvent{Type: "page"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SendEvent blocked on a full listener")
	}
}

func TestExportJob_CancelIsFinal(t *testing.T) {
	m := NewJobManager()
	job := m.CreateJob("j1", "p1", "Urlaub", 3)
	cancelled := false
	job.setCancel(func() { cancelled = true })

	job.Cancel()
	if job.GetStatus() != JobStatusCancelled || !cancelled {
		t.Fatalf("expected cancelled job, got %s (cancel called: %v)", job.GetStatus(), cancelled)
	}
	if job.Snapshot().CompletedAt == nil {
		t.Error("expected completion time on cancel")
	}

	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.mu.Unlock()
	job.Cancel()
	if job.GetStatus() != JobStatusCompleted {
		t.Error("cancel changed a finished job")
	}
}

func TestExportJob_Progress(t *testing.T) {
	job := NewJobManager().CreateJob("j1", "p1", "Urlaub", 3)

	got := []int{job.pageDone(), job.pageDone(), job.pageDone()}
	if got[0] != 33 || got[1] != 66 || got[2] != 100 {
		t.Errorf("progress = %v", got)
	}
	if job.Snapshot().RenderedPages != 3 {
		t.Errorf("rendered pages = %d", job.Snapshot().RenderedPages)
	}
}

func TestJobManager_PrunesFinishedJobs(t *testing.T) {
	m := NewJobManager()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.CreateJob("old", "p1", "a", 1)
	finished := now.Add(-2 * m.retention)
	old.CompletedAt = &finished
	m.CreateJob("running", "p1", "a", 1)

	m.CreateJob("new", "p2", "b", 1)

	if m.GetJob("old") != nil {
		t.Error("expected finished job past retention to be pruned")
	}
	if m.GetJob("running") == nil || m.GetJob("new") == nil {
		t.Error("expected unfinished jobs to be kept")
	}
	if len(m.ListJobs()) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(m.ListJobs()))
	}

	m.DeleteJob("running")
	if m.GetJob("running") != nil {
		t.Error("expected deleted job to be gone")
	}
}

func TestStreamSSEEvents_FinishedJob(t *testing.T) {
	m := NewJobManager()
	job := m.CreateJob("j1", "p1", "Urlaub", 1)
	job.Status = JobStatusCompleted
	h := &ExportJobsHandler{jobManager: m}

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/export-jobs/j1/events", nil), map[string]string{"jobId": "j1"})
	recorder := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Events(recorder, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream of a finished job did not end")
	}

	assertContentType(t, recorder, "text/event-stream")
	body := recorder.Body.String()
	if !strings.HasPrefix(body, "event: status\ndata: ") || !strings.Contains(body, `"status":"completed"`) {
		t.Errorf("unexpected stream: %q", body)
	}
}

func TestStreamSSEEvents_EndsOnTerminalEvent(t *testing.T) {
	m := NewJobManager()
	job := m.CreateJob("j1", "p1", "Urlaub", 1)
	h := &ExportJobsHandler{jobManager: m}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/v1/export-jobs/j1/events", nil).WithContext(ctx)
	req = requestWithChiParams(req, map[string]string{"jobId": "j1"})
	recorder := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Events(recorder, req)
		close(done)
	}()

	// wait for the listener before sending
	deadline := time.Now().Add(5 * time.Second)
	for {
		job.mu.RLock()
		n := len(job.listeners)
		job.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("listener never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
	job.SendEvent(JobEvent{Type: "page"})
	job.SendEvent(JobEvent{Type: eventCompleted, Message: "/tmp/x.pdf"})
	<-done

	if ctx.Err() != nil {
		t.Fatal("stream ended by timeout instead of the completed event")
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "event: page\n") || !strings.Contains(body, "event: completed\n") {
		t.Errorf("unexpected stream: %q", body)
	}
}

func TestStreamSSEEvents_UnknownJob(t *testing.T) {
	h := &ExportJobsHandler{jobManager: NewJobManager()}

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/export-jobs/nope/events", nil), map[string]string{"jobId": "nope"})
	recorder := httptest.NewRecorder()
	h.Events(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "job not found")
}
