package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/internal/logging"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents an asynchronous download job.
type Job struct {
	ID          string             `json:"id"`
	Translation string             `json:"translation"`
	Status      JobStatus          `json:"status"`
	Progress    int                `json:"progress"` // 0-100
	Path        string             `json:"path,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	CompletedAt string             `json:"completed_at,omitempty"`
	target      biblestore.Translation
	ctx         context.Context
	cancel      context.CancelFunc
}

// JobStore manages download jobs in memory.
type JobStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobStore creates a new job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

var globalJobStore = NewJobStore()

// Create creates a new job and returns it.
func (s *JobStore) Create(t biblestore.Translation) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC().Format(time.RFC3339)

	job := &Job{
		ID:          uuid.New().String(),
		Translation: t.Code(),
		Status:      JobStatusPending,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
		target:      t,
		ctx:         ctx,
		cancel:      cancel,
	}

	s.jobs[job.ID] = job
	return job
}

// Get retrieves a job by ID.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	return job, exists
}

// Update updates a job's status and progress.
func (s *JobStore) Update(id string, status JobStatus, progress int, path, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Status = status
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if path != "" {
		job.Path = path
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		job.CompletedAt = job.UpdatedAt
	}

	return nil
}

// Cancel cancels a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	if job.Status != JobStatusPending && job.Status != JobStatusRunning {
		return fmt.Errorf("job cannot be cancelled (status: %s)", job.Status)
	}

	if job.cancel != nil {
		job.cancel()
	}

	job.Status = JobStatusCancelled
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	job.CompletedAt = job.UpdatedAt

	return nil
}

// List returns all jobs.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// runDownloadJob executes a translation download in a goroutine, mirroring
// progress to the job record and the WebSocket hub.
func runDownloadJob(job *Job) {
	go func() {
		globalJobStore.Update(job.ID, JobStatusRunning, 0, "", "")

		path, err := appStore.Download(job.ctx, job.target, func(p biblestore.Progress) {
			pct := int(p.Fraction * 100)
			globalJobStore.Update(job.ID, JobStatusRunning, pct, "", "")
			BroadcastProgress("download", job.Translation,
				fmt.Sprintf("Downloading %s", job.Translation), pct)
		})
		if err != nil {
			if job.ctx.Err() != nil {
				globalJobStore.Update(job.ID, JobStatusCancelled, job.Progress, "", "Download cancelled")
				BroadcastError("download", fmt.Sprintf("Download of %s cancelled", job.Translation))
				return
			}
			logging.Error("download job failed", "job", job.ID, "translation", job.Translation, "error", err)
			globalJobStore.Update(job.ID, JobStatusFailed, job.Progress, "", err.Error())
			BroadcastError("download", err.Error())
			return
		}

		globalJobStore.Update(job.ID, JobStatusCompleted, 100, path, "")
		BroadcastComplete("download", fmt.Sprintf("Downloaded %s", job.Translation),
			map[string]interface{}{"translation": job.Translation, "path": path})
	}()
}

// handleJobByID handles GET /api/v1/jobs/{id} and DELETE /api/v1/jobs/{id}.
func handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Job ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, exists := globalJobStore.Get(id)
		if !exists {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		respond(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := globalJobStore.Cancel(id); err != nil {
			if strings.Contains(err.Error(), "not found") {
				respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
				return
			}
			respondError(w, http.StatusBadRequest, "CANCEL_FAILED", err.Error())
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}
