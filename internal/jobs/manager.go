// Package jobs owns job identity, the job state machine, and the registry
// queried by polling callers.
package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"audio-transcriber/internal/domain"
)

// ErrNotFound is returned for status queries with unknown job identifiers.
var ErrNotFound = errors.New("job not found")

// errTerminal guards the exactly-once terminal transition.
var errTerminal = errors.New("job already reached a terminal state")

// Manager tracks every job's record and serializes its mutations.
type Manager struct {
	mu     sync.RWMutex
	jobs   map[string]*domain.Job
	events *EventBus
	now    func() time.Time
}

// NewManager creates an empty job registry.
func NewManager() *Manager {
	return &Manager{
		jobs:   make(map[string]*domain.Job),
		events: NewEventBus(500),
		now:    time.Now,
	}
}

// Create registers a new queued job and returns its snapshot.
func (m *Manager) Create() domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &domain.Job{
		ID:     uuid.NewString(),
		Status: domain.JobStatusQueued,
		Stage:  "Queued",
	}
	m.jobs[job.ID] = job
	m.publishLocked(job, "job accepted")
	return *job
}

// Start transitions a queued job to processing and stamps its start time.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return errTerminal
	}

	startedAt := m.now().UTC()
	job.Status = domain.JobStatusProcessing
	job.StartedAt = &startedAt
	job.Stage = "Starting"
	if job.Progress < 1 {
		job.Progress = 1
	}
	m.publishLocked(job, "pipeline started")
	return nil
}

// SetProgress updates stage and percentage for an active job. The reported
// percentage never moves backward, and an active job never reaches 100.
func (m *Manager) SetProgress(id, stage string, percent int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return
	}

	if percent > 99 {
		percent = 99
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	job.Stage = stage
	m.publishLocked(job, "")
}

// Complete transitions a job to its completed terminal state exactly once.
func (m *Manager) Complete(id, transcript, outputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return errTerminal
	}

	completedAt := m.now().UTC()
	job.Status = domain.JobStatusCompleted
	job.Stage = "Completed"
	job.Progress = 100
	job.Transcript = transcript
	job.OutputPath = outputPath
	job.CompletedAt = &completedAt
	m.publishLocked(job, "job completed")
	return nil
}

// Fail transitions a job to its failed terminal state exactly once.
func (m *Manager) Fail(id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return errTerminal
	}

	completedAt := m.now().UTC()
	job.Status = domain.JobStatusFailed
	job.Stage = "Failed"
	job.Progress = 100
	job.Error = message
	job.CompletedAt = &completedAt
	m.publishLocked(job, message)
	return nil
}

// Get returns a consistent snapshot of one job, or ErrNotFound.
func (m *Manager) Get(id string) (domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, ErrNotFound
	}
	return *job, nil
}

// Events returns job events with sequence strictly greater than seq.
func (m *Manager) Events(id string, seq int64) ([]Event, error) {
	m.mu.RLock()
	_, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.events.Since(id, seq), nil
}

// publishLocked records a state snapshot on the event log. Callers must hold
// m.mu.
func (m *Manager) publishLocked(job *domain.Job, message string) {
	m.events.Publish(Event{
		JobID:    job.ID,
		Status:   job.Status,
		Stage:    job.Stage,
		Progress: job.Progress,
		Message:  message,
	})
}
