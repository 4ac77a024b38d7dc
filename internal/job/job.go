// Package job provides the Job aggregate for composition work, the
// repository port for persistence, and the ComposeService use case that
// drives a job through the export pipeline.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/meetframe/meetframe/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusQueued indicates the job has been accepted but not started.
	StatusQueued Status = "queued"
	// StatusRunning indicates the job is being processed.
	StatusRunning Status = "running"
	// StatusDone indicates the job finished successfully.
	StatusDone Status = "done"
	// StatusError indicates the job failed.
	StatusError Status = "error"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusError},
	StatusRunning: {StatusDone, StatusError},
	StatusDone:    {},
	StatusError:   {},
}

func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one composition job aggregate. All mutators take the
// internal lock; readers use Clone for a consistent snapshot.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Progress is the percentage of completion (0-100). It never moves
	// backwards.
	Progress float64
	// Error contains any error message if the job failed.
	Error string
	// SpecPath is the job specification file this job was created from.
	SpecPath string
	// OutputPath is where the final video was written.
	OutputPath string
	// PublishedURL is the storage URL when the result was published.
	PublishedURL string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial queued status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial queued
// status. Useful for testing or when the ID is externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusDone, StatusError:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from queued to running.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to done.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusDone)
}

// Fail transitions the job to error with a message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusError)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// UpdateProgress raises the progress percentage. Values below the current
// progress are ignored so observers never see it move backwards; values
// above 100 are clamped.
func (j *Job) UpdateProgress(progress float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress > 100 {
		progress = 100
	}
	if progress <= j.Progress {
		return
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
}

// GetProgress returns the current progress (thread-safe).
func (j *Job) GetProgress() float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Progress
}

// SetOutput records the output path and optional published URL.
func (j *Job) SetOutput(outputPath, publishedURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = outputPath
	j.PublishedURL = publishedURL
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusDone || j.Status == StatusError
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:           j.ID,
		Status:       j.Status,
		Progress:     j.Progress,
		Error:        j.Error,
		SpecPath:     j.SpecPath,
		OutputPath:   j.OutputPath,
		PublishedURL: j.PublishedURL,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
