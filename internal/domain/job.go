package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates the lifecycle states of an asynchronous generation job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusRunning:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ArtifactRef points at one output of a finished job.
type ArtifactRef struct {
	NodeID    string `json:"node_id"`
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder,omitempty"`
	Type      string `json:"type,omitempty"`
}

// GenerationJob tracks a job submitted to an asynchronous backend. It is owned
// by the generator that submitted it and discarded once fetched or timed out.
type GenerationJob struct {
	JobID       string
	SubmittedAt time.Time
	Status      JobStatus
	Outputs     []ArtifactRef
}

// NewGenerationJob creates a pending job.
func NewGenerationJob(jobID string, submittedAt time.Time) *GenerationJob {
	return &GenerationJob{JobID: jobID, SubmittedAt: submittedAt, Status: JobStatusPending}
}

// Advance moves the job forward. Staying in the same non-terminal state is a
// no-op; regressions and transitions out of a terminal state fail.
func (j *GenerationJob) Advance(to JobStatus) error {
	if to.rank() < 0 {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: job %s already %s", ErrInvalidTransition, j.JobID, j.Status)
	}
	if to.rank() < j.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}
