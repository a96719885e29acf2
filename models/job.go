package models

import (
	"time"
)

// JobKind selects the enrichment variant.
type JobKind string

const (
	JobKindTitle       JobKind = "title"
	JobKindDescription JobKind = "description"
)

// JobStatus is the lifecycle of a durable enrichment job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one enrichment workflow invocation. Steps checkpoint their
// outputs independently so a resumed job skips completed work.
type Job struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	VideoID   string    `json:"video_id"`
	UserID    string    `json:"user_id"`
	Status    JobStatus `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	LeasedAt  time.Time `json:"leased_at,omitempty"`
	RunAfter  time.Time `json:"run_after,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDone reports whether the job has reached a terminal status. Polling
// clients stop on it rather than enumerating statuses themselves.
func (j *Job) IsDone() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobResponse represents the API response for job status reads.
type JobResponse struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	VideoID   string    `json:"video_id"`
	Status    JobStatus `json:"status"`
	Done      bool      `json:"done"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
}

func NewJobResponse(j *Job) *JobResponse {
	return &JobResponse{
		ID:        j.ID,
		Kind:      j.Kind,
		VideoID:   j.VideoID,
		Status:    j.Status,
		Done:      j.IsDone(),
		Attempts:  j.Attempts,
		LastError: j.LastError,
	}
}
