// Package repository defines the persistence contracts for videos, users,
// and workflow jobs.
package repository

import (
	"context"
	"time"

	"github.com/nijaru/yt-enrich/models"
)

type VideoRepository interface {
	// Save inserts or replaces a video record.
	Save(ctx context.Context, video *models.Video) error
	// FindOwned looks up a video by id scoped to its owner. A row that
	// matches the id but not the owner is reported as missing.
	FindOwned(ctx context.Context, id, userID string) (*models.Video, error)
	// UpdateTitle sets the title on an owned record. Reports NotFound when
	// no row matches both identifiers.
	UpdateTitle(ctx context.Context, id, userID, title string) error
	// UpdateDescription sets the description on an owned record.
	UpdateDescription(ctx context.Context, id, userID, description string) error
}

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpdateByExternalID(ctx context.Context, externalID, name, imageURL string) error
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// JobRepository is the durable store behind the workflow runner: pending
// jobs are leased one at a time, step outputs are checkpointed so a
// redelivered job reuses completed work.
type JobRepository interface {
	Enqueue(ctx context.Context, job *models.Job) error
	Find(ctx context.Context, id string) (*models.Job, error)
	// Lease atomically claims the oldest runnable pending job, marking it
	// running. Returns nil when no job is due.
	Lease(ctx context.Context) (*models.Job, error)
	// Release returns a leased job to pending with a retry delay and
	// records the failure.
	Release(ctx context.Context, id string, retryAfter time.Time, lastError string) error
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	// ReclaimStale returns running jobs with expired leases to pending.
	ReclaimStale(ctx context.Context, leaseTimeout time.Duration) (int64, error)

	// StepOutput returns the checkpointed output for a step, if recorded.
	StepOutput(ctx context.Context, jobID, step string) (string, bool, error)
	SaveStepOutput(ctx context.Context, jobID, step, output string) error
}
