package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Enqueue(ctx context.Context, job *models.Job) error {
	const op = "SQLiteJobRepository.Enqueue"

	_, err := r.db.ExecContext(ctx, enqueueJobQuery,
		job.ID,
		string(job.Kind),
		job.VideoID,
		job.UserID,
		string(models.JobStatusPending),
		nullableTime(job.RunAfter),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return errors.Storage(op, err, "Failed to enqueue job")
	}
	return nil
}

func (r *JobRepository) Find(ctx context.Context, id string) (*models.Job, error) {
	const op = "SQLiteJobRepository.Find"

	row := r.db.QueryRowContext(ctx, getJobQuery, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Job not found")
	}
	if err != nil {
		return nil, errors.Storage(op, err, "Failed to query job")
	}
	return job, nil
}

// Lease claims the oldest due pending job in a single statement so that
// concurrent workers never pick up the same job.
func (r *JobRepository) Lease(ctx context.Context) (*models.Job, error) {
	const op = "SQLiteJobRepository.Lease"

	now := time.Now()
	row := r.db.QueryRowContext(ctx, leaseJobQuery, now, now, now)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage(op, err, "Failed to lease job")
	}
	return job, nil
}

func (r *JobRepository) Release(ctx context.Context, id string, retryAfter time.Time, lastError string) error {
	const op = "SQLiteJobRepository.Release"

	_, err := r.db.ExecContext(ctx, releaseJobQuery, retryAfter, lastError, time.Now(), id)
	if err != nil {
		return errors.Storage(op, err, "Failed to release job")
	}
	return nil
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id string) error {
	const op = "SQLiteJobRepository.MarkCompleted"

	_, err := r.db.ExecContext(ctx, completeJobQuery, time.Now(), id)
	if err != nil {
		return errors.Storage(op, err, "Failed to complete job")
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	const op = "SQLiteJobRepository.MarkFailed"

	_, err := r.db.ExecContext(ctx, failJobQuery, lastError, time.Now(), id)
	if err != nil {
		return errors.Storage(op, err, "Failed to fail job")
	}
	return nil
}

func (r *JobRepository) ReclaimStale(ctx context.Context, leaseTimeout time.Duration) (int64, error) {
	const op = "SQLiteJobRepository.ReclaimStale"

	cutoff := time.Now().Add(-leaseTimeout)
	res, err := r.db.ExecContext(ctx, reclaimStaleJobsQuery, time.Now(), cutoff)
	if err != nil {
		return 0, errors.Storage(op, err, "Failed to reclaim stale jobs")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Storage(op, err, "Failed to count reclaimed jobs")
	}
	return affected, nil
}

func (r *JobRepository) StepOutput(ctx context.Context, jobID, step string) (string, bool, error) {
	const op = "SQLiteJobRepository.StepOutput"

	var output string
	err := r.db.QueryRowContext(ctx, getStepOutputQuery, jobID, step).Scan(&output)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Storage(op, err, "Failed to query step output")
	}
	return output, true, nil
}

func (r *JobRepository) SaveStepOutput(ctx context.Context, jobID, step, output string) error {
	const op = "SQLiteJobRepository.SaveStepOutput"

	_, err := r.db.ExecContext(ctx, saveStepOutputQuery, jobID, step, output, time.Now())
	if err != nil {
		return errors.Storage(op, err, "Failed to save step output")
	}
	return nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}
	var kind, status string
	var leasedAt, runAfter sql.NullTime

	err := row.Scan(
		&job.ID,
		&kind,
		&job.VideoID,
		&job.UserID,
		&status,
		&job.Attempts,
		&job.LastError,
		&leasedAt,
		&runAfter,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Kind = models.JobKind(kind)
	job.Status = models.JobStatus(status)
	if leasedAt.Valid {
		job.LeasedAt = leasedAt.Time
	}
	if runAfter.Valid {
		job.RunAfter = runAfter.Time
	}
	return job, nil
}
