// Package workflow runs durable enrichment jobs: steps execute strictly in
// order, each output is checkpointed in the job store, and a resumed or
// redelivered job reuses completed step outputs instead of re-running them.
package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/metrics"
	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/repository"
	"github.com/sirupsen/logrus"
)

// Step names. Checkpoints are keyed on these, so renaming one invalidates
// recorded outputs for in-flight jobs.
const (
	StepGetVideo        = "get-video"
	StepGetTranscript   = "get-transcript"
	StepGenerateContent = "generate-content"
	StepUpdateVideo     = "update-video"
)

// Enricher supplies the step bodies the runner drives.
type Enricher interface {
	GetVideo(ctx context.Context, videoID, userID string) (*models.Video, error)
	GetTranscript(ctx context.Context, video *models.Video) (string, error)
	Generate(ctx context.Context, kind models.JobKind, transcriptText string) (string, error)
	UpdateVideo(ctx context.Context, kind models.JobKind, videoID, userID, content string) error
}

type Config struct {
	Workers      int
	PollInterval time.Duration
	LeaseTimeout time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:      2,
		PollInterval: 2 * time.Second,
		LeaseTimeout: 5 * time.Minute,
		MaxAttempts:  5,
		BackoffBase:  2 * time.Second,
		BackoffMax:   5 * time.Minute,
	}
}

type Runner struct {
	jobs     repository.JobRepository
	enricher Enricher
	cfg      Config
	logger   *logrus.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRunner(jobs repository.JobRepository, enricher Enricher, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 5 * time.Minute
	}
	return &Runner{
		jobs:     jobs,
		enricher: enricher,
		cfg:      cfg,
		logger:   logrus.StandardLogger(),
	}
}

// Enqueue records a new enrichment invocation for `(videoID, userID)`.
func Enqueue(ctx context.Context, jobs repository.JobRepository, kind models.JobKind, videoID, userID string) (*models.Job, error) {
	now := time.Now()
	job := &models.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		VideoID:   videoID,
		UserID:    userID,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Start launches the worker loops. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(r.cfg.Workers)
	for i := 0; i < r.cfg.Workers; i++ {
		go r.runWorker(runCtx)
	}
}

// Stop terminates background processing and waits for workers to drain.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Runner) runWorker(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if n, err := r.jobs.ReclaimStale(ctx, r.cfg.LeaseTimeout); err != nil {
			r.logger.WithError(err).Warn("Failed to reclaim stale jobs")
		} else if n > 0 {
			r.logger.WithField("count", n).Info("Reclaimed stale jobs")
		}

		job, err := r.jobs.Lease(ctx)
		if err != nil {
			r.logger.WithError(err).Error("Failed to lease job")
			r.sleep(ctx)
			continue
		}
		if job == nil {
			r.sleep(ctx)
			continue
		}

		r.ProcessJob(ctx, job)
	}
}

func (r *Runner) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.PollInterval):
	}
}

// ProcessJob executes one leased job attempt through its step sequence.
func (r *Runner) ProcessJob(ctx context.Context, job *models.Job) {
	logger := r.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"kind":     string(job.Kind),
		"video_id": job.VideoID,
		"user_id":  job.UserID,
		"attempt":  job.Attempts,
	})
	logger.Info("Processing enrichment job")
	metrics.JobsStarted.WithLabelValues(string(job.Kind)).Inc()

	start := time.Now()
	err := r.runSteps(ctx, job)
	metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())

	if err == nil {
		if markErr := r.jobs.MarkCompleted(ctx, job.ID); markErr != nil {
			logger.WithError(markErr).Error("Failed to mark job completed")
			return
		}
		metrics.JobsCompleted.WithLabelValues(string(job.Kind)).Inc()
		logger.Info("Enrichment job completed")
		return
	}

	if ctx.Err() != nil {
		// Shutdown mid-job: leave the lease to expire and be reclaimed.
		logger.Info("Job interrupted by shutdown")
		return
	}

	if errors.IsTerminal(err) {
		logger.WithError(err).Warn("Job failed terminally")
		r.fail(ctx, job, logger, err)
		return
	}

	if job.Attempts >= r.cfg.MaxAttempts {
		logger.WithError(err).WithField("attempts", job.Attempts).
			Warn("Job exhausted retry attempts")
		r.fail(ctx, job, logger, err)
		return
	}

	retryAfter := time.Now().Add(r.backoff(job.Attempts))
	logger.WithError(err).WithField("retry_after", retryAfter).Info("Releasing job for retry")
	if relErr := r.jobs.Release(ctx, job.ID, retryAfter, err.Error()); relErr != nil {
		logger.WithError(relErr).Error("Failed to release job")
	}
}

func (r *Runner) fail(ctx context.Context, job *models.Job, logger *logrus.Entry, cause error) {
	if err := r.jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		logger.WithError(err).Error("Failed to mark job failed")
		return
	}
	metrics.JobsFailed.WithLabelValues(string(job.Kind)).Inc()
}

// backoff grows exponentially with the attempt count, capped at BackoffMax.
func (r *Runner) backoff(attempts int) time.Duration {
	d := r.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.cfg.BackoffMax {
			return r.cfg.BackoffMax
		}
	}
	if d > r.cfg.BackoffMax {
		return r.cfg.BackoffMax
	}
	return d
}

func (r *Runner) runSteps(ctx context.Context, job *models.Job) error {
	video, err := r.stepGetVideo(ctx, job)
	if err != nil {
		return err
	}

	transcriptText, err := r.runStep(ctx, job, StepGetTranscript, func(ctx context.Context) (string, error) {
		return r.enricher.GetTranscript(ctx, video)
	})
	if err != nil {
		return err
	}

	content, err := r.runStep(ctx, job, StepGenerateContent, func(ctx context.Context) (string, error) {
		return r.enricher.Generate(ctx, job.Kind, transcriptText)
	})
	if err != nil {
		return err
	}

	// The final write is idempotent, so it is re-run rather than
	// checkpointed: a crash after the UPDATE but before the checkpoint
	// would otherwise leave the work half-acknowledged.
	if err := r.enricher.UpdateVideo(ctx, job.Kind, job.VideoID, job.UserID, content); err != nil {
		metrics.StepRetries.WithLabelValues(string(job.Kind), StepUpdateVideo).Inc()
		return err
	}
	return nil
}

// stepGetVideo checkpoints the gated record as JSON so later steps of a
// resumed job see the same identifiers the gate validated.
func (r *Runner) stepGetVideo(ctx context.Context, job *models.Job) (*models.Video, error) {
	out, ok, err := r.jobs.StepOutput(ctx, job.ID, StepGetVideo)
	if err != nil {
		return nil, err
	}
	if ok {
		video := &models.Video{}
		if err := json.Unmarshal([]byte(out), video); err == nil {
			return video, nil
		}
		// Unreadable checkpoint: fall through and re-run the gate.
	}

	video, err := r.enricher.GetVideo(ctx, job.VideoID, job.UserID)
	if err != nil {
		if errors.IsRetryable(err) {
			metrics.StepRetries.WithLabelValues(string(job.Kind), StepGetVideo).Inc()
		}
		return nil, err
	}

	encoded, err := json.Marshal(video)
	if err != nil {
		return nil, errors.Internal("Runner.stepGetVideo", err, "Failed to encode step output")
	}
	if err := r.jobs.SaveStepOutput(ctx, job.ID, StepGetVideo, string(encoded)); err != nil {
		return nil, err
	}
	return video, nil
}

func (r *Runner) runStep(ctx context.Context, job *models.Job, step string, fn func(context.Context) (string, error)) (string, error) {
	out, ok, err := r.jobs.StepOutput(ctx, job.ID, step)
	if err != nil {
		return "", err
	}
	if ok {
		return out, nil
	}

	out, err = fn(ctx)
	if err != nil {
		if errors.IsRetryable(err) {
			metrics.StepRetries.WithLabelValues(string(job.Kind), step).Inc()
		}
		return "", err
	}

	if err := r.jobs.SaveStepOutput(ctx, job.ID, step, out); err != nil {
		return "", err
	}
	return out, nil
}
