package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/middleware"
	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/repository"
	"github.com/nijaru/yt-enrich/workflow"
)

// TranscriptReader reads an archived transcript by video id, returning the
// raw subtitle track and the parsed text.
type TranscriptReader interface {
	GetTranscript(ctx context.Context, videoID string) (string, string, error)
}

type VideoHandler struct {
	videos      repository.VideoRepository
	jobs        repository.JobRepository
	transcripts TranscriptReader // nil when archiving is disabled
}

func NewVideoHandler(videos repository.VideoRepository, jobs repository.JobRepository, transcripts TranscriptReader) *VideoHandler {
	return &VideoHandler{videos: videos, jobs: jobs, transcripts: transcripts}
}

type workflowRequest struct {
	VideoID string `json:"video_id"`
}

// TriggerTitle enqueues a title enrichment workflow for an owned video.
func (h *VideoHandler) TriggerTitle(c *fiber.Ctx) error {
	return h.trigger(c, models.JobKindTitle)
}

// TriggerDescription enqueues a description enrichment workflow.
func (h *VideoHandler) TriggerDescription(c *fiber.Ctx) error {
	return h.trigger(c, models.JobKindDescription)
}

func (h *VideoHandler) trigger(c *fiber.Ctx, kind models.JobKind) error {
	const op = "VideoHandler.trigger"

	user := middleware.CurrentUser(c)
	if user == nil {
		return errors.E(op, nil, "Authentication required", fiber.StatusUnauthorized)
	}

	var req workflowRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid JSON body")
	}
	if req.VideoID == "" {
		return errors.InvalidInput(op, nil, "video_id is required")
	}

	job, err := workflow.Enqueue(c.Context(), h.jobs, kind, req.VideoID, user.ID)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusAccepted, models.NewJobResponse(job))
}

// GetVideo returns an owned video record.
func (h *VideoHandler) GetVideo(c *fiber.Ctx) error {
	const op = "VideoHandler.GetVideo"

	user := middleware.CurrentUser(c)
	if user == nil {
		return errors.E(op, nil, "Authentication required", fiber.StatusUnauthorized)
	}

	id := c.Params("id")
	if id == "" {
		return errors.InvalidInput(op, nil, "ID is required")
	}

	video, err := h.videos.FindOwned(c.Context(), id, user.ID)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, models.NewVideoResponse(video))
}

type transcriptResponse struct {
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
	Raw     string `json:"raw,omitempty"`
}

// GetTranscript returns the archived transcript for an owned video.
func (h *VideoHandler) GetTranscript(c *fiber.Ctx) error {
	const op = "VideoHandler.GetTranscript"

	user := middleware.CurrentUser(c)
	if user == nil {
		return errors.E(op, nil, "Authentication required", fiber.StatusUnauthorized)
	}

	id := c.Params("id")
	if id == "" {
		return errors.InvalidInput(op, nil, "ID is required")
	}

	// Ownership first; transcripts are only readable by the video's owner.
	if _, err := h.videos.FindOwned(c.Context(), id, user.ID); err != nil {
		return err
	}

	if h.transcripts == nil {
		return errors.NotFound(op, nil, "Transcript not found")
	}

	raw, text, err := h.transcripts.GetTranscript(c.Context(), id)
	if err != nil {
		return errors.NotFound(op, err, "Transcript not found")
	}

	return respond(c, fiber.StatusOK, &transcriptResponse{VideoID: id, Text: text, Raw: raw})
}

// GetJob returns the status of an owned enrichment job.
func (h *VideoHandler) GetJob(c *fiber.Ctx) error {
	const op = "VideoHandler.GetJob"

	user := middleware.CurrentUser(c)
	if user == nil {
		return errors.E(op, nil, "Authentication required", fiber.StatusUnauthorized)
	}

	id := c.Params("id")
	if id == "" {
		return errors.InvalidInput(op, nil, "ID is required")
	}

	job, err := h.jobs.Find(c.Context(), id)
	if err != nil {
		return err
	}
	if job.UserID != user.ID {
		return errors.NotFound(op, nil, "Job not found")
	}

	return respond(c, fiber.StatusOK, models.NewJobResponse(job))
}
