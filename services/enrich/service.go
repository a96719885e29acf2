// Package enrich implements the content-enrichment pipeline: readiness
// gating, transcript retrieval, text generation, and owner-scoped
// persistence. The workflow runner drives these step bodies in order and
// checkpoints their outputs.
package enrich

import (
	"context"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/repository"
	"github.com/nijaru/yt-enrich/transcript"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves and parses a subtitle track.
type Fetcher interface {
	Fetch(ctx context.Context, playbackID, trackID string) (*transcript.Result, error)
}

// Generator produces text from a system prompt and a transcript.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// Archiver stores fetched transcripts out-of-band. Optional.
type Archiver interface {
	SaveTranscript(ctx context.Context, videoID, raw, text string) error
}

type Service struct {
	videos    repository.VideoRepository
	fetcher   Fetcher
	generator Generator
	archive   Archiver
	logger    *logrus.Logger
}

func NewService(
	videos repository.VideoRepository,
	fetcher Fetcher,
	generator Generator,
	archive Archiver,
) *Service {
	return &Service{
		videos:    videos,
		fetcher:   fetcher,
		generator: generator,
		archive:   archive,
		logger:    logrus.StandardLogger(),
	}
}

// GetVideo is the readiness gate: it loads the owned record and verifies
// the transcript preconditions. No side effects; safe to call repeatedly.
func (s *Service) GetVideo(ctx context.Context, videoID, userID string) (*models.Video, error) {
	const op = "EnrichService.GetVideo"
	logger := s.logger.WithFields(logrus.Fields{
		"video_id": videoID,
		"user_id":  userID,
	})

	video, err := s.videos.FindOwned(ctx, videoID, userID)
	if err != nil {
		logger.WithError(err).Warn("Video lookup failed")
		return nil, err
	}

	if !video.HasTrack() {
		logger.Info("Video is not ready - missing playback or track ID")
		return nil, errors.NotReady(op, "Video is not ready - missing playback or track ID")
	}

	if !video.TrackReady() {
		logger.WithField("track_status", video.TrackStatus).Info("Video track not ready")
		return nil, errors.TrackNotReady(op, video.TrackStatus)
	}

	logger.WithFields(logrus.Fields{
		"playback_id":  video.PlaybackID,
		"track_id":     video.TrackID,
		"track_status": video.TrackStatus,
	}).Info("Video found")

	return video, nil
}

// GetTranscript fetches and parses the subtitle track for a gated record.
// The archived copy is best-effort; archive failures never fail the step.
func (s *Service) GetTranscript(ctx context.Context, video *models.Video) (string, error) {
	result, err := s.fetcher.Fetch(ctx, video.PlaybackID, video.TrackID)
	if err != nil {
		return "", err
	}

	if s.archive != nil {
		if err := s.archive.SaveTranscript(ctx, video.ID, result.Raw, result.Text); err != nil {
			s.logger.WithError(err).WithField("video_id", video.ID).
				Warn("Failed to archive transcript")
		}
	}

	return result.Text, nil
}

// Generate runs the completion call for the given variant.
func (s *Service) Generate(ctx context.Context, kind models.JobKind, transcriptText string) (string, error) {
	const op = "EnrichService.Generate"

	var prompt string
	switch kind {
	case models.JobKindTitle:
		prompt = titleSystemPrompt
	case models.JobKindDescription:
		prompt = descriptionSystemPrompt
	default:
		return "", errors.InvalidInput(op, nil, "Unknown enrichment kind")
	}

	content, err := s.generator.Complete(ctx, prompt, transcriptText)
	if err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"kind":   string(kind),
		"length": len(content),
	}).Info("Generated content")

	return content, nil
}

// UpdateVideo persists the generated string into the variant's field,
// scoped by both identifiers. Re-running with the same content is a no-op.
func (s *Service) UpdateVideo(ctx context.Context, kind models.JobKind, videoID, userID, content string) error {
	const op = "EnrichService.UpdateVideo"

	var err error
	switch kind {
	case models.JobKindTitle:
		err = s.videos.UpdateTitle(ctx, videoID, userID, content)
	case models.JobKindDescription:
		err = s.videos.UpdateDescription(ctx, videoID, userID, content)
	default:
		return errors.InvalidInput(op, nil, "Unknown enrichment kind")
	}

	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"video_id": videoID,
			"kind":     string(kind),
		}).Error("Failed to persist generated content")
		return err
	}

	return nil
}
