package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Save(ctx context.Context, video *models.Video) error {
	const op = "SQLiteVideoRepository.Save"

	_, err := r.db.ExecContext(ctx, saveVideoQuery,
		video.ID,
		video.UserID,
		video.Title,
		video.Description,
		video.PlaybackID,
		video.TrackID,
		video.TrackStatus,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return errors.Storage(op, err, "Failed to save video")
	}
	return nil
}

func (r *VideoRepository) FindOwned(ctx context.Context, id, userID string) (*models.Video, error) {
	const op = "SQLiteVideoRepository.FindOwned"

	video := &models.Video{}
	err := r.db.QueryRowContext(ctx, getOwnedVideoQuery, id, userID).Scan(
		&video.ID,
		&video.UserID,
		&video.Title,
		&video.Description,
		&video.PlaybackID,
		&video.TrackID,
		&video.TrackStatus,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Video not found")
	}
	if err != nil {
		return nil, errors.Storage(op, err, "Failed to query video")
	}

	return video, nil
}

func (r *VideoRepository) UpdateTitle(ctx context.Context, id, userID, title string) error {
	return r.updateField(ctx, "SQLiteVideoRepository.UpdateTitle", updateTitleQuery, id, userID, title)
}

func (r *VideoRepository) UpdateDescription(ctx context.Context, id, userID, description string) error {
	return r.updateField(ctx, "SQLiteVideoRepository.UpdateDescription", updateDescriptionQuery, id, userID, description)
}

func (r *VideoRepository) updateField(ctx context.Context, op, query, id, userID, value string) error {
	res, err := r.db.ExecContext(ctx, query, value, time.Now(), id, userID)
	if err != nil {
		return errors.Storage(op, err, "Failed to update video")
	}

	// Zero rows means the record no longer matches both identifiers;
	// treat as missing rather than silently succeeding.
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Storage(op, err, "Failed to check update result")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Video not found")
	}

	return nil
}
