package models

import (
	"time"
)

// TrackStatus mirrors the subtitle track lifecycle reported by the
// streaming host.
type TrackStatus string

const (
	TrackStatusUnknown   TrackStatus = "unknown"
	TrackStatusPreparing TrackStatus = "preparing"
	TrackStatusReady     TrackStatus = "ready"
	TrackStatusError     TrackStatus = "error"
)

type Video struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PlaybackID  string    `json:"playback_id,omitempty"`
	TrackID     string    `json:"track_id,omitempty"`
	TrackStatus string    `json:"track_status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasTrack reports whether the host has published both identifiers needed
// to locate the subtitle track.
func (v *Video) HasTrack() bool {
	return v.PlaybackID != "" && v.TrackID != ""
}

// TrackReady reports whether the subtitle track is available for download.
func (v *Video) TrackReady() bool {
	return v.TrackStatus == string(TrackStatusReady)
}

// VideoResponse represents the API response
type VideoResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TrackStatus string `json:"track_status,omitempty"`
}

// NewVideoResponse creates a response from a video model
func NewVideoResponse(v *Video) *VideoResponse {
	return &VideoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		TrackStatus: v.TrackStatus,
	}
}
