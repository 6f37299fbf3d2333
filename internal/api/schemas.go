package api

import (
	"time"

	"github.com/heimdex/heimdex-studio/internal/catalog"
	"github.com/heimdex/heimdex-studio/internal/events"
	"github.com/heimdex/heimdex-studio/internal/media"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type VideoResponse struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Filename  string  `json:"filename"`
	Path      string  `json:"path"`
	Size      int64   `json:"size"`
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type UploadResponse struct {
	Message string        `json:"message"`
	Video   VideoResponse `json:"video"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// TrimRequest uses the camelCase field names clients already send.
type TrimRequest struct {
	StartTime media.Seconds `json:"startTime"`
	EndTime   media.Seconds `json:"endTime"`
}

type SubtitleRequest struct {
	Text      string        `json:"text"`
	StartTime media.Seconds `json:"startTime"`
	EndTime   media.Seconds `json:"endTime"`
}

type TranscodeResponse struct {
	Message string        `json:"message"`
	Path    string        `json:"path"`
	Video   VideoResponse `json:"video"`
}

type EventResponse struct {
	Type       string `json:"type"`
	Status     string `json:"status,omitempty"`
	Path       string `json:"path,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

type EventsResponse struct {
	VideoID int64           `json:"video_id"`
	Events  []EventResponse `json:"events"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func VideoToResponse(v *catalog.Video) VideoResponse {
	return VideoResponse{
		ID:        v.ID,
		Title:     v.Title,
		Filename:  v.Filename,
		Path:      v.Path,
		Size:      v.Size,
		Duration:  v.Duration,
		Width:     v.Width,
		Height:    v.Height,
		Status:    string(v.Status),
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}

func EventToResponse(e events.Event) EventResponse {
	return EventResponse{
		Type:       e.Type,
		Status:     e.Status,
		Path:       e.Path,
		OccurredAt: e.OccurredAt.Format(time.RFC3339Nano),
	}
}
