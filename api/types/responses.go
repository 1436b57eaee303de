package types

import (
	"time"

	"github.com/killallgit/spectrogram-api/internal/models"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`            // One of the Status constants above
	Message string `json:"message,omitempty"` // Human-readable message
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// SpectrogramRequest is the body of POST /api/v1/spectrograms
type SpectrogramRequest struct {
	URL string `json:"url" binding:"required" example:"https://www.dropbox.com/s/abc/tone.wav?dl=0"`
}

// Render is one history entry
type Render struct {
	RequestID       string    `json:"request_id"`
	ClientRequestID string    `json:"client_request_id,omitempty"`
	SourceURL       string    `json:"source_url"`
	Provider        string    `json:"provider,omitempty"`
	Filename        string    `json:"filename,omitempty"`
	Status          string    `json:"status"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	SampleRate      int       `json:"sample_rate"`
	BitDepth        int       `json:"bit_depth"`
	Channels        int       `json:"channels"`
	BitrateKbps     int       `json:"bitrate_kbps"`
	DurationSeconds float64   `json:"duration_seconds"`
	ImageBytes      int       `json:"image_bytes"`
	ProcessingMS    int64     `json:"processing_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// RenderResponse wraps a single history entry
type RenderResponse struct {
	BaseResponse
	Render Render `json:"render"`
}

// RenderListResponse is one page of history
type RenderListResponse struct {
	BaseResponse
	Renders []Render `json:"renders"`
	Count   int      `json:"count"` // Number of results in this response
	Total   int64    `json:"total"` // Total stored renders
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Database  map[string]string `json:"database"`
}

// NewRender converts a stored render into its API shape
func NewRender(r *models.Render) Render {
	return Render{
		RequestID:       r.RequestID,
		ClientRequestID: r.ClientRequestID,
		SourceURL:       r.SourceURL,
		Provider:        r.Provider,
		Filename:        r.Filename,
		Status:          r.Status,
		ErrorCode:       r.ErrorCode,
		ErrorMessage:    r.ErrorMessage,
		SampleRate:      r.SampleRate,
		BitDepth:        r.BitDepth,
		Channels:        r.Channels,
		BitrateKbps:     r.BitrateKbps,
		DurationSeconds: r.DurationSeconds,
		ImageBytes:      r.ImageBytes,
		ProcessingMS:    r.ProcessingMS,
		CreatedAt:       r.CreatedAt,
	}
}
