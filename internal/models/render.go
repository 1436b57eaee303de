package models

import (
	"gorm.io/gorm"
)

// Render statuses
const (
	RenderStatusSucceeded = "succeeded"
	RenderStatusFailed    = "failed"
)

// Render is one audited spectrogram invocation. Only outcomes and metadata
// summaries are stored, never samples or images.
type Render struct {
	gorm.Model
	RequestID       string  `json:"request_id" gorm:"uniqueIndex;not null"`
	ClientRequestID string  `json:"client_request_id,omitempty" gorm:"index"`
	SourceURL       string  `json:"source_url" gorm:"not null"`
	Provider        string  `json:"provider"`
	Filename        string  `json:"filename"`
	Status          string  `json:"status" gorm:"not null;index"`
	ErrorCode       string  `json:"error_code,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	SampleRate      int     `json:"sample_rate"`
	BitDepth        int     `json:"bit_depth"`
	Channels        int     `json:"channels"`
	BitrateKbps     int     `json:"bitrate_kbps"`
	DurationSeconds float64 `json:"duration_seconds"`
	ImageBytes      int     `json:"image_bytes"`
	ProcessingMS    int64   `json:"processing_ms"`
}

// Succeeded reports whether the invocation produced an image
func (r *Render) Succeeded() bool {
	return r.Status == RenderStatusSucceeded
}
