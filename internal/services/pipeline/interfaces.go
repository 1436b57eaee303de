// Package pipeline sequences fetch, validate, decode, analyze and render
// into a single spectrogram invocation.
package pipeline

import (
	"context"
	"time"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	"github.com/killallgit/spectrogram-api/pkg/download"
)

// LinkResolver turns a share link into a direct-download URL
type LinkResolver interface {
	Resolve(link string) (direct string, provider string, err error)
}

// FormatValidator accepts or rejects a filename
type FormatValidator interface {
	Validate(filename string) error
}

// Fetcher streams a URL into dir/filename
type Fetcher interface {
	DownloadToDir(ctx context.Context, url, dir, filename string) (*download.DownloadResult, error)
}

// MetadataExtractor reads container metadata and never fails
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) audio.Metadata
}

// AudioDecoder decodes a file into mono samples
type AudioDecoder interface {
	Decode(ctx context.Context, path string) (*audio.SampleBuffer, error)
}

// SpectralAnalyzer computes the decibel matrix
type SpectralAnalyzer interface {
	Analyze(ctx context.Context, buf *audio.SampleBuffer) (*audio.SpectralMatrix, error)
}

// Renderer draws the matrix into a PNG
type Renderer interface {
	Render(m *audio.SpectralMatrix, meta audio.Metadata, title string) (*audio.SpectrogramImage, error)
}

// Observer receives per-stage timings, e.g. for metrics
type Observer interface {
	ObserveStage(stage Stage, d time.Duration)
}

// Generator is what callers of the pipeline depend on
type Generator interface {
	Generate(ctx context.Context, shareURL string) (*audio.SpectrogramImage, error)
	GenerateReport(ctx context.Context, shareURL string) (*Result, error)
}
