package pipeline

import (
	"time"

	"github.com/killallgit/spectrogram-api/pkg/audio"
)

// Stage names a pipeline step
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageValidate Stage = "validate"
	StageDownload Stage = "download"
	StageMetadata Stage = "metadata"
	StageDecode   Stage = "decode"
	StageAnalyze  Stage = "analyze"
	StageRender   Stage = "render"
)

// Stages lists every stage in execution order
var Stages = []Stage{StageResolve, StageValidate, StageDownload, StageMetadata, StageDecode, StageAnalyze, StageRender}

// Result is a successful invocation with the details the history and
// metrics layers record
type Result struct {
	Image         *audio.SpectrogramImage
	Asset         audio.Asset
	Provider      string
	Metadata      audio.Metadata
	SampleRate    int     // Decoded rate
	Duration      float64 // Decoded seconds
	Rows          int     // Frequency bins
	Cols          int     // Time frames
	DownloadBytes int64
	Timings       map[Stage]time.Duration
}

// Total returns the summed stage durations
func (r *Result) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Timings {
		total += d
	}
	return total
}
