// Package metadata reads container-level audio properties without decoding
// samples.
package metadata

import (
	"context"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	"github.com/killallgit/spectrogram-api/pkg/ffmpeg"
)

// Extractor reads container metadata. It never fails: fields the container
// does not expose are reported as audio.Unknown.
type Extractor interface {
	Extract(ctx context.Context, path string) audio.Metadata
}

// Source is one way of reading metadata, e.g. a native header parser
type Source interface {
	// Name identifies the source in logs
	Name() string
	// Read returns the metadata it could find, or an error when the file
	// is not something this source understands
	Read(ctx context.Context, path string) (audio.Metadata, error)
}

// Prober is the subset of ffmpeg.FFmpeg used by ProbeSource
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}
