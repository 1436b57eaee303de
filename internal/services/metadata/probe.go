package metadata

import (
	"context"
	"fmt"

	"github.com/killallgit/spectrogram-api/pkg/audio"
)

// ProbeSource reads metadata with ffprobe, covering every container
// ffmpeg understands
type ProbeSource struct {
	prober Prober
}

// NewProbeSource creates a source backed by ffprobe
func NewProbeSource(prober Prober) *ProbeSource {
	return &ProbeSource{prober: prober}
}

// Name implements Source
func (s *ProbeSource) Name() string { return "ffprobe" }

// Read implements Source
func (s *ProbeSource) Read(ctx context.Context, path string) (audio.Metadata, error) {
	meta := audio.UnknownMetadata()
	if s.prober == nil {
		return meta, fmt.Errorf("ffprobe not configured")
	}

	probe, err := s.prober.Probe(ctx, path)
	if err != nil {
		return meta, err
	}

	meta.Format = probe.FormatName
	meta.Codec = probe.Codec
	meta.Duration = probe.Duration
	meta.SampleRate = positiveOr(probe.SampleRate)
	meta.BitDepth = positiveOr(probe.BitsPerSample)
	if probe.Channels > 0 {
		meta.Channels = probe.Channels
	}
	meta.BitrateKbps = audio.BitrateToKbps(probe.Bitrate)
	return meta, nil
}
